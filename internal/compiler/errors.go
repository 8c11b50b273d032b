package compiler

import (
	"errors"
	"fmt"
)

// Assembly stages, in execution order.
const (
	StageCatalog     = "catalog"
	StageFactor      = "factor"
	StageEnvelope    = "envelope"
	StageObjective   = "objective"
	StageSelection   = "selection"
	StageVariables   = "variables"
	StageConstraints = "constraints"
)

// AssemblyError reports a backend failure while materializing a model.
// Every entity created before the failure has been released; Rollback holds
// the joined release errors, if any.
type AssemblyError struct {
	Stage    string
	Entity   string
	Err      error
	Rollback error
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	msg := fmt.Sprintf("assembly failed at %s %s: %v", e.Stage, e.Entity, e.Err)
	if e.Rollback != nil {
		msg += fmt.Sprintf(" (rollback: %v)", e.Rollback)
	}
	return msg
}

// Unwrap exposes both the cause and the rollback errors.
func (e *AssemblyError) Unwrap() []error {
	if e.Rollback == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Rollback}
}

// CloneError reports a transform failure during Clone.
type CloneError struct {
	Entity string
	Err    error
}

// Error implements the error interface.
func (e *CloneError) Error() string {
	return fmt.Sprintf("clone failed at %s: %v", e.Entity, e.Err)
}

// Unwrap returns the transform error.
func (e *CloneError) Unwrap() error { return e.Err }

// IsAssemblyError returns true if err carries an AssemblyError.
// Uses errors.As to handle wrapped errors.
func IsAssemblyError(err error) bool {
	var ae *AssemblyError
	return errors.As(err, &ae)
}
