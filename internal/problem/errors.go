package problem

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes problem specification errors.
type ErrorCode string

const (
	// CodeInvalidDimension indicates the design matrix shape disagrees with (d, n).
	CodeInvalidDimension ErrorCode = "INVALID_DIMENSION"

	// CodeInvalidCardinality indicates k > n in exact mode or a negative capacity.
	CodeInvalidCardinality ErrorCode = "INVALID_CARDINALITY"

	// CodeInvalidRegularization indicates a ridge parameter that is not finite and positive.
	CodeInvalidRegularization ErrorCode = "INVALID_REGULARIZATION"

	// CodeInvalidInstance indicates a malformed instance stream.
	CodeInvalidInstance ErrorCode = "INVALID_INSTANCE"
)

// Sentinels for errors.Is matching. A *SpecError matches the sentinel of its code.
var (
	ErrInvalidDimension      = errors.New("invalid dimension")
	ErrInvalidCardinality    = errors.New("invalid cardinality")
	ErrInvalidRegularization = errors.New("invalid regularization")
	ErrInvalidInstance       = errors.New("invalid instance")
)

// SpecError reports an invalid ProblemSpec field.
type SpecError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches the sentinel that corresponds to the error code.
func (e *SpecError) Is(target error) bool {
	return target == sentinel(e.Code)
}

func sentinel(code ErrorCode) error {
	switch code {
	case CodeInvalidDimension:
		return ErrInvalidDimension
	case CodeInvalidCardinality:
		return ErrInvalidCardinality
	case CodeInvalidRegularization:
		return ErrInvalidRegularization
	case CodeInvalidInstance:
		return ErrInvalidInstance
	}
	return nil
}

// ErrorCodeOf extracts the code of a SpecError anywhere in err's chain.
// Returns "" if err carries no SpecError.
func ErrorCodeOf(err error) ErrorCode {
	var se *SpecError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func dimensionError(field, format string, args ...any) *SpecError {
	return &SpecError{Code: CodeInvalidDimension, Field: field, Message: fmt.Sprintf(format, args...)}
}

func cardinalityError(field, format string, args ...any) *SpecError {
	return &SpecError{Code: CodeInvalidCardinality, Field: field, Message: fmt.Sprintf(format, args...)}
}

func regularizationError(field, format string, args ...any) *SpecError {
	return &SpecError{Code: CodeInvalidRegularization, Field: field, Message: fmt.Sprintf(format, args...)}
}
