package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveModel persists m in one transaction and returns its new id (UUIDv7).
// Handles are stored as they are; the store does not own them.
func (s *Store) SaveModel(ctx context.Context, m *ir.Model) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save model: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id := uuid.Must(uuid.NewV7()).String()
	if err := writeModel(ctx, tx, id, m); err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save model: commit: %w", err)
	}
	return id, nil
}

// writeModel inserts the model row and every entity row.
func writeModel(ctx context.Context, ex execer, id string, m *ir.Model) error {
	hash, err := ir.ModelHash(m)
	if err != nil {
		return err
	}
	weights, err := marshalWeights(m.Weights)
	if err != nil {
		return err
	}

	var seq int64
	if err := ex.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM models`).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO models
		(id, seq, name, hash, n, d, k, mode, ridge, capacity, weights, objective)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, seq, m.Name, hash, m.N, m.D, m.K, string(m.Mode), m.Ridge, m.Capacity, weights, m.Objective,
	)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}

	for idx, v := range m.Variables {
		lower, err := marshalBound(v.Lower)
		if err != nil {
			return err
		}
		upper, err := marshalBound(v.Upper)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(ctx, `
			INSERT INTO variables
			(model_id, idx, handle, name, role, i, j, domain, lower, upper, obj)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, idx, string(v.Handle), v.Name, string(v.Role), v.I, v.J, string(v.Domain), lower, upper, v.Obj,
		)
		if err != nil {
			return fmt.Errorf("insert variable %s: %w", v.Name, err)
		}
	}

	for idx, c := range m.Constraints {
		body, err := marshalBody(c)
		if err != nil {
			return err
		}
		lower, err := marshalBound(c.Lower)
		if err != nil {
			return err
		}
		upper, err := marshalBound(c.Upper)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(ctx, `
			INSERT INTO constraints
			(model_id, idx, handle, name, kind, body, lower, upper)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, idx, string(c.Handle), c.Name, string(c.Kind), body, lower, upper,
		)
		if err != nil {
			return fmt.Errorf("insert constraint %s: %w", c.Name, err)
		}
	}

	return nil
}

// DeleteModel removes a stored model and its entities.
// Returns ErrNotFound if no model has the id.
func (s *Store) DeleteModel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete model %s: %w", id, ErrNotFound)
	}
	return nil
}
