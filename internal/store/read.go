package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// ErrNotFound is returned when a model id does not exist.
var ErrNotFound = errors.New("model not found")

// ModelSummary is one row of a model listing.
type ModelSummary struct {
	ID          string           `json:"id"`
	Seq         int64            `json:"seq"`
	Name        string           `json:"name"`
	Hash        string           `json:"hash"`
	N           int              `json:"n"`
	D           int              `json:"d"`
	K           int              `json:"k"`
	Mode        ir.SelectionMode `json:"mode"`
	Objective   string           `json:"objective"`
	Variables   int              `json:"variables"`
	Constraints int              `json:"constraints"`
}

const summaryQuery = `
	SELECT m.id, m.seq, m.name, m.hash, m.n, m.d, m.k, m.mode, m.objective,
		(SELECT COUNT(*) FROM variables v WHERE v.model_id = m.id),
		(SELECT COUNT(*) FROM constraints c WHERE c.model_id = m.id)
	FROM models m
`

// ListModels returns every stored model, oldest first.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListModels(ctx context.Context) ([]ModelSummary, error) {
	return s.querySummaries(ctx, summaryQuery+` ORDER BY m.seq ASC, m.id COLLATE BINARY ASC`)
}

// FindByHash returns every stored model whose structure hashes to hash.
func (s *Store) FindByHash(ctx context.Context, hash string) ([]ModelSummary, error) {
	return s.querySummaries(ctx, summaryQuery+` WHERE m.hash = ? ORDER BY m.seq ASC, m.id COLLATE BINARY ASC`, hash)
}

func (s *Store) querySummaries(ctx context.Context, query string, args ...any) ([]ModelSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	out := []ModelSummary{}
	for rows.Next() {
		var ms ModelSummary
		var mode string
		if err := rows.Scan(&ms.ID, &ms.Seq, &ms.Name, &ms.Hash, &ms.N, &ms.D, &ms.K, &mode, &ms.Objective, &ms.Variables, &ms.Constraints); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		ms.Mode = ir.SelectionMode(mode)
		out = append(out, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return out, nil
}

// LoadModel reads a stored model back, layout included.
func (s *Store) LoadModel(ctx context.Context, id string) (*ir.Model, error) {
	m := &ir.Model{}
	var mode, weights string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, n, d, k, mode, ridge, capacity, weights, objective
		FROM models WHERE id = ?
	`, id).Scan(&m.Name, &m.N, &m.D, &m.K, &mode, &m.Ridge, &m.Capacity, &weights, &m.Objective)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load model %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	m.Mode = ir.SelectionMode(mode)
	if m.Weights, err = unmarshalWeights(weights); err != nil {
		return nil, err
	}

	if m.Variables, err = s.readVariables(ctx, id); err != nil {
		return nil, err
	}
	if m.Constraints, err = s.readConstraints(ctx, id); err != nil {
		return nil, err
	}
	if err := m.RebuildLayout(); err != nil {
		return nil, fmt.Errorf("load model %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) readVariables(ctx context.Context, id string) ([]ir.Variable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, name, role, i, j, domain, lower, upper, obj
		FROM variables WHERE model_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	var out []ir.Variable
	for rows.Next() {
		var v ir.Variable
		var handle, role, domain, lower, upper string
		if err := rows.Scan(&handle, &v.Name, &role, &v.I, &v.J, &domain, &lower, &upper, &v.Obj); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		v.Handle, v.Role, v.Domain = ir.Handle(handle), ir.Role(role), ir.Domain(domain)
		if v.Lower, err = unmarshalBound(lower); err != nil {
			return nil, err
		}
		if v.Upper, err = unmarshalBound(upper); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variables: %w", err)
	}
	return out, nil
}

func (s *Store) readConstraints(ctx context.Context, id string) ([]ir.Constraint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, body, lower, upper
		FROM constraints WHERE model_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	var out []ir.Constraint
	for rows.Next() {
		var handle, body, lower, upper string
		if err := rows.Scan(&handle, &body, &lower, &upper); err != nil {
			return nil, fmt.Errorf("scan constraint: %w", err)
		}
		c, err := unmarshalBody(body)
		if err != nil {
			return nil, err
		}
		c.Handle = ir.Handle(handle)
		if c.Lower, err = unmarshalBound(lower); err != nil {
			return nil, err
		}
		if c.Upper, err = unmarshalBound(upper); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate constraints: %w", err)
	}
	return out, nil
}
