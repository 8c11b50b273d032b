package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lidingxu/D-optimal-design/internal/backend"
	"github.com/lidingxu/D-optimal-design/internal/ir"
)

// ErrSessionClosed is returned by every Session method after Commit or
// Rollback.
var ErrSessionClosed = errors.New("session closed")

// Session is a transactional backend.Backend. Entities it creates are
// staged in the open transaction; nothing is visible to other readers until
// Commit.
//
// Thread-safety: a Session must not be used concurrently.
type Session struct {
	tx     *sql.Tx
	id     string
	closed bool
}

var _ backend.Backend = (*Session)(nil)

// Begin opens a session. The caller must finish it with Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return &Session{tx: tx, id: uuid.Must(uuid.NewV7()).String()}, nil
}

// ID returns the session id, which becomes the id of the committed model.
func (s *Session) ID() string { return s.id }

func (s *Session) stage(ctx context.Context, kind, name string) (ir.Handle, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	h := uuid.Must(uuid.NewV7()).String()
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO staged_entities (handle, session_id, kind, name)
		VALUES (?, ?, ?, ?)
	`, h, s.id, kind, name)
	if err != nil {
		return "", fmt.Errorf("stage %s %s: %w", kind, name, err)
	}
	return ir.Handle(h), nil
}

// CreateVariable implements backend.Backend.
func (s *Session) CreateVariable(ctx context.Context, v ir.Variable) (ir.Handle, error) {
	return s.stage(ctx, "variable", v.Name)
}

// CreateConstraint implements backend.Backend. Every operand must be a
// variable staged by this session.
func (s *Session) CreateConstraint(ctx context.Context, c ir.Constraint, operands []ir.Handle) (ir.Handle, error) {
	if s.closed {
		return "", ErrSessionClosed
	}
	for _, h := range operands {
		var kind string
		err := s.tx.QueryRowContext(ctx, `
			SELECT kind FROM staged_entities WHERE handle = ? AND session_id = ?
		`, string(h), s.id).Scan(&kind)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && kind != "variable") {
			return "", fmt.Errorf("constraint %s: operand %q: %w", c.Name, h, backend.ErrUnknownHandle)
		}
		if err != nil {
			return "", fmt.Errorf("constraint %s: %w", c.Name, err)
		}
	}
	return s.stage(ctx, "constraint", c.Name)
}

// Release implements backend.Backend.
func (s *Session) Release(ctx context.Context, h ir.Handle) error {
	if s.closed {
		return ErrSessionClosed
	}
	res, err := s.tx.ExecContext(ctx, `
		DELETE FROM staged_entities WHERE handle = ? AND session_id = ?
	`, string(h), s.id)
	if err != nil {
		return fmt.Errorf("release %q: %w", h, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("release %q: %w", h, err)
	} else if n == 0 {
		return fmt.Errorf("release %q: %w", h, backend.ErrUnknownHandle)
	}
	return nil
}

// Staged returns the number of entities currently staged by the session.
func (s *Session) Staged(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrSessionClosed
	}
	var n int
	err := s.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM staged_entities WHERE session_id = ?
	`, s.id).Scan(&n)
	return n, err
}

// Commit persists m under the session id and ends the session. Every
// handle of m must be staged by this session, and nothing else may be.
func (s *Session) Commit(ctx context.Context, m *ir.Model) error {
	if s.closed {
		return ErrSessionClosed
	}

	staged, err := s.Staged(ctx)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	handles := m.Handles()
	if staged != len(handles) {
		return fmt.Errorf("commit: session staged %d entities, model has %d", staged, len(handles))
	}
	for _, h := range handles {
		var n int
		if err := s.tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM staged_entities WHERE handle = ? AND session_id = ?
		`, string(h), s.id).Scan(&n); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("commit: handle %q: %w", h, backend.ErrUnknownHandle)
		}
	}

	if err := writeModel(ctx, s.tx, s.id, m); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM staged_entities WHERE session_id = ?`, s.id); err != nil {
		return fmt.Errorf("commit: clear staging: %w", err)
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.closed = true
	return nil
}

// Rollback discards every staged entity and ends the session.
// Rollback after Commit is a no-op.
func (s *Session) Rollback() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.tx.Rollback()
}
