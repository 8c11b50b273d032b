// Package store provides SQLite-backed durable storage for compiled models.
//
// A stored model is one row in models plus one row per variable and per
// constraint, keyed by (model_id, idx) so catalog order is preserved.
// Constraint bodies are RFC 8785 canonical JSON (see internal/ir).
//
// Besides plain SaveModel/LoadModel, the store can act as the solver
// backend itself: Begin opens a Session, a backend.Backend whose entities
// are staged inside one transaction. Commit persists the finished model;
// Rollback discards everything the session created.
//
// # Deterministic Query Results
//
//   - Listings use ORDER BY seq ASC, id ASC COLLATE BINARY
//   - Entities are read back ORDER BY idx ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds a single connection, so other Store calls block while a
// Session is open.
package store
