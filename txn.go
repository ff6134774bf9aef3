package etiquette

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// deferredAction is a queued side effect: commitFn runs (in queue order)
// only when the outermost transaction commits; rollbackFn runs (in LIFO
// order) when the transaction that queued it, or any ancestor, rolls back.
type deferredAction struct {
	commitFn   func() error
	rollbackFn func() error
}

type spFrame struct {
	name       string // "" for the outermost (real) transaction
	commitLen  int
	rollbackLen int
}

// TxnManager implements nested savepoints over a single physical
// connection, with deferred commit/rollback action queues, per spec.md
// §4.1. A PhotoDB owns exactly one TxnManager.
type TxnManager struct {
	mu        sync.Mutex
	store     *Store
	conn      *sql.Conn
	stack     []spFrame
	onCommit  []deferredAction
	onRollback []deferredAction
}

// NewTxnManager wraps store for nested-transaction use.
func NewTxnManager(store *Store) *TxnManager {
	return &TxnManager{store: store}
}

// Txn is a handle to one level of savepoint nesting. It is not safe for
// concurrent use by multiple goroutines (the catalog is single-writer).
type Txn struct {
	mgr   *TxnManager
	depth int
}

// Begin opens a new transaction level: a real BEGIN if nothing is open
// yet, otherwise a named SAVEPOINT nested inside the current one.
func (m *TxnManager) Begin(ctx context.Context) (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.stack) == 0 {
		conn, err := m.store.conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire connection: %w", err)
		}
		if _, err := conn.ExecContext(ctx, `BEGIN`); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		m.conn = conn
		m.stack = append(m.stack, spFrame{})
		return &Txn{mgr: m, depth: 1}, nil
	}

	spname := "sp_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if _, err := m.conn.ExecContext(ctx, `SAVEPOINT `+spname); err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}
	m.stack = append(m.stack, spFrame{
		name:        spname,
		commitLen:   len(m.onCommit),
		rollbackLen: len(m.onRollback),
	})
	return &Txn{mgr: m, depth: len(m.stack)}, nil
}

// Exec runs a statement against the shared connection.
func (t *Txn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.mgr.conn.ExecContext(ctx, query, args...)
}

// Query runs a query against the shared connection.
func (t *Txn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.mgr.conn.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query against the shared connection.
func (t *Txn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.mgr.conn.QueryRowContext(ctx, query, args...)
}

// Defer queues a deferred side effect. commitFn fires once, in queue
// order, when the outermost transaction commits. rollbackFn fires if this
// transaction (or an ancestor) rolls back, in LIFO order with other
// queued actions. Either may be nil.
func (t *Txn) Defer(commitFn, rollbackFn func() error) {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	t.mgr.onCommit = append(t.mgr.onCommit, deferredAction{commitFn: commitFn})
	t.mgr.onRollback = append(t.mgr.onRollback, deferredAction{rollbackFn: rollbackFn})
}

// Commit releases this transaction level. At the outermost level this
// drains and runs the commit queue before issuing COMMIT; if any queued
// action fails, the whole transaction is rolled back instead and the
// error is returned. Nested levels just RELEASE the savepoint, leaving
// queued actions pending for an ancestor's commit.
func (t *Txn) Commit(ctx context.Context) error {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()

	m := t.mgr
	if t.depth != len(m.stack) {
		return fmt.Errorf("transaction is not the innermost open level")
	}
	frame := m.stack[len(m.stack)-1]

	if len(m.stack) == 1 {
		for _, action := range m.onCommit {
			if action.commitFn == nil {
				continue
			}
			if err := action.commitFn(); err != nil {
				m.runRollbackLocked(0)
				m.conn.ExecContext(ctx, `ROLLBACK`)
				m.onCommit = nil
				m.stack = nil
				m.releaseConnLocked()
				return fmt.Errorf("deferred commit action failed, transaction rolled back: %w", err)
			}
		}
		if _, err := m.conn.ExecContext(ctx, `COMMIT`); err != nil {
			m.releaseConnLocked()
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		m.onCommit = nil
		m.onRollback = nil
		m.stack = nil
		m.releaseConnLocked()
		return nil
	}

	if _, err := m.conn.ExecContext(ctx, `RELEASE `+frame.name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

// Rollback discards this transaction level and everything queued within
// it, running rollback compensations in LIFO order.
func (t *Txn) Rollback(ctx context.Context) error {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()

	m := t.mgr
	if t.depth != len(m.stack) {
		return fmt.Errorf("transaction is not the innermost open level")
	}
	frame := m.stack[len(m.stack)-1]

	m.runRollbackLocked(frame.rollbackLen)
	m.onCommit = m.onCommit[:frame.commitLen]

	if len(m.stack) == 1 {
		_, err := m.conn.ExecContext(ctx, `ROLLBACK`)
		m.stack = nil
		m.releaseConnLocked()
		if err != nil {
			return fmt.Errorf("failed to roll back transaction: %w", err)
		}
		return nil
	}

	if _, err := m.conn.ExecContext(ctx, `ROLLBACK TO `+frame.name); err != nil {
		return fmt.Errorf("failed to roll back to savepoint: %w", err)
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

// runRollbackLocked executes rollback compensations queued since index
// from, in LIFO order, and truncates the rollback queue to from. Caller
// must hold m.mu.
func (m *TxnManager) runRollbackLocked(from int) {
	for i := len(m.onRollback) - 1; i >= from; i-- {
		action := m.onRollback[i]
		if action.rollbackFn == nil {
			continue
		}
		// Compensations are best-effort: a failure here must not prevent
		// the rest of the rollback from proceeding.
		_ = action.rollbackFn()
	}
	m.onRollback = m.onRollback[:from]
}

func (m *TxnManager) releaseConnLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
