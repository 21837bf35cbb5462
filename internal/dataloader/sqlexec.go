package dataloader

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// SQLExecutor runs statements directly over a Redshift connection. Execution is
// synchronous, so the outcome is known by the time Submit returns; it is held
// under a generated handle until Describe collects it.
type SQLExecutor struct {
	DB *sql.DB

	mu       sync.Mutex
	outcomes map[string]StatementStatus
}

// NewSQLExecutor builds an executor on an open connection pool.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{DB: db, outcomes: make(map[string]StatementStatus)}
}

// Submit executes stmt.SQL. The connection already carries the database and
// user, so stmt.Database and stmt.DbUser are not used. Errors reported by the
// server become a FAILED outcome; anything else is returned as a fault.
func (e *SQLExecutor) Submit(ctx context.Context, stmt Statement) (string, error) {
	outcome := StatementStatus{Status: StatusFinished}
	if _, err := e.DB.ExecContext(ctx, stmt.SQL); err != nil {
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) {
			return "", errors.Wrap(err, "execute statement")
		}
		outcome = StatementStatus{Status: StatusFailed, Error: pqErr.Message}
	}

	id := uuid.NewString()
	e.mu.Lock()
	e.outcomes[id] = outcome
	e.mu.Unlock()
	return id, nil
}

// Describe returns the outcome recorded for id and forgets it.
func (e *SQLExecutor) Describe(_ context.Context, id string) (StatementStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	outcome, ok := e.outcomes[id]
	if !ok {
		return StatementStatus{}, errors.Errorf("unknown statement %s", id)
	}
	delete(e.outcomes, id)
	return outcome, nil
}
