// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"mfg-orchestrator/internal/common/database"
	"mfg-orchestrator/internal/common/logger"
)

// Store is the Postgres persistence layer for items, machines, production
// slots, jobs, customers and estimates.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "store"}),
	}
}

// WithClock replaces the time source used for job numbers and timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return database.WithTx(ctx, s.db, fn)
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}
