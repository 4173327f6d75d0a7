// Package sqlstore implements store.Store on top of sqlx. It runs against
// PostgreSQL (lib/pq) in production and SQLite (mattn/go-sqlite3) for local
// development and tests; queries are written with '?' placeholders and
// rebound for the active driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/cuongbtq/fieldops-be/internal/store"
	"github.com/jmoiron/sqlx"
)

// Driver names understood by the store
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var _ store.Store = (*Store)(nil)

// Store is the SQL-backed store
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New wraps an open database handle
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// DB returns the underlying handle
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Jobs returns the job repository bound to the connection pool
func (s *Store) Jobs() store.JobRepository { return &jobRepo{ext: s.db} }

// Audit returns the audit log bound to the connection pool
func (s *Store) Audit() store.AuditLog { return &auditLog{ext: s.db} }

// Notifications returns the notification sink bound to the connection pool
func (s *Store) Notifications() store.NotificationSink { return &notificationSink{ext: s.db} }

// Directory returns the principal directory bound to the connection pool
func (s *Store) Directory() store.RecipientDirectory { return &directory{ext: s.db} }

// WithinTx runs fn in a database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Internal("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&txRepos{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to roll back transaction",
				slog.String("error", rbErr.Error()),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.Internal("commit transaction", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

type txRepos struct {
	ext sqlx.ExtContext
}

func (t *txRepos) Jobs() store.JobRepository             { return &jobRepo{ext: t.ext} }
func (t *txRepos) Audit() store.AuditLog                 { return &auditLog{ext: t.ext} }
func (t *txRepos) Notifications() store.NotificationSink { return &notificationSink{ext: t.ext} }
func (t *txRepos) Directory() store.RecipientDirectory   { return &directory{ext: t.ext} }

// insertReturningID runs an INSERT ... RETURNING id statement
func insertReturningID(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) (int64, error) {
	var id int64
	if err := ext.QueryRowxContext(ctx, ext.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execAffected runs a statement and returns the number of affected rows
func execAffected(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
