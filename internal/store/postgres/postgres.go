// Package postgres implements the store.Store interface backed by
// PostgreSQL. It also owns the capture plumbing: embedded migrations
// create the activity table and the audit_table/create_activity
// trigger machinery, and AuditTable attaches capture to a relation.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/predicate"
	"github.com/alfredjeanlab/chronicle/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func runMigrations(db *sql.DB) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// RemoveVersioning tears down the audit schema: triggers, capture
// functions, and the activity table, with all captured history. The
// store is unusable afterwards.
func (s *PostgresStore) RemoveVersioning() error {
	m, err := newMigrator(s.db)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) InsertActivity(ctx context.Context, a *model.Activity) error {
	return queryInsertActivity(ctx, s.db, a)
}

func (s *PostgresStore) MaxTransactionID(ctx context.Context, id model.Identity, before *time.Time) (int64, error) {
	return queryMaxTransactionID(ctx, s.db, id, before)
}

func (s *PostgresStore) DataAtTransaction(ctx context.Context, id model.Identity, txID int64) (map[string]any, error) {
	return queryDataAtTransaction(ctx, s.db, id, txID)
}

func (s *PostgresStore) RecordsMatching(ctx context.Context, table string, pred *predicate.Reflected) ([]*model.Activity, error) {
	return queryRecordsMatching(ctx, s.db, table, pred)
}

func (s *PostgresStore) LastDeletions(ctx context.Context, table string, pkColumns []string, pred *predicate.Reflected) ([]*model.Activity, error) {
	return queryLastDeletions(ctx, s.db, table, pkColumns, pred)
}

func (s *PostgresStore) AttributeTransaction(ctx context.Context, values map[string]any, window time.Duration) (int64, error) {
	return queryAttributeTransaction(ctx, s.db, values, window)
}

// SupportsAttribution is true for PostgreSQL: txid_current() provides
// the transaction identifier the attribution update keys on.
func (s *PostgresStore) SupportsAttribution() bool {
	return true
}

// RunInTransaction begins a database transaction, creates a txStore
// that delegates to it, calls fn, and commits on success or rolls back
// on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx. Reads observe the
// transaction's own uncommitted writes, which is what the attribution
// hook and the temporal queries rely on inside a unit of work.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) InsertActivity(ctx context.Context, a *model.Activity) error {
	return queryInsertActivity(ctx, s.tx, a)
}

func (s *txStore) MaxTransactionID(ctx context.Context, id model.Identity, before *time.Time) (int64, error) {
	return queryMaxTransactionID(ctx, s.tx, id, before)
}

func (s *txStore) DataAtTransaction(ctx context.Context, id model.Identity, txID int64) (map[string]any, error) {
	return queryDataAtTransaction(ctx, s.tx, id, txID)
}

func (s *txStore) RecordsMatching(ctx context.Context, table string, pred *predicate.Reflected) ([]*model.Activity, error) {
	return queryRecordsMatching(ctx, s.tx, table, pred)
}

func (s *txStore) LastDeletions(ctx context.Context, table string, pkColumns []string, pred *predicate.Reflected) ([]*model.Activity, error) {
	return queryLastDeletions(ctx, s.tx, table, pkColumns, pred)
}

func (s *txStore) AttributeTransaction(ctx context.Context, values map[string]any, window time.Duration) (int64, error) {
	return queryAttributeTransaction(ctx, s.tx, values, window)
}

func (s *txStore) SupportsAttribution() bool {
	return true
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
