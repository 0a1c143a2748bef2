package store

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/predicate"
)

// ErrNoHistory is returned when no activity record qualifies for a
// temporal lookup.
var ErrNoHistory = errors.New("no activity history")

// Store is the read contract over the append-only activity log, plus
// the one-time attribution update. Production rows are written by the
// database-side capture trigger; InsertActivity exists for tests and
// replay tooling. Every call may block on backend I/O; callers own
// timeout and cancellation via ctx.
type Store interface {
	// InsertActivity appends a record to the log.
	InsertActivity(ctx context.Context, a *model.Activity) error

	// MaxTransactionID returns the latest transaction touching the
	// identity, optionally restricted to strictly before a cutoff.
	// Returns ErrNoHistory when no record qualifies.
	MaxTransactionID(ctx context.Context, id model.Identity, before *time.Time) (int64, error)

	// DataAtTransaction returns the merged snapshot of the identity's
	// latest record at the given transaction, or ErrNoHistory.
	DataAtTransaction(ctx context.Context, id model.Identity, txID int64) (map[string]any, error)

	// RecordsMatching returns the table's records satisfying the
	// reflected predicate, ordered by (transaction_id, issued_at, id).
	RecordsMatching(ctx context.Context, table string, pred *predicate.Reflected) ([]*model.Activity, error)

	// LastDeletions returns delete records matching the reflected
	// predicate for which no later record exists with the same
	// identity, i.e. the delete is the last known event for that row.
	LastDeletions(ctx context.Context, table string, pkColumns []string, pred *predicate.Reflected) ([]*model.Activity, error)

	// AttributeTransaction updates the metadata columns of every log
	// row written by the current transaction within the window and
	// returns the number of rows matched. Values must already be
	// resolved (no callables).
	AttributeTransaction(ctx context.Context, values map[string]any, window time.Duration) (int64, error)

	// SupportsAttribution reports whether the backend exposes the
	// transaction-identifier primitive attribution relies on.
	SupportsAttribution() bool

	// RunInTransaction runs fn inside a single database transaction.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Close releases the underlying connection.
	Close() error
}
