// Package versioning implements the temporal query engine over the
// activity log: point-in-time snapshots, revert, resurrect, and the
// per-transaction actor attribution hook.
package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/predicate"
	"github.com/alfredjeanlab/chronicle/internal/schema"
	"github.com/alfredjeanlab/chronicle/internal/store"
)

// ErrNoHistory is returned by Revert and SnapshotAt when no activity
// record exists for the identity before the requested time. Callers
// decide whether that is a no-op or a hard failure.
var ErrNoHistory = errors.New("versioning: no history for identity before requested time")

// DefaultAttributionWindow bounds the attribution update's search
// space. It is a heuristic, not a correctness boundary: a transaction
// held open longer than the window attributes zero rows, which the
// hook logs as a warning.
const DefaultAttributionWindow = 24 * time.Hour

// attributableColumns are the activity columns SetTransactionValue accepts.
var attributableColumns = map[string]bool{
	"actor_id":    true,
	"client_addr": true,
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithAttributionWindow overrides the attribution search window.
func WithAttributionWindow(window time.Duration) Option {
	return func(m *Manager) { m.window = window }
}

// Manager is the versioning engine. It is a synchronous library
// invoked inside a caller-managed transaction: it starts no goroutines
// or timers of its own, and every method may block on backend I/O.
type Manager struct {
	registry *schema.Registry
	store    store.Store
	logger   *slog.Logger
	window   time.Duration

	mu     sync.Mutex
	values map[string]any
}

// NewManager builds an engine over a finalized registry and a store.
func NewManager(registry *schema.Registry, s store.Store, opts ...Option) *Manager {
	m := &Manager{
		registry: registry,
		store:    s,
		logger:   slog.Default(),
		window:   DefaultAttributionWindow,
		values:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetTransactionValue binds a metadata value to all activity rows the
// current transaction produces. The value may be a literal or a
// zero-argument func() any evaluated at attribution time.
func (m *Manager) SetTransactionValue(column string, value any) error {
	if !attributableColumns[column] {
		return &schema.ConfigurationError{
			Type:   "activity",
			Reason: fmt.Sprintf("column %q cannot carry transaction metadata", column),
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[column] = value
	return nil
}

// ClearTransactionValues drops all bound metadata values.
func (m *Manager) ClearTransactionValues() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]any)
}

// OnUnitOfWorkCommitted is the transaction-attribution hook. The host
// application's unit-of-work boundary must call it exactly once per
// committing unit of work, after pending writes are flushed to the log
// but before the surrounding transaction is finalized.
//
// With no bound values it is a no-op. On a backend without the
// required transaction-identifier primitive it warns and skips rather
// than failing: losing who changed a row is less harmful than losing
// the write itself.
func (m *Manager) OnUnitOfWorkCommitted(ctx context.Context) error {
	values := m.snapshotValues()
	if len(values) == 0 {
		return nil
	}

	if !m.store.SupportsAttribution() {
		m.logger.Warn("backend does not support transaction attribution; activity rows will have no actor metadata")
		return nil
	}

	n, err := m.store.AttributeTransaction(ctx, values, m.window)
	if err != nil {
		return fmt.Errorf("attribute transaction: %w", err)
	}
	if n == 0 {
		// Either the transaction wrote no monitored rows, or it has
		// been open longer than the attribution window.
		m.logger.Warn("transaction attribution matched no activity rows", "window", m.window)
	}
	return nil
}

// snapshotValues resolves callables into literals at attribution time.
func (m *Manager) snapshotValues() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		if fn, ok := v.(func() any); ok {
			out[k] = fn()
		} else {
			out[k] = v
		}
	}
	return out
}

// SnapshotAt returns the merged snapshot of the entity's identity as
// of the latest transaction strictly before asOf.
func (m *Manager) SnapshotAt(ctx context.Context, entity any, asOf time.Time) (map[string]any, error) {
	_, id, err := m.identify(entity)
	if err != nil {
		return nil, err
	}

	txID, err := m.store.MaxTransactionID(ctx, id, &asOf)
	if err != nil {
		if errors.Is(err, store.ErrNoHistory) {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, id)
		}
		return nil, err
	}

	data, err := m.store.DataAtTransaction(ctx, id, txID)
	if err != nil {
		if errors.Is(err, store.ErrNoHistory) {
			return nil, fmt.Errorf("%w: %s", ErrNoHistory, id)
		}
		return nil, err
	}
	return data, nil
}

// Revert overwrites the live entity's fields with its historical
// snapshot as of asOf. Only fields present in the snapshot are
// assigned; columns the live schema has that history lacks are left
// untouched. The entity is mutated in memory only; persisting the
// result is the caller's transaction's business.
func (m *Manager) Revert(ctx context.Context, entity any, asOf time.Time) error {
	e, _, err := m.identify(entity)
	if err != nil {
		return err
	}

	data, err := m.SnapshotAt(ctx, entity, asOf)
	if err != nil {
		return err
	}
	return e.Apply(entity, data)
}

// Resurrect reconstructs entities of the prototype's type whose last
// known event is a deletion matching expr, from the merged state at
// the delete. The returned instances are fresh structs for the caller
// to re-insert.
func (m *Manager) Resurrect(ctx context.Context, prototype any, expr predicate.Expr) ([]any, error) {
	e, err := m.registry.Lookup(prototype)
	if err != nil {
		return nil, err
	}

	reflected, err := predicate.Reflect(e, expr)
	if err != nil {
		return nil, err
	}

	records, err := m.store.LastDeletions(ctx, e.Table, e.PrimaryKey, reflected)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(records))
	for _, rec := range records {
		instance := e.New()
		if err := e.Apply(instance, rec.Data()); err != nil {
			return nil, fmt.Errorf("resurrect %s: %w", e.Table, err)
		}
		out = append(out, instance)
	}
	return out, nil
}

// History returns the activity records for the entity type matching
// expr, in (transaction_id, issued_at, id) order.
func (m *Manager) History(ctx context.Context, prototype any, expr predicate.Expr) ([]*model.Activity, error) {
	e, err := m.registry.Lookup(prototype)
	if err != nil {
		return nil, err
	}
	var reflected *predicate.Reflected
	if expr != nil {
		if reflected, err = predicate.Reflect(e, expr); err != nil {
			return nil, err
		}
	}
	return m.store.RecordsMatching(ctx, e.Table, reflected)
}

func (m *Manager) identify(entity any) (*schema.Entity, model.Identity, error) {
	e, err := m.registry.Lookup(entity)
	if err != nil {
		return nil, model.Identity{}, err
	}
	id, err := e.IdentityOf(entity)
	if err != nil {
		return nil, model.Identity{}, err
	}
	return e, id, nil
}
