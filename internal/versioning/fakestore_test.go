package versioning

import (
	"context"
	"sort"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/predicate"
	"github.com/alfredjeanlab/chronicle/internal/store"
)

// fakeStore is an in-memory store.Store with the same ordering and
// anti-join semantics as the Postgres implementation. currentTxID
// stands in for txid_current().
type fakeStore struct {
	records       []*model.Activity
	nextID        int64
	currentTxID   int64
	supportsAttr  bool
	attributeHits int
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, supportsAttr: true}
}

func (f *fakeStore) InsertActivity(_ context.Context, a *model.Activity) error {
	cp := *a
	cp.ID = f.nextID
	f.nextID++
	a.ID = cp.ID
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeStore) MaxTransactionID(_ context.Context, id model.Identity, before *time.Time) (int64, error) {
	var max int64
	found := false
	for _, rec := range f.records {
		if !id.Matches(rec) {
			continue
		}
		if before != nil && !rec.IssuedAt.Before(*before) {
			continue
		}
		if !found || rec.TransactionID > max {
			max = rec.TransactionID
			found = true
		}
	}
	if !found {
		return 0, store.ErrNoHistory
	}
	return max, nil
}

func (f *fakeStore) DataAtTransaction(_ context.Context, id model.Identity, txID int64) (map[string]any, error) {
	var latest *model.Activity
	for _, rec := range f.records {
		if rec.TransactionID != txID || !id.Matches(rec) {
			continue
		}
		if latest == nil || rec.IssuedAt.After(latest.IssuedAt) ||
			(rec.IssuedAt.Equal(latest.IssuedAt) && rec.ID > latest.ID) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, store.ErrNoHistory
	}
	return latest.Data(), nil
}

func sortRecords(records []*model.Activity) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		if !a.IssuedAt.Equal(b.IssuedAt) {
			return a.IssuedAt.Before(b.IssuedAt)
		}
		return a.ID < b.ID
	})
}

func (f *fakeStore) RecordsMatching(_ context.Context, table string, pred *predicate.Reflected) ([]*model.Activity, error) {
	var out []*model.Activity
	for _, rec := range f.records {
		if rec.TableName != table {
			continue
		}
		if pred != nil && !pred.Matches(rec.Data()) {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (f *fakeStore) LastDeletions(_ context.Context, table string, pkColumns []string, pred *predicate.Reflected) ([]*model.Activity, error) {
	var out []*model.Activity
	for _, rec := range f.records {
		if rec.TableName != table || rec.Verb != model.VerbDelete {
			continue
		}
		if pred != nil && !pred.Matches(rec.Data()) {
			continue
		}

		var fields []model.IdentityField
		data := rec.Data()
		for _, col := range pkColumns {
			fields = append(fields, model.IdentityField{Name: col, Value: model.Stringify(data[col])})
		}
		id := model.Identity{Table: table, Fields: fields}

		hasLater := false
		for _, other := range f.records {
			if other != rec && id.Matches(other) && other.IssuedAt.After(rec.IssuedAt) {
				hasLater = true
				break
			}
		}
		if !hasLater {
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out, nil
}

func (f *fakeStore) AttributeTransaction(_ context.Context, values map[string]any, window time.Duration) (int64, error) {
	f.attributeHits++
	cutoff := time.Now().Add(-window)
	var n int64
	for _, rec := range f.records {
		if rec.TransactionID != f.currentTxID || !rec.IssuedAt.After(cutoff) {
			continue
		}
		if actor, ok := values["actor_id"]; ok {
			rec.ActorID = model.Stringify(actor)
		}
		if addr, ok := values["client_addr"]; ok {
			rec.ClientAddr = model.Stringify(addr)
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) SupportsAttribution() bool { return f.supportsAttr }

func (f *fakeStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(f)
}

func (f *fakeStore) Close() error { return nil }
