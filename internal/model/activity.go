// Package model defines the activity-log data model: the immutable
// Activity record captured for every write on a monitored table, the
// Verb of the change, and the Identity correlating records that belong
// to the same logical row over time.
package model

import (
	"strings"
	"time"
)

// Verb is the kind of change an Activity captures.
type Verb string

const (
	VerbInsert Verb = "insert"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// String returns the string representation of the verb.
func (v Verb) String() string {
	return string(v)
}

// IsValid checks whether the verb is a known value.
func (v Verb) IsValid() bool {
	switch v {
	case VerbInsert, VerbUpdate, VerbDelete:
		return true
	}
	return false
}

// Activity is one captured change entry in the audit log. Rows are
// written by the database-side capture trigger and are immutable after
// the one-time actor-attribution update; everything the temporal
// queries do reads a stable history.
//
// For a fixed identity, records are totally ordered by
// (TransactionID, IssuedAt, ID). Wall-clock IssuedAt can be skewed
// between writers; transaction id allocation order is the
// authoritative happened-before axis.
type Activity struct {
	ID            int64          `json:"id"`
	SchemaName    string         `json:"schema_name"`
	TableName     string         `json:"table_name"`
	RelID         int64          `json:"relid"`
	IssuedAt      time.Time      `json:"issued_at"`
	TransactionID int64          `json:"transaction_id"`
	ClientAddr    string         `json:"client_addr,omitempty"`
	Verb          Verb           `json:"verb"`
	TargetID      string         `json:"target_id"`
	OldData       map[string]any `json:"old_data,omitempty"`
	ChangedData   map[string]any `json:"changed_data,omitempty"`
	ActorID       string         `json:"actor_id,omitempty"`
}

// Data reconstructs the full row snapshot at this point: the pre-change
// image overlaid with the fields that changed. For inserts OldData is
// empty; for deletes ChangedData is empty and OldData is the full
// last-known state.
func (a *Activity) Data() map[string]any {
	return Merge(a.OldData, a.ChangedData)
}

// IdentityField is one primary-key component of an Identity.
type IdentityField struct {
	Name  string
	Value string
}

// Identity is the (table, primary-key values) pair that correlates log
// entries to one logical record. Primary-key fields are kept in the
// entity's declared order and stringified; two records refer to the
// same logical row iff their identities are equal.
type Identity struct {
	Table  string
	Fields []IdentityField
}

// Equal reports whether two identities refer to the same logical record.
func (id Identity) Equal(other Identity) bool {
	if id.Table != other.Table || len(id.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range id.Fields {
		if f != other.Fields[i] {
			return false
		}
	}
	return true
}

// String returns a stable key form, e.g. "articles(id=1)".
func (id Identity) String() string {
	var b strings.Builder
	b.WriteString(id.Table)
	b.WriteByte('(')
	for i, f := range id.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	b.WriteByte(')')
	return b.String()
}

// Matches reports whether an activity record belongs to the identity:
// the table matches and every primary-key field's string value in the
// merged payload matches.
func (id Identity) Matches(a *Activity) bool {
	if a.TableName != id.Table {
		return false
	}
	data := a.Data()
	for _, f := range id.Fields {
		v, ok := data[f.Name]
		if !ok || Stringify(v) != f.Value {
			return false
		}
	}
	return true
}
