package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/chronicle/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanActivity scans a single row into a model.Activity. The row must
// contain columns in the order produced by activityColumns.
func scanActivity(row scannable) (*model.Activity, error) {
	var a model.Activity
	var (
		schemaName sql.NullString
		relid      sql.NullInt64
		clientAddr sql.NullString
		targetID   sql.NullString
		actorID    sql.NullString
		oldRaw     []byte
		changedRaw []byte
	)

	err := row.Scan(
		&a.ID,
		&schemaName,
		&a.TableName,
		&relid,
		&a.IssuedAt,
		&a.TransactionID,
		&clientAddr,
		&a.Verb,
		&targetID,
		&oldRaw,
		&changedRaw,
		&actorID,
	)
	if err != nil {
		return nil, err
	}

	a.SchemaName = schemaName.String
	a.RelID = relid.Int64
	a.ClientAddr = clientAddr.String
	a.TargetID = targetID.String
	a.ActorID = actorID.String

	if a.OldData, err = unmarshalPayload(oldRaw); err != nil {
		return nil, err
	}
	if a.ChangedData, err = unmarshalPayload(changedRaw); err != nil {
		return nil, err
	}
	return &a, nil
}

// scanActivities scans multiple rows into a slice of model.Activity pointers.
func scanActivities(rows *sql.Rows) ([]*model.Activity, error) {
	var records []*model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// unmarshalPayload decodes a JSONB column into a map; NULL decodes to nil.
func unmarshalPayload(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return m, nil
}

// jsonbMap converts a payload map to a []byte suitable for JSONB
// columns; nil maps map to NULL.
func jsonbMap(m map[string]any) []byte {
	if m == nil {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
