// Package archive exports the activity log as JSONL for offline
// inspection and backup. Exports are one-shot pulls of data already in
// the store; nothing here streams changes anywhere.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Table       string    `json:"table,omitempty"`
	RecordCount int       `json:"record_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data *model.Activity `json:"data"`
}

// ExportJSONL writes the activity records for one monitored table as
// JSONL to w, in (transaction_id, issued_at, id) order.
func ExportJSONL(ctx context.Context, s store.Store, table string, w io.Writer) error {
	records, err := s.RecordsMatching(ctx, table, nil)
	if err != nil {
		return fmt.Errorf("list activity: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     "1",
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		Table:       table,
		RecordCount: len(records),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, a := range records {
		if err := enc.Encode(record{Type: "activity", Data: a}); err != nil {
			return fmt.Errorf("encode activity %d: %w", a.ID, err)
		}
	}

	return nil
}
