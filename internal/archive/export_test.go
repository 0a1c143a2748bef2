package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alfredjeanlab/chronicle/internal/model"
	"github.com/alfredjeanlab/chronicle/internal/predicate"
	"github.com/alfredjeanlab/chronicle/internal/store"
)

// stubStore serves canned records for export tests.
type stubStore struct {
	store.Store
	records []*model.Activity
	err     error
}

func (s *stubStore) RecordsMatching(ctx context.Context, table string, pred *predicate.Reflected) ([]*model.Activity, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.Activity
	for _, a := range s.records {
		if a.TableName == table {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestExportJSONL(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &stubStore{records: []*model.Activity{
		{
			ID: 1, TableName: "articles", TransactionID: 100, IssuedAt: issued,
			Verb: model.VerbInsert, TargetID: "1",
			ChangedData: map[string]any{"id": float64(1), "title": "A"},
		},
		{
			ID: 2, TableName: "articles", TransactionID: 101, IssuedAt: issued.Add(time.Minute),
			Verb: model.VerbUpdate, TargetID: "1",
			OldData:     map[string]any{"id": float64(1), "title": "A"},
			ChangedData: map[string]any{"title": "B"},
		},
		{
			ID: 3, TableName: "tags", TransactionID: 102, IssuedAt: issued.Add(2 * time.Minute),
			Verb: model.VerbInsert, TargetID: "7",
			ChangedData: map[string]any{"id": float64(7)},
		},
	}}

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), s, "articles", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sc := bufio.NewScanner(&buf)
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 records)", len(lines))
	}
	if lines[0]["type"] != "header" {
		t.Errorf("first line type = %v, want header", lines[0]["type"])
	}
	if lines[0]["record_count"] != float64(2) {
		t.Errorf("record_count = %v, want 2", lines[0]["record_count"])
	}
	if lines[0]["table"] != "articles" {
		t.Errorf("table = %v, want articles", lines[0]["table"])
	}

	for i, line := range lines[1:] {
		if line["type"] != "activity" {
			t.Errorf("line %d type = %v, want activity", i+1, line["type"])
		}
	}
	data1 := lines[1]["data"].(map[string]any)
	if data1["verb"] != "insert" || data1["transaction_id"] != float64(100) {
		t.Errorf("first record = %v, want insert at txn 100", data1)
	}
	data2 := lines[2]["data"].(map[string]any)
	if data2["verb"] != "update" || data2["transaction_id"] != float64(101) {
		t.Errorf("second record = %v, want update at txn 101", data2)
	}
}

func TestExportJSONL_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), &stubStore{}, "articles", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var hdr map[string]any
	if err := json.Unmarshal(buf.Bytes(), &hdr); err != nil {
		t.Fatalf("bad header: %v", err)
	}
	if hdr["record_count"] != float64(0) {
		t.Errorf("record_count = %v, want 0", hdr["record_count"])
	}
}

func TestExportJSONL_StoreError(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), &stubStore{err: boom}, "articles", &buf)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output on error, got %q", buf.String())
	}
}
