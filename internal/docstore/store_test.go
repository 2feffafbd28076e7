package docstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := Open(db, DialectSQLite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := s.EnsureChunkTable(ctx); err != nil {
		t.Fatalf("EnsureChunkTable: %v", err)
	}
	if err := s.EnsureMetaTable(ctx, "widgets"); err != nil {
		t.Fatalf("EnsureMetaTable: %v", err)
	}
	return s
}

func TestCreateDocumentStreamRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	body := strings.Repeat(`{"a":1}`, 10000) // forces multiple batch flushes
	want := sha256.Sum256([]byte(body))

	meta, err := s.CreateDocumentStream(ctx, "widgets", "big.json", strings.NewReader(body), IngestOptions{MaxBatchBytes: 4096})
	if err != nil {
		t.Fatalf("CreateDocumentStream: %v", err)
	}
	if meta.ContentHash != hex.EncodeToString(want[:]) {
		t.Fatalf("hash mismatch: got %s want %x", meta.ContentHash, want)
	}
	if meta.ContentLength != len(body) {
		t.Fatalf("length mismatch: got %d want %d", meta.ContentLength, len(body))
	}

	var buf bytes.Buffer
	var iterErr error
	for chunk, err := range s.IterChunks(ctx, meta.ID) {
		if err != nil {
			iterErr = err
			break
		}
		buf.Write(chunk)
	}
	if iterErr != nil {
		t.Fatalf("IterChunks: %v", iterErr)
	}
	if buf.String() != body {
		t.Fatalf("reassembled body mismatch: got %d bytes, want %d", buf.Len(), len(body))
	}

	got, ok, err := s.GetMeta(ctx, "widgets", meta.ID)
	if err != nil || !ok {
		t.Fatalf("GetMeta: ok=%v err=%v", ok, err)
	}
	if got.DocumentName != "big.json" {
		t.Fatalf("unexpected document name %q", got.DocumentName)
	}
}

func TestCreateDocumentNonStreaming(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta, err := s.CreateDocument(ctx, "widgets", "small.json", map[string]any{"status": "paid"})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	blob, ok, err := s.GetStagedBlob(ctx, meta.ID)
	if err != nil || !ok {
		t.Fatalf("GetStagedBlob: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(string(blob), `"status":"paid"`) {
		t.Fatalf("unexpected staged blob: %s", blob)
	}
}

func TestDeleteObjectIdempotentOnMissingChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta, err := s.CreateDocumentStream(ctx, "widgets", "doc.json", strings.NewReader(`{"x":1}`), IngestOptions{})
	if err != nil {
		t.Fatalf("CreateDocumentStream: %v", err)
	}

	// Simulate the indexing worker having already consumed and deleted
	// the chunks; DeleteObject must still report success because the
	// metadata row is the source of truth.
	if err := s.DeleteChunks(ctx, meta.ID); err != nil {
		t.Fatalf("DeleteChunks: %v", err)
	}

	deleted, err := s.DeleteObject(ctx, "widgets", meta.ID)
	if err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if !deleted {
		t.Fatalf("expected DeleteObject to report true")
	}

	deleted, err = s.DeleteObject(ctx, "widgets", meta.ID)
	if err != nil {
		t.Fatalf("DeleteObject (second call): %v", err)
	}
	if deleted {
		t.Fatalf("expected second DeleteObject to report false")
	}
}

func TestListMetaPaginationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.CreateDocument(ctx, "widgets", "doc.json", map[string]any{"i": i}); err != nil {
			t.Fatalf("CreateDocument %d: %v", i, err)
		}
	}

	list, err := s.ListMeta(ctx, "widgets", ListOptions{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("ListMeta: %v", err)
	}
	if list.Count != 5 {
		t.Fatalf("expected total count 5, got %d", list.Count)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected page of 2, got %d", len(list.Items))
	}
	if list.Items[0].CreatedAt.Before(list.Items[1].CreatedAt) {
		t.Fatalf("expected created_at descending, got %v before %v", list.Items[0].CreatedAt, list.Items[1].CreatedAt)
	}
}

func TestValidateNamespaceRejectsUnsafeNames(t *testing.T) {
	cases := []string{"", "1widgets", "wid gets", "widgets;drop table", strings.Repeat("a", 64)}
	for _, ns := range cases {
		if err := ValidateNamespace(ns); err == nil {
			t.Errorf("ValidateNamespace(%q): expected error", ns)
		}
	}
	if err := ValidateNamespace("widgets_v2"); err != nil {
		t.Errorf("ValidateNamespace(widgets_v2): unexpected error %v", err)
	}
}
