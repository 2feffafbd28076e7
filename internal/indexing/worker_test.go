package indexing

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

func newTestQueue(t *testing.T) *JobQueue {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	q := NewJobQueue(db, docstore.DialectSQLite)
	if err := q.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	return q
}

func TestEnqueueAndClaim(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, KindIndexDocument, "widgets", "doc-1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, ok, err := q.Claim(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Claim: ok=%v err=%v", ok, err)
	}
	if job.ID != id || job.Namespace != "widgets" || job.DocumentID != "doc-1" {
		t.Fatalf("unexpected claimed job: %+v", job)
	}
	if job.Status != JobRunning {
		t.Fatalf("expected running status, got %s", job.Status)
	}

	if _, ok, err := q.Claim(ctx, time.Minute); err != nil || ok {
		t.Fatalf("expected no further claimable job while one is running: ok=%v err=%v", ok, err)
	}
}

func TestClaimReclaimsStaleRunningJob(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, KindIndexDocument, "widgets", "doc-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// First claim with a visibility timeout already in the past simulates
	// a crashed worker: the job should be reclaimable immediately.
	if _, ok, err := q.Claim(ctx, -time.Second); err != nil || !ok {
		t.Fatalf("first Claim: ok=%v err=%v", ok, err)
	}

	job, ok, err := q.Claim(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("reclaim: ok=%v err=%v", ok, err)
	}
	if job.Attempts != 2 {
		t.Fatalf("expected attempts=2 after reclaim, got %d", job.Attempts)
	}
}

func TestMarkDoneRemovesJobFromQueue(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, KindIndexDocument, "widgets", "doc-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job, _, _ := q.Claim(ctx, time.Minute)
	if err := q.MarkDone(ctx, job.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	if _, ok, err := q.Claim(ctx, time.Minute); err != nil || ok {
		t.Fatalf("expected no claimable job after MarkDone: ok=%v err=%v", ok, err)
	}
}
