// Package indexing implements the IndexingTask described in spec §4.6:
// a durable job queue (the jsonstorage_jobs table, per SPEC_FULL §6) and
// a Worker that polls it, indexing document bodies into SearchStore.
//
// Modeled on the teacher's SQLTaskStore (v2/task/store.go): one
// database/sql table, a small dialect switch, no external broker. The
// Python original configures a RABBIT_MQ__DSN, but no repository in the
// retrieval pack wires an AMQP client, so the job queue rides on the
// same Postgres connection DocStore already owns (see DESIGN.md).
package indexing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

const jobTable = "jsonstorage_jobs"

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// JobKind distinguishes the two background operations the Worker can
// run, per spec §4.5 and §4.6. Only KindIndexDocument is enqueued by the
// Coordinator; a schema change reindexes inside SetSearchSchema, and no
// caller enqueues KindReindex.
type JobKind string

const (
	KindIndexDocument JobKind = "index_document"
	KindReindex       JobKind = "reindex_namespace"
)

// Job is one durable unit of background work.
type Job struct {
	ID          int64
	Kind        JobKind
	Namespace   string
	DocumentID  string // empty for KindReindex
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	VisibleAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

// DefaultMaxAttempts is the retry cap for transient failures, per spec
// §4.6 ("source uses 10").
const DefaultMaxAttempts = 10

// permanentMaxAttempts is the small retry budget given to failures the
// spec says must not be retried indefinitely (non-object JSON, mapping
// rejection): one extra attempt absorbs a single transient blip around
// the parse, then the job is marked failed for good.
const permanentMaxAttempts = 2

// JobQueue is the job table's access layer, sharing DocStore's
// *sql.DB/Dialect pair rather than opening a second pool.
type JobQueue struct {
	db      *sql.DB
	dialect docstore.Dialect
}

// NewJobQueue wraps an existing database handle. Pass the same *sql.DB
// used for docstore.Open so job rows, chunk rows, and metadata rows
// commit against one connection pool.
func NewJobQueue(db *sql.DB, dialect docstore.Dialect) *JobQueue {
	return &JobQueue{db: db, dialect: dialect}
}

// EnsureTable creates the job table if it does not already exist.
func (q *JobQueue) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
    id           %[2]s,
    kind         TEXT NOT NULL,
    namespace    TEXT NOT NULL,
    document_id  TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    attempts     INTEGER NOT NULL DEFAULT 0,
    max_attempts INTEGER NOT NULL,
    visible_at   %[3]s NOT NULL,
    created_at   %[3]s NOT NULL,
    updated_at   %[3]s NOT NULL,
    last_error   TEXT NOT NULL DEFAULT ''
)`, jobTable, q.dialect.autoIncrement(), q.dialect.timestampType())

	if _, err := q.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.Transientf("indexing: create job table: %v", err)
	}

	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_poll ON %[1]s(status, visible_at)`, jobTable)
	if _, err := q.db.ExecContext(ctx, idx); err != nil {
		return apperrors.Transientf("indexing: create job poll index: %v", err)
	}
	return nil
}

// Enqueue inserts a new queued job, ready to be claimed immediately.
func (q *JobQueue) Enqueue(ctx context.Context, kind JobKind, namespace, documentID string) (int64, error) {
	maxAttempts := DefaultMaxAttempts
	now := time.Now().UTC()

	// Postgres's lib/pq driver does not support LastInsertId, so that
	// dialect inserts with RETURNING id instead.
	if q.dialect == docstore.DialectPostgres {
		return q.enqueuePostgresReturning(ctx, kind, namespace, documentID, now, maxAttempts)
	}

	insert := fmt.Sprintf(
		`INSERT INTO %s (kind, namespace, document_id, status, attempts, max_attempts, visible_at, created_at, updated_at, last_error) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		jobTable,
		q.dialect.placeholder(1), q.dialect.placeholder(2), q.dialect.placeholder(3), q.dialect.placeholder(4),
		q.dialect.placeholder(5), q.dialect.placeholder(6), q.dialect.placeholder(7), q.dialect.placeholder(8),
		q.dialect.placeholder(9), q.dialect.placeholder(10),
	)
	res, err := q.db.ExecContext(ctx, insert, string(kind), namespace, documentID, string(JobQueued), 0, maxAttempts, now, now, now, "")
	if err != nil {
		return 0, apperrors.Transientf("indexing: enqueue job: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Transientf("indexing: enqueue job: last insert id: %v", err)
	}
	return id, nil
}

func (q *JobQueue) enqueuePostgresReturning(ctx context.Context, kind JobKind, namespace, documentID string, now time.Time, maxAttempts int) (int64, error) {
	insert := fmt.Sprintf(
		`INSERT INTO %s (kind, namespace, document_id, status, attempts, max_attempts, visible_at, created_at, updated_at, last_error) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		jobTable,
	)
	var id int64
	err := q.db.QueryRowContext(ctx, insert, string(kind), namespace, documentID, string(JobQueued), 0, maxAttempts, now, now, now, "").Scan(&id)
	if err != nil {
		return 0, apperrors.Transientf("indexing: enqueue job (returning): %v", err)
	}
	return id, nil
}

// Claim atomically reserves up to one visible, queued-or-stale job and
// marks it running, returning (zero, false) if none are available.
// Staleness is determined by visibleAt: a job left running past its
// visibility timeout (a crashed worker) is claimable again by any
// worker, satisfying the job-durability property in SPEC_FULL §8.
func (q *JobQueue) Claim(ctx context.Context, visibilityTimeout time.Duration) (Job, bool, error) {
	now := time.Now().UTC()

	selectQ := fmt.Sprintf(
		`SELECT id, kind, namespace, document_id, status, attempts, max_attempts, visible_at, created_at, updated_at, last_error FROM %s WHERE status IN (%s, %s) AND visible_at <= %s ORDER BY id ASC LIMIT 1`,
		jobTable, q.dialect.placeholder(1), q.dialect.placeholder(2), q.dialect.placeholder(3),
	)

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, false, apperrors.Transientf("indexing: claim job: begin: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var j Job
	err = tx.QueryRowContext(ctx, selectQ, string(JobQueued), string(JobRunning), now).Scan(
		&j.ID, &j.Kind, &j.Namespace, &j.DocumentID, &j.Status, &j.Attempts, &j.MaxAttempts,
		&j.VisibleAt, &j.CreatedAt, &j.UpdatedAt, &j.LastError,
	)
	if err == sql.ErrNoRows {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, apperrors.Transientf("indexing: claim job: select: %v", err)
	}

	newVisible := now.Add(visibilityTimeout)
	updateQ := fmt.Sprintf(
		`UPDATE %s SET status = %s, attempts = %s, visible_at = %s, updated_at = %s WHERE id = %s`,
		jobTable, q.dialect.placeholder(1), q.dialect.placeholder(2), q.dialect.placeholder(3), q.dialect.placeholder(4), q.dialect.placeholder(5),
	)
	if _, err := tx.ExecContext(ctx, updateQ, string(JobRunning), j.Attempts+1, newVisible, now, j.ID); err != nil {
		return Job{}, false, apperrors.Transientf("indexing: claim job: update: %v", err)
	}
	if err := tx.Commit(); err != nil {
		return Job{}, false, apperrors.Transientf("indexing: claim job: commit: %v", err)
	}

	j.Status = JobRunning
	j.Attempts++
	j.VisibleAt = newVisible
	return j, true, nil
}

// MarkDone marks a job completed successfully.
func (q *JobQueue) MarkDone(ctx context.Context, id int64) error {
	return q.setStatus(ctx, id, JobDone, "", time.Time{})
}

// MarkFailed marks a job permanently failed (no further retries).
func (q *JobQueue) MarkFailed(ctx context.Context, id int64, cause error) error {
	return q.setStatus(ctx, id, JobFailed, errString(cause), time.Time{})
}

// RequeueAfter puts a job back in queued state, visible again after
// delay (the worker's backoff interval).
func (q *JobQueue) RequeueAfter(ctx context.Context, id int64, delay time.Duration, cause error) error {
	return q.setStatus(ctx, id, JobQueued, errString(cause), time.Now().UTC().Add(delay))
}

func (q *JobQueue) setStatus(ctx context.Context, id int64, status JobStatus, lastError string, visibleAt time.Time) error {
	now := time.Now().UTC()
	if visibleAt.IsZero() {
		visibleAt = now
	}
	updateQ := fmt.Sprintf(
		`UPDATE %s SET status = %s, last_error = %s, visible_at = %s, updated_at = %s WHERE id = %s`,
		jobTable, q.dialect.placeholder(1), q.dialect.placeholder(2), q.dialect.placeholder(3), q.dialect.placeholder(4), q.dialect.placeholder(5),
	)
	if _, err := q.db.ExecContext(ctx, updateQ, string(status), lastError, visibleAt, now, id); err != nil {
		return apperrors.Transientf("indexing: set job %d status %s: %v", id, status, err)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// backoff returns an exponential backoff delay capped at 5 minutes,
// keyed on the job's attempt count.
func backoff(attempts int) time.Duration {
	d := time.Duration(1<<uint(attempts)) * time.Second
	const maxBackoff = 5 * time.Minute
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
