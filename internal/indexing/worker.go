package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

// defaultMapping is applied when a namespace has never had a search
// schema set, per spec §4.6 step 2 ("a default dynamic mapping").
var defaultMapping = map[string]any{
	"mappings": map[string]any{"dynamic": true},
}

// SchemaProvider resolves the current Elasticsearch mapping for a
// namespace. The Coordinator owns the schema map (spec §4.7); the
// worker only reads through this narrow interface to avoid an import
// cycle back into internal/coordinator.
type SchemaProvider interface {
	MappingFor(namespace string) (map[string]any, bool)
}

// ChunkStore is the subset of docstore.Store the worker needs.
type ChunkStore interface {
	GetMeta(ctx context.Context, namespace, id string) (docstore.DocumentMeta, bool, error)
	IterChunks(ctx context.Context, id string) func(yield func([]byte, error) bool)
	DeleteChunks(ctx context.Context, id string) error
}

// SearchIndexer is the subset of searchstore.Store the worker needs.
type SearchIndexer interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateOrUpdateIndex(ctx context.Context, namespace string, mapping map[string]any) error
	InsertDocument(ctx context.Context, namespace, id string, body map[string]any) (bool, error)
}

// Worker polls the job queue and carries out IndexingTask (spec §4.6).
type Worker struct {
	queue     *JobQueue
	chunks    ChunkStore
	search    SearchIndexer
	schemas   SchemaProvider
	pollEvery time.Duration
	visibility time.Duration
	logger    *slog.Logger
}

// NewWorker builds a Worker ready to Run.
func NewWorker(queue *JobQueue, chunks ChunkStore, search SearchIndexer, schemas SchemaProvider, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:      queue,
		chunks:     chunks,
		search:     search,
		schemas:    schemas,
		pollEvery:  500 * time.Millisecond,
		visibility: 2 * time.Minute,
		logger:     logger,
	}
}

// Run polls the job queue until ctx is cancelled, processing one job at
// a time. Call it from a goroutine; multiple Workers sharing one
// JobQueue is how the pool in SPEC_FULL §4.6 fans out.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and processes jobs until the queue reports none
// available, so a burst of enqueues is worked off before the next tick.
func (w *Worker) drain(ctx context.Context) {
	for {
		job, ok, err := w.queue.Claim(ctx, w.visibility)
		if err != nil {
			w.logger.Error("claim job failed", "error", err)
			return
		}
		if !ok {
			return
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	var err error
	switch job.Kind {
	case KindIndexDocument:
		err = w.indexDocument(ctx, job)
	case KindReindex:
		err = w.search.CreateOrUpdateIndex(ctx, job.Namespace, w.mappingFor(job.Namespace))
	default:
		err = apperrors.Fatalf("indexing: unknown job kind %q", job.Kind)
	}

	if err == nil {
		if markErr := w.queue.MarkDone(ctx, job.ID); markErr != nil {
			w.logger.Error("mark job done failed", "job", job.ID, "error", markErr)
		}
		return
	}

	w.logger.Warn("job attempt failed", "job", job.ID, "kind", job.Kind, "attempt", job.Attempts, "error", err)

	if errors.Is(err, apperrors.Fatal) || job.Attempts >= permanentAttemptCap(err, job.MaxAttempts) {
		if markErr := w.queue.MarkFailed(ctx, job.ID, err); markErr != nil {
			w.logger.Error("mark job failed failed", "job", job.ID, "error", markErr)
		}
		return
	}

	delay := backoff(job.Attempts)
	if requeueErr := w.queue.RequeueAfter(ctx, job.ID, delay, err); requeueErr != nil {
		w.logger.Error("requeue job failed", "job", job.ID, "error", requeueErr)
	}
}

// permanentAttemptCap returns the retry budget for the failure kind
// observed: a small cap for BadRequest errors (a body that is not a JSON
// object), the job's configured max for everything else. Errors from the
// search engine, a rejected mapping included, arrive as TransientIO and
// therefore get the configured max.
func permanentAttemptCap(err error, configuredMax int) int {
	if errors.Is(err, apperrors.BadRequest) {
		return permanentMaxAttempts
	}
	return configuredMax
}

func (w *Worker) mappingFor(namespace string) map[string]any {
	if w.schemas != nil {
		if m, ok := w.schemas.MappingFor(namespace); ok {
			return m
		}
	}
	return defaultMapping
}

// indexDocument implements spec §4.6 steps 1-4 for a single document.
func (w *Worker) indexDocument(ctx context.Context, job Job) error {
	meta, found, err := w.chunks.GetMeta(ctx, job.Namespace, job.DocumentID)
	if err != nil {
		return err
	}
	if !found {
		// Deleted before indexing ran: nothing to do, step 1.
		return nil
	}

	exists, err := w.search.IndexExists(ctx, job.Namespace)
	if err != nil {
		return err
	}
	if !exists {
		if err := w.search.CreateOrUpdateIndex(ctx, job.Namespace, w.mappingFor(job.Namespace)); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	var readErr error
	for chunk, cerr := range w.chunks.IterChunks(ctx, meta.ID) {
		if cerr != nil {
			readErr = cerr
			break
		}
		buf.Write(chunk)
	}
	if readErr != nil {
		return readErr
	}

	var body map[string]any
	if err := json.Unmarshal(buf.Bytes(), &body); err != nil {
		return apperrors.BadRequestf("indexing: document %s is not a JSON object: %v", meta.ID, err)
	}

	if _, err := w.search.InsertDocument(ctx, job.Namespace, meta.ID, body); err != nil {
		return err
	}

	return w.chunks.DeleteChunks(ctx, meta.ID)
}
