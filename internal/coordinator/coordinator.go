// Package coordinator implements the Coordinator described in spec
// §4.7: it orchestrates DocStore, SearchStore, and the indexing job
// queue behind the eight operations the HTTP surface calls.
//
// Namespace registry and schema map are Coordinator-owned
// sync.RWMutex-guarded maps, and reindex-in-progress is a sync.Map-based
// set, per the REDESIGN FLAGS note against package-level globals (spec
// §9). The fan-out in DeleteObject is built on golang.org/x/sync/errgroup,
// the same pattern the teacher uses for concurrent sub-agent execution
// (pkg/agent/workflowagent/parallel.go).
package coordinator

import (
	"context"
	"io"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
	"github.com/kadirpekel/jsonstorage/internal/config"
	"github.com/kadirpekel/jsonstorage/internal/docstore"
	"github.com/kadirpekel/jsonstorage/internal/indexing"
	"github.com/kadirpekel/jsonstorage/internal/searchstore"
	"github.com/kadirpekel/jsonstorage/internal/translator"
)

// Coordinator is the single entry point the HTTP layer calls into.
type Coordinator struct {
	docs   *docstore.Store
	search *searchstore.Store
	jobs   *indexing.JobQueue

	mu         sync.RWMutex
	namespaces map[string]struct{}
	schemas    map[string]map[string]string // namespace -> logical name -> JSONPath
	defaults   *config.SchemaDefaults

	reindexing sync.Map // namespace -> struct{}
}

// New builds a Coordinator over already-open stores.
func New(docs *docstore.Store, search *searchstore.Store, jobs *indexing.JobQueue) *Coordinator {
	return &Coordinator{
		docs:       docs,
		search:     search,
		jobs:       jobs,
		namespaces: make(map[string]struct{}),
		schemas:    make(map[string]map[string]string),
	}
}

// SetSchemaDefaults wires an operator-configured set of per-namespace
// default schemas, applied automatically the first time each namespace
// is registered (see registerNamespace).
func (c *Coordinator) SetSchemaDefaults(defaults *config.SchemaDefaults) {
	c.mu.Lock()
	c.defaults = defaults
	c.mu.Unlock()
}

// MappingFor implements indexing.SchemaProvider: it compiles the
// namespace's stored schema to a mapping, or reports absent so the
// worker falls back to a dynamic mapping.
func (c *Coordinator) MappingFor(namespace string) (map[string]any, bool) {
	c.mu.RLock()
	schema, ok := c.schemas[namespace]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	mapping, err := translator.SchemaToMapping(schema)
	if err != nil {
		return nil, false
	}
	return mapping, true
}

// registerNamespace records namespace in the process-wide registry and
// ensures its metadata table exists, the "first-use bootstrap" from
// spec §4.7.
func (c *Coordinator) registerNamespace(ctx context.Context, namespace string) error {
	if err := docstore.ValidateNamespace(namespace); err != nil {
		return apperrors.BadRequestf("%v", err)
	}

	c.mu.RLock()
	_, known := c.namespaces[namespace]
	c.mu.RUnlock()
	if known {
		return nil
	}

	if err := c.docs.EnsureMetaTable(ctx, namespace); err != nil {
		return err
	}

	c.mu.Lock()
	c.namespaces[namespace] = struct{}{}
	defaults := c.defaults
	_, hasSchema := c.schemas[namespace]
	c.mu.Unlock()

	if hasSchema || defaults == nil {
		return nil
	}
	if schema, ok := defaults.For(namespace); ok {
		if err := c.SetSearchSchema(ctx, namespace, schema); err != nil {
			return err
		}
	}
	return nil
}

// Namespaces returns every known namespace, sorted, for GET
// /get_namespaces.
func (c *Coordinator) Namespaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.namespaces))
	for n := range c.namespaces {
		names = append(names, n)
	}
	return sortedStrings(names)
}

// CreateObjectStream implements spec §4.7's createObjectStream: ensure
// tables exist, write the document via DocStore, enqueue an
// IndexingTask, and return immediately.
func (c *Coordinator) CreateObjectStream(ctx context.Context, namespace, documentName string, body io.Reader) (string, error) {
	if err := c.registerNamespace(ctx, namespace); err != nil {
		return "", err
	}
	if err := c.docs.EnsureChunkTable(ctx); err != nil {
		return "", err
	}

	meta, err := c.docs.CreateDocumentStream(ctx, namespace, documentName, body, docstore.IngestOptions{})
	if err != nil {
		return "", err
	}

	if _, err := c.jobs.Enqueue(ctx, indexing.KindIndexDocument, namespace, meta.ID); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// GetObjectMeta implements spec §4.7's getObjectMeta.
func (c *Coordinator) GetObjectMeta(ctx context.Context, namespace, id string) (docstore.DocumentMeta, error) {
	if err := docstore.ValidateNamespace(namespace); err != nil {
		return docstore.DocumentMeta{}, apperrors.BadRequestf("%v", err)
	}
	meta, found, err := c.docs.GetMeta(ctx, namespace, id)
	if err != nil {
		return docstore.DocumentMeta{}, err
	}
	if !found {
		return docstore.DocumentMeta{}, apperrors.NotFound
	}
	return meta, nil
}

// ErrInProgress is returned by GetObjectBody when metadata exists but
// indexing has not finished, per spec §4.7 ("signal in-progress").
var ErrInProgress = apperrors.InProgress

// GetObjectBody implements spec §4.7's getObjectBody: it reads the
// indexed body from SearchStore, distinguishing "never will exist"
// (404) from "not indexed yet" (in-progress).
func (c *Coordinator) GetObjectBody(ctx context.Context, namespace, id string) (map[string]any, error) {
	if err := docstore.ValidateNamespace(namespace); err != nil {
		return nil, apperrors.BadRequestf("%v", err)
	}
	_, found, err := c.docs.GetMeta(ctx, namespace, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound
	}

	doc, indexed, err := c.search.GetDocument(ctx, namespace, id)
	if err != nil {
		return nil, err
	}
	if !indexed {
		return nil, ErrInProgress
	}
	return doc, nil
}

// DeleteObject implements spec §4.7's deleteObject: fan out to DocStore
// and SearchStore concurrently, both must complete before returning.
func (c *Coordinator) DeleteObject(ctx context.Context, namespace, id string) error {
	if err := docstore.ValidateNamespace(namespace); err != nil {
		return apperrors.BadRequestf("%v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.docs.DeleteObject(gctx, namespace, id)
		return err
	})
	g.Go(func() error {
		_, err := c.search.DeleteDocument(gctx, namespace, id)
		return err
	})
	return g.Wait()
}

// SetSearchSchema implements spec §4.7's setSearchSchema: store the
// schema, compile it, and hand the mapping to SearchStore, which
// reindexes if a prior index existed. The reindex runs inside this call,
// so it returns only once the alias swap is done or has failed; no job is
// enqueued for it. A schema update on a namespace already mid-reindex
// fails with a conflict, per spec §4.5.
func (c *Coordinator) SetSearchSchema(ctx context.Context, namespace string, schema map[string]string) error {
	if err := c.registerNamespace(ctx, namespace); err != nil {
		return err
	}

	if _, inProgress := c.reindexing.LoadOrStore(namespace, struct{}{}); inProgress {
		return apperrors.Conflict
	}
	defer c.reindexing.Delete(namespace)

	mapping, err := translator.SchemaToMapping(schema)
	if err != nil {
		return apperrors.BadRequestf("%v", err)
	}

	c.mu.Lock()
	c.schemas[namespace] = schema
	c.mu.Unlock()

	return c.search.CreateOrUpdateIndex(ctx, namespace, mapping)
}

// SearchObjects implements spec §4.7's searchObjects: requires a schema
// to already be present, compiles the filter expression, and queries
// SearchStore.
func (c *Coordinator) SearchObjects(ctx context.Context, namespace, filterExpr string, size, from int) ([]map[string]any, error) {
	c.mu.RLock()
	_, hasSchema := c.schemas[namespace]
	c.mu.RUnlock()
	if !hasSchema {
		return nil, apperrors.BadRequestf("coordinator: namespace %q has no search schema", namespace)
	}

	query, err := translator.BuildQuery(filterExpr)
	if err != nil {
		return nil, apperrors.BadRequestf("%v", err)
	}
	return c.search.Search(ctx, namespace, query, size, from)
}

// ListObjects implements the GET /{ns}/objects and GET /{ns} routes.
func (c *Coordinator) ListObjects(ctx context.Context, namespace string, opts docstore.ListOptions) (docstore.DocumentList, error) {
	if err := docstore.ValidateNamespace(namespace); err != nil {
		return docstore.DocumentList{}, apperrors.BadRequestf("%v", err)
	}
	return c.docs.ListMeta(ctx, namespace, opts)
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
