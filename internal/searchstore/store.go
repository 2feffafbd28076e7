// Package searchstore is the SearchStore described in spec §4.4: a thin
// wrapper around a real Elasticsearch client exposing the five
// operations the spec names, with the reindex primitive behind index
// evolution (§4.5) inside CreateOrUpdateIndex, plus an IndexExists
// check used by the indexing worker.
//
// Modeled on the teacher's habit of wrapping a single third-party client
// behind a small internal Store type (see v2/ratelimit, v2/task) rather
// than scattering client calls through callers.
package searchstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
)

// Store wraps *elastic.Client with the namespace-scoped operations the
// Coordinator and indexing worker need.
type Store struct {
	client *elastic.Client
}

// New builds a Store from connection options. url is the Elasticsearch
// DSN read from ELASTIC_SEARCH__DSN; sniffing is disabled because the
// DSN usually names a single proxied endpoint, not a cluster member.
func New(ctx context.Context, url string) (*Store, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(true),
	)
	if err != nil {
		return nil, apperrors.Transientf("searchstore: connect: %v", err)
	}
	if _, _, err := client.Ping(url).Do(ctx); err != nil {
		return nil, apperrors.Transientf("searchstore: ping: %v", err)
	}
	return &Store{client: client}, nil
}

// InsertDocument upserts a document under its alias, waiting for the
// refresh so the write is immediately queryable, per spec §4.4. It
// reports true iff Elasticsearch reports the operation as a create or
// an update (as opposed to a no-op).
func (s *Store) InsertDocument(ctx context.Context, namespace, id string, body map[string]any) (bool, error) {
	res, err := s.client.Index().
		Index(namespace).
		Id(id).
		BodyJson(body).
		Refresh("wait_for").
		Do(ctx)
	if err != nil {
		return false, apperrors.Transientf("searchstore: insert document %s/%s: %v", namespace, id, err)
	}
	return res.Result == "created" || res.Result == "updated", nil
}

// GetDocument returns a document's source by id, or (nil, false) if it
// does not exist.
func (s *Store) GetDocument(ctx context.Context, namespace, id string) (map[string]any, bool, error) {
	res, err := s.client.Get().Index(namespace).Id(id).Do(ctx)
	if elastic.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Transientf("searchstore: get document %s/%s: %v", namespace, id, err)
	}
	if !res.Found {
		return nil, false, nil
	}
	var source map[string]any
	if err := json.Unmarshal(res.Source, &source); err != nil {
		return nil, false, apperrors.Transientf("searchstore: decode document %s/%s: %v", namespace, id, err)
	}
	return source, true, nil
}

// DeleteDocument removes a document by id, reporting true iff it
// existed and was removed.
func (s *Store) DeleteDocument(ctx context.Context, namespace, id string) (bool, error) {
	_, err := s.client.Delete().Index(namespace).Id(id).Refresh("wait_for").Do(ctx)
	if elastic.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Transientf("searchstore: delete document %s/%s: %v", namespace, id, err)
	}
	return true, nil
}

// Search runs a compiled query body against a namespace's alias and
// returns the flattened source documents from the hits, per spec §4.4.
func (s *Store) Search(ctx context.Context, namespace string, queryBody map[string]any, size, from int) ([]map[string]any, error) {
	res, err := s.client.Search().
		Index(namespace).
		Source(queryBody).
		Size(size).
		From(from).
		Do(ctx)
	if elastic.IsNotFound(err) {
		// No index behind the alias yet: an empty namespace searches empty.
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Transientf("searchstore: search %s: %v", namespace, err)
	}
	if res.Hits == nil {
		return nil, nil
	}

	docs := make([]map[string]any, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc map[string]any
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("searchstore: decode hit %s: %w", hit.Id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IndexExists reports whether a physical index or alias with this name
// is known to the cluster.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.IndexExists(name).Do(ctx)
	if err != nil {
		return false, apperrors.Transientf("searchstore: index exists %s: %v", name, err)
	}
	return exists, nil
}
