package searchstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
)

// CreateOrUpdateIndex implements the index evolution protocol of spec
// §4.5: first-use creates a physical index and alias directly; every
// later call reindexes into a fresh physical index under the new
// mapping, then atomically swaps the alias, leaving the old data
// queryable at every point until the swap succeeds.
func (s *Store) CreateOrUpdateIndex(ctx context.Context, namespace string, mapping map[string]any) error {
	backing, err := s.aliasBackingIndexes(ctx, namespace)
	if err != nil {
		return err
	}

	newIndex := physicalIndexName(namespace)
	if _, err := s.client.CreateIndex(newIndex).BodyJson(mapping).Do(ctx); err != nil {
		return apperrors.Transientf("searchstore: create index %s: %v", newIndex, err)
	}

	if len(backing) == 0 {
		if _, err := s.client.Alias().Add(newIndex, namespace).Do(ctx); err != nil {
			_, _ = s.client.DeleteIndex(newIndex).Do(ctx)
			return apperrors.Transientf("searchstore: create alias %s -> %s: %v", namespace, newIndex, err)
		}
		return nil
	}

	reindexRes, err := s.client.Reindex().
		SourceIndex(namespace).
		DestinationIndex(newIndex).
		Conflicts("proceed").
		Refresh("true").
		WaitForCompletion(true).
		Do(ctx)
	if err != nil {
		_, _ = s.client.DeleteIndex(newIndex).Do(ctx)
		return apperrors.Transientf("searchstore: reindex %s -> %s: %v", namespace, newIndex, err)
	}
	if len(reindexRes.Failures) > 0 {
		_, _ = s.client.DeleteIndex(newIndex).Do(ctx)
		return apperrors.Transientf("searchstore: reindex %s -> %s: %d document failures", namespace, newIndex, len(reindexRes.Failures))
	}

	swap := s.client.Aliases()
	for _, old := range backing {
		swap = swap.Remove(old, namespace)
	}
	swap = swap.Add(newIndex, namespace)
	if _, err := swap.Do(ctx); err != nil {
		_, _ = s.client.DeleteIndex(newIndex).Do(ctx)
		return apperrors.Transientf("searchstore: swap alias %s -> %s: %v", namespace, newIndex, err)
	}

	for _, old := range backing {
		_, _ = s.client.DeleteIndex(old).Do(ctx) // best-effort per spec §4.5 step 5
	}
	return nil
}

// aliasBackingIndexes returns the physical indexes currently backing
// namespace's alias, or an empty slice if neither the alias nor an
// index of that exact name exists yet.
func (s *Store) aliasBackingIndexes(ctx context.Context, namespace string) ([]string, error) {
	res, err := s.client.Aliases().Do(ctx)
	if err != nil {
		return nil, apperrors.Transientf("searchstore: list aliases: %v", err)
	}
	indexes := res.IndicesByAlias(namespace)
	if len(indexes) > 0 {
		return indexes, nil
	}

	exists, err := s.client.IndexExists(namespace).Do(ctx)
	if err != nil {
		return nil, apperrors.Transientf("searchstore: index exists %s: %v", namespace, err)
	}
	if exists {
		// A bare physical index with this exact name but no alias: treat
		// it as the sole backing index so the next call still reindexes
		// instead of silently shadowing it.
		return []string{namespace}, nil
	}
	return nil, nil
}

// physicalIndexName derives a fresh, collision-resistant index name for
// a namespace, matching the `namespace_<rand>` scheme in spec §4.5.
func physicalIndexName(namespace string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%s_%s", namespace, hex.EncodeToString(b[:]))
}
