package translator

import (
	"fmt"
	"sort"

	"github.com/kadirpekel/jsonstorage/internal/pathparser"
)

// Mapping is the index-mapping document handed to SearchStore.
// It is plain JSON (map[string]any) so it serializes byte-identically
// across calls given the same schema, per the translator-idempotence
// property in spec §8.
type Mapping = map[string]any

// SchemaToMapping compiles a search schema (logical name -> JSONPath) to
// an index mapping document. Every logical field becomes a "keyword"
// leaf; fields sharing a nested_path prefix are grouped under one
// "nested" property.
//
// The flattening to keyword is deliberate: it guarantees deterministic
// exact-match behavior. Numeric range queries rely on the search
// engine's dynamic typing rather than an explicit numeric mapping.
func SchemaToMapping(schema map[string]string) (Mapping, error) {
	properties := map[string]any{}
	nested := map[string]map[string]any{}
	nestedOrder := make([]string, 0)

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, logicalName := range names {
		jsonPath := schema[logicalName]
		segments, err := pathparser.Parse(jsonPath)
		if err != nil {
			return nil, fmt.Errorf("translator: schema field %q: %w", logicalName, err)
		}
		idxPath, err := ToIndexPath(segments)
		if err != nil {
			return nil, fmt.Errorf("translator: schema field %q: %w", logicalName, err)
		}

		if idxPath.IsNested {
			block, ok := nested[idxPath.NestedPath]
			if !ok {
				block = map[string]any{
					"type":       "nested",
					"properties": map[string]any{},
				}
				nested[idxPath.NestedPath] = block
				nestedOrder = append(nestedOrder, idxPath.NestedPath)
			}
			innerName := idxPath.Field[len(idxPath.NestedPath)+1:]
			block["properties"].(map[string]any)[innerName] = map[string]any{"type": "keyword"}
			continue
		}

		properties[idxPath.Field] = map[string]any{"type": "keyword"}
	}

	for _, path := range nestedOrder {
		properties[path] = nested[path]
	}

	return Mapping{
		"mappings": map[string]any{
			"properties": properties,
		},
	}, nil
}
