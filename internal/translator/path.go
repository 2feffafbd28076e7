package translator

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/jsonstorage/internal/pathparser"
)

// IndexPath is the result of projecting a parsed JSONPath onto the
// search engine's flat field-name space.
type IndexPath struct {
	Field      string
	IsNested   bool
	NestedPath string
}

// ToIndexPath implements spec §4.2.1: join segment names with '.', and
// if any segment (the last one included) carries an array marker, the
// path becomes a nested field rooted at the prefix ending at the first
// array segment. A single-segment path is never nested.
func ToIndexPath(segments []pathparser.Segment) (IndexPath, error) {
	if len(segments) == 0 {
		return IndexPath{}, fmt.Errorf("translator: empty segment list is not a valid field path")
	}

	names := make([]string, len(segments))
	arrayAt := -1
	for i, s := range segments {
		names[i] = s.Name
		if s.IsArray && arrayAt == -1 {
			arrayAt = i
		}
	}
	field := strings.Join(names, ".")

	if arrayAt == -1 || len(segments) == 1 {
		return IndexPath{Field: field}, nil
	}

	nestedPath := strings.Join(names[:arrayAt+1], ".")
	return IndexPath{Field: field, IsNested: true, NestedPath: nestedPath}, nil
}
