// Package pathparser implements the restricted JSONPath sublanguage
// supported by the search-schema translator: absolute paths rooted at
// "$", dotted segments, and a single "[*]" array marker per segment. No
// filters, no descendant search, no bracketed field names.
package pathparser

import (
	"fmt"
	"regexp"
	"strings"
)

// Segment is one dotted component of a parsed path, e.g. "items[*]"
// parses to Segment{Name: "items", IsArray: true}.
type Segment struct {
	Name    string
	IsArray bool
}

var tokenRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(\[\*\])?$`)

// Parse parses a restricted JSONPath expression into an ordered sequence
// of segments. "$" alone yields an empty, non-nil slice. Any deviation
// from the grammar (empty segments, filters, descendant search,
// bracketed names) fails with an error naming the offending token.
func Parse(path string) ([]Segment, error) {
	trimmed := strings.TrimSpace(path)
	if !strings.HasPrefix(trimmed, "$") {
		return nil, fmt.Errorf("pathparser: only absolute JSONPath starting with '$' is supported, got %q", path)
	}

	rest := trimmed[1:]
	if rest == "" {
		return []Segment{}, nil
	}
	if !strings.HasPrefix(rest, ".") {
		return nil, fmt.Errorf("pathparser: expected '.' after '$' in %q", path)
	}
	rest = rest[1:]

	raws := strings.Split(rest, ".")
	segments := make([]Segment, 0, len(raws))
	for _, raw := range raws {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("pathparser: empty path segment in %q", path)
		}

		m := tokenRe.FindStringSubmatch(raw)
		if m == nil {
			return nil, fmt.Errorf("pathparser: unsupported JSONPath segment %q in %q", raw, path)
		}

		segments = append(segments, Segment{Name: m[1], IsArray: m[2] != ""})
	}

	return segments, nil
}
