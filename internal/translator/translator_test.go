package translator

import (
	"encoding/json"
	"testing"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestSchemaToMappingGrouping(t *testing.T) {
	schema := map[string]string{
		"status":    "$.status",
		"productId": "$.items[*].productId",
	}
	mapping, err := SchemaToMapping(schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	if props["status"].(map[string]any)["type"] != "keyword" {
		t.Fatalf("expected status:keyword, got %v", props["status"])
	}
	items := props["items"].(map[string]any)
	if items["type"] != "nested" {
		t.Fatalf("expected items to be nested, got %v", items)
	}
	inner := items["properties"].(map[string]any)
	if inner["productId"].(map[string]any)["type"] != "keyword" {
		t.Fatalf("expected items.productId:keyword, got %v", inner["productId"])
	}
}

func TestSchemaToMappingIdempotent(t *testing.T) {
	schema := map[string]string{
		"status":    "$.status",
		"productId": "$.items[*].productId",
		"tag":       "$.tags[*]",
	}
	m1, err := SchemaToMapping(schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2, err := SchemaToMapping(schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marshal(t, m1) != marshal(t, m2) {
		t.Fatalf("compiling schema twice produced different mappings:\n%s\n%s", marshal(t, m1), marshal(t, m2))
	}
}

func TestBuildQueryRange(t *testing.T) {
	q, err := BuildQuery(`$.price > 10 && $.price <= 20`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"query":{"bool":{"must":[{"range":{"price":{"gt":10}}},{"range":{"price":{"lte":20}}}]}}}`
	if got := marshal(t, q); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestBuildQueryNestedTerm(t *testing.T) {
	q, err := BuildQuery(`$.items[*].productId == "A1"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"query":{"nested":{"path":"items","query":{"term":{"items.productId":"A1"}}}}}`
	if got := marshal(t, q); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestBuildQueryNegation(t *testing.T) {
	q, err := BuildQuery(`$.status != "paid"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"query":{"bool":{"must_not":[{"term":{"status":"paid"}}]}}}`
	if got := marshal(t, q); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestBuildQueryOr(t *testing.T) {
	q, err := BuildQuery(`$.items[*].productId == "A1" || $.tags[*] == "hot"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"query":{"bool":{"minimum_should_match":1,"should":[{"nested":{"path":"items","query":{"term":{"items.productId":"A1"}}}},{"term":{"tags":"hot"}}]}}}`
	if got := marshal(t, q); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestParseExprRoundTrip(t *testing.T) {
	exprs := []string{
		`$.status == "paid"`,
		`$.price > 10 && $.price <= 20`,
		`!($.a == 1 || $.b == 2)`,
	}
	for _, s := range exprs {
		e1, err := ParseExpr(s)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", s, err)
		}
		e2, err := ParseExpr(s)
		if err != nil {
			t.Fatalf("ParseExpr(%q) second parse: %v", s, err)
		}
		c1, err := Compile(e1)
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		c2, err := Compile(e2)
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if marshal(t, c1) != marshal(t, c2) {
			t.Fatalf("%q: recompilation diverged: %s vs %s", s, marshal(t, c1), marshal(t, c2))
		}
	}
}

func TestParseExprErrors(t *testing.T) {
	cases := []string{
		`$.a ==`,
		`$.a === 1`,
		`$.a == "unterminated`,
		`$.a == 1 )`,
		`(($.a == 1)`,
		`foo == 1`,
	}
	for _, s := range cases {
		if _, err := ParseExpr(s); err == nil {
			t.Errorf("ParseExpr(%q): expected error, got nil", s)
		}
	}
}
