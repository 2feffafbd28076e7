package coordinator

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

func TestRegisterNamespaceIsIdempotentAndValidates(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	docs, err := docstore.Open(db, docstore.DialectSQLite)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}

	c := New(docs, nil, nil)
	ctx := context.Background()

	if err := c.registerNamespace(ctx, "widgets"); err != nil {
		t.Fatalf("registerNamespace: %v", err)
	}
	if err := c.registerNamespace(ctx, "widgets"); err != nil {
		t.Fatalf("registerNamespace (second call): %v", err)
	}

	names := c.Namespaces()
	if len(names) != 1 || names[0] != "widgets" {
		t.Fatalf("unexpected namespace registry: %v", names)
	}

	if err := c.registerNamespace(ctx, "not a valid name"); err == nil {
		t.Fatalf("expected error for invalid namespace")
	}
}

func TestMappingForReportsAbsentSchema(t *testing.T) {
	c := New(nil, nil, nil)
	if _, ok := c.MappingFor("widgets"); ok {
		t.Fatalf("expected no mapping for namespace with no schema set")
	}
}
