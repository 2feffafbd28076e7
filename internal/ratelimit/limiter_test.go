package ratelimit

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/kadirpekel/jsonstorage/internal/docstore"
)

func newTestLimiter(t *testing.T, rules []Rule) *Limiter {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(context.Background(), db, docstore.DialectSQLite)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewLimiter(true, rules, store)
}

func TestCheckAndRecordAllowsUnderLimit(t *testing.T) {
	l := newTestLimiter(t, []Rule{{Window: WindowMinute, Limit: 3}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := l.CheckAndRecord(ctx, "orders")
		if err != nil {
			t.Fatalf("CheckAndRecord: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d: expected allowed, got denied: %s", i, result.Reason)
		}
	}
}

func TestCheckAndRecordDeniesOverLimit(t *testing.T) {
	l := newTestLimiter(t, []Rule{{Window: WindowMinute, Limit: 2}})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if result, err := l.CheckAndRecord(ctx, "orders"); err != nil || !result.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
	}

	result, err := l.CheckAndRecord(ctx, "orders")
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected third request to be denied")
	}
	if result.RetryAfter == nil {
		t.Fatal("expected RetryAfter to be set on denial")
	}
}

func TestCheckAndRecordIsPerNamespace(t *testing.T) {
	l := newTestLimiter(t, []Rule{{Window: WindowMinute, Limit: 1}})
	ctx := context.Background()

	if result, _ := l.CheckAndRecord(ctx, "orders"); !result.Allowed {
		t.Fatal("expected first orders request allowed")
	}
	if result, _ := l.CheckAndRecord(ctx, "invoices"); !result.Allowed {
		t.Fatal("expected first invoices request allowed, namespaces should not share a budget")
	}
	if result, _ := l.CheckAndRecord(ctx, "orders"); result.Allowed {
		t.Fatal("expected second orders request denied")
	}
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	l := NewLimiter(false, []Rule{{Window: WindowMinute, Limit: 1}}, nil)
	result, err := l.CheckAndRecord(context.Background(), "orders")
	if err != nil {
		t.Fatalf("CheckAndRecord: %v", err)
	}
	if !result.Allowed {
		t.Fatal("disabled limiter should always allow")
	}
}
