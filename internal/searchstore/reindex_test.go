package searchstore

import "testing"

func TestPhysicalIndexNameIsUniqueAndNamespaced(t *testing.T) {
	a := physicalIndexName("widgets")
	b := physicalIndexName("widgets")
	if a == b {
		t.Fatalf("expected distinct physical index names, got %q twice", a)
	}
	wantPrefix := "widgets_"
	if len(a) <= len(wantPrefix) || a[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("expected name prefixed with %q, got %q", wantPrefix, a)
	}
}
