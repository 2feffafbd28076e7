package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSchemaDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.json")
	content := `{"widgets": {"status": "$.status"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write defaults file: %v", err)
	}

	sd, err := LoadSchemaDefaults(path)
	if err != nil {
		t.Fatalf("LoadSchemaDefaults: %v", err)
	}

	schema, ok := sd.For("widgets")
	if !ok {
		t.Fatalf("expected defaults for widgets")
	}
	if schema["status"] != "$.status" {
		t.Fatalf("unexpected schema: %v", schema)
	}

	if _, ok := sd.For("missing"); ok {
		t.Fatalf("expected no defaults for unconfigured namespace")
	}
}

func TestLoadSchemaDefaultsEmptyPath(t *testing.T) {
	sd, err := LoadSchemaDefaults("")
	if err != nil {
		t.Fatalf("LoadSchemaDefaults: %v", err)
	}
	if _, ok := sd.For("anything"); ok {
		t.Fatalf("expected no defaults when path is empty")
	}
}
