package config

import "testing"

func TestValidateRequiresDSNs(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error with no DSNs set")
	}

	c.PostgresDSN = "postgres://localhost/db"
	c.ElasticSearchDSN = "http://localhost:9200"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.Environment != "development" {
		t.Errorf("expected default environment, got %q", c.Environment)
	}
	if c.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %q", c.HTTPAddr)
	}
	if c.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", c.LogLevel)
	}
}
