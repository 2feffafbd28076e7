package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
)

// SchemaDefaults holds, per namespace, the search schema (logical name
// -> JSONPath) applied automatically the first time that namespace is
// seen. Loaded from SearchSchemaDefaultsPath and hot-reloaded via
// fsnotify, in the style of the teacher's
// pkg/config/provider.FileProvider.Watch.
type SchemaDefaults struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// LoadSchemaDefaults reads and decodes the defaults file. A missing
// path is not an error: it simply means no defaults are configured.
func LoadSchemaDefaults(path string) (*SchemaDefaults, error) {
	sd := &SchemaDefaults{data: map[string]map[string]string{}}
	if path == "" {
		return sd, nil
	}
	if err := sd.reload(path); err != nil {
		return nil, err
	}
	return sd, nil
}

func (sd *SchemaDefaults) reload(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read schema defaults %s: %w", path, err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("config: parse schema defaults %s: %w", path, err)
	}

	var decoded map[string]map[string]string
	if err := mapstructure.Decode(parsed, &decoded); err != nil {
		return fmt.Errorf("config: decode schema defaults %s: %w", path, err)
	}

	sd.mu.Lock()
	sd.data = decoded
	sd.mu.Unlock()
	return nil
}

// For returns the default schema for a namespace, or (nil, false) if
// none is configured.
func (sd *SchemaDefaults) For(namespace string) (map[string]string, bool) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	schema, ok := sd.data[namespace]
	return schema, ok
}

// Watch reloads the defaults file whenever it changes on disk, until
// ctx is cancelled. Errors during reload are logged, not fatal: the
// previously loaded defaults remain in effect.
func (sd *SchemaDefaults) Watch(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create schema defaults watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Base(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := sd.reload(path); err != nil {
					slog.Warn("reload schema defaults failed", "path", path, "error", err)
				} else {
					slog.Info("reloaded schema defaults", "path", path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("schema defaults watcher error", "error", err)
			}
		}
	}()
	return nil
}
