package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide structured logger. The teacher
// calls log/slog directly at call sites (see v2/task/store.go) rather
// than wrapping it behind a custom logging package, so this module does
// the same: one JSON handler built once at startup. main passes the
// *slog.Logger to the indexing worker and also installs it as the slog
// default, which the package-level slog calls elsewhere use.
func NewLogger(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
