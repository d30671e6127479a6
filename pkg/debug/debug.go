// Package debug provides category-based debug logging for scribe.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): SCRIBE_DEBUG env or log.debug in config
//   - Levels (HOW MUCH detail): SCRIBE_LOG_LEVEL env or log.level in config
//
// Usage:
//
//	debug.Log("identity", "sign in", "email", email)
//	if debug.Enabled("store") { /* expensive formatting */ }
//
// Categories: auth, identity, blog, store, transport, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
// At TRACE, request bodies are logged (passwords are never logged).
const LevelTrace = slog.LevelDebug - 4

// categories holds the set of enabled debug categories.
// Read-only after Init.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("SCRIBE_DEBUG"))
}

// Init configures categories and the default slog handler. Environment
// values override the config values. format is "text" (default) or "json".
func Init(configCategories, configLevel, format string) {
	cats := os.Getenv("SCRIBE_DEBUG")
	if cats == "" {
		cats = configCategories
	}
	categories = parseCategories(cats)

	level := os.Getenv("SCRIBE_LOG_LEVEL")
	if level == "" {
		level = configLevel
	}
	slog.SetDefault(slog.New(NewHandler(os.Stderr, ParseLevel(level), format)))
}

// NewHandler builds the slog handler used by the server.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category. No-op when the
// category is disabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
// Only visible when SCRIBE_LOG_LEVEL=TRACE.
func Trace(category string, msg string, args ...any) {
	if !TraceIsEnabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories.
func Categories() []string {
	var result []string
	for k := range categories {
		result = append(result, k)
	}
	return result
}

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
