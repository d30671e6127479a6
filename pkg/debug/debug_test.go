package debug

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "identity", map[string]bool{"identity": true}},
		{"multiple", "identity,store", map[string]bool{"identity": true, "store": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " identity , store ", map[string]bool{"identity": true, "store": true}},
		{"uppercase normalized", "IDENTITY,Store", map[string]bool{"identity": true, "store": true}},
		{"empty segments", "identity,,store", map[string]bool{"identity": true, "store": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	// Save and restore.
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("identity,store")

	if !Enabled("identity") {
		t.Error("identity should be enabled")
	}
	if !Enabled("store") {
		t.Error("store should be enabled")
	}
	if Enabled("http") {
		t.Error("http should not be enabled")
	}
	if Enabled("all") {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	if !Enabled("identity") {
		t.Error("identity should be enabled via 'all'")
	}
	if !Enabled("store") {
		t.Error("store should be enabled via 'all'")
	}
	if !Enabled("anything") {
		t.Error("anything should be enabled via 'all'")
	}
}

func TestEnabled_Empty(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	if Enabled("identity") {
		t.Error("nothing should be enabled when no categories set")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q, want %q", got, "short")
	}
	if got := Truncate("this is a long string", 10); got != "this is a ..." {
		t.Errorf("Truncate long = %q, want %q", got, "this is a ...")
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	// Should not panic or produce output.
	Log("identity", "test message", "key", "value")
	Trace("identity", "trace message", "key", "value")
}

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, slog.LevelInfo, "json")).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json handler output = %q", buf.String())
	}

	buf.Reset()
	slog.New(NewHandler(&buf, slog.LevelInfo, "")).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("text handler output = %q", buf.String())
	}

	buf.Reset()
	slog.New(NewHandler(&buf, slog.LevelWarn, "text")).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}
