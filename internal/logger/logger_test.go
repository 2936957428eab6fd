package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterDefaultsToStderr(t *testing.T) {
	w := Config{}.Writer()
	if w != os.Stderr {
		t.Fatalf("expected stderr, got %T", w)
	}
}

func TestWriterFileRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := Config{File: FileConfig{Path: path}}
	w := cfg.Writer()
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if c, ok := w.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(b), "hello") {
		t.Fatalf("unexpected log content: %q", b)
	}
}

func TestNewSloggerRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := Config{Level: "warn", Format: "json", File: FileConfig{Path: path}}
	l := cfg.NewSlogger()

	l.Info("dropped")
	l.Warn("kept", slog.String("k", "v"))

	b, _ := os.ReadFile(path)
	out := string(b)
	if strings.Contains(out, "dropped") {
		t.Fatalf("info must be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestSlogLevelParsing(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{Level: in}).slogLevel(); got != want {
			t.Fatalf("level %q: got %v want %v", in, got, want)
		}
	}
}
