package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	scoped := NewComponentLogger(logger, "discovery")
	scoped.Info("chain complete", Args(String(FieldArtist, "Boards of Canada"), Int(FieldCount, 3))...)

	line := buf.String()
	if !strings.Contains(line, "discovery: chain complete") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `artist="Boards of Canada"`) {
		t.Fatalf("expected quoted attr, got %q", line)
	}
	if !strings.Contains(line, "count=3") {
		t.Fatalf("expected count attr, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should render as prefix only, got %q", line)
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "WARN shown") {
		t.Fatalf("warn record missing, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens", Args(Error(nil))...)
}
