package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range testCases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestNewLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "books.log")

	logger, err := NewLogger("info", logPath)
	if err != nil {
		t.Fatalf("unexpected logger error: %v", err)
	}
	logger.Debug("hidden entry")
	logger.Info("slide sweep finished")
	_ = logger.Sync()

	contents, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(contents), "slide sweep finished") {
		t.Fatalf("expected info entry in log file, got %q", contents)
	}
	if strings.Contains(string(contents), "hidden entry") {
		t.Fatalf("debug entry must be filtered at info level")
	}
}
