package logger

import (
	"os"
	"path/filepath"
	"testing"
)

type fileConfig struct{ file string }

func (c fileConfig) GetLevel() string  { return "debug" }
func (c fileConfig) GetOutput() string { return "file" }
func (c fileConfig) GetFile() string   { return c.file }

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"bogus":   INFO,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestInitFileOutput(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	path := filepath.Join(t.TempDir(), "fundchain.log")
	if err := Init(fileConfig{file: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("pledge confirmed for campaign %d", 7)
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}

func TestFileLoggerRequiresPath(t *testing.T) {
	if _, err := NewWithLumberjackConfig(INFO, LumberjackConfig{}); err == nil {
		t.Fatal("expected error for empty filename")
	}
}
