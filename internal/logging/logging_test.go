package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWithoutFileLogsToStderr(t *testing.T) {
	logger, err := New(zapcore.InfoLevel, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Sync()
	logger.Info("startup")
}

func TestNewWithFileCreatesIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "coincenter.log")
	logger, err := New(zapcore.InfoLevel, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello")
	logger.Sync()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestNopDiscardsEverything(t *testing.T) {
	logger := Nop()
	logger.Info("this goes nowhere")
}
