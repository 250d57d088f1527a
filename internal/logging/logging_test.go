package logging

import (
	"path/filepath"
	"testing"

	"flashcard-quiz-service/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	if _, err := New(config.LogConfig{Encoding: "xml"}); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.log")
	logger, err := New(config.LogConfig{Level: "debug", Encoding: "json", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hello")
	_ = logger.Sync()
}
