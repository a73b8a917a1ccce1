package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func newTestConsoleLogger(sink *strings.Builder) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(sink, levelVar))
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var sink strings.Builder
	logger := WithComponent(newTestConsoleLogger(&sink), "workflow")

	logger.Info("stage started", String("stage", "translating"), Int64(FieldJobID, 7))

	line := sink.String()
	if !strings.Contains(line, "workflow: stage started") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "stage=translating") {
		t.Fatalf("expected stage attr, got %q", line)
	}
	if !strings.Contains(line, "job_id=7") {
		t.Fatalf("expected job id attr, got %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var sink strings.Builder
	newTestConsoleLogger(&sink).Info("msg", String("detail", "two words"))

	if !strings.Contains(sink.String(), `detail="two words"`) {
		t.Fatalf("expected quoted value, got %q", sink.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
