package services

import (
	"context"
	"testing"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := WithJobID(context.Background(), 42)
	id, ok := JobIDFromContext(ctx)
	if !ok || id != 42 {
		t.Fatalf("JobIDFromContext = (%d, %v), want (42, true)", id, ok)
	}
	if _, ok := JobIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not carry a job id")
	}
}

func TestStageAndRequestID(t *testing.T) {
	ctx := WithStage(context.Background(), "transcribing")
	ctx = WithRequestID(ctx, "req-1")
	if stage, ok := StageFromContext(ctx); !ok || stage != "transcribing" {
		t.Fatalf("StageFromContext = (%q, %v)", stage, ok)
	}
	if id, ok := RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("RequestIDFromContext = (%q, %v)", id, ok)
	}
	if got := WithStage(context.Background(), ""); got != context.Background() {
		t.Fatal("empty stage should return the original context")
	}
}
