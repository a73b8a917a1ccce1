package queue

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewJobDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/videos/Interview Episode 3.mkv", `{"targetLang":"en"}`)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != StatusPending {
		t.Fatalf("status = %q, want pending", job.Status)
	}
	if job.Token == "" {
		t.Fatal("expected a token")
	}
	if job.Title != "Interview Episode 3" {
		t.Fatalf("title = %q", job.Title)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}

	byToken, err := store.GetByToken(ctx, job.Token)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if byToken == nil || byToken.ID != job.ID {
		t.Fatalf("GetByToken = %+v", byToken)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/videos/talk.mp4", "{}")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	job.Status = StatusTranscribing
	job.DetectedLanguage = "ja"
	job.WorkDir = "/work/1"
	job.AudioPath = "/work/1/audio.wav"
	job.SetProgress("transcribing", "chunk 2 of 5", 40)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != StatusTranscribing || reloaded.DetectedLanguage != "ja" {
		t.Fatalf("reloaded = %+v", reloaded)
	}
	if reloaded.ProgressPercent != 40 || reloaded.ProgressStage != "transcribing" {
		t.Fatalf("progress = %q %.0f", reloaded.ProgressStage, reloaded.ProgressPercent)
	}
}

func TestNextPendingOrdersByCreation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NewJob(ctx, "/videos/a.mkv", "{}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.NewJob(ctx, "/videos/b.mkv", "{}"); err != nil {
		t.Fatal(err)
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want id %d", next, first.ID)
	}

	next.Status = StatusValidating
	if err := store.Update(ctx, next); err != nil {
		t.Fatal(err)
	}
	second, err := store.NextPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("second = %+v", second)
	}
}

func TestRequestCancel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pending, err := store.NewJob(ctx, "/videos/a.mkv", "{}")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := store.RequestCancel(ctx, pending.ID)
	if err != nil || !ok {
		t.Fatalf("RequestCancel = (%v, %v)", ok, err)
	}
	reloaded, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != StatusCancelled || !reloaded.CancelRequested {
		t.Fatalf("pending job not cancelled immediately: %+v", reloaded)
	}

	running, err := store.NewJob(ctx, "/videos/b.mkv", "{}")
	if err != nil {
		t.Fatal(err)
	}
	running.Status = StatusTranslating
	if err := store.Update(ctx, running); err != nil {
		t.Fatal(err)
	}
	if ok, err := store.RequestCancel(ctx, running.ID); err != nil || !ok {
		t.Fatalf("RequestCancel running = (%v, %v)", ok, err)
	}
	reloaded, err = store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != StatusTranslating || !reloaded.CancelRequested {
		t.Fatalf("running job should keep status with flag set: %+v", reloaded)
	}

	done, err := store.NewJob(ctx, "/videos/c.mkv", "{}")
	if err != nil {
		t.Fatal(err)
	}
	done.Status = StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.RequestCancel(ctx, done.ID); ok {
		t.Fatal("completed job should not be cancellable")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/videos/a.mkv", "{}")
	if err != nil {
		t.Fatal(err)
	}
	job.Status = StatusRefining
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("reset count = %d, want 1", count)
	}
	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != StatusPending {
		t.Fatalf("status = %q, want pending", reloaded.Status)
	}
}

func TestRetryFailedAndHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/videos/a.mkv", "{}")
	if err != nil {
		t.Fatal(err)
	}
	job.SetFailed("llm unavailable", "transient")
	if err := store.Update(ctx, job); err != nil {
		t.Fatal(err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if health.Failed != 1 || health.Total != 1 {
		t.Fatalf("health = %+v", health)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil || count != 1 {
		t.Fatalf("RetryFailed = (%d, %v)", count, err)
	}
	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != StatusPending || reloaded.ErrorMessage != "" {
		t.Fatalf("reloaded = %+v", reloaded)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Translating "); !ok || status != StatusTranslating {
		t.Fatalf("ParseStatus = (%q, %v)", status, ok)
	}
	if _, ok := ParseStatus("ripping"); ok {
		t.Fatal("unknown status accepted")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !IsTerminal(status) {
			t.Fatalf("%q should be terminal", status)
		}
	}
	if IsTerminal(StatusMuxing) {
		t.Fatal("muxing is not terminal")
	}
}
