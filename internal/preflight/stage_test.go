package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/queue"
	"github.com/Nexitus/KotoSub/internal/services"
	ffmpegsvc "github.com/Nexitus/KotoSub/internal/services/ffmpeg"
)

type fakeValidator struct {
	info ffmpegsvc.MediaInfo
	err  error
}

func (f fakeValidator) Validate(ctx context.Context, source string) (ffmpegsvc.MediaInfo, error) {
	return f.info, f.err
}

func newJob(t *testing.T, source string) *queue.Job {
	t.Helper()
	return &queue.Job{ID: 1, Token: "tok-123", SourcePath: source, ConfigJSON: "{}"}
}

func TestExecuteCreatesWorkDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()

	source := filepath.Join(t.TempDir(), "video.mkv")
	if err := os.WriteFile(source, []byte("mkv"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStage(&cfg, nil, fakeValidator{info: ffmpegsvc.MediaInfo{DurationSeconds: 10, HasVideo: true, HasAudio: true}})
	job := newJob(t, source)
	if err := s.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := s.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.WorkDir != filepath.Join(cfg.Paths.WorkDir, "job-tok-123") {
		t.Fatalf("workDir = %q", job.WorkDir)
	}
	if _, err := os.Stat(job.WorkDir); err != nil {
		t.Fatalf("work directory not created: %v", err)
	}
}

func TestExecuteRejectsMissingSource(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()

	s := NewStage(&cfg, nil, fakeValidator{})
	err := s.Execute(context.Background(), newJob(t, "/nonexistent/video.mkv"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation marker", err)
	}
}

func TestExecuteRejectsBadStreams(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()

	source := filepath.Join(t.TempDir(), "audio-only.mkv")
	if err := os.WriteFile(source, []byte("mkv"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStage(&cfg, nil, fakeValidator{err: errors.New("no video stream")})
	err := s.Execute(context.Background(), newJob(t, source))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestExecuteRejectsBadJobConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()

	s := NewStage(&cfg, nil, fakeValidator{})
	job := &queue.Job{ID: 1, Token: "tok", SourcePath: "x", ConfigJSON: `{"targetLang":"auto"}`}
	err := s.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}
