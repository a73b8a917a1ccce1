package audio

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

type fakeExtractor struct {
	info       ffmpegsvc.MediaInfo
	extractErr error
	gotIndex   int
	gotOpts    ffmpegsvc.ExtractOptions
	payload    []byte
}

func (f *fakeExtractor) Probe(ctx context.Context, source string) (ffmpegsvc.MediaInfo, error) {
	return f.info, nil
}

func (f *fakeExtractor) ExtractAudio(ctx context.Context, source string, audioIndex int, dest string, opts ffmpegsvc.ExtractOptions) error {
	f.gotIndex = audioIndex
	f.gotOpts = opts
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(dest, f.payload, 0o644)
}

func TestExecuteWritesAudioArtifact(t *testing.T) {
	cfg := config.Default()
	cfg.Media.Denoise = true
	cfg.Media.LoudnessNormalize = true

	extractor := &fakeExtractor{
		info:    ffmpegsvc.MediaInfo{AudioStreamIndex: 2},
		payload: []byte("RIFFdata"),
	}
	s := NewStage(&cfg, nil, extractor)

	job := &queue.Job{ID: 1, SourcePath: "/videos/in.mkv", WorkDir: t.TempDir()}
	if err := s.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := s.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.AudioPath != filepath.Join(job.WorkDir, "audio.wav") {
		t.Fatalf("audioPath = %q", job.AudioPath)
	}
	if extractor.gotIndex != 2 {
		t.Fatalf("stream index = %d", extractor.gotIndex)
	}
	if !extractor.gotOpts.Denoise || !extractor.gotOpts.LoudnessNormalize {
		t.Fatalf("opts = %+v", extractor.gotOpts)
	}
}

func TestExecuteEmptyOutputFails(t *testing.T) {
	cfg := config.Default()
	s := NewStage(&cfg, nil, &fakeExtractor{payload: nil})

	job := &queue.Job{ID: 1, SourcePath: "/videos/in.mkv", WorkDir: t.TempDir()}
	err := s.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool marker", err)
	}
}

func TestExecuteExtractFailure(t *testing.T) {
	cfg := config.Default()
	s := NewStage(&cfg, nil, &fakeExtractor{extractErr: errors.New("codec error")})

	job := &queue.Job{ID: 1, SourcePath: "/videos/in.mkv", WorkDir: t.TempDir()}
	err := s.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v", err)
	}
}

func TestPrepareRequiresWorkDir(t *testing.T) {
	cfg := config.Default()
	s := NewStage(&cfg, nil, &fakeExtractor{})
	err := s.Prepare(context.Background(), &queue.Job{ID: 1})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}
