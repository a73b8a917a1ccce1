package transcription

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWhisperXBuildArgs(t *testing.T) {
	w := NewWhisperX(WhisperXConfig{Model: "large-v3", CUDAEnabled: false})
	args := strings.Join(w.buildArgs("/work/audio.wav", "/work", "ja"), " ")
	if !strings.Contains(args, "--model large-v3") {
		t.Fatalf("model missing: %s", args)
	}
	if !strings.Contains(args, "--language ja") {
		t.Fatalf("language missing: %s", args)
	}
	if !strings.Contains(args, "--device cpu --compute_type int8") {
		t.Fatalf("cpu settings missing: %s", args)
	}

	cuda := NewWhisperX(WhisperXConfig{CUDAEnabled: true})
	cudaArgs := strings.Join(cuda.buildArgs("/work/audio.wav", "/work", "auto"), " ")
	if !strings.Contains(cudaArgs, "--device cuda") {
		t.Fatalf("cuda device missing: %s", cudaArgs)
	}
	if strings.Contains(cudaArgs, "--language") {
		t.Fatalf("auto hint must not pass --language: %s", cudaArgs)
	}
}

func TestWhisperXTranscribeReadsOutput(t *testing.T) {
	workDir := t.TempDir()
	audioPath := filepath.Join(workDir, "audio.wav")
	if err := os.WriteFile(audioPath, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWhisperX(WhisperXConfig{WorkDir: workDir})
	w.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name != uvxCommand {
			t.Errorf("command = %q", name)
		}
		payload := `{"language":"ko","segments":[{"start":0,"end":2,"text":" 안녕하세요 "}]}`
		return os.WriteFile(filepath.Join(workDir, "audio.json"), []byte(payload), 0o644)
	})

	result, err := w.Transcribe(context.Background(), audioPath, "auto")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Language != "ko" {
		t.Fatalf("language = %q", result.Language)
	}
	if len(result.Segments) != 1 || result.Segments[0].Text != "안녕하세요" {
		t.Fatalf("segments = %+v", result.Segments)
	}
}

func TestWhisperXTranscribeMissingOutput(t *testing.T) {
	w := NewWhisperX(WhisperXConfig{WorkDir: t.TempDir()})
	w.WithCommandRunner(func(ctx context.Context, name string, args ...string) error { return nil })
	if _, err := w.Transcribe(context.Background(), "/nope/audio.wav", "auto"); err == nil {
		t.Fatal("expected error when output json missing")
	}
}
