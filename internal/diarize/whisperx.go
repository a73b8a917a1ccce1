package diarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const uvxCommand = "uvx"

// WhisperXConfig captures the runtime settings for local diarization.
type WhisperXConfig struct {
	HFToken     string
	Model       string
	CUDAEnabled bool
	WorkDir     string
}

// WhisperX runs whisperx with speaker diarization enabled and extracts the
// speaker turns from its JSON output. Diarization needs a Hugging Face token
// for the pyannote pipeline weights.
type WhisperX struct {
	cfg           WhisperXConfig
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperX constructs a diarization provider.
func NewWhisperX(cfg WhisperXConfig) *WhisperX {
	return &WhisperX{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Name implements Provider.
func (w *WhisperX) Name() string { return "whisperx-diarize" }

func (w *WhisperX) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Turns implements Provider by running a diarization pass over the audio.
func (w *WhisperX) Turns(ctx context.Context, audioPath string) ([]Turn, error) {
	if strings.TrimSpace(w.cfg.HFToken) == "" {
		return nil, fmt.Errorf("diarize: hugging face token required")
	}

	outputDir := w.cfg.WorkDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("diarize: ensure output dir: %w", err)
	}

	args := w.buildArgs(audioPath, outputDir)
	if err := w.run(ctx, uvxCommand, args...); err != nil {
		return nil, fmt.Errorf("diarize: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return loadTurns(filepath.Join(outputDir, baseName+".json"))
}

func (w *WhisperX) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		"whisperx",
		audioPath,
		"--diarize",
		"--hf_token", w.cfg.HFToken,
		"--output_dir", outputDir,
		"--output_format", "json",
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "int8")
	}
	return args
}

type diarizedPayload struct {
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
	} `json:"segments"`
}

func loadTurns(jsonPath string) ([]Turn, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("diarize: read output: %w", err)
	}
	var payload diarizedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("diarize: parse output: %w", err)
	}

	turns := make([]Turn, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" || seg.End <= seg.Start {
			continue
		}
		turns = append(turns, Turn{Start: seg.Start, End: seg.End, Speaker: speaker})
	}
	return turns, nil
}
