package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Nexitus/KotoSub/internal/language"
	"github.com/Nexitus/KotoSub/internal/media"
)

// Commands and defaults for the local whisperx provider.
const (
	uvxCommand           = "uvx"
	defaultWhisperXModel = "large-v3-turbo"
	pypiIndexURL         = "https://pypi.org/simple"
	cudaIndexURL         = "https://download.pytorch.org/whl/cu128"
)

// WhisperXConfig captures the runtime settings for local transcription.
type WhisperXConfig struct {
	Model       string
	CUDAEnabled bool
	WorkDir     string
}

// WhisperX runs the whisperx CLI through uvx for offline transcription.
type WhisperX struct {
	cfg           WhisperXConfig
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperX constructs a local whisperx provider.
func NewWhisperX(cfg WhisperXConfig) *WhisperX {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultWhisperXModel
	}
	return &WhisperX{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Name implements Provider.
func (w *WhisperX) Name() string { return "whisperx" }

func (w *WhisperX) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// whisperx checkpoint loading. Force legacy behavior.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe implements Provider by invoking whisperx and reading its JSON
// output file.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	var result Result

	outputDir := w.cfg.WorkDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("whisperx: ensure output dir: %w", err)
	}

	args := w.buildArgs(audioPath, outputDir, languageHint)
	if err := w.run(ctx, uvxCommand, args...); err != nil {
		return result, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	return loadWhisperXResult(jsonPath)
}

func (w *WhisperX) buildArgs(audioPath, outputDir, languageHint string) []string {
	args := make([]string, 0, 24)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL)
	} else {
		args = append(args, "--index-url", pypiIndexURL)
	}
	args = append(args,
		"whisperx",
		audioPath,
		"--model", w.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--vad_method", "silero",
	)
	if hint := language.Normalize(languageHint); hint != "" && hint != language.Auto {
		args = append(args, "--language", hint)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "int8")
	}
	return args
}

type whisperXPayload struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func loadWhisperXResult(jsonPath string) (Result, error) {
	var result Result
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return result, fmt.Errorf("whisperx: read output: %w", err)
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return result, fmt.Errorf("whisperx: parse output: %w", err)
	}

	segments := make([]media.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, media.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: 1,
		})
	}
	result.Segments = media.CleanSegments(segments)
	result.Language = language.Normalize(payload.Language)
	return result, nil
}
