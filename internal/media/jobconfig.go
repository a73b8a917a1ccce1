package media

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subtitle output formats supported by the serializer.
const (
	FormatSRT = "srt"
	FormatASS = "ass"
	FormatVTT = "vtt"
)

// KnownFormat reports whether name is a supported subtitle format.
func KnownFormat(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FormatSRT, FormatASS, FormatVTT:
		return true
	}
	return false
}

// Transcription provider identifiers.
const (
	ProviderWhisperAPI = "whisper-api"
	ProviderWhisperX   = "whisperx"
)

// Style carries the burn-in and ASS styling parameters.
type Style struct {
	Font     string  `json:"font"`
	FontSize int     `json:"fontSize"`
	Position string  `json:"position"`
	Outline  float64 `json:"outline"`
	Shadow   float64 `json:"shadow"`
}

// JobConfig is the immutable per-job configuration supplied at submission.
// The pipeline never consults global mutable state; everything a stage needs
// beyond server-side paths and credentials lives here.
type JobConfig struct {
	SourceLang          string   `json:"sourceLang"`
	TargetLang          string   `json:"targetLang"`
	EnableDiarization   bool     `json:"enableDiarization"`
	QualityVerification bool     `json:"qualityVerification"`
	BurnSubtitles       bool     `json:"burnSubtitles"`
	Formats             []string `json:"formats"`
	Style               Style    `json:"style"`
	Concurrency         int      `json:"concurrency"`
	TranscriberProvider string   `json:"transcriberProvider"`
	OutputSuffix        string   `json:"outputSuffix"`
	IncludeLangCode     bool     `json:"includeLangCode"`
}

// DefaultJobConfig returns the configuration used when a submission omits
// fields. The zero JobConfig is not usable directly; call Normalize.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		SourceLang:          "auto",
		TargetLang:          "en",
		QualityVerification: true,
		Formats:             []string{FormatSRT},
		Style: Style{
			Font:     "Arial",
			FontSize: 24,
			Position: "Bottom Center",
			Outline:  1.0,
			Shadow:   1.0,
		},
		Concurrency:         3,
		TranscriberProvider: ProviderWhisperAPI,
		IncludeLangCode:     true,
	}
}

// ParseJobConfig decodes a submission payload and fills omitted fields with
// defaults. Unknown formats and nonsense values surface as errors here so a
// job never starts with a bad configuration.
func ParseJobConfig(payload []byte) (JobConfig, error) {
	cfg := DefaultJobConfig()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cfg); err != nil {
			return cfg, fmt.Errorf("parse job config: %w", err)
		}
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Normalize trims fields, applies defaults for omissions, and validates the
// result.
func (c *JobConfig) Normalize() error {
	defaults := DefaultJobConfig()

	c.SourceLang = strings.ToLower(strings.TrimSpace(c.SourceLang))
	if c.SourceLang == "" {
		c.SourceLang = "auto"
	}
	c.TargetLang = strings.ToLower(strings.TrimSpace(c.TargetLang))
	if c.TargetLang == "" {
		c.TargetLang = defaults.TargetLang
	}
	if c.TargetLang == "auto" {
		return fmt.Errorf("job config: target language must be a concrete language code")
	}

	if len(c.Formats) == 0 {
		c.Formats = append([]string(nil), defaults.Formats...)
	}
	seen := make(map[string]struct{}, len(c.Formats))
	normalized := c.Formats[:0]
	for _, format := range c.Formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			continue
		}
		if !KnownFormat(format) {
			return fmt.Errorf("job config: unsupported subtitle format %q", format)
		}
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		normalized = append(normalized, format)
	}
	c.Formats = normalized
	if len(c.Formats) == 0 {
		c.Formats = append([]string(nil), defaults.Formats...)
	}

	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	if c.TranscriberProvider == "" {
		c.TranscriberProvider = defaults.TranscriberProvider
	}
	switch c.TranscriberProvider {
	case ProviderWhisperAPI, ProviderWhisperX:
	default:
		return fmt.Errorf("job config: unknown transcription provider %q", c.TranscriberProvider)
	}

	if strings.TrimSpace(c.Style.Font) == "" {
		c.Style.Font = defaults.Style.Font
	}
	if c.Style.FontSize <= 0 {
		c.Style.FontSize = defaults.Style.FontSize
	}
	if strings.TrimSpace(c.Style.Position) == "" {
		c.Style.Position = defaults.Style.Position
	}
	if c.Style.Outline < 0 {
		c.Style.Outline = defaults.Style.Outline
	}
	if c.Style.Shadow < 0 {
		c.Style.Shadow = defaults.Style.Shadow
	}
	return nil
}

// Encode serializes the configuration for storage on a job row. Stored rows
// always carry the normalized form.
func (c JobConfig) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode job config: %w", err)
	}
	return string(data), nil
}
