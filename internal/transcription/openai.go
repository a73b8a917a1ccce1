package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nexitus/KotoSub/internal/language"
	"github.com/Nexitus/KotoSub/internal/media"
)

// WhisperConfig captures the connection settings for the hosted Whisper API.
type WhisperConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// WhisperClient transcribes audio through an OpenAI-compatible
// /audio/transcriptions endpoint.
type WhisperClient struct {
	cfg        WhisperConfig
	httpClient *http.Client
}

// NewWhisperClient constructs a hosted Whisper provider.
func NewWhisperClient(cfg WhisperConfig, opts ...WhisperOption) *WhisperClient {
	timeout := 10 * time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &WhisperClient{
		cfg: WhisperConfig{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.openai.com/v1"
	}
	if client.cfg.Model == "" {
		client.cfg.Model = "whisper-1"
	}
	return client
}

// WhisperOption customizes the client.
type WhisperOption func(*WhisperClient)

// WithWhisperHTTPClient overrides the default HTTP client.
func WithWhisperHTTPClient(httpClient *http.Client) WhisperOption {
	return func(c *WhisperClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Name implements Provider.
func (c *WhisperClient) Name() string { return "whisper-api" }

// httpStatusError carries the status code so the chunker can decide whether
// a failed chunk is worth retrying.
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("whisper: http %d: %s", e.StatusCode, e.Body)
}

// verboseTranscription is the verbose_json response schema.
type verboseTranscription struct {
	Language string `json:"language"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe implements Provider by uploading the audio file and decoding
// the verbose segment response.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error) {
	var result Result
	if c.cfg.APIKey == "" {
		return result, errors.New("whisper: api key required")
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return result, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return result, fmt.Errorf("whisper: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return result, fmt.Errorf("whisper: copy audio: %w", err)
	}
	fields := map[string]string{
		"model":           c.cfg.Model,
		"response_format": "verbose_json",
	}
	if hint := language.Normalize(languageHint); hint != "" && hint != language.Auto {
		fields["language"] = hint
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return result, fmt.Errorf("whisper: write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("whisper: finish form: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return result, fmt.Errorf("whisper: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result, fmt.Errorf("whisper: http error: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("whisper: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return result, &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var parsed verboseTranscription
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return result, fmt.Errorf("whisper: decode response: %w", err)
	}
	if parsed.Error != nil {
		return result, fmt.Errorf("whisper: api error: %s", strings.TrimSpace(parsed.Error.Message))
	}

	segments := make([]media.Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, media.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: confidenceFromLogprob(seg.AvgLogprob),
		})
	}
	result.Segments = media.CleanSegments(segments)
	result.Language = language.Normalize(parsed.Language)
	return result, nil
}

// confidenceFromLogprob maps whisper's average log probability into a rough
// 0..1 confidence. Values near 0 are confident; -1 and below are not.
func confidenceFromLogprob(logprob float64) float64 {
	if logprob >= 0 {
		return 1
	}
	if logprob <= -1 {
		return 0
	}
	return 1 + logprob
}
