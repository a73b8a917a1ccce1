package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case "whisper-api", "whisperx":
	default:
		return fmt.Errorf("transcription.provider must be %q or %q", "whisper-api", "whisperx")
	}
	if c.Transcription.ChunkSeconds <= 0 {
		return errors.New("transcription.chunk_seconds must be positive")
	}
	if c.Transcription.ChunkOverlapSeconds < 0 {
		return errors.New("transcription.chunk_overlap_seconds must not be negative")
	}
	if c.Transcription.ChunkOverlapSeconds >= c.Transcription.ChunkSeconds {
		return errors.New("transcription.chunk_overlap_seconds must be smaller than transcription.chunk_seconds")
	}
	if c.Transcription.DetectWindowSeconds <= 0 {
		return errors.New("transcription.detect_window_seconds must be positive")
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.MaxBatchChars <= 0 {
		return errors.New("translation.max_batch_chars must be positive")
	}
	if c.Translation.MaxBatchSegments <= 0 {
		return errors.New("translation.max_batch_segments must be positive")
	}
	if c.Translation.Concurrency <= 0 {
		return errors.New("translation.concurrency must be positive")
	}
	if c.Translation.ContextSegments < 0 {
		return errors.New("translation.context_segments must not be negative")
	}
	if c.LLM.RetryMaxAttempts <= 0 {
		return errors.New("llm.retry_max_attempts must be positive")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTiming() error {
	if c.Timing.CharsPerSecond <= 0 {
		return errors.New("timing.chars_per_second must be positive")
	}
	if c.Timing.MinDurationMS <= 0 {
		return errors.New("timing.min_duration_ms must be positive")
	}
	if c.Timing.MaxDurationSeconds <= float64(c.Timing.MinDurationMS)/1000 {
		return errors.New("timing.max_duration_seconds must exceed timing.min_duration_ms")
	}
	if c.Timing.MergeGapMS < 0 {
		return errors.New("timing.merge_gap_ms must not be negative")
	}
	if c.Timing.MaxLineChars <= 0 {
		return errors.New("timing.max_line_chars must be positive")
	}
	if c.Timing.MaxLines <= 0 || c.Timing.MaxLines > 2 {
		return errors.New("timing.max_lines must be 1 or 2")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}
