package media

import (
	"encoding/json"
	"fmt"
	"os"
)

// Segment and translation lists are persisted between stages as JSON files in
// the job work directory, so a restarted server can resume a job from the
// last completed stage.

// WriteSegmentsFile persists a segment list to path.
func WriteSegmentsFile(path string, segments []Segment) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("encode segments: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write segments: %w", err)
	}
	return nil
}

// ReadSegmentsFile loads a segment list written by WriteSegmentsFile.
func ReadSegmentsFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	return segments, nil
}

// WriteTranslationsFile persists a translated segment list to path.
func WriteTranslationsFile(path string, segments []TranslatedSegment) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("encode translations: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write translations: %w", err)
	}
	return nil
}

// ReadTranslationsFile loads a translated segment list written by
// WriteTranslationsFile.
func ReadTranslationsFile(path string) ([]TranslatedSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read translations: %w", err)
	}
	var segments []TranslatedSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse translations: %w", err)
	}
	return segments, nil
}

// WriteCuesFile persists a refined cue list to path.
func WriteCuesFile(path string, cues []Cue) error {
	data, err := json.MarshalIndent(cues, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cues: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cues: %w", err)
	}
	return nil
}

// ReadCuesFile loads a cue list written by WriteCuesFile.
func ReadCuesFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cues: %w", err)
	}
	var cues []Cue
	if err := json.Unmarshal(data, &cues); err != nil {
		return nil, fmt.Errorf("parse cues: %w", err)
	}
	return cues, nil
}
