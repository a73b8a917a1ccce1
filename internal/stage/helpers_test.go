package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/services"
)

func TestJobConfigValid(t *testing.T) {
	cfg, err := JobConfig(`{"targetLang":"fr","formats":["srt","vtt"]}`)
	if err != nil {
		t.Fatalf("JobConfig: %v", err)
	}
	if cfg.TargetLang != "fr" || len(cfg.Formats) != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestJobConfigInvalid(t *testing.T) {
	_, err := JobConfig(`{"formats":["pdf"]}`)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error not tagged as validation: %v", err)
	}
}

func TestLoadSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.json")
	if err := media.WriteSegmentsFile(path, []media.Segment{{Start: 0, End: 1, Text: "hi"}}); err != nil {
		t.Fatal(err)
	}
	segments, err := LoadSegments(path)
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "hi" {
		t.Fatalf("segments = %+v", segments)
	}
}

func TestLoadSegmentsMissing(t *testing.T) {
	_, err := LoadSegments(filepath.Join(os.TempDir(), "definitely-missing.json"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error not tagged as validation: %v", err)
	}
}
