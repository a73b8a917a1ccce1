package stage

import (
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/services"
)

// JobConfig decodes the job configuration stored on a queue row. On failure it
// returns a services.ErrValidation suitable for stage Execute methods.
func JobConfig(raw string) (media.JobConfig, error) {
	cfg, err := media.ParseJobConfig([]byte(raw))
	if err != nil {
		return cfg, services.Wrap(
			services.ErrValidation, "stage", "parse job config",
			"Job configuration missing or invalid", err)
	}
	return cfg, nil
}

// LoadSegments reads the persisted segment list for a job. Stages past
// transcription use this to pick up where the previous stage stopped.
func LoadSegments(path string) ([]media.Segment, error) {
	segments, err := media.ReadSegmentsFile(path)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load segments",
			"Segment artifact missing or unreadable; rerun transcription", err)
	}
	return segments, nil
}
