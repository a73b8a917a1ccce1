package subtitles

import (
	"fmt"

	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/services"
)

// Render serializes cues in the named format. An unsorted or overlapping cue
// list is a contract violation by the refinement engine and is rejected, not
// repaired.
func Render(cues []media.Cue, format string, style media.Style) (string, error) {
	if !media.ValidateCues(cues) {
		return "", services.Wrap(services.ErrTiming, "serializing", "validate cues",
			"cue list is unsorted or overlapping", nil)
	}
	switch format {
	case media.FormatSRT:
		return RenderSRT(cues), nil
	case media.FormatASS:
		return RenderASS(cues, style), nil
	case media.FormatVTT:
		return RenderVTT(cues), nil
	default:
		return "", services.Wrap(services.ErrValidation, "serializing", "select format",
			fmt.Sprintf("unsupported subtitle format %q", format), nil)
	}
}
