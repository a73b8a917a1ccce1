package subtitles

import (
	"fmt"
	"strings"

	"github.com/Nexitus/KotoSub/internal/media"
)

// assAlignment maps a screen position name to the numpad alignment code used
// by the SSA v4+ format.
var assAlignment = map[string]int{
	"bottom left":   1,
	"bottom center": 2,
	"bottom right":  3,
	"middle left":   4,
	"middle center": 5,
	"middle right":  6,
	"top left":      7,
	"top center":    8,
	"top right":     9,
}

func alignmentFor(position string) int {
	if code, ok := assAlignment[strings.ToLower(strings.TrimSpace(position))]; ok {
		return code
	}
	return 2
}

// RenderASS serializes cues as Advanced SubStation Alpha with a single
// Default style built from the job's styling parameters. Speakers land in
// the dialogue Name field.
func RenderASS(cues []media.Cue, style media.Style) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("PlayResX: 1920\n")
	b.WriteString("PlayResY: 1080\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H64000000,0,0,0,0,100,100,0,0,1,%s,%s,%d,20,20,40,1\n\n",
		style.Font, style.FontSize,
		formatASSFloat(style.Outline), formatASSFloat(style.Shadow),
		alignmentFor(style.Position))

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,%s,0,0,0,,%s\n",
			media.FormatASSTimestamp(cue.Start), media.FormatASSTimestamp(cue.End),
			cue.Speaker, escapeASSText(strings.Join(cue.Lines, "\\N")))
	}
	return b.String()
}

// formatASSFloat renders outline/shadow widths without a trailing ".0" for
// whole values, matching the common style line form.
func formatASSFloat(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d", int(v))
	}
	return strings.TrimRight(fmt.Sprintf("%.2f", v), "0")
}

// escapeASSText neutralizes brace override blocks in dialogue text. Line
// breaks are already encoded as \N by the caller.
func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	return text
}
