package subtitles

import (
	"fmt"
	"strings"

	"github.com/Nexitus/KotoSub/internal/media"
)

// RenderVTT serializes cues as WebVTT: a WEBVTT header then timestamped
// blocks with dot-millisecond separators. Speakers use voice spans.
func RenderVTT(cues []media.Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "%s --> %s\n",
			media.FormatVTTTimestamp(cue.Start), media.FormatVTTTimestamp(cue.End))
		text := cue.Text()
		if cue.Speaker != "" {
			text = "<v " + cue.Speaker + ">" + text
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ParseVTT reads WebVTT back into cues. Voice spans are decoded into the
// speaker field; other inline markup is left in the text.
func ParseVTT(content string) ([]media.Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	body, ok := strings.CutPrefix(content, "WEBVTT")
	if !ok {
		return nil, fmt.Errorf("vtt: missing WEBVTT header")
	}
	var cues []media.Cue
	for _, block := range splitBlocks(body) {
		// Cue identifiers and NOTE comments precede the timing line.
		if !strings.Contains(block[0], "-->") {
			if strings.HasPrefix(block[0], "NOTE") {
				continue
			}
			block = block[1:]
			if len(block) == 0 || !strings.Contains(block[0], "-->") {
				continue
			}
		}
		start, end, err := parseTimingLine(block[0])
		if err != nil {
			return nil, fmt.Errorf("vtt: %w", err)
		}
		lines := block[1:]
		speaker := ""
		if len(lines) > 0 {
			if rest, voice, ok := cutVoiceSpan(lines[0]); ok {
				speaker = voice
				lines[0] = rest
			}
		}
		cues = append(cues, media.Cue{Start: start, End: end, Lines: lines, Speaker: speaker})
	}
	return cues, nil
}

func cutVoiceSpan(line string) (rest, speaker string, ok bool) {
	if !strings.HasPrefix(line, "<v ") {
		return line, "", false
	}
	end := strings.Index(line, ">")
	if end < 0 {
		return line, "", false
	}
	speaker = strings.TrimSpace(line[len("<v "):end])
	rest = strings.TrimSuffix(line[end+1:], "</v>")
	return rest, speaker, true
}
