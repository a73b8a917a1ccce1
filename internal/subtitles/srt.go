package subtitles

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Nexitus/KotoSub/internal/media"
)

// RenderSRT serializes cues as SubRip text: 1-based index, comma-millisecond
// timestamps, blank line between blocks. A speaker label becomes a bracketed
// prefix on the first line.
func RenderSRT(cues []media.Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n", i+1,
			media.FormatSRTTimestamp(cue.Start), media.FormatSRTTimestamp(cue.End))
		b.WriteString(cueText(cue))
		b.WriteString("\n\n")
	}
	return b.String()
}

func cueText(cue media.Cue) string {
	text := cue.Text()
	if cue.Speaker != "" {
		return "[" + cue.Speaker + "]: " + text
	}
	return text
}

// ParseSRT reads SubRip text back into cues. Speaker prefixes stay embedded
// in the cue text; indexes are ignored beyond requiring a numeric line.
func ParseSRT(content string) ([]media.Cue, error) {
	var cues []media.Cue
	blocks := splitBlocks(content)
	for _, block := range blocks {
		if len(block) < 2 {
			return nil, fmt.Errorf("srt: truncated block %q", strings.Join(block, "\n"))
		}
		if _, err := strconv.Atoi(strings.TrimSpace(block[0])); err != nil {
			return nil, fmt.Errorf("srt: block missing index: %q", block[0])
		}
		start, end, err := parseTimingLine(block[1])
		if err != nil {
			return nil, fmt.Errorf("srt: %w", err)
		}
		cues = append(cues, media.Cue{Start: start, End: end, Lines: block[2:]})
	}
	return cues, nil
}

// splitBlocks divides subtitle text into blank-line-separated blocks of
// non-empty lines.
func splitBlocks(content string) [][]string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var blocks [][]string
	var current []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseTimingLine(line string) (start, end float64, err error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	if start, err = media.ParseClockTimestamp(parts[0]); err != nil {
		return 0, 0, err
	}
	if end, err = media.ParseClockTimestamp(parts[1]); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
