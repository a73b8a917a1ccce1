package translate

import (
	"fmt"
	"strings"

	"github.com/Nexitus/KotoSub/internal/language"
	"github.com/Nexitus/KotoSub/internal/media"
)

// itemSeparator divides segments in requests and translations in responses.
const itemSeparator = "---"

func translationSystemPrompt(sourceLang, targetLang string, count int) string {
	source := language.DisplayName(sourceLang)
	if sourceLang == "" || sourceLang == language.Auto {
		source = "the source language"
	}
	target := language.DisplayName(targetLang)
	return fmt.Sprintf(`You are a professional subtitle translator. Translate each subtitle segment from %s to %s.

Rules:
- Respond with the translations only, in the same order as the input.
- Separate translations with a line containing exactly %s.
- Return exactly %d translations. Never merge, split, or drop a segment.
- Keep the register and tone of the dialogue; prefer concise phrasing that fits on screen.
- A leading [SPEAKER_XX] tag identifies the speaker for context. Do not include the tag in your translation.`,
		source, target, itemSeparator, count)
}

func translationUserPrompt(batch Batch, contextSegments []media.Segment) string {
	var b strings.Builder
	if len(contextSegments) > 0 {
		b.WriteString("Preceding dialogue for context only, do not translate:\n")
		for _, seg := range contextSegments {
			b.WriteString(formatSegmentLine(seg))
			b.WriteString("\n")
		}
		b.WriteString("\nSegments to translate:\n")
	}
	for i, seg := range batch.Segments {
		if i > 0 {
			b.WriteString("\n" + itemSeparator + "\n")
		}
		b.WriteString(formatSegmentLine(seg))
	}
	return b.String()
}

func verificationSystemPrompt(sourceLang, targetLang string, count int) string {
	source := language.DisplayName(sourceLang)
	if sourceLang == "" || sourceLang == language.Auto {
		source = "the source language"
	}
	target := language.DisplayName(targetLang)
	return fmt.Sprintf(`You are reviewing subtitle translations from %s to %s.

For each numbered pair, answer with OK if the translation is accurate and natural, or with a corrected translation otherwise.

Rules:
- Respond with one answer per pair, in the same order.
- Separate answers with a line containing exactly %s.
- Return exactly %d answers.
- Answer OK only when no change is needed; otherwise return the full corrected translation and nothing else.`,
		source, target, itemSeparator, count)
}

func verificationUserPrompt(batch []media.TranslatedSegment) string {
	var b strings.Builder
	for i, seg := range batch {
		if i > 0 {
			b.WriteString("\n" + itemSeparator + "\n")
		}
		fmt.Fprintf(&b, "Source: %s\nTranslation: %s", seg.Text, seg.Translated)
	}
	return b.String()
}

func formatSegmentLine(seg media.Segment) string {
	if seg.Speaker != "" {
		return fmt.Sprintf("[%s] %s", seg.Speaker, seg.Text)
	}
	return seg.Text
}

// splitResponse divides an LLM response into items on separator lines and
// trims each item. It is the count-strict counterpart of itemSeparator.
func splitResponse(content string) []string {
	lines := strings.Split(content, "\n")
	var items []string
	var current []string
	flush := func() {
		item := strings.TrimSpace(strings.Join(current, "\n"))
		items = append(items, item)
		current = nil
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == itemSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	// Drop empty leading/trailing items produced by stray separators.
	for len(items) > 0 && items[0] == "" {
		items = items[1:]
	}
	for len(items) > 0 && items[len(items)-1] == "" {
		items = items[:len(items)-1]
	}
	return items
}

// stripSpeakerTag removes a leading [SPEAKER_XX] or [name]: tag a model may
// have echoed back despite instructions.
func stripSpeakerTag(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") {
		return trimmed
	}
	end := strings.Index(trimmed, "]")
	if end < 0 {
		return trimmed
	}
	rest := strings.TrimSpace(trimmed[end+1:])
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}
