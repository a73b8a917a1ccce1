package translate

import (
	"strings"
	"testing"

	"github.com/Nexitus/KotoSub/internal/media"
)

func TestSplitResponse(t *testing.T) {
	content := "First line\n---\nSecond\nwith continuation\n---\nThird"
	items := splitResponse(content)
	if len(items) != 3 {
		t.Fatalf("items = %d: %q", len(items), items)
	}
	if items[1] != "Second\nwith continuation" {
		t.Fatalf("items[1] = %q", items[1])
	}
}

func TestSplitResponseIgnoresStraySeparators(t *testing.T) {
	content := "---\nOnly item\n---\n"
	items := splitResponse(content)
	if len(items) != 1 || items[0] != "Only item" {
		t.Fatalf("items = %q", items)
	}
}

func TestSplitResponseKeepsDashesInsideText(t *testing.T) {
	content := "A dash --- inside a line\n---\nSecond"
	items := splitResponse(content)
	if len(items) != 2 {
		t.Fatalf("items = %q, separator must occupy the whole line", items)
	}
}

func TestTranslationPromptsIncludeCountAndContext(t *testing.T) {
	batch := Batch{Offset: 2, Segments: []media.Segment{
		{Text: "konnichiwa", Speaker: "SPEAKER_00"},
		{Text: "genki desu ka"},
	}}
	system := translationSystemPrompt("ja", "en", len(batch.Segments))
	if !strings.Contains(system, "exactly 2") {
		t.Fatalf("system prompt missing count: %s", system)
	}
	if !strings.Contains(system, "Japanese") || !strings.Contains(system, "English") {
		t.Fatalf("system prompt missing display names: %s", system)
	}

	user := translationUserPrompt(batch, []media.Segment{{Text: "earlier line"}})
	if !strings.Contains(user, "do not translate") {
		t.Fatalf("user prompt missing context block: %s", user)
	}
	if !strings.Contains(user, "[SPEAKER_00] konnichiwa") {
		t.Fatalf("user prompt missing speaker tag: %s", user)
	}
	if strings.Count(user, "\n---\n") != 1 {
		t.Fatalf("user prompt separator count: %s", user)
	}
}

func TestStripSpeakerTag(t *testing.T) {
	cases := map[string]string{
		"[SPEAKER_00] Hello there": "Hello there",
		"[SPEAKER_01]: With colon": "With colon",
		"No tag at all":            "No tag at all",
		"[unclosed bracket":        "[unclosed bracket",
		"  [SPEAKER_02]  padded  ": "padded",
	}
	for input, want := range cases {
		if got := stripSpeakerTag(input); got != want {
			t.Errorf("stripSpeakerTag(%q) = %q, want %q", input, got, want)
		}
	}
}
