package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the sentinel meaning "detect the source language".
const Auto = "auto"

// Whisper returns full language names in its verbose responses. The table
// maps the names the API emits to ISO 639-1 codes; codes not expressible in
// two letters keep their whisper form.
var whisperNames = map[string]string{
	"english": "en", "chinese": "zh", "german": "de", "spanish": "es",
	"russian": "ru", "korean": "ko", "french": "fr", "japanese": "ja",
	"portuguese": "pt", "turkish": "tr", "polish": "pl", "catalan": "ca",
	"dutch": "nl", "arabic": "ar", "swedish": "sv", "italian": "it",
	"indonesian": "id", "hindi": "hi", "finnish": "fi", "vietnamese": "vi",
	"hebrew": "he", "ukrainian": "uk", "greek": "el", "malay": "ms",
	"czech": "cs", "romanian": "ro", "danish": "da", "hungarian": "hu",
	"tamil": "ta", "norwegian": "no", "thai": "th", "urdu": "ur",
	"croatian": "hr", "bulgarian": "bg", "lithuanian": "lt", "latin": "la",
	"maori": "mi", "malayalam": "ml", "welsh": "cy", "slovak": "sk",
	"telugu": "te", "persian": "fa", "latvian": "lv", "bengali": "bn",
	"serbian": "sr", "azerbaijani": "az", "slovenian": "sl", "kannada": "kn",
	"estonian": "et", "macedonian": "mk", "breton": "br", "basque": "eu",
	"icelandic": "is", "armenian": "hy", "nepali": "ne", "mongolian": "mn",
	"bosnian": "bs", "kazakh": "kk", "albanian": "sq", "swahili": "sw",
	"galician": "gl", "marathi": "mr", "punjabi": "pa", "sinhala": "si",
	"khmer": "km", "shona": "sn", "yoruba": "yo", "somali": "so",
	"afrikaans": "af", "occitan": "oc", "georgian": "ka", "belarusian": "be",
	"tajik": "tg", "sindhi": "sd", "gujarati": "gu", "amharic": "am",
	"yiddish": "yi", "lao": "lo", "uzbek": "uz", "faroese": "fo",
	"haitian creole": "ht", "pashto": "ps", "turkmen": "tk", "nynorsk": "nn",
	"maltese": "mt", "sanskrit": "sa", "luxembourgish": "lb", "myanmar": "my",
	"tibetan": "bo", "tagalog": "tl", "malagasy": "mg", "assamese": "as",
	"tatar": "tt", "hawaiian": "haw", "lingala": "ln", "hausa": "ha",
	"bashkir": "ba", "javanese": "jw", "sundanese": "su", "cantonese": "yue",
}

// Normalize converts a language identifier (ISO code, BCP 47 tag, or a
// whisper full name) into a canonical lowercase base code. Returns Auto for
// the auto sentinel and the empty string for unrecognizable input.
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", Auto:
		return Auto
	}
	if code, ok := whisperNames[value]; ok {
		return code
	}
	tag, err := language.Parse(value)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for a normalized code, used in
// translation prompts and progress messages. Unrecognized codes come back
// uppercased so prompts stay readable.
func DisplayName(code string) string {
	code = Normalize(code)
	if code == "" || code == Auto {
		return "Unknown"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return strings.ToUpper(code)
	}
	return name
}

// MajorityVote picks the most frequent normalized language among detections,
// breaking ties toward the earliest detection. Used to reconcile per-chunk
// auto-detect disagreement.
func MajorityVote(detected []string) string {
	counts := make(map[string]int, len(detected))
	order := make([]string, 0, len(detected))
	for _, value := range detected {
		code := Normalize(value)
		if code == "" || code == Auto {
			continue
		}
		if _, seen := counts[code]; !seen {
			order = append(order, code)
		}
		counts[code]++
	}
	best := ""
	bestCount := 0
	for _, code := range order {
		if counts[code] > bestCount {
			best = code
			bestCount = counts[code]
		}
	}
	return best
}
