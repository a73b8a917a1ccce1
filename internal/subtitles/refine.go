package subtitles

import (
	"strings"

	"github.com/Nexitus/KotoSub/internal/media"
)

// Options is the readability budget driving refinement. Zero fields take
// the documented defaults.
type Options struct {
	CharsPerSecond     float64
	MinDurationMS      int
	MaxDurationSeconds float64
	MergeGapMS         int
	MaxLineChars       int
	MaxLines           int
}

func (o Options) withDefaults() Options {
	if o.CharsPerSecond <= 0 {
		o.CharsPerSecond = 17
	}
	if o.MinDurationMS <= 0 {
		o.MinDurationMS = 500
	}
	if o.MaxDurationSeconds <= 0 {
		o.MaxDurationSeconds = 7
	}
	if o.MergeGapMS <= 0 {
		o.MergeGapMS = 200
	}
	if o.MaxLineChars <= 0 {
		o.MaxLineChars = 42
	}
	if o.MaxLines <= 0 {
		o.MaxLines = 2
	}
	return o
}

func (o Options) minDuration() float64 { return float64(o.MinDurationMS) / 1000 }
func (o Options) mergeGap() float64    { return float64(o.MergeGapMS) / 1000 }

// requiredDuration is the display time the text needs under the
// reading-speed budget, never below the floor.
func (o Options) requiredDuration(text string) float64 {
	required := float64(len([]rune(text))) / o.CharsPerSecond
	if floor := o.minDuration(); required < floor {
		required = floor
	}
	return required
}

// draft is a cue under construction. Text stays unwrapped until the final
// pass so merges and splits operate on whole sentences.
type draft struct {
	start   float64
	end     float64
	text    string
	speaker string
}

// refineIterationCap bounds the merge/extend/split loop. Splitting at least
// halves some cue's text and merging at least halves the cue count, so real
// inputs converge in two or three rounds.
const refineIterationCap = 8

// Refine transforms translated segments into ordered, non-overlapping cues
// satisfying the readability budget. An empty input yields an empty output.
// Refine is a fixed point: feeding its output back through produces no
// further changes.
func Refine(segments []media.TranslatedSegment, opts Options) []media.Cue {
	opts = opts.withDefaults()

	drafts := make([]draft, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Translated)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		drafts = append(drafts, draft{start: seg.Start, end: seg.End, text: text, speaker: seg.Speaker})
	}
	if len(drafts) == 0 {
		return []media.Cue{}
	}

	// Normalize overlapping inputs first so every pass below sees ordered,
	// disjoint windows.
	drafts = trimOverlaps(drafts)

	// The passes interact: extension can close a gap below the merge
	// threshold, and merging can push text over the line budget. Loop until
	// a full round changes nothing, which makes the whole function
	// idempotent. Extension never opens an overlap (it stops at the next
	// draft's start) and split halves never re-merge (the merged form was
	// just rejected), so each round strictly shrinks the remaining work.
	for i := 0; i < refineIterationCap; i++ {
		merged, mergeChanged := mergePass(drafts, opts)
		drafts = merged
		extendChanged := extendPass(drafts, opts)
		split, splitChanged := splitPass(drafts, opts)
		drafts = split
		if !mergeChanged && !extendChanged && !splitChanged {
			break
		}
	}

	cues := make([]media.Cue, 0, len(drafts))
	for _, d := range drafts {
		cues = append(cues, media.Cue{
			Start:   d.start,
			End:     d.end,
			Lines:   wrapText(d.text, opts.MaxLineChars),
			Speaker: d.speaker,
		})
	}
	return cues
}

// mergePass joins consecutive drafts separated by less than the merge gap
// when the combined text fits the line budget and the combined window stays
// under the maximum duration. Speaker changes are never merged across.
func mergePass(drafts []draft, opts Options) ([]draft, bool) {
	out := drafts[:0]
	changed := false
	for _, d := range drafts {
		if len(out) == 0 {
			out = append(out, d)
			continue
		}
		prev := &out[len(out)-1]
		gap := d.start - prev.end
		combined := prev.text + " " + d.text
		if gap >= 0 && gap < opts.mergeGap() &&
			prev.speaker == d.speaker &&
			len(wrapText(combined, opts.MaxLineChars)) <= opts.MaxLines &&
			d.end-prev.start <= opts.MaxDurationSeconds {
			prev.text = combined
			prev.end = d.end
			changed = true
			continue
		}
		out = append(out, d)
	}
	return out, changed
}

// extendPass pushes each draft's end forward to its required duration,
// bounded by the next draft's start and the maximum duration.
func extendPass(drafts []draft, opts Options) bool {
	changed := false
	for i := range drafts {
		d := &drafts[i]
		required := opts.requiredDuration(d.text)
		if d.end-d.start >= required {
			continue
		}
		limit := d.start + opts.MaxDurationSeconds
		if i+1 < len(drafts) && drafts[i+1].start < limit {
			limit = drafts[i+1].start
		}
		target := d.start + required
		if target > limit {
			target = limit
		}
		if target > d.end {
			d.end = target
			changed = true
		}
	}
	return changed
}

// splitPass divides drafts whose text cannot wrap into the line budget, and
// drafts still violating the reading-speed budget when splitting would let
// the second half claim unused time after the draft. The split point is the
// clause boundary nearest the text midpoint and each half inherits a
// proportional time slice. A draft with no usable split point, or a budget
// violation no split can relieve, is accepted as-is.
func splitPass(drafts []draft, opts Options) ([]draft, bool) {
	const epsilon = 1e-6
	out := make([]draft, 0, len(drafts))
	changed := false
	for i, d := range drafts {
		cpsViolated := opts.requiredDuration(d.text) > d.end-d.start+epsilon
		if cpsViolated && i+1 < len(drafts) && drafts[i+1].start-d.end <= epsilon {
			// No room after this draft; a split could not gain time.
			cpsViolated = false
		}
		overflows := len(wrapText(d.text, opts.MaxLineChars)) > opts.MaxLines
		if !cpsViolated && !overflows {
			out = append(out, d)
			continue
		}
		left, right, ok := splitText(d.text)
		if !ok {
			out = append(out, d)
			continue
		}
		total := len([]rune(d.text))
		at := d.start + (d.end-d.start)*float64(len([]rune(left)))/float64(total)
		out = append(out,
			draft{start: d.start, end: at, text: left, speaker: d.speaker},
			draft{start: at, end: d.end, text: right, speaker: d.speaker},
		)
		changed = true
	}
	return out, changed
}

// clauseBoundary reports whether r ends a clause.
func clauseBoundary(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '、', '。', '！', '？':
		return true
	}
	return false
}

// splitText divides text at the clause boundary nearest the rune midpoint,
// falling back to the nearest space. Both halves are trimmed and non-empty.
func splitText(text string) (left, right string, ok bool) {
	runes := []rune(text)
	mid := len(runes) / 2

	bestClause, bestSpace := -1, -1
	for i := 0; i < len(runes)-1; i++ {
		if runes[i+1] != ' ' {
			continue
		}
		candidate := i + 1
		if clauseBoundary(runes[i]) {
			if bestClause < 0 || abs(candidate-mid) < abs(bestClause-mid) {
				bestClause = candidate
			}
		}
		if bestSpace < 0 || abs(candidate-mid) < abs(bestSpace-mid) {
			bestSpace = candidate
		}
	}

	at := bestClause
	if at < 0 {
		at = bestSpace
	}
	if at < 0 {
		return "", "", false
	}
	left = strings.TrimSpace(string(runes[:at]))
	right = strings.TrimSpace(string(runes[at:]))
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// trimOverlaps enforces the non-overlap invariant by pulling an earlier
// draft's end back to the later draft's start. Drafts emptied by trimming
// are dropped.
func trimOverlaps(drafts []draft) []draft {
	out := drafts[:0]
	for i := range drafts {
		d := drafts[i]
		if i+1 < len(drafts) && d.end > drafts[i+1].start {
			d.end = drafts[i+1].start
		}
		if d.end <= d.start {
			continue
		}
		out = append(out, d)
	}
	return out
}

// wrapText breaks text into greedy word-wrapped lines of at most maxChars
// runes. A single word longer than maxChars is hard-broken; scripts without
// spaces wrap the same way.
func wrapText(text string, maxChars int) []string {
	words := strings.Fields(text)
	var lines []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, string(current))
			current = nil
		}
	}
	for _, word := range words {
		runes := []rune(word)
		for len(runes) > maxChars {
			flush()
			lines = append(lines, string(runes[:maxChars]))
			runes = runes[maxChars:]
		}
		switch {
		case len(current) == 0:
			current = runes
		case len(current)+1+len(runes) <= maxChars:
			current = append(current, ' ')
			current = append(current, runes...)
		default:
			flush()
			current = runes
		}
	}
	flush()
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
