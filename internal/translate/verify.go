package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
)

// verificationOK is the answer a reviewer gives when a translation needs no
// change.
const verificationOK = "OK"

// Verifier re-reads translations against their sources and applies
// corrections. It shares the client and batching limits with the translator.
type Verifier struct {
	client Client
	opts   Options
	logger *slog.Logger
}

// NewVerifier assembles a verifier. The logger may be nil.
func NewVerifier(client Client, opts Options, logger *slog.Logger) *Verifier {
	if opts.MaxBatchSegments <= 0 {
		opts.MaxBatchSegments = 12
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{client: client, opts: opts, logger: logger}
}

// Verify reviews each translation and returns the segments with corrections
// applied and Verified set. A batch whose review fails is returned unchanged
// with Verified false; verification never fails the job.
func (v *Verifier) Verify(ctx context.Context, segments []media.TranslatedSegment, sourceLang, targetLang string, progress ProgressFunc) []media.TranslatedSegment {
	if len(segments) == 0 {
		return segments
	}

	out := make([]media.TranslatedSegment, len(segments))
	copy(out, segments)

	total := (len(segments) + v.opts.MaxBatchSegments - 1) / v.opts.MaxBatchSegments
	batchNum := 0
	for start := 0; start < len(segments); start += v.opts.MaxBatchSegments {
		if ctx.Err() != nil {
			return out
		}
		end := start + v.opts.MaxBatchSegments
		if end > len(segments) {
			end = len(segments)
		}
		batchNum++

		corrected := v.verifyBatch(ctx, out[start:end], sourceLang, targetLang)
		for i, seg := range corrected {
			out[start+i] = seg
		}
		if progress != nil {
			progress(batchNum, total)
		}
	}
	return out
}

func (v *Verifier) verifyBatch(ctx context.Context, batch []media.TranslatedSegment, sourceLang, targetLang string) []media.TranslatedSegment {
	system := verificationSystemPrompt(sourceLang, targetLang, len(batch))
	user := verificationUserPrompt(batch)

	content, err := v.client.Complete(ctx, system, user)
	if err != nil {
		v.logger.Warn("verification request failed", logging.Error(err))
		return batch
	}

	answers := splitResponse(content)
	if len(answers) != len(batch) {
		v.logger.Warn("verification count mismatch",
			logging.Int("expected", len(batch)),
			logging.Int("received", len(answers)))
		return batch
	}

	out := make([]media.TranslatedSegment, len(batch))
	corrections := 0
	for i, seg := range batch {
		answer := strings.TrimSpace(answers[i])
		if !strings.EqualFold(answer, verificationOK) && answer != "" {
			seg.Translated = stripSpeakerTag(answer)
			corrections++
		}
		seg.Verified = true
		out[i] = seg
	}
	if corrections > 0 {
		v.logger.Info(fmt.Sprintf("verification corrected %d of %d translations", corrections, len(batch)))
	}
	return out
}
