package translate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Nexitus/KotoSub/internal/logging"
	"github.com/Nexitus/KotoSub/internal/media"
	"github.com/Nexitus/KotoSub/internal/services"
)

// Client is the slice of the LLM client the translator needs.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options sizes the translation run.
type Options struct {
	MaxBatchChars    int
	MaxBatchSegments int
	Concurrency      int
	ContextSegments  int
}

// Translator runs batched segment translation over a bounded worker pool.
type Translator struct {
	client Client
	opts   Options
	logger *slog.Logger
}

// NewTranslator assembles a translator. The logger may be nil.
func NewTranslator(client Client, opts Options, logger *slog.Logger) *Translator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ContextSegments < 0 {
		opts.ContextSegments = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Translator{client: client, opts: opts, logger: logger}
}

// ProgressFunc reports batch completion.
type ProgressFunc func(completed, total int)

// Translate converts segments into the target language. Results correspond
// one-to-one, in order, with the input segments regardless of which worker
// translated which batch. On cancellation, dispatch stops and in-flight
// batches are allowed to finish before the context error is returned.
func (t *Translator) Translate(ctx context.Context, segments []media.Segment, sourceLang, targetLang string, progress ProgressFunc) ([]media.TranslatedSegment, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	batches := BuildBatches(segments, t.opts.MaxBatchChars, t.opts.MaxBatchSegments)
	results := make([][]media.TranslatedSegment, len(batches))

	var (
		wg        sync.WaitGroup
		completed atomic.Int64
		errMu     sync.Mutex
		firstErr  error
	)
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	recordErr := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
		cancel()
	}

	sem := make(chan struct{}, t.opts.Concurrency)
	for i, batch := range batches {
		if poolCtx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-poolCtx.Done():
		}
		if poolCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(index int, batch Batch) {
			defer wg.Done()
			defer func() { <-sem }()

			translated, err := t.translateBatch(poolCtx, batch, segments, sourceLang, targetLang)
			if err != nil {
				recordErr(err)
				return
			}
			results[index] = translated
			done := completed.Add(1)
			if progress != nil {
				progress(int(done), len(batches))
			}
		}(i, batch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]media.TranslatedSegment, 0, len(segments))
	for _, batchResult := range results {
		out = append(out, batchResult...)
	}
	if len(out) != len(segments) {
		return nil, services.Wrap(services.ErrTranslation, "translating", "reassemble",
			fmt.Sprintf("expected %d translations, assembled %d", len(segments), len(out)), nil)
	}
	return out, nil
}

// translateBatch issues one request, re-asking once when the response count
// does not match the batch.
func (t *Translator) translateBatch(ctx context.Context, batch Batch, all []media.Segment, sourceLang, targetLang string) ([]media.TranslatedSegment, error) {
	contextStart := batch.Offset - t.opts.ContextSegments
	if contextStart < 0 {
		contextStart = 0
	}
	contextSegments := all[contextStart:batch.Offset]

	system := translationSystemPrompt(sourceLang, targetLang, len(batch.Segments))
	user := translationUserPrompt(batch, contextSegments)

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		content, err := t.client.Complete(ctx, system, user)
		if err != nil {
			// The client has already retried transient failures with backoff,
			// so whatever surfaces here is terminal for the job.
			return nil, services.Wrap(services.ErrTranslation, "translating",
				fmt.Sprintf("batch at segment %d", batch.Offset), "llm request failed", err)
		}

		items := splitResponse(content)
		if len(items) == len(batch.Segments) {
			out := make([]media.TranslatedSegment, len(batch.Segments))
			for i, seg := range batch.Segments {
				out[i] = media.TranslatedSegment{
					Segment:    seg,
					Translated: stripSpeakerTag(items[i]),
				}
			}
			return out, nil
		}

		lastErr = fmt.Errorf("expected %d translations, got %d", len(batch.Segments), len(items))
		t.logger.Warn("translation count mismatch",
			logging.Int("offset", batch.Offset),
			logging.Int("expected", len(batch.Segments)),
			logging.Int("received", len(items)),
			logging.Int("attempt", attempt))
	}
	return nil, services.Wrap(services.ErrTranslationFormat, "translating",
		fmt.Sprintf("batch at segment %d", batch.Offset), "", lastErr)
}
