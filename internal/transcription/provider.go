package transcription

import (
	"context"

	"github.com/Nexitus/KotoSub/internal/media"
)

// Result is the output of transcribing one audio file or chunk.
type Result struct {
	Segments []media.Segment
	// Language is the normalized source language the provider detected (or
	// confirmed, when a hint was given).
	Language string
}

// Provider converts speech audio into timed segments. languageHint is a
// normalized code or language.Auto; providers must tolerate Auto by
// detecting the language themselves.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audioPath, languageHint string) (Result, error)
}
