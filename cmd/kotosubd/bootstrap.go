package main

import (
	"log/slog"

	"github.com/Nexitus/KotoSub/internal/audio"
	"github.com/Nexitus/KotoSub/internal/config"
	"github.com/Nexitus/KotoSub/internal/diarize"
	"github.com/Nexitus/KotoSub/internal/events"
	"github.com/Nexitus/KotoSub/internal/muxer"
	"github.com/Nexitus/KotoSub/internal/preflight"
	"github.com/Nexitus/KotoSub/internal/queue"
	ffmpegsvc "github.com/Nexitus/KotoSub/internal/services/ffmpeg"
	"github.com/Nexitus/KotoSub/internal/subtitles"
	"github.com/Nexitus/KotoSub/internal/transcription"
	"github.com/Nexitus/KotoSub/internal/translate"
	"github.com/Nexitus/KotoSub/internal/workflow"
)

// buildHandlers wires every pipeline stage around the shared ffmpeg service,
// queue store, and event hub.
func buildHandlers(cfg *config.Config, store *queue.Store, logger *slog.Logger, hub *events.Hub) workflow.Handlers {
	ffmpeg := ffmpegsvc.NewService(cfg.Media.FFmpegBinary, cfg.Media.FFprobeBinary)

	return workflow.Handlers{
		Validate:   preflight.NewStage(cfg, logger, ffmpeg),
		Extract:    audio.NewStage(cfg, logger, ffmpeg),
		Transcribe: transcription.NewStage(store, cfg, logger, hub, ffmpeg),
		Diarize:    diarize.NewStage(store, cfg, logger, hub),
		Translate:  translate.NewStage(store, cfg, logger, hub),
		Verify:     translate.NewVerifyStage(store, cfg, logger, hub),
		Refine:     subtitles.NewRefineStage(cfg, logger),
		Serialize:  subtitles.NewSerializeStage(cfg, logger),
		Mux:        muxer.NewStage(cfg, logger, ffmpeg),
	}
}
