package config

const (
	defaultWorkDir   = "~/.local/share/kotosub/work"
	defaultOutputDir = "~/.local/share/kotosub/output"
	defaultLogDir    = "~/.local/share/kotosub/logs"
	defaultAPIBind   = "127.0.0.1:8930"

	defaultTranscriptionProvider = "whisper-api"
	defaultTranscriptionBaseURL  = "https://api.openai.com/v1"
	defaultTranscriptionModel    = "whisper-1"
	defaultWhisperXModel         = "large-v3-turbo"
	defaultChunkSeconds          = 300
	defaultChunkOverlapSeconds   = 2
	defaultDetectWindowSeconds   = 30
	defaultTranscriptionTimeout  = 600

	defaultDiarizationModel = "pyannote/speaker-diarization-3.1"

	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTimeoutSeconds = 60
	defaultLLMRetryAttempts  = 5

	defaultMaxBatchChars    = 1600
	defaultMaxBatchSegments = 12
	defaultConcurrency      = 3
	defaultContextSegments  = 3

	defaultCharsPerSecond     = 17.0
	defaultMinDurationMS      = 500
	defaultMaxDurationSeconds = 7.0
	defaultMergeGapMS         = 200
	defaultMaxLineChars       = 42
	defaultMaxLines           = 2

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Transcription: Transcription{
			Provider:            defaultTranscriptionProvider,
			BaseURL:             defaultTranscriptionBaseURL,
			Model:               defaultTranscriptionModel,
			WhisperXModel:       defaultWhisperXModel,
			ChunkSeconds:        defaultChunkSeconds,
			ChunkOverlapSeconds: defaultChunkOverlapSeconds,
			DetectWindowSeconds: defaultDetectWindowSeconds,
			TimeoutSeconds:      defaultTranscriptionTimeout,
		},
		Diarization: Diarization{
			Model: defaultDiarizationModel,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			RetryMaxAttempts: defaultLLMRetryAttempts,
		},
		Translation: Translation{
			MaxBatchChars:    defaultMaxBatchChars,
			MaxBatchSegments: defaultMaxBatchSegments,
			Concurrency:      defaultConcurrency,
			ContextSegments:  defaultContextSegments,
		},
		Timing: Timing{
			CharsPerSecond:     defaultCharsPerSecond,
			MinDurationMS:      defaultMinDurationMS,
			MaxDurationSeconds: defaultMaxDurationSeconds,
			MergeGapMS:         defaultMergeGapMS,
			MaxLineChars:       defaultMaxLineChars,
			MaxLines:           defaultMaxLines,
		},
		Media: Media{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			Denoise:           true,
			LoudnessNormalize: true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
