package config

const (
	defaultConfigPath            = "~/.config/readrepeat/config.toml"
	defaultDataDir               = "~/.local/share/readrepeat"
	defaultLogDir                = "~/.local/share/readrepeat/logs"
	defaultQueueDB               = "~/.local/share/readrepeat/queue.db"
	defaultAPIBaseURL            = "http://localhost:3000"
	defaultPollIntervalSeconds   = 5
	defaultRequestTimeoutSeconds = 30
	defaultWhisperBackend        = "whisperx"
	defaultWhisperModel          = "base"
	defaultWhisperDevice         = "cpu"
	defaultWhisperComputeType    = "int8"
	defaultWhisperCommand        = "uvx"
	defaultMinWords              = 2
	defaultForeignLanguage       = "en"
	defaultTranslationLanguage   = "zh"
	defaultPaddingMS             = 200
	defaultPlaceholderMS         = 1000
	defaultFFmpegBinary          = "ffmpeg"
	defaultSliceConcurrency      = 4
	defaultTTSProvider           = "gemini"
	defaultGeminiBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultChatterboxURL         = "http://localhost:8000"
	defaultTTSVoice              = "Zephyr"
	defaultTTSVoice2             = "Kore"
	defaultTTSModel              = "gemini-2.5-flash-preview-tts"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultWorkerSource          = "api"
	defaultNtfyTimeoutSeconds    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			QueueDB: defaultQueueDB,
		},
		API: API{
			BaseURL:               defaultAPIBaseURL,
			PollIntervalSeconds:   defaultPollIntervalSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Whisper: Whisper{
			Backend:     defaultWhisperBackend,
			Model:       defaultWhisperModel,
			Device:      defaultWhisperDevice,
			ComputeType: defaultWhisperComputeType,
			Command:     defaultWhisperCommand,
		},
		Segmentation: Segmentation{
			MinWords:        defaultMinWords,
			ForeignLanguage: defaultForeignLanguage,
			TranslationLang: defaultTranslationLanguage,
		},
		Slicing: Slicing{
			PaddingMS:     defaultPaddingMS,
			PlaceholderMS: defaultPlaceholderMS,
			FFmpegBinary:  defaultFFmpegBinary,
			Concurrency:   defaultSliceConcurrency,
		},
		TTS: TTS{
			Provider:      defaultTTSProvider,
			GeminiBaseURL: defaultGeminiBaseURL,
			ChatterboxURL: defaultChatterboxURL,
			Voice:         defaultTTSVoice,
			Voice2:        defaultTTSVoice2,
			Model:         defaultTTSModel,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Worker: Worker{
			Source: defaultWorkerSource,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			JobCompleted:          false,
			JobFailed:             true,
		},
	}
}
