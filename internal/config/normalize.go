package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAPI(); err != nil {
		return err
	}
	if err := c.normalizeWhisper(); err != nil {
		return err
	}
	c.normalizeSegmentation()
	c.normalizeSlicing()
	c.normalizeTTS()
	c.normalizeLogging()
	c.normalizeWorker()
	c.normalizeNotifications()
	return nil
}

// envOverride returns the trimmed value of name when it is set and non-empty.
func envOverride(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizePaths() error {
	if value, ok := envOverride("DATA_DIR"); ok {
		c.Paths.DataDir = value
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.QueueDB) == "" {
		c.Paths.QueueDB = filepath.Join(c.Paths.DataDir, "queue.db")
	}
	if c.Paths.QueueDB, err = expandPath(c.Paths.QueueDB); err != nil {
		return fmt.Errorf("paths.queue_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() error {
	if value, ok := envOverride("API_BASE_URL"); ok {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if value, ok := envOverride("POLL_INTERVAL"); ok {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("POLL_INTERVAL: %w", err)
		}
		c.API.PollIntervalSeconds = seconds
	}
	if c.API.RequestTimeoutSeconds == 0 {
		c.API.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeWhisper() error {
	if value, ok := envOverride("WHISPER_MODEL"); ok {
		c.Whisper.Model = value
	}
	if value, ok := envOverride("WHISPER_DEVICE"); ok {
		c.Whisper.Device = value
	}
	if value, ok := envOverride("WHISPER_COMPUTE_TYPE"); ok {
		c.Whisper.ComputeType = value
	}
	if value, ok := envOverride("WHISPER_MODEL_DIR"); ok {
		c.Whisper.ModelDir = value
	}
	c.Whisper.Backend = strings.ToLower(strings.TrimSpace(c.Whisper.Backend))
	if c.Whisper.Backend == "" {
		c.Whisper.Backend = defaultWhisperBackend
	}
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.Device = strings.ToLower(strings.TrimSpace(c.Whisper.Device))
	if c.Whisper.Device == "" {
		c.Whisper.Device = defaultWhisperDevice
	}
	c.Whisper.ComputeType = strings.TrimSpace(c.Whisper.ComputeType)
	if c.Whisper.ComputeType == "" {
		c.Whisper.ComputeType = defaultWhisperComputeType
	}
	c.Whisper.Command = strings.TrimSpace(c.Whisper.Command)
	if c.Whisper.Command == "" {
		c.Whisper.Command = defaultWhisperCommand
	}
	if strings.TrimSpace(c.Whisper.ModelDir) != "" {
		var err error
		if c.Whisper.ModelDir, err = expandPath(c.Whisper.ModelDir); err != nil {
			return fmt.Errorf("whisper.model_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSegmentation() {
	if c.Segmentation.MinWords == 0 {
		c.Segmentation.MinWords = defaultMinWords
	}
	c.Segmentation.ForeignLanguage = strings.TrimSpace(c.Segmentation.ForeignLanguage)
	if c.Segmentation.ForeignLanguage == "" {
		c.Segmentation.ForeignLanguage = defaultForeignLanguage
	}
	c.Segmentation.TranslationLang = strings.TrimSpace(c.Segmentation.TranslationLang)
	if c.Segmentation.TranslationLang == "" {
		c.Segmentation.TranslationLang = defaultTranslationLanguage
	}
}

func (c *Config) normalizeSlicing() {
	c.Slicing.FFmpegBinary = strings.TrimSpace(c.Slicing.FFmpegBinary)
	if c.Slicing.FFmpegBinary == "" {
		c.Slicing.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Slicing.PlaceholderMS == 0 {
		c.Slicing.PlaceholderMS = defaultPlaceholderMS
	}
	if c.Slicing.Concurrency == 0 {
		c.Slicing.Concurrency = defaultSliceConcurrency
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Provider = strings.ToLower(strings.TrimSpace(c.TTS.Provider))
	c.TTS.GeminiAPIKey = strings.TrimSpace(c.TTS.GeminiAPIKey)
	if c.TTS.GeminiAPIKey == "" {
		if value, ok := envOverride("GEMINI_API_KEY"); ok {
			c.TTS.GeminiAPIKey = value
		}
	}
	c.TTS.GeminiBaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.GeminiBaseURL), "/")
	if c.TTS.GeminiBaseURL == "" {
		c.TTS.GeminiBaseURL = defaultGeminiBaseURL
	}
	if value, ok := envOverride("CHATTERBOX_API_URL"); ok {
		c.TTS.ChatterboxURL = value
	}
	c.TTS.ChatterboxURL = strings.TrimRight(strings.TrimSpace(c.TTS.ChatterboxURL), "/")
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	c.TTS.Voice2 = strings.TrimSpace(c.TTS.Voice2)
	if c.TTS.Voice2 == "" {
		c.TTS.Voice2 = defaultTTSVoice2
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.Source = strings.ToLower(strings.TrimSpace(c.Worker.Source))
	if c.Worker.Source == "" {
		c.Worker.Source = defaultWorkerSource
	}
	c.Worker.MetricsAddr = strings.TrimSpace(c.Worker.MetricsAddr)
}

func (c *Config) normalizeNotifications() {
	if value, ok := envOverride("NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
