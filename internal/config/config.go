package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	QueueDB string `toml:"queue_db"`
}

// API contains the lesson server connection used by the poll worker.
type API struct {
	BaseURL               string `toml:"base_url"`
	PollIntervalSeconds   int    `toml:"poll_interval_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Whisper contains speech recognition settings.
type Whisper struct {
	Backend     string `toml:"backend"`
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	ComputeType string `toml:"compute_type"`
	ModelDir    string `toml:"model_dir"`
	Command     string `toml:"command"`
}

// Segmentation contains parallel sentence splitting settings.
type Segmentation struct {
	MinWords        int    `toml:"min_words"`
	ForeignLanguage string `toml:"foreign_language"`
	TranslationLang string `toml:"translation_language"`
}

// Slicing contains clip extraction settings.
type Slicing struct {
	PaddingMS     int    `toml:"padding_ms"`
	PlaceholderMS int    `toml:"placeholder_ms"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	Concurrency   int    `toml:"concurrency"`
}

// TTS contains text-to-speech provider settings.
type TTS struct {
	Provider      string `toml:"provider"`
	GeminiAPIKey  string `toml:"gemini_api_key"`
	GeminiBaseURL string `toml:"gemini_base_url"`
	ChatterboxURL string `toml:"chatterbox_url"`
	Voice         string `toml:"voice"`
	Voice2        string `toml:"voice2"`
	Model         string `toml:"model"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Worker contains poll loop settings.
type Worker struct {
	Source      string `toml:"source"`
	MetricsAddr string `toml:"metrics_addr"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	JobCompleted          bool   `toml:"job_completed"`
	JobFailed             bool   `toml:"job_failed"`
}

// Config encapsulates all configuration values for readrepeat.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and local queue locations
//   - API: lesson server endpoint and polling cadence
//   - Whisper: speech recognition backend and model
//   - Segmentation: parallel sentence balancing
//   - Slicing: clip padding, placeholders, and parallelism
//   - TTS: speech synthesis providers and voices
//   - Logging: log format, level, and retention
//   - Worker: job source and metrics endpoint
//   - Notifications: ntfy alerts for finished jobs
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Whisper       Whisper       `toml:"whisper"`
	Segmentation  Segmentation  `toml:"segmentation"`
	Slicing       Slicing       `toml:"slicing"`
	TTS           TTS           `toml:"tts"`
	Logging       Logging       `toml:"logging"`
	Worker        Worker        `toml:"worker"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("readrepeat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, upload, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.UploadsDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.QueueDB); strings.TrimSpace(c.Paths.QueueDB) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create queue directory %q: %w", dir, err)
		}
	}
	return nil
}

// UploadsDir is the root under which lesson audio is stored.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// LessonAudioPath returns where generated TTS audio for a lesson is written.
func (c *Config) LessonAudioPath(lessonID string) string {
	return filepath.Join(c.UploadsDir(), "lessons", lessonID, "original.wav")
}

// ResolveDataPath maps a path reported by the lesson server onto the local
// data directory. Absolute paths are returned unchanged.
func (c *Config) ResolveDataPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.DataDir, p)
}

// PollInterval returns the idle sleep between job polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.API.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the HTTP timeout for lesson server requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// LockPath returns the single-instance worker lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "readrepeat.lock")
}

// JobLogDir returns the directory holding one JSON log file per job.
func (c *Config) JobLogDir() string {
	return filepath.Join(c.Paths.LogDir, "jobs")
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// FFmpegBinary returns the ffmpeg executable name used for audio work.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Slicing.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
