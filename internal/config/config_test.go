package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"readrepeat/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DATA_DIR", "API_BASE_URL", "POLL_INTERVAL", "WHISPER_MODEL", "WHISPER_DEVICE",
		"WHISPER_COMPUTE_TYPE", "WHISPER_MODEL_DIR", "GEMINI_API_KEY", "CHATTERBOX_API_URL", "NTFY_TOPIC",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "readrepeat")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.QueueDB != filepath.Join(wantData, "queue.db") {
		t.Fatalf("unexpected queue db: %q", cfg.Paths.QueueDB)
	}
	if cfg.API.BaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected api base url: %q", cfg.API.BaseURL)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Whisper.Model != "base" || cfg.Whisper.Device != "cpu" || cfg.Whisper.ComputeType != "int8" {
		t.Fatalf("unexpected whisper defaults: %+v", cfg.Whisper)
	}
	if cfg.Segmentation.MinWords != 2 {
		t.Fatalf("unexpected min words: %d", cfg.Segmentation.MinWords)
	}
	if cfg.Slicing.PaddingMS != 200 || cfg.Slicing.PlaceholderMS != 1000 {
		t.Fatalf("unexpected slicing defaults: %+v", cfg.Slicing)
	}
	if cfg.TTS.Voice != "Zephyr" || cfg.TTS.Voice2 != "Kore" {
		t.Fatalf("unexpected voices: %+v", cfg.TTS)
	}
	if cfg.Worker.Source != "api" {
		t.Fatalf("unexpected worker source: %q", cfg.Worker.Source)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.UploadsDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "readrepeat.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		API struct {
			BaseURL             string `toml:"base_url"`
			PollIntervalSeconds int    `toml:"poll_interval_seconds"`
		} `toml:"api"`
		Segmentation struct {
			MinWords int `toml:"min_words"`
		} `toml:"segmentation"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.API.BaseURL = "https://lessons.example.com/"
	custom.API.PollIntervalSeconds = 12
	custom.Segmentation.MinWords = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.API.BaseURL != "https://lessons.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.PollIntervalSeconds != 12 {
		t.Fatalf("unexpected poll interval: %d", cfg.API.PollIntervalSeconds)
	}
	if cfg.Segmentation.MinWords != 3 {
		t.Fatalf("unexpected min words: %d", cfg.Segmentation.MinWords)
	}
	if cfg.LessonAudioPath("l1") != filepath.Join(tempDir, "data", "uploads", "lessons", "l1", "original.wav") {
		t.Fatalf("unexpected lesson audio path: %q", cfg.LessonAudioPath("l1"))
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("API_BASE_URL", "http://api.internal:8080")
	t.Setenv("POLL_INTERVAL", "9")
	t.Setenv("WHISPER_MODEL", "small")
	t.Setenv("WHISPER_DEVICE", "CUDA")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("CHATTERBOX_API_URL", "http://tts.internal/")
	t.Setenv("NTFY_TOPIC", "https://ntfy.sh/lessons")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("expected DATA_DIR override, got %q", cfg.Paths.DataDir)
	}
	if cfg.API.BaseURL != "http://api.internal:8080" {
		t.Fatalf("expected API_BASE_URL override, got %q", cfg.API.BaseURL)
	}
	if cfg.API.PollIntervalSeconds != 9 {
		t.Fatalf("expected POLL_INTERVAL override, got %d", cfg.API.PollIntervalSeconds)
	}
	if cfg.Whisper.Model != "small" || cfg.Whisper.Device != "cuda" {
		t.Fatalf("expected whisper overrides, got %+v", cfg.Whisper)
	}
	if cfg.TTS.GeminiAPIKey != "secret" {
		t.Fatalf("expected GEMINI_API_KEY fallback, got %q", cfg.TTS.GeminiAPIKey)
	}
	if cfg.TTS.ChatterboxURL != "http://tts.internal" {
		t.Fatalf("expected CHATTERBOX_API_URL override, got %q", cfg.TTS.ChatterboxURL)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/lessons" {
		t.Fatalf("expected NTFY_TOPIC override, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestInvalidPollIntervalEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "soon")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for non-numeric POLL_INTERVAL")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"relative base url", func(c *config.Config) { c.API.BaseURL = "lessons" }, "api.base_url"},
		{"zero poll interval", func(c *config.Config) { c.API.PollIntervalSeconds = 0 }, "api.poll_interval_seconds"},
		{"bad device", func(c *config.Config) { c.Whisper.Device = "tpu" }, "whisper.device"},
		{"min words", func(c *config.Config) { c.Segmentation.MinWords = 0 }, "segmentation.min_words"},
		{"negative padding", func(c *config.Config) { c.Slicing.PaddingMS = -1 }, "slicing.padding_ms"},
		{"tts provider", func(c *config.Config) { c.TTS.Provider = "espeak" }, "tts.provider"},
		{"worker source", func(c *config.Config) { c.Worker.Source = "kafka" }, "worker.source"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "readrepeat" }, "notifications.ntfy_topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.TTS.Model != "gemini-2.5-flash-preview-tts" {
		t.Fatalf("unexpected tts model from sample: %q", cfg.TTS.Model)
	}
}

func TestResolveDataPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/srv/readrepeat"
	if got := cfg.ResolveDataPath("uploads/a.mp3"); got != "/srv/readrepeat/uploads/a.mp3" {
		t.Fatalf("unexpected relative resolution: %q", got)
	}
	if got := cfg.ResolveDataPath("/tmp/a.mp3"); got != "/tmp/a.mp3" {
		t.Fatalf("absolute path should be unchanged: %q", got)
	}
}
