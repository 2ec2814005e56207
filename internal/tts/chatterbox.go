package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"readrepeat/internal/logging"
	"readrepeat/internal/media/wavfile"
	"readrepeat/internal/services"
)

// Chatterbox defaults.
const (
	ChatterboxID           = "chatterbox"
	ChatterboxDefaultModel = "chatterbox"
	ChatterboxDefaultVoice = "default"
	chatterboxHTTPTimeout  = 5 * time.Minute
	chatterboxProbeTimeout = 5 * time.Second
	dialogGapMS            = 300
)

// ChatterboxConfig configures the Chatterbox provider.
type ChatterboxConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Chatterbox talks to an OpenAI-compatible speech server.
type Chatterbox struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewChatterbox constructs the provider. It is unavailable without a URL.
func NewChatterbox(cfg ChatterboxConfig) *Chatterbox {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: chatterboxHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chatterbox{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    client,
		logger:  logger,
	}
}

func (c *Chatterbox) ID() string       { return ChatterboxID }
func (c *Chatterbox) Name() string     { return "Chatterbox" }
func (c *Chatterbox) Voices() []string { return []string{ChatterboxDefaultVoice} }
func (c *Chatterbox) Models() []string { return []string{ChatterboxDefaultModel} }

// Available probes GET {base}/voices.
func (c *Chatterbox) Available(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, chatterboxProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("chatterbox probe failed", logging.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 300
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize renders text with one voice.
func (c *Chatterbox) Synthesize(ctx context.Context, text, voice, model, outPath string) error {
	if c.baseURL == "" {
		return services.NewUserError(services.ErrConfiguration, "CHATTERBOX_API_URL environment variable not set")
	}
	c.logger.Info("generating chatterbox speech", logging.String("voice", voice))
	data, err := c.speech(ctx, text, voice, model)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("chatterbox: ensure output dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("chatterbox: write wav: %w", err)
	}
	return nil
}

// SynthesizeDialog renders each dialog line with its speaker's voice and joins
// them with a short pause.
func (c *Chatterbox) SynthesizeDialog(ctx context.Context, text, voice1, voice2, model, outPath string) error {
	if c.baseURL == "" {
		return services.NewUserError(services.ErrConfiguration, "CHATTERBOX_API_URL environment variable not set")
	}
	lines := ParseDialogLines(text)
	if len(lines) == 0 {
		return services.NewUserError(services.ErrValidation, "No dialog lines found in text")
	}
	voices := map[int]string{1: voice1, 2: voice2}

	workDir, err := os.MkdirTemp(filepath.Dir(outPath), "dialog-")
	if err != nil {
		return fmt.Errorf("chatterbox: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	parts := make([]string, 0, len(lines))
	for i, line := range lines {
		voice := voices[line.Speaker]
		c.logger.Info("generating dialog line",
			logging.Int("line", i+1),
			logging.Int("line_count", len(lines)),
			logging.Int("speaker", line.Speaker),
			logging.String("voice", voice),
		)
		data, err := c.speech(ctx, line.Text, voice, model)
		if err != nil {
			return fmt.Errorf("dialog line %d: %w", i+1, err)
		}
		part := filepath.Join(workDir, strconv.Itoa(i)+".wav")
		if err := os.WriteFile(part, data, 0o644); err != nil {
			return fmt.Errorf("chatterbox: write dialog line: %w", err)
		}
		parts = append(parts, part)
	}
	if err := wavfile.Concat(outPath, parts, dialogGapMS); err != nil {
		return fmt.Errorf("chatterbox: join dialog: %w", err)
	}
	c.logger.Info("chatterbox dialog saved", logging.String("path", outPath), logging.Int("line_count", len(lines)))
	return nil
}

func (c *Chatterbox) speech(ctx context.Context, text, voice, model string) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          fallback(model, ChatterboxDefaultModel),
		Voice:          fallback(voice, ChatterboxDefaultVoice),
		Input:          text,
		ResponseFormat: "wav",
	})
	if err != nil {
		return nil, fmt.Errorf("chatterbox: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chatterbox: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tts", "chatterbox request", "Speech synthesis request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, services.Wrap(services.ErrExternalTool, "tts", "chatterbox request",
			fmt.Sprintf("Chatterbox returned %s", resp.Status), errors.New(strings.TrimSpace(string(snippet))))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chatterbox: read audio: %w", err)
	}
	return data, nil
}
