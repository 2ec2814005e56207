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
	"net/url"
	"slices"
	"strings"
	"time"

	"readrepeat/internal/logging"
	"readrepeat/internal/media/wavfile"
	"readrepeat/internal/services"
)

// Gemini defaults.
const (
	GeminiID            = "gemini"
	GeminiDefaultVoice  = "Zephyr"
	GeminiDefaultVoice2 = "Kore"
	GeminiDefaultModel  = "gemini-2.5-flash-preview-tts"
	geminiDefaultBase   = "https://generativelanguage.googleapis.com/v1beta"
	geminiHTTPTimeout   = 5 * time.Minute
	defaultPCMMime      = "audio/L16;rate=24000"
)

var (
	geminiVoices = []string{"Zephyr", "Puck", "Charon", "Kore", "Fenrir", "Leda", "Orus", "Aoede"}
	geminiModels = []string{"gemini-2.5-flash-preview-tts", "gemini-2.5-pro-preview-tts"}
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Gemini synthesizes speech with the Gemini generateContent API.
type Gemini struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewGemini constructs the provider. It is unavailable without an API key.
func NewGemini(cfg GeminiConfig) *Gemini {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = geminiDefaultBase
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gemini{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
		http:    client,
		logger:  logger,
	}
}

func (g *Gemini) ID() string   { return GeminiID }
func (g *Gemini) Name() string { return "Google Gemini" }

// Available reports whether an API key is configured.
func (g *Gemini) Available(context.Context) bool {
	return g.apiKey != ""
}

func (g *Gemini) Voices() []string { return slices.Clone(geminiVoices) }
func (g *Gemini) Models() []string { return slices.Clone(geminiModels) }

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig struct {
		VoiceName string `json:"voiceName"`
	} `json:"prebuiltVoiceConfig"`
}

type geminiSpeakerVoiceConfig struct {
	Speaker     string            `json:"speaker"`
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig             *geminiVoiceConfig `json:"voiceConfig,omitempty"`
	MultiSpeakerVoiceConfig *struct {
		SpeakerVoiceConfigs []geminiSpeakerVoiceConfig `json:"speakerVoiceConfigs"`
	} `json:"multiSpeakerVoiceConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature        float64            `json:"temperature"`
		ResponseModalities []string           `json:"responseModalities"`
		SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
}

func voiceConfig(name string) geminiVoiceConfig {
	var vc geminiVoiceConfig
	vc.PrebuiltVoiceConfig.VoiceName = name
	return vc
}

func newGeminiRequest(text string, speech geminiSpeechConfig) geminiRequest {
	var req geminiRequest
	req.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: text}}}}
	req.GenerationConfig.Temperature = 1
	req.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	req.GenerationConfig.SpeechConfig = speech
	return req
}

// Synthesize renders text with a single prebuilt voice.
func (g *Gemini) Synthesize(ctx context.Context, text, voice, model, outPath string) error {
	voice = fallback(voice, GeminiDefaultVoice)
	vc := voiceConfig(voice)
	g.logger.Info("generating gemini speech",
		logging.String("voice", voice),
		logging.String("model", fallback(model, GeminiDefaultModel)),
	)
	return g.generate(ctx, model, newGeminiRequest(text, geminiSpeechConfig{VoiceConfig: &vc}), outPath)
}

// SynthesizeDialog renders a "Speaker 1:" / "Speaker 2:" dialog in one
// request using a multi-speaker voice config.
func (g *Gemini) SynthesizeDialog(ctx context.Context, text, voice1, voice2, model, outPath string) error {
	voice1 = fallback(voice1, GeminiDefaultVoice)
	voice2 = fallback(voice2, GeminiDefaultVoice2)
	speech := geminiSpeechConfig{}
	speech.MultiSpeakerVoiceConfig = &struct {
		SpeakerVoiceConfigs []geminiSpeakerVoiceConfig `json:"speakerVoiceConfigs"`
	}{
		SpeakerVoiceConfigs: []geminiSpeakerVoiceConfig{
			{Speaker: "Speaker 1", VoiceConfig: voiceConfig(voice1)},
			{Speaker: "Speaker 2", VoiceConfig: voiceConfig(voice2)},
		},
	}
	g.logger.Info("generating gemini dialog speech",
		logging.String("voice1", voice1),
		logging.String("voice2", voice2),
		logging.String("model", fallback(model, GeminiDefaultModel)),
	)
	return g.generate(ctx, model, newGeminiRequest(text, speech), outPath)
}

func (g *Gemini) generate(ctx context.Context, model string, payload geminiRequest, outPath string) error {
	if g.apiKey == "" {
		return services.NewUserError(services.ErrConfiguration, "GEMINI_API_KEY environment variable not set")
	}
	model = fallback(model, GeminiDefaultModel)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gemini: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "gemini request", "Speech synthesis request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return services.Wrap(services.ErrExternalTool, "tts", "gemini request",
			fmt.Sprintf("Gemini returned %s", resp.Status), errors.New(strings.TrimSpace(string(snippet))))
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("gemini: decode response: %w", err)
	}
	pcm, mimeType := collectAudio(decoded)
	if len(pcm) == 0 {
		return services.NewUserError(services.ErrExternalTool, "No audio data received from TTS API")
	}
	if err := wavfile.PCMToWAV(pcm, mimeType, outPath); err != nil {
		return fmt.Errorf("gemini: write wav: %w", err)
	}
	g.logger.Info("gemini speech saved", logging.String("path", outPath), logging.Int("pcm_bytes", len(pcm)))
	return nil
}

func collectAudio(resp geminiResponse) ([]byte, string) {
	var (
		pcm      []byte
		mimeType string
	)
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			pcm = append(pcm, part.InlineData.Data...)
			if mimeType == "" {
				mimeType = part.InlineData.MimeType
			}
		}
	}
	if mimeType == "" {
		mimeType = defaultPCMMime
	}
	return pcm, mimeType
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
