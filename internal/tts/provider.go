package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"readrepeat/internal/config"
	"readrepeat/internal/services"
)

const userAgent = "readrepeat-worker/0.1.0"

// Provider synthesizes speech into WAV files.
type Provider interface {
	ID() string
	Name() string
	Available(ctx context.Context) bool
	Voices() []string
	Models() []string
	Synthesize(ctx context.Context, text, voice, model, outPath string) error
	SynthesizeDialog(ctx context.Context, text, voice1, voice2, model, outPath string) error
}

// ErrNoProvider is returned when no configured provider is usable.
var ErrNoProvider = errors.New("no tts provider available")

// Registry holds the configured providers in preference order.
type Registry struct {
	providers []Provider
	preferred string
}

// NewRegistry builds a registry. preferred names the provider Default tries
// first; an empty value means the first available provider.
func NewRegistry(preferred string, providers ...Provider) *Registry {
	return &Registry{providers: providers, preferred: strings.ToLower(strings.TrimSpace(preferred))}
}

// FromConfig registers Gemini and Chatterbox using cfg.TTS.
func FromConfig(cfg *config.Config, client *http.Client, logger *slog.Logger) *Registry {
	gemini := NewGemini(GeminiConfig{
		APIKey:     cfg.TTS.GeminiAPIKey,
		BaseURL:    cfg.TTS.GeminiBaseURL,
		HTTPClient: client,
		Logger:     logger,
	})
	chatterbox := NewChatterbox(ChatterboxConfig{
		BaseURL:    cfg.TTS.ChatterboxURL,
		HTTPClient: client,
		Logger:     logger,
	})
	return NewRegistry(cfg.TTS.Provider, gemini, chatterbox)
}

// Providers returns all registered providers.
func (r *Registry) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// Get returns the provider with the given id.
func (r *Registry) Get(id string) (Provider, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range r.providers {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, services.NewUserError(services.ErrConfiguration, fmt.Sprintf("Unknown TTS provider: %s", id))
}

// Default returns the preferred provider when it is available, otherwise the
// first available one.
func (r *Registry) Default(ctx context.Context) (Provider, error) {
	if r.preferred != "" {
		if p, err := r.Get(r.preferred); err == nil && p.Available(ctx) {
			return p, nil
		}
	}
	for _, p := range r.providers {
		if p.Available(ctx) {
			return p, nil
		}
	}
	return nil, services.NewUserError(services.ErrConfiguration, ErrNoProvider.Error())
}

// DialogLine is one spoken line of a two-speaker dialog.
type DialogLine struct {
	Speaker int
	Text    string
}

var speakerTag = regexp.MustCompile(`(?i)^Speaker\s*(\d+)\s*:\s*(.*)$`)

// ParseDialogLines splits a dialog into lines. Tagged lines ("Speaker 1: ...")
// set the current speaker; tags for other speakers or with no text are
// dropped. Untagged lines go to the current speaker and then hand the turn to
// the other one.
func ParseDialogLines(text string) []DialogLine {
	var lines []DialogLine
	current := 1
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := speakerTag.FindStringSubmatch(line); m != nil {
			speaker, err := strconv.Atoi(m[1])
			content := strings.TrimSpace(m[2])
			if err == nil && (speaker == 1 || speaker == 2) && content != "" {
				lines = append(lines, DialogLine{Speaker: speaker, Text: content})
				current = speaker
			}
			continue
		}
		lines = append(lines, DialogLine{Speaker: current, Text: line})
		if current == 1 {
			current = 2
		} else {
			current = 1
		}
	}
	return lines
}
