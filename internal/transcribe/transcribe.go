package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"readrepeat/internal/align"
	"readrepeat/internal/config"
)

// DefaultModel is used when neither the job nor the config names a model.
const DefaultModel = "base"

// Result is a word-level transcript.
type Result struct {
	Words               []align.TranscriptWord `json:"words"`
	Language            string                 `json:"language"`
	LanguageProbability float64                `json:"languageProbability"`
	Duration            float64                `json:"duration"`
}

// Transcriber converts an audio file into timed words. An empty language
// lets the backend detect it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language, model string) (Result, error)
}

// Cached replays a previously stored transcript.
type Cached struct {
	result Result
}

// DecodeCached parses a stored transcription ({"words": [...]}). Words
// without timing are dropped.
func DecodeCached(raw []byte) (*Cached, error) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cached transcription: %w", err)
	}
	result.Words = keepTimed(result.Words)
	return &Cached{result: result}, nil
}

// Empty reports whether the stored transcript has no words.
func (c *Cached) Empty() bool {
	return c == nil || len(c.result.Words) == 0
}

// Words returns the stored timed words.
func (c *Cached) Words() []align.TranscriptWord {
	if c == nil {
		return nil
	}
	return c.result.Words
}

// Transcribe returns the stored transcript.
func (c *Cached) Transcribe(context.Context, string, string, string) (Result, error) {
	return c.result, nil
}

func keepTimed(words []align.TranscriptWord) []align.TranscriptWord {
	kept := make([]align.TranscriptWord, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Word) == "" || w.End < w.Start {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

// Builder creates a backend bound to one model.
type Builder func(cfg config.Whisper, model string) (Transcriber, error)

// Registry maps backend names to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, b Builder) {
	r.builders[strings.ToLower(strings.TrimSpace(name))] = b
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cache returns a model cache for the backend named in cfg.
func (r *Registry) Cache(cfg config.Whisper) (*Cache, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if name == "" {
		name = BackendWhisperX
	}
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown transcription backend %q (available: %s)", cfg.Backend, strings.Join(r.Names(), ", "))
	}
	return NewCache(cfg, builder), nil
}

// DefaultRegistry registers the whisperx backend with the given options.
func DefaultRegistry(opts ...WhisperXOption) *Registry {
	r := NewRegistry()
	r.Register(BackendWhisperX, func(cfg config.Whisper, model string) (Transcriber, error) {
		return NewWhisperX(cfg, model, opts...), nil
	})
	return r
}

// Cache memoizes one backend per model name.
type Cache struct {
	cfg     config.Whisper
	builder Builder

	mu      sync.Mutex
	byModel map[string]Transcriber
}

// NewCache constructs a cache around builder.
func NewCache(cfg config.Whisper, builder Builder) *Cache {
	return &Cache{cfg: cfg, builder: builder, byModel: make(map[string]Transcriber)}
}

// Get returns the backend for model, building it on first use.
func (c *Cache) Get(model string) (Transcriber, error) {
	model = c.resolveModel(model)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.byModel[model]; ok {
		return t, nil
	}
	t, err := c.builder(c.cfg, model)
	if err != nil {
		return nil, fmt.Errorf("load transcription model %s: %w", model, err)
	}
	c.byModel[model] = t
	return t, nil
}

// Loaded lists models built so far.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	models := make([]string, 0, len(c.byModel))
	for m := range c.byModel {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// Transcribe dispatches to the backend for model.
func (c *Cache) Transcribe(ctx context.Context, audioPath, language, model string) (Result, error) {
	model = c.resolveModel(model)
	t, err := c.Get(model)
	if err != nil {
		return Result{}, err
	}
	return t.Transcribe(ctx, audioPath, language, model)
}

func (c *Cache) resolveModel(model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	if m := strings.TrimSpace(c.cfg.Model); m != "" {
		return m
	}
	return DefaultModel
}
