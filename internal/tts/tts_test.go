package tts

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"readrepeat/internal/media/wavfile"
	"readrepeat/internal/services"
	"readrepeat/internal/testsupport"
)

func TestParseDialogLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []DialogLine
	}{
		{
			name: "tagged",
			text: "Speaker 1: Hello there.\nSpeaker 2: Hi!",
			want: []DialogLine{{1, "Hello there."}, {2, "Hi!"}},
		},
		{
			name: "untagged alternate",
			text: "First line\n\n  Second line  \nThird line",
			want: []DialogLine{{1, "First line"}, {2, "Second line"}, {1, "Third line"}},
		},
		{
			name: "case and spacing",
			text: "speaker2 :  How are you?\nFine thanks",
			want: []DialogLine{{2, "How are you?"}, {2, "Fine thanks"}},
		},
		{
			name: "invalid tags dropped",
			text: "Speaker 3: nobody\nSpeaker 1:\nOnly line",
			want: []DialogLine{{1, "Only line"}},
		},
		{
			name: "empty",
			text: "  \n\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDialogLines(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseDialogLines() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

func TestGeminiSynthesize(t *testing.T) {
	var captured geminiRequest
	var path, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		chunk1 := base64.StdEncoding.EncodeToString(pcmBytes(1, 2))
		chunk2 := base64.StdEncoding.EncodeToString(pcmBytes(3))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[` +
			`{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"` + chunk1 + `"}},` +
			`{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"` + chunk2 + `"}}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "secret", BaseURL: srv.URL + "/"})
	out := filepath.Join(t.TempDir(), "original.wav")
	if err := g.Synthesize(context.Background(), "Hello.", "", "", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if path != "/models/"+GeminiDefaultModel+":generateContent" {
		t.Fatalf("unexpected path %q", path)
	}
	if key != "secret" {
		t.Fatalf("expected api key header, got %q", key)
	}
	if captured.Contents[0].Parts[0].Text != "Hello." {
		t.Fatalf("unexpected contents %+v", captured.Contents)
	}
	vc := captured.GenerationConfig.SpeechConfig.VoiceConfig
	if vc == nil || vc.PrebuiltVoiceConfig.VoiceName != GeminiDefaultVoice {
		t.Fatalf("expected default voice, got %+v", captured.GenerationConfig.SpeechConfig)
	}
	samples, format, err := wavfile.Read(out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if format.SampleRate != 24000 || !reflect.DeepEqual(samples, []int{1, 2, 3}) {
		t.Fatalf("unexpected audio %v %+v", samples, format)
	}
}

func TestGeminiDialogUsesMultiSpeakerConfig(t *testing.T) {
	var captured geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		data := base64.StdEncoding.EncodeToString(pcmBytes(5))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"` + data + `"}}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	if err := g.SynthesizeDialog(context.Background(), "Speaker 1: a\nSpeaker 2: b", "Puck", "", "gemini-2.5-pro-preview-tts", filepath.Join(t.TempDir(), "d.wav")); err != nil {
		t.Fatalf("SynthesizeDialog: %v", err)
	}
	multi := captured.GenerationConfig.SpeechConfig.MultiSpeakerVoiceConfig
	if multi == nil || len(multi.SpeakerVoiceConfigs) != 2 {
		t.Fatalf("expected two speakers, got %+v", captured.GenerationConfig.SpeechConfig)
	}
	if multi.SpeakerVoiceConfigs[0].VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Puck" ||
		multi.SpeakerVoiceConfigs[1].VoiceConfig.PrebuiltVoiceConfig.VoiceName != GeminiDefaultVoice2 {
		t.Fatalf("unexpected voices %+v", multi.SpeakerVoiceConfigs)
	}
}

func TestGeminiErrors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no audio"}]}}]}`))
	}))
	defer empty.Close()
	g := NewGemini(GeminiConfig{APIKey: "k", BaseURL: empty.URL})
	err := g.Synthesize(context.Background(), "x", "", "", filepath.Join(t.TempDir(), "a.wav"))
	if services.Message(err) != "No audio data received from TTS API" {
		t.Fatalf("unexpected error %v", err)
	}

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "API key not valid", http.StatusBadRequest)
	}))
	defer denied.Close()
	g = NewGemini(GeminiConfig{APIKey: "k", BaseURL: denied.URL})
	err = g.Synthesize(context.Background(), "x", "", "", filepath.Join(t.TempDir(), "a.wav"))
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("unexpected error %v", err)
	}

	noKey := NewGemini(GeminiConfig{})
	if noKey.Available(context.Background()) {
		t.Fatal("expected gemini unavailable without key")
	}
	if err := noKey.Synthesize(context.Background(), "x", "", "", "a.wav"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func wavBytes(t *testing.T, samples ...int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "line.wav")
	if err := wavfile.Write(path, samples, wavfile.PCMFormat{BitsPerSample: 16, SampleRate: 24000, Channels: 1}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestChatterboxDialog(t *testing.T) {
	lineA := wavBytes(t, 7, 7)
	lineB := wavBytes(t, 9)
	var (
		mu     sync.Mutex
		voices []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/voices":
			_, _ = w.Write([]byte(`["default"]`))
		case "/v1/audio/speech":
			var req speechRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			voices = append(voices, req.Voice)
			mu.Unlock()
			if req.ResponseFormat != "wav" || req.Model != ChatterboxDefaultModel {
				t.Errorf("unexpected request %+v", req)
			}
			if req.Input == "Hello." {
				_, _ = w.Write(lineA)
				return
			}
			_, _ = w.Write(lineB)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewChatterbox(ChatterboxConfig{BaseURL: srv.URL})
	if !c.Available(context.Background()) {
		t.Fatal("expected chatterbox available")
	}
	out := filepath.Join(t.TempDir(), "dialog.wav")
	if err := c.SynthesizeDialog(context.Background(), "Speaker 1: Hello.\nSpeaker 2: Hi.", "alice", "bob", "", out); err != nil {
		t.Fatalf("SynthesizeDialog: %v", err)
	}
	if !reflect.DeepEqual(voices, []string{"alice", "bob"}) {
		t.Fatalf("unexpected voices %v", voices)
	}
	samples, _, err := wavfile.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	gap := 24000 * dialogGapMS / 1000
	if len(samples) != 2+gap+1 || samples[0] != 7 || samples[len(samples)-1] != 9 {
		t.Fatalf("unexpected joined audio: %d samples", len(samples))
	}
	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Fatalf("expected work dir removed, found %d entries", len(entries))
	}

	if err := c.SynthesizeDialog(context.Background(), "\n\n", "a", "b", "", out); services.Message(err) != "No dialog lines found in text" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestChatterboxUnavailable(t *testing.T) {
	if NewChatterbox(ChatterboxConfig{}).Available(context.Background()) {
		t.Fatal("expected unavailable without url")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	if NewChatterbox(ChatterboxConfig{BaseURL: srv.URL}).Available(context.Background()) {
		t.Fatal("expected unavailable on 503")
	}
}

type fakeProvider struct {
	id        string
	available bool
}

func (f fakeProvider) ID() string                     { return f.id }
func (f fakeProvider) Name() string                   { return f.id }
func (f fakeProvider) Available(context.Context) bool { return f.available }
func (f fakeProvider) Voices() []string               { return nil }
func (f fakeProvider) Models() []string               { return nil }

func (f fakeProvider) Synthesize(context.Context, string, string, string, string) error {
	return nil
}

func (f fakeProvider) SynthesizeDialog(context.Context, string, string, string, string, string) error {
	return nil
}

func TestRegistryDefault(t *testing.T) {
	down := fakeProvider{id: "gemini"}
	up := fakeProvider{id: "chatterbox", available: true}

	p, err := NewRegistry("", down, up).Default(context.Background())
	if err != nil || p.ID() != "chatterbox" {
		t.Fatalf("expected first available, got %v %v", p, err)
	}
	p, err = NewRegistry("chatterbox", fakeProvider{id: "gemini", available: true}, up).Default(context.Background())
	if err != nil || p.ID() != "chatterbox" {
		t.Fatalf("expected preferred provider, got %v %v", p, err)
	}
	if _, err := NewRegistry("", down).Default(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewRegistry("", up).Get("polly"); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.GeminiAPIKey = "k"
	cfg.TTS.ChatterboxURL = ""
	reg := FromConfig(cfg, nil, nil)
	if len(reg.Providers()) != 2 {
		t.Fatalf("expected two providers")
	}
	p, err := reg.Default(context.Background())
	if err != nil || p.ID() != GeminiID {
		t.Fatalf("expected gemini default, got %v %v", p, err)
	}
}
