package lesson_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"readrepeat/internal/align"
	"readrepeat/internal/lesson"
	"readrepeat/internal/media/ffmpeg"
	"readrepeat/internal/services"
	"readrepeat/internal/testsupport"
	"readrepeat/internal/transcribe"
	"readrepeat/internal/tts"
)

type fakeNormalizer struct {
	calls int
	err   error
}

func (f *fakeNormalizer) Normalize(_ context.Context, _ string, outDir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(outDir, ffmpeg.NormalizedFileName), nil
}

type fakeSlicer struct {
	audio   string
	timings []align.Timing
	outDir  string
}

func (f *fakeSlicer) Slice(_ context.Context, audio string, timings []align.Timing, outDir string) ([]ffmpeg.Clip, error) {
	f.audio = audio
	f.timings = timings
	f.outDir = outDir
	clips := make([]ffmpeg.Clip, len(timings))
	for i := range timings {
		clips[i] = ffmpeg.Clip{Index: i, Path: filepath.Join(outDir, strconv.Itoa(i)+".wav"), Placeholder: !timings[i].Aligned()}
	}
	return clips, nil
}

type fakeTranscriber struct {
	calls  int
	model  string
	lang   string
	result transcribe.Result
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, language, model string) (transcribe.Result, error) {
	f.calls++
	f.model = model
	f.lang = language
	return f.result, nil
}

func words(triples ...any) []align.TranscriptWord {
	out := make([]align.TranscriptWord, 0, len(triples)/3)
	for i := 0; i+2 < len(triples); i += 3 {
		out = append(out, align.TranscriptWord{Word: triples[i].(string), Start: triples[i+1].(float64), End: triples[i+2].(float64), Probability: 0.9})
	}
	return out
}

var helloWords = words(
	"Hello", 0.0, 0.4,
	"world.", 0.5, 0.9,
	"How", 1.0, 1.2,
	"are", 1.25, 1.4,
	"you", 1.45, 1.6,
	"today?", 1.65, 2.1,
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("sentence-%d", n)
	}
}

type harness struct {
	proc        *lesson.Processor
	normalizer  *fakeNormalizer
	slicer      *fakeSlicer
	transcriber *fakeTranscriber
}

func newHarness(t *testing.T, extra ...lesson.Option) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := harness{
		normalizer:  &fakeNormalizer{},
		slicer:      &fakeSlicer{},
		transcriber: &fakeTranscriber{result: transcribe.Result{Words: helloWords, Language: "en", Duration: 2.5}},
	}
	opts := []lesson.Option{
		lesson.WithNormalizer(h.normalizer),
		lesson.WithSlicer(h.slicer),
		lesson.WithTranscriber(h.transcriber),
		lesson.WithIDGenerator(sequentialIDs()),
	}
	proc, err := lesson.New(cfg, append(opts, extra...)...)
	if err != nil {
		t.Fatalf("lesson.New: %v", err)
	}
	h.proc = proc
	return h
}

func TestProcessBuildsSentenceRecords(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	records, err := h.proc.Process(context.Background(), lesson.Lesson{
		ID:              "lesson-1",
		ForeignText:     "Hello world. How are you today?",
		TranslationText: "你好世界。你今天好吗？",
		AudioPath:       filepath.Join(dir, "original.mp3"),
		ForeignLang:     "en",
		TranslationLang: "zh",
		WhisperModel:    "small",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	first, second := records[0], records[1]
	if first.ID != "sentence-1" || first.Idx != 0 || first.ForeignText != "Hello world." || first.TranslationText != "你好世界。" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if second.ForeignText != "How are you today?" || second.TranslationText != "你今天好吗？" {
		t.Fatalf("unexpected second record %+v", second)
	}
	if first.StartMS != 0 || first.EndMS != 900 || first.Confidence <= 0 {
		t.Fatalf("unexpected first timing %+v", first)
	}
	if second.StartMS != 1000 || second.EndMS != 2100 || second.Confidence <= 0 {
		t.Fatalf("unexpected second timing %+v", second)
	}
	if first.ClipPath != filepath.Join(dir, "clips", "0.wav") {
		t.Fatalf("unexpected clip path %q", first.ClipPath)
	}
	if h.slicer.audio != filepath.Join(dir, ffmpeg.NormalizedFileName) {
		t.Fatalf("slicer got %q", h.slicer.audio)
	}
	if h.transcriber.model != "small" || h.transcriber.lang != "en" {
		t.Fatalf("transcriber got model=%q lang=%q", h.transcriber.model, h.transcriber.lang)
	}
}

func TestProcessRejectsEmptyForeignText(t *testing.T) {
	h := newHarness(t)
	_, err := h.proc.Process(context.Background(), lesson.Lesson{ID: "l", AudioPath: "/tmp/a.wav"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.Message(err) != "No sentences found in foreign text" {
		t.Fatalf("unexpected message %q", services.Message(err))
	}
	if h.normalizer.calls != 0 {
		t.Fatal("normalizer should not run without sentences")
	}
}

func TestProcessUsesCachedTranscript(t *testing.T) {
	h := newHarness(t)
	cached, err := transcribe.DecodeCached([]byte(`{"words":[{"word":"Hello","start":0,"end":0.4},{"word":"world","start":0.5,"end":0.9}]}`))
	if err != nil {
		t.Fatal(err)
	}
	records, err := h.proc.Process(context.Background(), lesson.Lesson{
		ID:          "l",
		ForeignText: "Hello world.",
		AudioPath:   filepath.Join(t.TempDir(), "a.wav"),
		Cached:      cached,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if h.transcriber.calls != 0 {
		t.Fatal("transcriber should be skipped when a cached transcript exists")
	}
	if len(records) != 1 || records[0].EndMS != 900 || records[0].TranslationText != "" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestProcessRejectsUnorderedCachedTranscript(t *testing.T) {
	h := newHarness(t)
	cached, err := transcribe.DecodeCached([]byte(`{"words":[{"word":"world","start":0.5,"end":0.9},{"word":"Hello","start":0,"end":0.4}]}`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.proc.Process(context.Background(), lesson.Lesson{
		ID:          "l",
		ForeignText: "Hello world.",
		AudioPath:   filepath.Join(t.TempDir(), "a.wav"),
		Cached:      cached,
	})
	if !errors.Is(err, services.ErrValidation) || !errors.Is(err, align.ErrInvalidTranscript) {
		t.Fatalf("expected validation error for unordered transcript, got %v", err)
	}
	if got := services.FailureStatus(err); got != "review" {
		t.Fatalf("expected review status, got %q", got)
	}
	if h.slicer.timings != nil {
		t.Fatal("slicer should not run on an invalid transcript")
	}
}

func TestProcessEmptyTranscriptYieldsUnalignedRecords(t *testing.T) {
	h := newHarness(t)
	h.transcriber.result = transcribe.Result{}
	records, err := h.proc.Process(context.Background(), lesson.Lesson{
		ID:          "l",
		ForeignText: "One sentence here. Another one there.",
		AudioPath:   filepath.Join(t.TempDir(), "a.wav"),
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, r := range records {
		if r.Confidence != 0 || r.StartMS != 0 || r.EndMS != 0 {
			t.Fatalf("expected zero timing, got %+v", r)
		}
	}
}

func TestProcessPropagatesNormalizeError(t *testing.T) {
	h := newHarness(t)
	h.normalizer.err = services.NewUserError(services.ErrNotFound, "Audio file not found: /x")
	_, err := h.proc.Process(context.Background(), lesson.Lesson{ID: "l", ForeignText: "Hi there.", AudioPath: "/x"})
	if services.Message(err) != "Audio file not found: /x" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestReslice(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ffmpeg.NormalizedFileName), []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "clips", "7.wav")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	zero := 0.0
	updates, err := h.proc.Reslice(context.Background(), "lesson-1", filepath.Join(dir, "original.wav"), []lesson.SentenceTiming{
		{ID: "a", StartMS: 100, EndMS: 900},
		{ID: "b", StartMS: 900, EndMS: 1500, Confidence: &zero},
	})
	if err != nil {
		t.Fatalf("Reslice: %v", err)
	}
	if h.normalizer.calls != 0 {
		t.Fatal("existing normalized audio should be reused")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale clip removed, got %v", err)
	}
	if h.slicer.timings[0].Confidence != 1 || h.slicer.timings[1].Confidence != 0 {
		t.Fatalf("unexpected confidences %+v", h.slicer.timings)
	}
	if len(updates) != 2 || updates[0].ID != "a" || updates[1].ClipPath != filepath.Join(dir, "clips", "1.wav") {
		t.Fatalf("unexpected updates %+v", updates)
	}
}

func TestResliceNormalizesWhenMissing(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	if _, err := h.proc.Reslice(context.Background(), "l", filepath.Join(dir, "original.wav"), []lesson.SentenceTiming{{ID: "a", EndMS: 10}}); err != nil {
		t.Fatalf("Reslice: %v", err)
	}
	if h.normalizer.calls != 1 {
		t.Fatalf("expected normalization, got %d calls", h.normalizer.calls)
	}
}

func TestTranscribeReport(t *testing.T) {
	h := newHarness(t)
	report, err := h.proc.Transcribe(context.Background(), lesson.TranscribeRequest{
		AudioFileID: "audio-9",
		AudioPath:   filepath.Join(t.TempDir(), "upload.m4a"),
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if report.AudioFileID != "audio-9" || report.DurationMS != 2500 || report.Language != "en" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Transcription.Words) != len(helloWords) {
		t.Fatalf("expected words in report")
	}
	if h.transcriber.model != "base" || h.transcriber.lang != "" {
		t.Fatalf("expected config model and auto language, got %q %q", h.transcriber.model, h.transcriber.lang)
	}
}

type fakeProvider struct {
	dialog bool
	text   string
	voices []string
	path   string
}

func (f *fakeProvider) ID() string                     { return "fake" }
func (f *fakeProvider) Name() string                   { return "Fake" }
func (f *fakeProvider) Available(context.Context) bool { return true }
func (f *fakeProvider) Voices() []string               { return []string{"v"} }
func (f *fakeProvider) Models() []string               { return []string{"m"} }

func (f *fakeProvider) Synthesize(_ context.Context, text, voice, _, outPath string) error {
	f.text, f.voices, f.path = text, []string{voice}, outPath
	return nil
}

func (f *fakeProvider) SynthesizeDialog(_ context.Context, text, voice1, voice2, _, outPath string) error {
	f.dialog = true
	f.text, f.voices, f.path = text, []string{voice1, voice2}, outPath
	return nil
}

func TestGenerateTTSDialog(t *testing.T) {
	provider := &fakeProvider{}
	h := newHarness(t, lesson.WithSpeech(tts.NewRegistry("", provider)))
	records, err := h.proc.GenerateTTS(context.Background(), lesson.TTSRequest{
		Lesson: lesson.Lesson{
			ID:              "lesson-tts",
			ForeignText:     "Speaker 1: Hello world.\nSpeaker 2: How are you today?",
			TranslationText: "Speaker 1: 你好世界。\nSpeaker 2: 你今天好吗？",
		},
		Voice:  "Zephyr",
		Voice2: "Kore",
		Mode:   lesson.SpeakerModeDialog,
	})
	if err != nil {
		t.Fatalf("GenerateTTS: %v", err)
	}
	if !provider.dialog || provider.voices[1] != "Kore" {
		t.Fatalf("expected dialog synthesis, got %+v", provider)
	}
	if filepath.Base(provider.path) != "original.wav" || filepath.Base(filepath.Dir(provider.path)) != "lesson-tts" {
		t.Fatalf("unexpected audio path %q", provider.path)
	}
	if len(records) != 2 || records[0].ForeignText != "Hello world." || records[1].TranslationText != "你今天好吗？" {
		t.Fatalf("expected speaker tags stripped, got %+v", records)
	}
}

func TestGenerateTTSUnknownProvider(t *testing.T) {
	h := newHarness(t, lesson.WithSpeech(tts.NewRegistry("", &fakeProvider{})))
	_, err := h.proc.GenerateTTS(context.Background(), lesson.TTSRequest{
		Lesson:   lesson.Lesson{ID: "x", ForeignText: "Hi."},
		Provider: "polly",
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
