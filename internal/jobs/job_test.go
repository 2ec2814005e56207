package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"readrepeat/internal/lesson"
	"readrepeat/internal/logging"
	"readrepeat/internal/services"
)

func mustDecode(t *testing.T, raw string) *Job {
	t.Helper()
	job, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return job
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"process no lesson", `{"id":"1","type":"PROCESS_LESSON"}`, "No lesson data in job"},
		{"process missing audio", `{"id":"1","type":"PROCESS_LESSON","lesson":{"id":"l","foreignTextRaw":"a","translationTextRaw":"b"}}`, "Missing required field: audioOriginalPath"},
		{"process missing id", `{"id":"1","type":"PROCESS_LESSON","lesson":{"foreignTextRaw":"a"}}`, "Missing required field: id"},
		{"process ok", `{"id":"1","type":"PROCESS_LESSON","lesson":{"id":"l","foreignTextRaw":"","translationTextRaw":"","audioOriginalPath":"a.wav"}}`, ""},
		{"reslice no lesson", `{"id":"1","type":"RESLICE_AUDIO"}`, "No lesson data in job"},
		{"reslice no audio", `{"id":"1","type":"RESLICE_AUDIO","lesson":{"id":"l"}}`, "Missing audioOriginalPath in lesson"},
		{"reslice no sentences", `{"id":"1","type":"RESLICE_AUDIO","lesson":{"id":"l","audioOriginalPath":"a.wav"},"sentences":[]}`, "No sentence data for reslice job"},
		{"reslice ok", `{"id":"1","type":"RESLICE_AUDIO","lesson":{"id":"l","audioOriginalPath":"a.wav"},"sentences":[{"id":"s","startMs":0,"endMs":10}]}`, ""},
		{"tts missing translation", `{"id":"1","type":"GENERATE_TTS_LESSON","lesson":{"id":"l","foreignTextRaw":"a"}}`, "Missing required field: translationTextRaw"},
		{"tts ok without payload", `{"id":"1","type":"GENERATE_TTS_LESSON","lesson":{"id":"l","foreignTextRaw":"a","translationTextRaw":"b"}}`, ""},
		{"transcribe no payload", `{"id":"1","type":"TRANSCRIBE_AUDIO"}`, "No payload in job"},
		{"transcribe empty payload", `{"id":"1","type":"TRANSCRIBE_AUDIO","payload":{}}`, "No payload in job"},
		{"transcribe missing id", `{"id":"1","type":"TRANSCRIBE_AUDIO","payload":{"language":"en"}}`, "Missing audioFileId in payload"},
		{"transcribe ok", `{"id":"1","type":"TRANSCRIBE_AUDIO","payload":{"audioFileId":"a1"}}`, ""},
	}
	registry := DefaultRegistry(&fakePipeline{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := mustDecode(t, tt.raw)
			h, ok := registry.Get(job.Kind)
			if !ok {
				t.Fatalf("no handler for %s", job.Kind)
			}
			err := h.Validate(job)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %q", tt.want)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
			if got := services.Message(err); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToLessonCachedTranscription(t *testing.T) {
	job := mustDecode(t, `{"id":"1","type":"PROCESS_LESSON",
		"lesson":{"id":"l","foreignTextRaw":"Hi.","translationTextRaw":"嗨。","audioOriginalPath":"uploads/l/original.wav","foreignLang":"fr"},
		"audioFile":{"transcriptionJson":"{\"words\":[{\"word\":\"Hi\",\"start\":0,\"end\":0.3}]}"}}`)
	l := job.ToLesson(nil)
	if l.ID != "l" || l.ForeignText != "Hi." || l.AudioPath != "uploads/l/original.wav" || l.ForeignLang != "fr" {
		t.Fatalf("unexpected lesson %+v", l)
	}
	if l.Cached.Empty() {
		t.Fatal("expected cached words")
	}

	bad := mustDecode(t, `{"id":"1","type":"PROCESS_LESSON","lesson":{"id":"l"},"audioFile":{"transcriptionJson":"not json"}}`)
	var warned error
	l = bad.ToLesson(func(err error) { warned = err })
	if warned == nil || l.Cached != nil {
		t.Fatalf("expected warning and no cache, got %v %+v", warned, l.Cached)
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind(" process_lesson "); !ok || k != KindProcessLesson {
		t.Fatalf("ParseKind = %q %v", k, ok)
	}
	if _, ok := ParseKind("TRANSLATE"); ok {
		t.Fatal("expected unknown kind")
	}
}

type fakePipeline struct {
	lesson     lesson.Lesson
	tts        lesson.TTSRequest
	transcribe lesson.TranscribeRequest
	reslice    []lesson.SentenceTiming
	err        error
}

func (f *fakePipeline) Process(_ context.Context, l lesson.Lesson) ([]lesson.SentenceRecord, error) {
	f.lesson = l
	return []lesson.SentenceRecord{{ID: "s1", ForeignText: l.ForeignText}}, f.err
}

func (f *fakePipeline) Reslice(_ context.Context, _, _ string, sentences []lesson.SentenceTiming) ([]lesson.ClipUpdate, error) {
	f.reslice = sentences
	out := make([]lesson.ClipUpdate, len(sentences))
	for i, s := range sentences {
		out[i] = lesson.ClipUpdate{ID: s.ID, ClipPath: "clips/" + s.ID + ".wav"}
	}
	return out, f.err
}

func (f *fakePipeline) Transcribe(_ context.Context, req lesson.TranscribeRequest) (lesson.TranscriptionReport, error) {
	f.transcribe = req
	return lesson.TranscriptionReport{AudioFileID: req.AudioFileID, DurationMS: 1500, Language: "en"}, f.err
}

func (f *fakePipeline) GenerateTTS(_ context.Context, req lesson.TTSRequest) ([]lesson.SentenceRecord, error) {
	f.tts = req
	return []lesson.SentenceRecord{{ID: "t1"}}, f.err
}

func TestDispatch(t *testing.T) {
	p := &fakePipeline{}
	registry := DefaultRegistry(p, nil)
	ctx := context.Background()

	res, err := registry.Dispatch(ctx, mustDecode(t, `{"id":"1","type":"PROCESS_LESSON","lesson":{"id":"l","foreignTextRaw":"Hi.","translationTextRaw":"","audioOriginalPath":"a.wav"}}`))
	if err != nil || len(res.Sentences) != 1 || p.lesson.ForeignText != "Hi." {
		t.Fatalf("process: %v %+v", err, res)
	}

	res, err = registry.Dispatch(ctx, mustDecode(t, `{"id":"2","type":"RESLICE_AUDIO","lesson":{"id":"l","audioOriginalPath":"a.wav"},"sentences":[{"id":"s","startMs":5,"endMs":50,"confidence":0.4}]}`))
	if err != nil || len(res.UpdatedSentences) != 1 || *p.reslice[0].Confidence != 0.4 {
		t.Fatalf("reslice: %v %+v", err, res)
	}

	res, err = registry.Dispatch(ctx, mustDecode(t, `{"id":"3","type":"GENERATE_TTS_LESSON","lesson":{"id":"l","foreignTextRaw":"a","translationTextRaw":"b"},"payload":{"voiceName":"Puck","speakerMode":"dialog","voice2Name":"Leda","provider":"chatterbox"}}`))
	if err != nil || p.tts.Mode != lesson.SpeakerModeDialog || p.tts.Voice != "Puck" || p.tts.Voice2 != "Leda" || p.tts.Provider != "chatterbox" {
		t.Fatalf("tts: %v %+v", err, p.tts)
	}

	res, err = registry.Dispatch(ctx, mustDecode(t, `{"id":"4","type":"TRANSCRIBE_AUDIO","payload":{"audioFileId":"a1","language":"de"},"audioFile":{"filePath":"uploads/a1.mp3"}}`))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	report, ok := res.Data.(lesson.TranscriptionReport)
	if !ok || report.AudioFileID != "a1" || p.transcribe.AudioPath != "uploads/a1.mp3" || p.transcribe.Language != "de" {
		t.Fatalf("transcribe result %+v %+v", res, p.transcribe)
	}

	_, err = registry.Dispatch(ctx, mustDecode(t, `{"id":"5","type":"TRANSCRIBE_AUDIO","payload":{"audioFileId":"a1"}}`))
	if services.Message(err) != "No audio file data in job" {
		t.Fatalf("expected missing audio file error, got %v", err)
	}

	_, err = registry.Dispatch(ctx, mustDecode(t, `{"id":"6","type":"TRANSLATE"}`))
	if services.Message(err) != "Unknown job type: TRANSLATE" {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestProcessLessonWarnsThroughContextLogger(t *testing.T) {
	var jobLog bytes.Buffer
	ctx := logging.IntoContext(context.Background(), slog.New(slog.NewJSONHandler(&jobLog, nil)))
	registry := DefaultRegistry(&fakePipeline{}, logging.NewNop())

	job := mustDecode(t, `{"id":"1","type":"PROCESS_LESSON",
		"lesson":{"id":"l","foreignTextRaw":"Hi.","translationTextRaw":"","audioOriginalPath":"a.wav"},
		"audioFile":{"transcriptionJson":"not json"}}`)
	if _, err := registry.Dispatch(ctx, job); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(jobLog.String(), "cached_transcription_invalid") {
		t.Fatalf("expected cached transcription warning in job log, got %q", jobLog.String())
	}
}
