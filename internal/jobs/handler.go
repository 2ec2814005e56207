package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"readrepeat/internal/lesson"
	"readrepeat/internal/logging"
	"readrepeat/internal/services"
)

// Handler executes one kind of job.
type Handler interface {
	Kind() Kind
	Validate(job *Job) error
	Handle(ctx context.Context, job *Job) (Result, error)
}

// Pipeline is the lesson processing surface handlers depend on.
type Pipeline interface {
	Process(ctx context.Context, l lesson.Lesson) ([]lesson.SentenceRecord, error)
	Reslice(ctx context.Context, lessonID, audioPath string, sentences []lesson.SentenceTiming) ([]lesson.ClipUpdate, error)
	Transcribe(ctx context.Context, req lesson.TranscribeRequest) (lesson.TranscriptionReport, error)
	GenerateTTS(ctx context.Context, req lesson.TTSRequest) ([]lesson.SentenceRecord, error)
}

// Registry maps job kinds to handlers.
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry returns a registry holding the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[Kind]Handler, len(handlers))}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// DefaultRegistry registers a handler for every supported kind.
func DefaultRegistry(p Pipeline, logger *slog.Logger) *Registry {
	return NewRegistry(
		&ProcessLessonHandler{pipeline: p, logger: logger},
		&ResliceAudioHandler{pipeline: p},
		&GenerateTTSLessonHandler{pipeline: p},
		&TranscribeAudioHandler{pipeline: p},
	)
}

// Register adds or replaces the handler for h.Kind().
func (r *Registry) Register(h Handler) {
	r.handlers[h.Kind()] = h
}

// Get returns the handler for kind.
func (r *Registry) Get(kind Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Dispatch validates and runs job with its registered handler.
func (r *Registry) Dispatch(ctx context.Context, job *Job) (Result, error) {
	h, ok := r.Get(job.Kind)
	if !ok {
		return Result{}, UnknownKindError(job.Kind)
	}
	if err := h.Validate(job); err != nil {
		return Result{}, err
	}
	return h.Handle(ctx, job)
}

// UnknownKindError reports a job type with no handler.
func UnknownKindError(kind Kind) error {
	return services.NewUserError(services.ErrValidation, fmt.Sprintf("Unknown job type: %s", kind))
}

// ProcessLessonHandler runs PROCESS_LESSON.
type ProcessLessonHandler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

func (h *ProcessLessonHandler) Kind() Kind { return KindProcessLesson }

func (h *ProcessLessonHandler) Validate(job *Job) error {
	return job.requireLesson("id", "foreignTextRaw", "translationTextRaw", "audioOriginalPath")
}

func (h *ProcessLessonHandler) Handle(ctx context.Context, job *Job) (Result, error) {
	logger := logging.WithContext(ctx, logging.FromContext(ctx, h.logger))
	l := job.ToLesson(func(err error) {
		logging.WarnWithContext(logger, "failed to parse cached transcription", "cached_transcription_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "audio will be transcribed again"),
		)
	})
	if l.Cached != nil {
		logger.Info("found cached transcription", logging.Bool("empty", l.Cached.Empty()))
	}
	sentences, err := h.pipeline.Process(ctx, l)
	if err != nil {
		return Result{}, err
	}
	return Result{Sentences: sentences}, nil
}

// ResliceAudioHandler runs RESLICE_AUDIO.
type ResliceAudioHandler struct {
	pipeline Pipeline
}

func (h *ResliceAudioHandler) Kind() Kind { return KindResliceAudio }

func (h *ResliceAudioHandler) Validate(job *Job) error {
	if err := job.requireLesson(); err != nil {
		return err
	}
	if job.Lesson.AudioOriginalPath == nil {
		return invalid("Missing audioOriginalPath in lesson")
	}
	if len(job.Sentences) == 0 {
		return invalid("No sentence data for reslice job")
	}
	return nil
}

func (h *ResliceAudioHandler) Handle(ctx context.Context, job *Job) (Result, error) {
	updated, err := h.pipeline.Reslice(ctx, str(job.Lesson.ID), str(job.Lesson.AudioOriginalPath), job.Sentences)
	if err != nil {
		return Result{}, err
	}
	return Result{UpdatedSentences: updated}, nil
}

// GenerateTTSLessonHandler runs GENERATE_TTS_LESSON.
type GenerateTTSLessonHandler struct {
	pipeline Pipeline
}

func (h *GenerateTTSLessonHandler) Kind() Kind { return KindGenerateTTSLesson }

func (h *GenerateTTSLessonHandler) Validate(job *Job) error {
	if err := job.requireLesson("id", "foreignTextRaw", "translationTextRaw"); err != nil {
		return err
	}
	_, err := job.TTSPayload()
	return err
}

func (h *GenerateTTSLessonHandler) Handle(ctx context.Context, job *Job) (Result, error) {
	payload, err := job.TTSPayload()
	if err != nil {
		return Result{}, err
	}
	mode := lesson.SpeakerModeArticle
	if payload.SpeakerMode == string(lesson.SpeakerModeDialog) {
		mode = lesson.SpeakerModeDialog
	}
	l := job.ToLesson(nil)
	l.Cached = nil
	sentences, err := h.pipeline.GenerateTTS(ctx, lesson.TTSRequest{
		Lesson:   l,
		Provider: payload.Provider,
		Voice:    payload.VoiceName,
		Voice2:   payload.Voice2Name,
		Model:    payload.TTSModel,
		Mode:     mode,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Sentences: sentences}, nil
}

// TranscribeAudioHandler runs TRANSCRIBE_AUDIO.
type TranscribeAudioHandler struct {
	pipeline Pipeline
}

func (h *TranscribeAudioHandler) Kind() Kind { return KindTranscribeAudio }

func (h *TranscribeAudioHandler) Validate(job *Job) error {
	_, err := job.TranscribePayload()
	return err
}

func (h *TranscribeAudioHandler) Handle(ctx context.Context, job *Job) (Result, error) {
	payload, err := job.TranscribePayload()
	if err != nil {
		return Result{}, err
	}
	if job.AudioFile == nil {
		return Result{}, invalid("No audio file data in job")
	}
	report, err := h.pipeline.Transcribe(ctx, lesson.TranscribeRequest{
		AudioFileID: *payload.AudioFileID,
		AudioPath:   job.AudioFile.FilePath,
		Language:    payload.Language,
		Model:       payload.WhisperModel,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Data: report}, nil
}
