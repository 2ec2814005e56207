package lesson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"readrepeat/internal/align"
	"readrepeat/internal/config"
	"readrepeat/internal/logging"
	"readrepeat/internal/media/ffmpeg"
	"readrepeat/internal/segment"
	"readrepeat/internal/services"
	"readrepeat/internal/transcribe"
	"readrepeat/internal/tts"
)

// ClipsDirName is the per-lesson directory holding sentence clips.
const ClipsDirName = "clips"

// Normalizer converts a recording into the pipeline's working format.
type Normalizer interface {
	Normalize(ctx context.Context, input, outDir string) (string, error)
}

// Slicer cuts one clip per timing.
type Slicer interface {
	Slice(ctx context.Context, audioPath string, timings []align.Timing, outDir string) ([]ffmpeg.Clip, error)
}

// Speech resolves text-to-speech providers.
type Speech interface {
	Get(id string) (tts.Provider, error)
	Default(ctx context.Context) (tts.Provider, error)
}

// Processor runs lesson jobs. It is safe for concurrent use when its
// collaborators are.
type Processor struct {
	cfg         *config.Config
	normalizer  Normalizer
	slicer      Slicer
	transcriber transcribe.Transcriber
	aligner     *align.Aligner
	speech      Speech
	logger      *slog.Logger
	newID       func() string
}

// Option customizes a Processor.
type Option func(*Processor)

// WithNormalizer replaces ffmpeg normalization.
func WithNormalizer(n Normalizer) Option {
	return func(p *Processor) { p.normalizer = n }
}

// WithSlicer replaces the ffmpeg clip slicer.
func WithSlicer(s Slicer) Option {
	return func(p *Processor) { p.slicer = s }
}

// WithAligner replaces the default aligner, typically to attach an observer.
func WithAligner(a *align.Aligner) Option {
	return func(p *Processor) { p.aligner = a }
}

// WithSpeech replaces the text-to-speech provider registry.
func WithSpeech(s Speech) Option {
	return func(p *Processor) { p.speech = s }
}

// WithTranscriber replaces the configured speech recognition backend.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(p *Processor) { p.transcriber = t }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIDGenerator overrides sentence id generation (primarily for tests).
func WithIDGenerator(fn func() string) Option {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New builds a Processor from configuration. Collaborators not supplied via
// options are constructed from cfg.
func New(cfg *config.Config, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, services.NewUserError(services.ErrConfiguration, "lesson processor requires configuration")
	}
	p := &Processor{cfg: cfg, logger: logging.NewNop(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(p)
	}
	if p.normalizer == nil || p.slicer == nil {
		tool := ffmpeg.New(cfg.FFmpegBinary(), ffmpeg.WithLogger(p.logger))
		if p.normalizer == nil {
			p.normalizer = tool
		}
		if p.slicer == nil {
			p.slicer = ffmpeg.NewSlicer(tool,
				ffmpeg.WithPadding(cfg.Slicing.PaddingMS),
				ffmpeg.WithPlaceholderDuration(cfg.Slicing.PlaceholderMS),
				ffmpeg.WithConcurrency(cfg.Slicing.Concurrency),
				ffmpeg.WithSlicerLogger(p.logger),
			)
		}
	}
	if p.transcriber == nil {
		cache, err := transcribe.DefaultRegistry(transcribe.WithLogger(p.logger)).Cache(cfg.Whisper)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "init", "transcription backend", "Unsupported transcription backend", err)
		}
		p.transcriber = cache
	}
	if p.aligner == nil {
		p.aligner = align.New(align.WithLogger(p.logger))
	}
	if p.speech == nil {
		p.speech = tts.FromConfig(cfg, nil, p.logger)
	}
	return p, nil
}

func (p *Processor) stageLogger(ctx context.Context, stage string) (context.Context, *slog.Logger) {
	ctx = services.WithStage(ctx, stage)
	return ctx, logging.WithContext(ctx, logging.FromContext(ctx, p.logger))
}

// Process segments, transcribes, aligns and slices a lesson.
func (p *Processor) Process(ctx context.Context, lesson Lesson) ([]SentenceRecord, error) {
	lesson = p.withDefaults(lesson)
	ctx = services.WithLessonID(ctx, lesson.ID)
	logger := logging.WithContext(ctx, logging.FromContext(ctx, p.logger))
	logger.Info("processing lesson", logging.String("audio_path", lesson.AudioPath))

	foreign, translation := segment.AlignParallel(
		lesson.ForeignText, lesson.TranslationText,
		lesson.ForeignLang, lesson.TranslationLang,
		segment.WithMinWords(p.cfg.Segmentation.MinWords),
	)
	logger.Info("texts segmented",
		logging.Int("foreign_sentences", len(foreign)),
		logging.Int("translation_sentences", len(translation)),
	)
	if len(foreign) == 0 {
		return nil, services.NewUserError(services.ErrValidation, "No sentences found in foreign text")
	}

	lessonDir := filepath.Dir(lesson.AudioPath)
	normCtx, _ := p.stageLogger(ctx, "normalize")
	normalized, err := p.normalizer.Normalize(normCtx, lesson.AudioPath, lessonDir)
	if err != nil {
		return nil, err
	}

	words, err := p.words(ctx, lesson, normalized)
	if err != nil {
		return nil, err
	}

	alignCtx, alignLogger := p.stageLogger(ctx, "align")
	timings, err := p.aligner.AlignChecked(foreign, words)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, align.ErrInvalidTranscript) {
			marker = services.ErrValidation
		}
		return nil, services.Wrap(marker, "align", "validate transcript", "Transcript timings are inconsistent", err)
	}
	aligned := 0
	for _, t := range timings {
		if t.Aligned() {
			aligned++
		}
	}
	alignLogger.Info("sentences aligned",
		logging.Int("sentence_count", len(timings)),
		logging.Int("aligned_count", aligned),
	)

	sliceCtx, _ := p.stageLogger(alignCtx, "slice")
	clips, err := p.slicer.Slice(sliceCtx, normalized, timings, filepath.Join(lessonDir, ClipsDirName))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "slice", "cut clips", "Audio slicing failed", err)
	}

	mapped := segment.MapTranslations(foreign, translation)
	records := make([]SentenceRecord, len(foreign))
	for i, text := range foreign {
		records[i] = SentenceRecord{
			ID:              p.newID(),
			Idx:             i,
			ForeignText:     text,
			TranslationText: mapped[i],
			StartMS:         timings[i].StartMS,
			EndMS:           timings[i].EndMS,
			ClipPath:        clips[i].Path,
			Confidence:      timings[i].Confidence,
		}
	}
	logger.Info("lesson processed", logging.Int("sentence_count", len(records)))
	return records, nil
}

func (p *Processor) words(ctx context.Context, lesson Lesson, normalized string) ([]align.TranscriptWord, error) {
	ctx, logger := p.stageLogger(ctx, "transcribe")
	if !lesson.Cached.Empty() {
		words := lesson.Cached.Words()
		logger.Info("reusing cached transcription", logging.Int("word_count", len(words)))
		return words, nil
	}
	result, err := p.transcriber.Transcribe(ctx, normalized, lesson.ForeignLang, lesson.WhisperModel)
	if err != nil {
		return nil, err
	}
	if len(result.Words) == 0 {
		logging.WarnWithContext(logger, "no words transcribed from audio", "transcript_empty",
			logging.String(logging.FieldErrorHint, "check the recording contains speech in "+lesson.ForeignLang),
			logging.String(logging.FieldImpact, "every clip will be a silent placeholder"),
		)
	}
	return result.Words, nil
}

func (p *Processor) withDefaults(lesson Lesson) Lesson {
	lesson.AudioPath = p.cfg.ResolveDataPath(lesson.AudioPath)
	if strings.TrimSpace(lesson.ForeignLang) == "" {
		lesson.ForeignLang = p.cfg.Segmentation.ForeignLanguage
	}
	if strings.TrimSpace(lesson.TranslationLang) == "" {
		lesson.TranslationLang = p.cfg.Segmentation.TranslationLang
	}
	if strings.TrimSpace(lesson.WhisperModel) == "" {
		lesson.WhisperModel = p.cfg.Whisper.Model
	}
	return lesson
}

// Reslice recuts clips from stored timings. The normalized recording is
// reused when present and the old clips directory is replaced.
func (p *Processor) Reslice(ctx context.Context, lessonID, audioPath string, sentences []SentenceTiming) ([]ClipUpdate, error) {
	ctx = services.WithLessonID(ctx, lessonID)
	ctx, logger := p.stageLogger(ctx, "reslice")
	audioPath = p.cfg.ResolveDataPath(audioPath)
	lessonDir := filepath.Dir(audioPath)
	logger.Info("reslicing lesson", logging.Int("sentence_count", len(sentences)))

	normalized := filepath.Join(lessonDir, ffmpeg.NormalizedFileName)
	if _, err := os.Stat(normalized); err != nil {
		logger.Info("normalized audio missing; normalizing")
		if normalized, err = p.normalizer.Normalize(ctx, audioPath, lessonDir); err != nil {
			return nil, err
		}
	}

	clipsDir := filepath.Join(lessonDir, ClipsDirName)
	if err := os.RemoveAll(clipsDir); err != nil {
		return nil, fmt.Errorf("remove old clips: %w", err)
	}

	timings := make([]align.Timing, len(sentences))
	for i, s := range sentences {
		confidence := 1.0
		if s.Confidence != nil {
			confidence = *s.Confidence
		}
		timings[i] = align.Timing{StartMS: s.StartMS, EndMS: s.EndMS, Confidence: confidence}
	}
	clips, err := p.slicer.Slice(ctx, normalized, timings, clipsDir)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "reslice", "cut clips", "Audio slicing failed", err)
	}

	updates := make([]ClipUpdate, len(sentences))
	for i, s := range sentences {
		updates[i] = ClipUpdate{ID: s.ID, ClipPath: clips[i].Path}
	}
	logger.Info("reslice complete", logging.Int("clip_count", len(updates)))
	return updates, nil
}

// Transcribe normalizes and transcribes one uploaded audio file.
func (p *Processor) Transcribe(ctx context.Context, req TranscribeRequest) (TranscriptionReport, error) {
	ctx, logger := p.stageLogger(ctx, "transcribe")
	audioPath := p.cfg.ResolveDataPath(req.AudioPath)
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = p.cfg.Whisper.Model
	}
	language := req.Language
	display := language
	if display == "" {
		display = "auto-detect"
	}
	logger.Info("transcribing audio",
		logging.String("audio_path", audioPath),
		logging.String("language", display),
		logging.String("model", model),
	)

	normalized, err := p.normalizer.Normalize(ctx, audioPath, filepath.Dir(audioPath))
	if err != nil {
		return TranscriptionReport{}, err
	}
	result, err := p.transcriber.Transcribe(ctx, normalized, language, model)
	if err != nil {
		return TranscriptionReport{}, err
	}
	if result.Words == nil {
		result.Words = []align.TranscriptWord{}
	}
	logger.Info("transcription complete",
		logging.Int("word_count", len(result.Words)),
		logging.String("detected_language", result.Language),
	)
	return TranscriptionReport{
		AudioFileID:   req.AudioFileID,
		Transcription: result,
		DurationMS:    int(result.Duration * 1000),
		Language:      result.Language,
	}, nil
}

// GenerateTTS synthesizes the lesson recording into the lesson's upload
// directory and then processes it. Dialog scripts have their speaker tags
// removed before segmentation.
func (p *Processor) GenerateTTS(ctx context.Context, req TTSRequest) ([]SentenceRecord, error) {
	lesson := req.Lesson
	ctx = services.WithLessonID(ctx, lesson.ID)
	ttsCtx, logger := p.stageLogger(ctx, "tts")

	provider, err := p.provider(ttsCtx, req.Provider)
	if err != nil {
		return nil, err
	}
	audioPath := p.cfg.LessonAudioPath(lesson.ID)
	if err := os.MkdirAll(filepath.Dir(audioPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lesson dir: %w", err)
	}

	if req.Mode == SpeakerModeDialog {
		logger.Info("generating dialog speech",
			logging.String("provider", provider.ID()),
			logging.String("voice1", req.Voice),
			logging.String("voice2", req.Voice2),
		)
		if err := provider.SynthesizeDialog(ttsCtx, lesson.ForeignText, req.Voice, req.Voice2, req.Model, audioPath); err != nil {
			return nil, err
		}
		lesson.ForeignText = segment.StripSpeakerTags(lesson.ForeignText)
		lesson.TranslationText = segment.StripSpeakerTags(lesson.TranslationText)
	} else {
		logger.Info("generating speech",
			logging.String("provider", provider.ID()),
			logging.String("voice", req.Voice),
		)
		if err := provider.Synthesize(ttsCtx, lesson.ForeignText, req.Voice, req.Model, audioPath); err != nil {
			return nil, err
		}
	}

	lesson.AudioPath = audioPath
	lesson.Cached = nil
	return p.Process(ctx, lesson)
}

func (p *Processor) provider(ctx context.Context, id string) (tts.Provider, error) {
	if strings.TrimSpace(id) != "" {
		return p.speech.Get(id)
	}
	return p.speech.Default(ctx)
}
