package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"readrepeat/internal/align"
	"readrepeat/internal/logging"
	"readrepeat/internal/media/wavfile"
)

// Slicer defaults.
const (
	DefaultPaddingMS     = 200
	DefaultPlaceholderMS = 1000
	DefaultConcurrency   = 4
)

// Clip is the outcome of slicing one sentence.
type Clip struct {
	Index       int
	Path        string
	StartMS     int
	EndMS       int
	Placeholder bool
}

// Slicer cuts per-sentence clips out of a normalized recording.
type Slicer struct {
	tool          *Tool
	paddingMS     int
	placeholderMS int
	concurrency   int
	logger        *slog.Logger
}

// SlicerOption configures a Slicer.
type SlicerOption func(*Slicer)

// WithPadding sets the padding added on each side of a clip.
func WithPadding(ms int) SlicerOption {
	return func(s *Slicer) {
		if ms >= 0 {
			s.paddingMS = ms
		}
	}
}

// WithPlaceholderDuration sets the length of silent placeholder clips.
func WithPlaceholderDuration(ms int) SlicerOption {
	return func(s *Slicer) {
		if ms > 0 {
			s.placeholderMS = ms
		}
	}
}

// WithConcurrency bounds the number of concurrent ffmpeg cuts.
func WithConcurrency(n int) SlicerOption {
	return func(s *Slicer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSlicerLogger attaches a logger.
func WithSlicerLogger(logger *slog.Logger) SlicerOption {
	return func(s *Slicer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSlicer constructs a Slicer backed by tool.
func NewSlicer(tool *Tool, opts ...SlicerOption) *Slicer {
	s := &Slicer{
		tool:          tool,
		paddingMS:     DefaultPaddingMS,
		placeholderMS: DefaultPlaceholderMS,
		concurrency:   DefaultConcurrency,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slice writes outDir/<idx>.wav for every timing and returns the clips in
// input order. Unaligned timings and failed cuts produce silent placeholders;
// only filesystem errors and cancellation abort the run.
func (s *Slicer) Slice(ctx context.Context, audioPath string, timings []align.Timing, outDir string) ([]Clip, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure clips directory: %w", err)
	}

	clips := make([]Clip, len(timings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for idx, timing := range timings {
		g.Go(func() error {
			clip, err := s.sliceOne(gctx, audioPath, idx, timing, outDir)
			if err != nil {
				return err
			}
			clips[idx] = clip
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	placeholders := 0
	for _, clip := range clips {
		if clip.Placeholder {
			placeholders++
		}
	}
	s.logger.Info("clips sliced",
		logging.Int("clip_count", len(clips)),
		logging.Int("placeholder_count", placeholders),
		logging.String("clips_dir", outDir),
	)
	return clips, nil
}

func (s *Slicer) sliceOne(ctx context.Context, audioPath string, idx int, timing align.Timing, outDir string) (Clip, error) {
	if err := ctx.Err(); err != nil {
		return Clip{}, err
	}
	path := filepath.Join(outDir, strconv.Itoa(idx)+".wav")
	start := max(0, timing.StartMS-s.paddingMS)
	end := timing.EndMS + s.paddingMS
	clip := Clip{Index: idx, Path: path, StartMS: start, EndMS: end}

	if !timing.Aligned() || end-start <= 0 {
		return s.placeholder(clip)
	}
	if err := s.tool.Cut(ctx, audioPath, path, start, end-start); err != nil {
		if ctx.Err() != nil {
			return Clip{}, ctx.Err()
		}
		s.logger.Warn("clip extraction failed; writing placeholder",
			logging.Int("sentence_index", idx),
			logging.Error(err),
			logging.String(logging.FieldEventType, "clip_placeholder"),
			logging.String(logging.FieldErrorHint, "check the normalized audio and ffmpeg installation"),
		)
		return s.placeholder(clip)
	}
	return clip, nil
}

func (s *Slicer) placeholder(clip Clip) (Clip, error) {
	if err := wavfile.WriteSilence(clip.Path, s.placeholderMS, wavfile.DefaultSampleRate); err != nil {
		return Clip{}, fmt.Errorf("write placeholder clip %d: %w", clip.Index, err)
	}
	clip.Placeholder = true
	clip.StartMS = 0
	clip.EndMS = 0
	return clip, nil
}
