package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"readrepeat/internal/logging"
	"readrepeat/internal/media/wavfile"
	"readrepeat/internal/services"
)

// NormalizedFileName is the name of the normalized recording inside a lesson
// directory.
const NormalizedFileName = "normalized.wav"

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Tool invokes ffmpeg.
type Tool struct {
	binary string
	run    Runner
	logger *slog.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithRunner overrides command execution (primarily for tests).
func WithRunner(r Runner) Option {
	return func(t *Tool) {
		if r != nil {
			t.run = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New constructs a Tool for the given binary ("ffmpeg" when empty).
func New(binary string, opts ...Option) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	t := &Tool{binary: binary, run: execRunner, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Binary returns the configured executable.
func (t *Tool) Binary() string {
	return t.binary
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

func (t *Tool) exec(ctx context.Context, operation string, args ...string) error {
	output, err := t.run(ctx, t.binary, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", operation, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Normalize converts input into outDir/normalized.wav (16 kHz mono s16le) and
// returns the output path.
func (t *Tool) Normalize(ctx context.Context, input, outDir string) (string, error) {
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.NewUserError(services.ErrNotFound, "Audio file not found: "+input)
		}
		return "", fmt.Errorf("stat audio: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}
	output := filepath.Join(outDir, NormalizedFileName)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-ar", strconv.Itoa(wavfile.DefaultSampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		output,
	}
	if err := t.exec(ctx, "normalize", args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "normalize", "ffmpeg", "Audio normalization failed", err)
	}
	t.logger.Debug("audio normalized",
		logging.String("input", input),
		logging.String("output", output),
	)
	return output, nil
}

// Cut extracts [startMS, startMS+durationMS) of input into output as a
// 16 kHz mono s16le WAV.
func (t *Tool) Cut(ctx context.Context, input, output string, startMS, durationMS int) error {
	if durationMS <= 0 {
		return fmt.Errorf("ffmpeg cut: invalid duration %d", durationMS)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startMS),
		"-i", input,
		"-t", formatSeconds(durationMS),
		"-c:a", "pcm_s16le",
		"-ar", strconv.Itoa(wavfile.DefaultSampleRate),
		"-ac", "1",
		output,
	}
	return t.exec(ctx, "cut", args...)
}

func formatSeconds(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}
