package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"readrepeat/internal/align"
	"readrepeat/internal/config"
	langpkg "readrepeat/internal/language"
	"readrepeat/internal/logging"
	"readrepeat/internal/services"
)

// BackendWhisperX names the WhisperX subprocess backend.
const BackendWhisperX = "whisperx"

// WhisperX invocation constants.
const (
	UVXCommand     = "uvx"
	CUDAIndexURL   = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL   = "https://pypi.org/simple"
	BatchSize      = "4"
	OutputFormat   = "json"
	VADMethod      = "silero"
	CUDADevice     = "cuda"
	CPUDevice      = "cpu"
	CPUComputeType = "int8"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// WhisperX transcribes by running WhisperX through uvx.
type WhisperX struct {
	cfg    config.Whisper
	model  string
	run    Runner
	logger *slog.Logger
}

// WhisperXOption configures the backend.
type WhisperXOption func(*WhisperX)

// WithRunner overrides command execution (primarily for tests).
func WithRunner(r Runner) WhisperXOption {
	return func(w *WhisperX) {
		if r != nil {
			w.run = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) WhisperXOption {
	return func(w *WhisperX) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWhisperX constructs the backend for one model.
func NewWhisperX(cfg config.Whisper, model string, opts ...WhisperXOption) *WhisperX {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	w := &WhisperX{cfg: cfg, model: model, run: execRunner, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Model returns the bound model name.
func (w *WhisperX) Model() string {
	return w.model
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return cmd.CombinedOutput()
}

// Transcribe runs WhisperX on audioPath. Output JSON lands in a scratch
// directory next to the audio and is removed afterwards.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath, language, _ string) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, services.NewUserError(services.ErrValidation, "transcribe: audio path required")
	}
	if _, err := os.Stat(audioPath); err != nil {
		return Result{}, services.NewUserError(services.ErrNotFound, "Audio file not found: "+audioPath)
	}
	outputDir, err := os.MkdirTemp(filepath.Dir(audioPath), "whisperx-")
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	command := strings.TrimSpace(w.cfg.Command)
	if command == "" {
		command = UVXCommand
	}
	args := w.buildArgs(audioPath, outputDir, language)
	w.logger.Info("running whisperx",
		logging.String("model", w.model),
		logging.String("device", w.device()),
		logging.String("language", langpkg.Base(language)),
	)
	if output, err := w.run(ctx, command, args...); err != nil {
		detail := fmt.Errorf("%s: %w: %s", command, err, strings.TrimSpace(string(output)))
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", "Transcription failed", detail)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	result, err := loadOutput(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "parse whisperx output", "Transcription output unreadable", err)
	}
	if result.Language == "" {
		result.Language = langpkg.Base(language)
	}
	w.logger.Info("whisperx finished",
		logging.Int("word_count", len(result.Words)),
		logging.String("detected_language", result.Language),
		logging.Float64("duration_seconds", result.Duration),
	)
	return result, nil
}

func (w *WhisperX) device() string {
	if strings.EqualFold(strings.TrimSpace(w.cfg.Device), CUDADevice) {
		return CUDADevice
	}
	return CPUDevice
}

func (w *WhisperX) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 24)
	cuda := w.device() == CUDADevice
	if cuda {
		args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--vad_method", VADMethod,
	)
	if dir := strings.TrimSpace(w.cfg.ModelDir); dir != "" {
		args = append(args, "--model_dir", dir)
	}
	if lang := langpkg.Base(language); lang != "" {
		args = append(args, "--language", lang)
	}
	if cuda {
		args = append(args, "--device", CUDADevice)
	} else {
		computeType := strings.TrimSpace(w.cfg.ComputeType)
		if computeType == "" {
			computeType = CPUComputeType
		}
		args = append(args, "--device", CPUDevice, "--compute_type", computeType)
	}
	return args
}

type whisperXWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score float64  `json:"score"`
}

type whisperXSegment struct {
	Start float64        `json:"start"`
	End   float64        `json:"end"`
	Words []whisperXWord `json:"words"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
	Language string            `json:"language"`
}

func loadOutput(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return parseOutput(data)
}

// parseOutput flattens WhisperX segments into words. WhisperX leaves start
// and end unset for tokens it could not align (numerals, symbols); those are
// dropped.
func parseOutput(data []byte) (Result, error) {
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	result := Result{Language: payload.Language}
	for _, seg := range payload.Segments {
		if seg.End > result.Duration {
			result.Duration = seg.End
		}
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" || w.Start == nil || w.End == nil {
				continue
			}
			result.Words = append(result.Words, align.TranscriptWord{
				Word:        text,
				Start:       *w.Start,
				End:         *w.End,
				Probability: w.Score,
			})
		}
	}
	return result, nil
}
