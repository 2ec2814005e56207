package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"readrepeat/internal/config"
	"readrepeat/internal/deps"
	"readrepeat/internal/transcribe"
	"readrepeat/internal/tts"
)

// CheckLessonAPI verifies the lesson server answers HTTP requests. It does
// not call the poll endpoint, since polling claims a job.
func CheckLessonAPI(ctx context.Context, baseURL string) Result {
	const name = "Lesson API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	whisper := strings.TrimSpace(cfg.Whisper.Command)
	if whisper == "" {
		whisper = transcribe.UVXCommand
	}
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio normalization and clip slicing",
		},
		{
			Name:        "WhisperX",
			Command:     strings.Fields(whisper)[0],
			Description: "Required for transcription when no cached transcript exists",
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckTTS reports which speech providers are usable.
func CheckTTS(ctx context.Context, registry *tts.Registry) Result {
	const name = "TTS providers"

	var available []string
	for _, p := range registry.Providers() {
		if p.Available(ctx) {
			available = append(available, p.ID())
		}
	}
	if len(available) == 0 {
		return Result{Name: name, Detail: "none available (set GEMINI_API_KEY or start Chatterbox)"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(available, ", ")}
}
