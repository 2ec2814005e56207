package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"readrepeat/internal/config"
	"readrepeat/internal/tts"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLessonAPI(t *testing.T) {
	var polled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/jobs") {
			polled = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckLessonAPI(context.Background(), srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if polled {
		t.Fatal("check must not hit the poll endpoint")
	}
}

func TestCheckLessonAPI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if result := CheckLessonAPI(context.Background(), srv.URL); result.Passed {
		t.Fatal("expected failure for 502")
	}
}

func TestCheckLessonAPI_MissingURL(t *testing.T) {
	if result := CheckLessonAPI(context.Background(), " "); result.Passed || result.Detail != "missing url" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	binDir := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(filepath.Join(binDir, "ffmpeg"), script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Whisper.Command = "whisperx-wrapper --flag"
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("expected ffmpeg available: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Command != "whisperx-wrapper" {
		t.Fatalf("unexpected whisper status %+v", statuses[1])
	}
}

func TestCheckTTS(t *testing.T) {
	cfg := config.Default()
	cfg.TTS.GeminiAPIKey = ""
	cfg.TTS.ChatterboxURL = ""
	if result := CheckTTS(context.Background(), tts.FromConfig(&cfg, nil, nil)); result.Passed {
		t.Fatalf("expected no providers, got %+v", result)
	}

	cfg.TTS.GeminiAPIKey = "key"
	result := CheckTTS(context.Background(), tts.FromConfig(&cfg, nil, nil))
	if !result.Passed || result.Detail != "gemini" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_QueueSourceSkipsAPI(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Worker.Source = "queue"
	cfg.TTS.ChatterboxURL = ""

	results := RunAll(context.Background(), &cfg)
	for _, r := range results {
		if r.Name == "Lesson API" {
			t.Fatal("lesson api should not be checked for the queue source")
		}
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if !results[0].Passed || !results[1].Passed {
		t.Fatalf("directory checks failed: %+v", results[:2])
	}
	failed := Failed(results)
	for _, r := range failed {
		if r.Name == "Data directory" {
			t.Fatal("Failed returned a passing check")
		}
	}
}
