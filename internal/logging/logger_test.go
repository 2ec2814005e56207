package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"readrepeat/internal/config"
	"readrepeat/internal/logging"
	"readrepeat/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("worker started", logging.String("source", "api"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "readrepeat.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"worker started"`) {
		t.Fatalf("expected json message in log file, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerRendersJobSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-9")
	ctx = services.WithStage(ctx, "align")
	logger = logging.NewComponentLogger(logging.WithContext(ctx, logger), "lesson")
	logger.Info("aligned sentences", logging.Int("matched", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO", "[lesson]", "Job job-9 (align)", "aligned sentences", "matched=3"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "debug",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJobLoggerTeesToJSONFile(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "base.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", Outputs: []string{basePath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	dir := t.TempDir()
	jobLog, err := logging.NewJobLogger(base, dir, "job/../42")
	if err != nil {
		t.Fatalf("NewJobLogger returned error: %v", err)
	}
	jobLog.Logger.Debug("debug detail")
	jobLog.Logger.Warn("clip placeholder", logging.Error(errors.New("ffmpeg exited 1")))
	if err := jobLog.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if filepath.Dir(jobLog.Path) != dir {
		t.Fatalf("job log escaped directory: %q", jobLog.Path)
	}
	data, err := os.ReadFile(jobLog.Path)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected debug and warn records in job log, got %d: %q", len(lines), data)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &record); err != nil {
		t.Fatalf("job log line is not json: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "clip placeholder" {
		t.Fatalf("unexpected record: %v", record)
	}

	baseData, err := os.ReadFile(basePath)
	if err != nil {
		t.Fatalf("read base log: %v", err)
	}
	if strings.Contains(string(baseData), "debug detail") {
		t.Fatal("base logger should still filter debug records")
	}
	if !strings.Contains(string(baseData), "clip placeholder") {
		t.Fatal("base logger should receive warn record")
	}
}

func TestWarnWithContextAddsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "transcript missing", "alignment_no_transcript")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, fragment := range []string{`"event_type":"alignment_no_transcript"`, `"error_hint"`, `"impact"`} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("expected %s in %q", fragment, data)
		}
	}
}

func TestPruneJobLogs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.RetentionDays = 7
	dir := cfg.JobLogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	oldPath := filepath.Join(dir, "old.log")
	newPath := filepath.Join(dir, "new.log")
	for _, p := range []string{oldPath, newPath} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatal(err)
	}

	if n := logging.PruneJobLogs(logging.NewNop(), &cfg); n != 1 {
		t.Fatalf("expected 1 log pruned, got %d", n)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatalf("expected recent log kept: %v", err)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	fallback := logging.NewNop()
	if got := logging.FromContext(context.Background(), fallback); got != fallback {
		t.Fatal("expected fallback logger")
	}
	attached := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := logging.IntoContext(context.Background(), attached)
	if got := logging.FromContext(ctx, fallback); got != attached {
		t.Fatal("expected attached logger")
	}
	if logging.FromContext(context.Background(), nil) == nil {
		t.Fatal("expected nop logger when no fallback")
	}
}
