package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"readrepeat/internal/config"
)

// PruneJobLogs removes per-job log files older than logging.retention_days.
// A retention of 0 keeps everything. It returns the number of files removed.
func PruneJobLogs(logger *slog.Logger, cfg *config.Config) int {
	if cfg == nil || cfg.Logging.RetentionDays <= 0 {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.Logging.RetentionDays)
	removed := 0
	for _, path := range expiredLogs(cfg.JobLogDir(), cutoff) {
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "job log prune failed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions on paths.log_dir"),
				String(FieldImpact, "old job log remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("job logs pruned",
			Int("count", removed),
			Int("retention_days", cfg.Logging.RetentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

// expiredLogs lists *.log files in dir last modified before cutoff. A missing
// directory yields nothing.
func expiredLogs(dir string, cutoff time.Time) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out
}
