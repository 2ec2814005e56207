package testsupport

import (
	"path/filepath"
	"testing"

	"readrepeat/internal/config"
)

// NewConfig returns a validated config whose data and log directories live
// under a per-test temp dir. The worker reads from the local queue and
// retention is off. Mutators run before validation.
func NewConfig(t testing.TB, mutate ...func(*config.Config)) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.QueueDB = filepath.Join(base, "data", "queue.db")
	cfg.API.BaseURL = "http://127.0.0.1:0"
	cfg.API.PollIntervalSeconds = 1
	cfg.Worker.Source = "queue"
	cfg.Logging.RetentionDays = 0

	for _, fn := range mutate {
		fn(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
