package testsupport

import (
	"context"
	"testing"

	"readrepeat/internal/config"
	"readrepeat/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a pending job for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, kind, payloadJSON string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), kind, payloadJSON)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
