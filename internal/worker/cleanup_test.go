package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestCleanupJobRunUsesRetention(t *testing.T) {
	var buf bytes.Buffer
	store := &fakePruner{deleted: 3}
	job := NewCleanupJob(store, newTestLogger(&buf))
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	job.Now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, now.Add(-7*24*time.Hour), store.cutoffs[0])

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "refresh token cleanup finished", entry["msg"])
	assert.Equal(t, float64(3), entry["deleted_count"])
}

func TestCleanupJobRunReportsError(t *testing.T) {
	var buf bytes.Buffer
	store := &fakePruner{err: errors.New("db down")}
	job := NewCleanupJob(store, newTestLogger(&buf))

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestCleanupJobStartStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	store := &fakePruner{}
	job := NewCleanupJob(store, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
