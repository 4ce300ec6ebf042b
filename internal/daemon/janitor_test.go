package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_RemoveExistingAndMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload.tmp")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	j := NewJanitor(time.Minute)

	assert.NoError(t, j.Remove(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, j.Remove(path), "already gone counts as removed")
	assert.NoError(t, j.Remove(""))
	assert.Equal(t, 0, j.Pending())
}

func TestJanitor_QueuesAndRetries(t *testing.T) {
	failing := true
	j := NewJanitor(time.Minute)
	j.remove = func(string) error {
		if failing {
			return errors.New("file busy")
		}
		return nil
	}

	err := j.Remove("/tmp/locked.jpg")
	require.Error(t, err)
	assert.Equal(t, 1, j.Pending())

	assert.Error(t, j.Sweep())
	assert.Equal(t, 1, j.Pending())

	failing = false
	assert.NoError(t, j.Sweep())
	assert.Equal(t, 0, j.Pending())
}

func TestJanitor_GivesUpAfterMaxAttempts(t *testing.T) {
	j := NewJanitor(time.Minute)
	j.maxAttempts = 3
	j.remove = func(string) error { return errors.New("permission denied") }

	_ = j.Remove("a.jpg")
	_ = j.Remove("b.jpg")
	assert.Equal(t, 2, j.Pending())

	assert.Error(t, j.Sweep())
	assert.Equal(t, 2, j.Pending())

	err := j.Sweep()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Equal(t, 0, j.Pending())
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	j := NewJanitor(5 * time.Millisecond)
	calls := make(chan string, 10)
	j.remove = func(path string) error {
		calls <- path
		return nil
	}
	j.pending["queued.jpg"] = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- j.Run(ctx) }()

	select {
	case path := <-calls:
		assert.Equal(t, "queued.jpg", path)
	case <-time.After(time.Second):
		t.Fatal("janitor never swept")
	}
	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, 0, j.Pending())
}
