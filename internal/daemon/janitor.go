package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"vieux-grimoire-api/internal/logger"
)

const defaultMaxAttempts = 10

// Janitor deletes files and keeps retrying the ones that could not be removed,
// so failed deletions leave a tracked queue instead of silent orphans.
type Janitor struct {
	mu          sync.Mutex
	pending     map[string]int
	interval    time.Duration
	maxAttempts int
	remove      func(string) error
}

func NewJanitor(interval time.Duration) *Janitor {
	return &Janitor{
		pending:     make(map[string]int),
		interval:    interval,
		maxAttempts: defaultMaxAttempts,
		remove:      os.Remove,
	}
}

// Remove deletes path now. A missing file counts as removed. On failure the path is
// queued for the next sweep and the error is returned for the caller to report.
func (j *Janitor) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := j.remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	j.mu.Lock()
	j.pending[path]++
	j.mu.Unlock()

	log := logger.Get()
	log.Warn().Err(err).Str("path", path).Msg("file removal failed, queued for retry")
	return fmt.Errorf("remove %s: %w", path, err)
}

func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Sweep retries every queued path once. Paths that keep failing past maxAttempts are dropped.
func (j *Janitor) Sweep() error {
	j.mu.Lock()
	paths := make([]string, 0, len(j.pending))
	for path := range j.pending {
		paths = append(paths, path)
	}
	j.mu.Unlock()

	var result *multierror.Error
	log := logger.Get()
	for _, path := range paths {
		err := j.remove(path)

		j.mu.Lock()
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			delete(j.pending, path)
			j.mu.Unlock()
			continue
		}
		j.pending[path]++
		attempts := j.pending[path]
		if attempts >= j.maxAttempts {
			delete(j.pending, path)
		}
		j.mu.Unlock()

		if attempts >= j.maxAttempts {
			log.Error().Err(err).Str("path", path).Int("attempts", attempts).Msg("giving up on file removal")
		}
		result = multierror.Append(result, fmt.Errorf("remove %s: %w", path, err))
	}
	return result.ErrorOrNil()
}

func (j *Janitor) Run(ctx context.Context) error {
	log := logger.Get()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", j.interval).Msg("janitor started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("pending", j.Pending()).Msg("janitor stopped")
			return nil
		case <-ticker.C:
			if err := j.Sweep(); err != nil {
				log.Warn().Err(err).Int("pending", j.Pending()).Msg("janitor sweep incomplete")
			}
		}
	}
}
