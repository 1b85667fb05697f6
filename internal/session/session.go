// Package session owns the run-scoped mutable state: the cooperative stop
// flag, the transcription model cache, and the hand-off barrier between the
// model-heavy phase and the render phase.
package session

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
)

// ModelKey identifies a cached model instance. A cache hit requires all three
// coordinates to match; anything else is a miss and evicts the old entry.
type ModelKey struct {
	Name    string
	Device  string
	Compute string
}

// Session carries cancellation and resource state for one pipeline run.
// All methods are safe for concurrent use.
type Session struct {
	logger *slog.Logger

	stopped atomic.Bool

	mu          sync.Mutex
	modelKey    ModelKey
	modelHandle io.Closer

	settle time.Duration
}

// New constructs a Session. settle is the pause inserted by Handoff between
// releasing model resources and the first render process.
func New(settle time.Duration, logger *slog.Logger) *Session {
	return &Session{
		logger: logging.NewComponentLogger(logger, "session"),
		settle: settle,
	}
}

// RequestStop raises the stop flag. Idempotent; the flag never clears for the
// lifetime of the session.
func (s *Session) RequestStop() {
	if s.stopped.CompareAndSwap(false, true) {
		s.logger.Info("stop requested")
	}
}

// Cancelled reports whether a stop has been requested.
func (s *Session) Cancelled() bool {
	return s.stopped.Load()
}

// Model returns the cached handle when key matches the cached coordinates.
func (s *Session) Model(key ModelKey) (io.Closer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modelHandle == nil || s.modelKey != key {
		return nil, false
	}
	return s.modelHandle, true
}

// TrySetModel caches handle under key, closing any previously cached handle
// with different coordinates. Setting the same key replaces the handle.
func (s *Session) TrySetModel(key ModelKey, handle io.Closer) {
	s.mu.Lock()
	old := s.modelHandle
	oldKey := s.modelKey
	s.modelKey = key
	s.modelHandle = handle
	s.mu.Unlock()

	if old != nil && old != handle {
		s.logger.Debug("model evicted",
			logging.String("model", oldKey.Name),
			logging.String("device", oldKey.Device))
		_ = old.Close()
	}
}

// Clear drops and closes the cached model, if any.
func (s *Session) Clear() {
	s.mu.Lock()
	old := s.modelHandle
	s.modelHandle = nil
	s.modelKey = ModelKey{}
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

// Reclaim nudges the runtime to return free memory. The aligner calls this
// periodically between items.
func (s *Session) Reclaim() {
	runtime.GC()
}

// Handoff releases transcription resources and waits out the settle interval
// so accelerator memory is actually free before the first encoder process
// starts. Returns early when ctx is cancelled or a stop was requested.
func (s *Session) Handoff(ctx context.Context) error {
	s.Clear()
	runtime.GC()
	debug.FreeOSMemory()

	if s.settle <= 0 || s.Cancelled() {
		return ctx.Err()
	}
	s.logger.Debug("settling before render", logging.Duration("settle", s.settle))
	timer := time.NewTimer(s.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
