// Package progress publishes machine-readable pipeline events as single-line
// JSON records. A bounded queue decouples the pipeline from slow consumers:
// publishing never blocks, and overflow drops events rather than stalling an
// encode.
package progress

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
)

// Kind classifies an event.
type Kind string

const (
	KindLog      Kind = "log"
	KindProgress Kind = "progress"
	KindResult   Kind = "result"
	KindError    Kind = "error"
)

// Event is one relay record.
type Event struct {
	Kind     Kind    `json:"type"`
	Message  string  `json:"message,omitempty"`
	Percent  float64 `json:"percent,omitempty"`
	ScriptID int     `json:"script_id,omitempty"`
	Stage    string  `json:"stage,omitempty"`
}

const defaultCapacity = 256

// Relay fans events out to a writer from a dedicated consumer goroutine.
type Relay struct {
	logger *slog.Logger
	writer io.Writer

	ch   chan Event
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewRelay starts a relay writing to w. capacity <= 0 uses the default.
func NewRelay(w io.Writer, capacity int, logger *slog.Logger) *Relay {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	r := &Relay{
		logger: logging.NewComponentLogger(logger, "progress"),
		writer: w,
		ch:     make(chan Event, capacity),
		done:   make(chan struct{}),
	}
	go r.consume()
	return r
}

// Publish enqueues an event without blocking. Events published after Close or
// into a full queue are counted and dropped.
func (r *Relay) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- event:
	default:
		r.dropped++
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (r *Relay) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting events, drains the queue, and joins the consumer.
// Returns false if the consumer did not finish within timeout.
func (r *Relay) Close(timeout time.Duration) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return true
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	select {
	case <-r.done:
		if dropped := r.Dropped(); dropped > 0 {
			r.logger.Warn("events dropped", logging.Int("count", dropped))
		}
		return true
	case <-time.After(timeout):
		r.logger.Warn("consumer did not drain in time")
		return false
	}
}

func (r *Relay) consume() {
	defer close(r.done)
	encoder := json.NewEncoder(r.writer)
	for event := range r.ch {
		event.Message = sanitize(event.Message)
		if err := encoder.Encode(event); err != nil {
			r.logger.Debug("event write failed", logging.Error(err))
		}
	}
}

// sanitize keeps every record on one line so downstream parsers can treat the
// stream as JSONL.
func sanitize(message string) string {
	if !strings.ContainsAny(message, "\r\n") {
		return message
	}
	message = strings.ReplaceAll(message, "\r\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	return strings.ReplaceAll(message, "\n", " ")
}
