// Package align matches script items to transcribed words by a greedy
// forward pass over a shared word cursor.
package align

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/datnguyenn1231-bot/autoappv2/internal/asr"
	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
	"github.com/datnguyenn1231-bot/autoappv2/internal/script"
	"github.com/datnguyenn1231-bot/autoappv2/internal/textnorm"
)

// Segment is a script item bound to a time range in the source audio.
type Segment struct {
	ScriptID int
	Start    float64
	End      float64
	Text     string
}

// Config holds the aligner tuning constants.
type Config struct {
	// RatioThreshold is the similarity a collected window must exceed to
	// close the current item.
	RatioThreshold float64
	// OverrunSlack is how many normalized characters the window may exceed
	// the target before the item is closed anyway.
	OverrunSlack int
	// SafetyCap bounds raw collected characters per item so one bad match
	// cannot swallow the rest of the transcript.
	SafetyCap int
	// ReclaimInterval is how many items to process between reclaim calls.
	ReclaimInterval int
}

// DefaultConfig returns the empirically tuned constants.
func DefaultConfig() Config {
	return Config{
		RatioThreshold:  0.85,
		OverrunSlack:    20,
		SafetyCap:       5000,
		ReclaimInterval: 20,
	}
}

// Aligner performs the greedy matching pass.
type Aligner struct {
	cfg       Config
	logger    *slog.Logger
	cancelled func() bool
	reclaim   func()
}

// Option customizes an Aligner.
type Option func(*Aligner)

// WithCancelCheck installs a stop-flag probe consulted between items.
func WithCancelCheck(cancelled func() bool) Option {
	return func(a *Aligner) { a.cancelled = cancelled }
}

// WithReclaim installs a hook invoked every ReclaimInterval items.
func WithReclaim(reclaim func()) Option {
	return func(a *Aligner) { a.reclaim = reclaim }
}

// New constructs an Aligner. Zero config fields fall back to defaults.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Aligner {
	def := DefaultConfig()
	if cfg.RatioThreshold <= 0 {
		cfg.RatioThreshold = def.RatioThreshold
	}
	if cfg.OverrunSlack <= 0 {
		cfg.OverrunSlack = def.OverrunSlack
	}
	if cfg.SafetyCap <= 0 {
		cfg.SafetyCap = def.SafetyCap
	}
	if cfg.ReclaimInterval <= 0 {
		cfg.ReclaimInterval = def.ReclaimInterval
	}
	a := &Aligner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "aligner"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align walks items in order, consuming words left to right. The word cursor
// never moves backwards, so each word is claimed by at most one item. Items
// that collect no words are skipped without advancing the cursor; later items
// still see the full remaining transcript.
func (a *Aligner) Align(items []script.Item, words []asr.Word) []Segment {
	segments := make([]Segment, 0, len(items))
	cursor := 0

	for index, item := range items {
		if a.cancelled != nil && a.cancelled() {
			a.logger.Info("alignment stopped",
				logging.Int("matched", len(segments)),
				logging.Int("remaining", len(items)-index))
			break
		}

		target := textnorm.Normalize(item.Text)
		if target == "" {
			a.logger.Debug("empty item skipped", logging.Int(logging.FieldScriptID, item.ID))
			continue
		}
		targetLen := utf8.RuneCountInString(target)

		var collected string
		var claimed []asr.Word

		for cursor < len(words) {
			word := words[cursor]
			collected += " " + word.Text
			claimed = append(claimed, word)
			cursor++

			// Cap applies to the raw window, before any similarity math.
			if utf8.RuneCountInString(collected) > a.cfg.SafetyCap {
				a.logger.Warn("safety cap reached",
					logging.Int(logging.FieldScriptID, item.ID),
					logging.Int("cap", a.cfg.SafetyCap))
				break
			}
			// Too short to plausibly match yet; keep collecting without
			// paying for a ratio computation.
			if float64(utf8.RuneCountInString(collected)) < float64(targetLen)*0.5 {
				continue
			}
			normalized := strings.TrimSpace(textnorm.Normalize(collected))
			ratio := textnorm.Ratio(normalized, target)
			if ratio > a.cfg.RatioThreshold ||
				utf8.RuneCountInString(normalized) > targetLen+a.cfg.OverrunSlack {
				break
			}
		}

		if len(claimed) == 0 {
			a.logger.Warn("no words left for item", logging.Int(logging.FieldScriptID, item.ID))
			continue
		}

		start := claimed[0].Start
		end := claimed[len(claimed)-1].End
		if end <= 0 {
			// Last word has no placed end boundary; emit a minimal span
			// rather than an empty or inverted one.
			end = start + 0.1
		}
		segments = append(segments, Segment{
			ScriptID: item.ID,
			Start:    start,
			End:      end,
			Text:     item.Text,
		})
		a.logger.Debug("item matched",
			logging.Int(logging.FieldScriptID, item.ID),
			logging.Float64("start", start),
			logging.Float64("end", end),
			logging.Int("words", len(claimed)))

		if a.reclaim != nil && index > 0 && index%a.cfg.ReclaimInterval == 0 {
			a.reclaim()
		}
	}

	a.logger.Info("alignment finished",
		logging.Int("items", len(items)),
		logging.Int("matched", len(segments)),
		logging.Int("words_consumed", cursor),
		logging.Int("words_total", len(words)))
	return segments
}
