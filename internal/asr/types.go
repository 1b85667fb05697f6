// Package asr models transcription output and drives the WhisperX CLI.
package asr

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
)

// Word is a transcribed token with absolute timing in seconds. End can be
// zero when the alignment model could not place the word boundary.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Segment is a sentence-level unit of transcription.
type Segment struct {
	Text  string
	Start float64
	End   float64
	Words []Word
}

// Result is a full transcription.
type Result struct {
	Language string
	Segments []Segment
}

type wireWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type wireSegment struct {
	Text  string     `json:"text"`
	Start float64    `json:"start"`
	End   float64    `json:"end"`
	Words []wireWord `json:"words"`
}

type wirePayload struct {
	Language string        `json:"language"`
	Segments []wireSegment `json:"segments"`
}

// LoadResult parses a WhisperX JSON output file. Words without a start time
// carry no usable position and are dropped during decoding.
func LoadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return decodeResult(data)
}

func decodeResult(data []byte) (Result, error) {
	var payload wirePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	result := Result{
		Language: payload.Language,
		Segments: make([]Segment, 0, len(payload.Segments)),
	}
	for _, seg := range payload.Segments {
		out := Segment{Text: seg.Text, Start: seg.Start, End: seg.End}
		for _, word := range seg.Words {
			if word.Start == nil {
				continue
			}
			converted := Word{Text: word.Word, Start: *word.Start}
			if word.End != nil {
				converted.End = *word.End
			}
			out.Words = append(out.Words, converted)
		}
		result.Segments = append(result.Segments, out)
	}
	return result, nil
}

// Words flattens the result into a single timed word sequence. Segments that
// carry no word-level timing contribute one pseudo-word spanning the whole
// segment so alignment can still proceed on coarse timestamps.
func (r Result) Words(logger *slog.Logger) []Word {
	if logger == nil {
		logger = logging.NewNop()
	}
	var words []Word
	fallbacks := 0
	for _, seg := range r.Segments {
		if len(seg.Words) > 0 {
			words = append(words, seg.Words...)
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		words = append(words, Word{Text: text, Start: seg.Start, End: seg.End})
		fallbacks++
	}
	if fallbacks > 0 {
		logger.Debug("segment-level timing fallback",
			logging.Int("segments", fallbacks),
			logging.Int("words", len(words)))
	}
	return words
}
