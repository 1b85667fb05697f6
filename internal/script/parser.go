// Package script parses marker-delimited voiceover scripts.
//
// A script is a plain-text document where each unit of narration is announced
// by a [V<n>] marker:
//
//	[V1] Welcome back everyone.
//	[V2] Today we look at three things.
//
// Marker ids drive output file naming, so duplicates and gaps are allowed and
// preserved as written.
package script

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

// Item is one narration unit extracted from a script.
type Item struct {
	ID   int
	Text string
}

var markerPattern = regexp.MustCompile(`(?s)\[[Vv](\d+)\]\s*([^\[]+)`)

// Parse extracts ordered items from script content. Text between a marker and
// the next '[' belongs to that marker; surrounding whitespace is trimmed.
// Non-empty input that yields no items is a format error.
func Parse(content string) ([]Item, error) {
	matches := markerPattern.FindAllStringSubmatch(content, -1)
	items := make([]Item, 0, len(matches))
	for _, match := range matches {
		id, err := strconv.Atoi(match[1])
		if err != nil {
			// Digits already guaranteed by the pattern; only overflow lands here.
			return nil, services.Wrap(services.ErrScriptFormat, "script", "parse", "marker id out of range: "+match[1], err)
		}
		items = append(items, Item{ID: id, Text: strings.TrimSpace(match[2])})
	}
	if len(items) == 0 && strings.TrimSpace(content) != "" {
		return nil, services.Wrap(services.ErrScriptFormat, "script", "parse", "no [V<n>] markers found", nil)
	}
	return items, nil
}
