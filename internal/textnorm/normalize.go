// Package textnorm canonicalizes text for fuzzy comparison between a written
// script and transcribed speech.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// Punctuation stripped before comparison. Covers the ASCII marks that show up
// in scripts plus the CJK marks common in mixed-language material.
var punctuation = map[rune]struct{}{
	'.': {}, ',': {}, '/': {}, '#': {}, '!': {}, '$': {}, '%': {},
	'^': {}, '&': {}, '*': {}, ';': {}, ':': {}, '{': {}, '}': {},
	'=': {}, '-': {}, '_': {}, '`': {}, '~': {}, '(': {}, ')': {},
	'。': {}, '、': {}, '？': {}, '「': {}, '」': {}, '…': {},
}

// Normalize lowercases text and strips the punctuation set. Whitespace is
// preserved. The function is pure and idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded := lower.String(text)
	return strings.Map(func(r rune) rune {
		if _, ok := punctuation[r]; ok {
			return -1
		}
		return r
	}, folded)
}
