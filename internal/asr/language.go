package asr

import "strings"

// NormalizeLanguage canonicalizes a user-supplied language hint. An empty
// result means the model should autodetect.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "", "auto", "detect":
		return ""
	}
	return code
}
