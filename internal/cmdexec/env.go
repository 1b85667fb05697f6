package cmdexec

import (
	"os"
	"sort"
	"strings"
)

// buildEnv merges overrides onto the sanitized parent environment.
func buildEnv(overrides map[string]string) []string {
	env := SanitizeEnviron(os.Environ())
	if len(overrides) == 0 {
		return env
	}
	merged := make([]string, 0, len(env)+len(overrides))
	for _, entry := range env {
		key, _, ok := strings.Cut(entry, "=")
		if ok {
			if _, shadowed := overrides[key]; shadowed {
				continue
			}
		}
		merged = append(merged, entry)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		merged = append(merged, key+"="+overrides[key])
	}
	return merged
}

// SanitizeEnviron drops PATH entries that point into bundled ML runtimes.
// A child ffmpeg that resolves shared libraries out of a torch or cuda wheel
// directory crashes with mismatched library versions.
func SanitizeEnviron(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if ok && key == "PATH" {
			out = append(out, "PATH="+sanitizePath(value))
			continue
		}
		out = append(out, entry)
	}
	return out
}

func sanitizePath(path string) string {
	parts := strings.Split(path, string(os.PathListSeparator))
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered := strings.ToLower(part)
		if strings.Contains(lowered, "torch") || strings.Contains(lowered, "cuda") {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, string(os.PathListSeparator))
}
