package clips

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FindSourceVideo locates the source video for a script id in dir. Both bare
// and V-prefixed stems are accepted, so "7.mp4" and "V07.mov" resolve id 7.
// Ties break alphabetically; no match returns the empty string.
func FindSourceVideo(dir string, scriptID int) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
		if strings.HasPrefix(strings.ToLower(stem), "v") {
			stem = stem[1:]
		}
		id, convErr := strconv.Atoi(strings.TrimSpace(stem))
		if convErr != nil || id != scriptID {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, name))
	}
	sort.Strings(candidates)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// ListVisuals returns every regular file under dir, recursively, in sorted
// order. The order matters: the round-robin picker walks it deterministically.
func ListVisuals(dir string) []string {
	if dir == "" {
		return nil
	}
	var files []string
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// picker hands out visual files round-robin, skipping unreadable ones. Each
// Next call wraps the list at most once so a directory of only corrupt files
// cannot loop forever.
type picker struct {
	files  []string
	cursor int
}

// seek advances the cursor to the first file accepted by readable, so the
// first clip starts from a known-good asset. No readable file leaves the
// cursor at zero.
func (p *picker) seek(readable func(string) bool) {
	for i, path := range p.files {
		if readable(path) {
			p.cursor = i
			return
		}
	}
}

func (p *picker) next(readable func(string) bool) (string, bool) {
	for tries := 0; tries < len(p.files); tries++ {
		path := p.files[p.cursor%len(p.files)]
		p.cursor++
		if readable(path) {
			return path, true
		}
	}
	return "", false
}
