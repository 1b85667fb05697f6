package asr_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datnguyenn1231-bot/autoappv2/internal/asr"
	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
)

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"auto":   "",
		"Detect": "",
		" AUTO ": "",
		"en":     "en",
		"JA":     "ja",
		"vi ":    "vi",
	}
	for input, want := range cases {
		if got := asr.NormalizeLanguage(input); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", input, got, want)
		}
	}
}

const sampleJSON = `{
  "language": "en",
  "segments": [
    {
      "text": " hello world",
      "start": 0.0,
      "end": 1.0,
      "words": [
        {"word": "hello", "start": 0.0, "end": 0.5},
        {"word": "world", "start": 0.6, "end": 1.0},
        {"word": "[noise]"}
      ]
    },
    {
      "text": " goodbye now",
      "start": 1.2,
      "end": 2.0,
      "words": []
    },
    {
      "text": "   ",
      "start": 2.5,
      "end": 2.6
    }
  ]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadResultDropsUnplacedWords(t *testing.T) {
	result, err := asr.LoadResult(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.Language != "en" {
		t.Fatalf("unexpected language: %q", result.Language)
	}
	if len(result.Segments) != 3 {
		t.Fatalf("unexpected segment count: %d", len(result.Segments))
	}
	if len(result.Segments[0].Words) != 2 {
		t.Fatalf("word without start should be dropped: %+v", result.Segments[0].Words)
	}
}

func TestWordsSegmentFallback(t *testing.T) {
	result, err := asr.LoadResult(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	words := result.Words(nil)
	// Two aligned words, one segment-level pseudo-word, blank segment skipped.
	if len(words) != 3 {
		t.Fatalf("unexpected word count: %d (%+v)", len(words), words)
	}
	last := words[2]
	if last.Text != "goodbye now" || last.Start != 1.2 || last.End != 2.0 {
		t.Fatalf("fallback word should span the segment: %+v", last)
	}
}

func TestWordEndDefaultsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.json")
	payload := `{"segments":[{"text":"hi","start":0,"end":1,"words":[{"word":"hi","start":0.4}]}]}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := asr.LoadResult(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	word := result.Segments[0].Words[0]
	if word.Start != 0.4 || word.End != 0 {
		t.Fatalf("missing end should decode as zero: %+v", word)
	}
}

type fakeRunner struct {
	args    []string
	env     map[string]string
	written string
}

func (f *fakeRunner) Execute(_ context.Context, command cmdexec.Command) (cmdexec.Result, error) {
	f.args = command.Args
	f.env = command.Env
	if f.written != "" {
		// Simulate whisperx writing its JSON next to the requested output dir.
		for i, arg := range command.Args {
			if arg == "--output_dir" {
				path := filepath.Join(command.Args[i+1], "take.json")
				if err := os.WriteFile(path, []byte(f.written), 0o644); err != nil {
					return cmdexec.Result{}, err
				}
			}
		}
	}
	return cmdexec.Result{}, nil
}

func TestServiceBuildsExpectedInvocation(t *testing.T) {
	runner := &fakeRunner{written: sampleJSON}
	svc := asr.NewService(asr.Config{
		Model:    "small",
		Language: "auto",
		FastMode: true,
		CacheDir: "/tmp/models",
	}, runner, nil)

	dir := t.TempDir()
	source := filepath.Join(dir, "take.wav")
	result, err := svc.Transcribe(context.Background(), source, dir)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(result.Segments) != 3 {
		t.Fatalf("unexpected segments: %d", len(result.Segments))
	}

	joined := strings.Join(runner.args, " ")
	for _, want := range []string{
		"uvx", "whisperx", source,
		"--model small", "--output_format json", "--no_align",
		"--device cpu", "--compute_type float32",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("argv %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "--language") {
		t.Fatalf("auto language must not be passed through: %q", joined)
	}
	if runner.env["HF_HOME"] != "/tmp/models" {
		t.Fatalf("cache dir should map to HF_HOME: %v", runner.env)
	}
}
