package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datnguyenn1231-bot/autoappv2/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config file at %s", path)
	}
	if cfg.Transcription.Model != "large-v3" {
		t.Fatalf("unexpected default model: %q", cfg.Transcription.Model)
	}
	if cfg.Aligner.RatioThreshold != 0.85 || cfg.Aligner.OverrunSlack != 20 {
		t.Fatalf("unexpected aligner defaults: %+v", cfg.Aligner)
	}
	if cfg.Render.CanvasWidth != 1080 || cfg.Render.CanvasHeight != 1920 || cfg.Render.FPS != 30 {
		t.Fatalf("unexpected render defaults: %+v", cfg.Render)
	}
	if cfg.Paths.JobDBPath != filepath.Join(cfg.Paths.WorkDir, "jobs.db") {
		t.Fatalf("job db path should derive from work dir: %q", cfg.Paths.JobDBPath)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
output_dir = "` + filepath.Join(dir, "out") + `"

[transcription]
model = "small"
language = "EN"
fast_mode = true

[aligner]
ratio_threshold = 0.9

[render]
effect = "zoom_in"
canvas_width = 0
canvas_height = 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Transcription.Model != "small" || !cfg.Transcription.FastMode {
		t.Fatalf("transcription overrides not applied: %+v", cfg.Transcription)
	}
	if cfg.Transcription.Language != "en" {
		t.Fatalf("language should be lowercased: %q", cfg.Transcription.Language)
	}
	if cfg.Aligner.RatioThreshold != 0.9 {
		t.Fatalf("aligner override not applied: %+v", cfg.Aligner)
	}
	if cfg.Render.Effect != "zoom_in" {
		t.Fatalf("render override not applied: %+v", cfg.Render)
	}
	if cfg.Render.CanvasWidth != 0 || cfg.Render.CanvasHeight != 0 {
		t.Fatalf("zero canvas should survive as auto detection: %+v", cfg.Render)
	}
	if cfg.Aligner.SafetyCap != 5000 {
		t.Fatalf("untouched fields keep defaults: %+v", cfg.Aligner)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"ratio too high", func(c *config.Config) { c.Aligner.RatioThreshold = 1.5 }, "ratio_threshold"},
		{"half-auto canvas", func(c *config.Config) { c.Render.CanvasWidth = 0 }, "canvas"},
		{"bad effect", func(c *config.Config) { c.Render.Effect = "spin" }, "render.effect"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = "console"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample file should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}
