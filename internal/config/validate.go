package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var validEffects = map[string]struct{}{
	"static":    {},
	"zoom_in":   {},
	"zoom_out":  {},
	"pan_left":  {},
	"pan_right": {},
	"random":    {},
	"kenburns":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAligner(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAligner() error {
	if c.Aligner.RatioThreshold <= 0 || c.Aligner.RatioThreshold >= 1 {
		return errors.New("aligner.ratio_threshold must be between 0 and 1 exclusive")
	}
	return ensurePositiveMap(map[string]int{
		"aligner.overrun_slack":    c.Aligner.OverrunSlack,
		"aligner.safety_cap":       c.Aligner.SafetyCap,
		"aligner.reclaim_interval": c.Aligner.ReclaimInterval,
	})
}

func (c *Config) validateRender() error {
	if _, ok := validEffects[c.Render.Effect]; !ok {
		return fmt.Errorf("render.effect: unsupported value %q", c.Render.Effect)
	}
	if (c.Render.CanvasWidth == 0) != (c.Render.CanvasHeight == 0) {
		return errors.New("render.canvas_width and render.canvas_height must both be set, or both 0 for auto detection")
	}
	return ensurePositiveMap(map[string]int{
		"render.fps":                   c.Render.FPS,
		"render.encoder_probe_timeout": c.Render.EncoderProbeTimeout,
	})
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.grace_period": c.Workflow.GracePeriod,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// Describe returns a short single-line summary for config display commands.
func (c *Config) Describe() string {
	return strings.Join([]string{
		"output=" + c.Paths.OutputDir,
		"model=" + c.Transcription.Model,
		"effect=" + c.Render.Effect,
	}, " ")
}
