package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeAligner()
	c.normalizeRender()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ModelCacheDir) == "" {
		c.Paths.ModelCacheDir = defaultModelCacheDir
	}
	if c.Paths.ModelCacheDir, err = expandPath(c.Paths.ModelCacheDir); err != nil {
		return fmt.Errorf("paths.model_cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.VideoSourceDir) != "" {
		if c.Paths.VideoSourceDir, err = expandPath(c.Paths.VideoSourceDir); err != nil {
			return fmt.Errorf("paths.video_source_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.ImageSourceDir) != "" {
		if c.Paths.ImageSourceDir, err = expandPath(c.Paths.ImageSourceDir); err != nil {
			return fmt.Errorf("paths.image_source_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.JobDBPath) == "" {
		c.Paths.JobDBPath = filepath.Join(c.Paths.WorkDir, "jobs.db")
	} else if c.Paths.JobDBPath, err = expandPath(c.Paths.JobDBPath); err != nil {
		return fmt.Errorf("paths.job_db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	}
	if c.Transcription.BatchSize <= 0 {
		c.Transcription.BatchSize = defaultBatchSize
	}
}

func (c *Config) normalizeAligner() {
	if c.Aligner.RatioThreshold == 0 {
		c.Aligner.RatioThreshold = defaultRatioThreshold
	}
	if c.Aligner.OverrunSlack <= 0 {
		c.Aligner.OverrunSlack = defaultOverrunSlack
	}
	if c.Aligner.SafetyCap <= 0 {
		c.Aligner.SafetyCap = defaultSafetyCap
	}
	if c.Aligner.ReclaimInterval <= 0 {
		c.Aligner.ReclaimInterval = defaultReclaimInterval
	}
}

func (c *Config) normalizeRender() {
	// Zero is meaningful here: both dimensions at 0 defer the canvas to the
	// first readable visual of the run.
	if c.Render.CanvasWidth < 0 {
		c.Render.CanvasWidth = 0
	}
	if c.Render.CanvasHeight < 0 {
		c.Render.CanvasHeight = 0
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultFPS
	}
	c.Render.Effect = strings.ToLower(strings.TrimSpace(c.Render.Effect))
	if c.Render.Effect == "" {
		c.Render.Effect = defaultEffect
	}
	c.Render.AudioBitrate = strings.TrimSpace(c.Render.AudioBitrate)
	if c.Render.AudioBitrate == "" {
		c.Render.AudioBitrate = defaultAudioBitrate
	}
	if c.Render.EncoderProbeTimeout <= 0 {
		c.Render.EncoderProbeTimeout = defaultEncoderProbeTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.CommandTimeout < 0 {
		c.Workflow.CommandTimeout = 0
	}
	if c.Workflow.GracePeriod <= 0 {
		c.Workflow.GracePeriod = defaultGracePeriod
	}
	if c.Workflow.SettleSeconds < 0 {
		c.Workflow.SettleSeconds = defaultSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
