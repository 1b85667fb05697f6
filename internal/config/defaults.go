package config

const (
	defaultOutputDir     = "~/.local/share/autoapp/output"
	defaultWorkDir       = "~/.local/share/autoapp/work"
	defaultLogDir        = "~/.local/share/autoapp/logs"
	defaultModelCacheDir = "~/.cache/autoapp/models"

	defaultModel     = "large-v3"
	defaultLanguage  = "auto"
	defaultBatchSize = 4

	defaultRatioThreshold  = 0.85
	defaultOverrunSlack    = 20
	defaultSafetyCap       = 5000
	defaultReclaimInterval = 20

	defaultCanvasWidth         = 1080
	defaultCanvasHeight        = 1920
	defaultFPS                 = 30
	defaultEffect              = "static"
	defaultAudioBitrate        = "192k"
	defaultEncoderProbeTimeout = 15

	defaultGracePeriod   = 2
	defaultSettleSeconds = 2

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:     defaultOutputDir,
			WorkDir:       defaultWorkDir,
			LogDir:        defaultLogDir,
			ModelCacheDir: defaultModelCacheDir,
		},
		Transcription: Transcription{
			Model:     defaultModel,
			Language:  defaultLanguage,
			BatchSize: defaultBatchSize,
		},
		Aligner: Aligner{
			RatioThreshold:  defaultRatioThreshold,
			OverrunSlack:    defaultOverrunSlack,
			SafetyCap:       defaultSafetyCap,
			ReclaimInterval: defaultReclaimInterval,
		},
		Render: Render{
			CanvasWidth:         defaultCanvasWidth,
			CanvasHeight:        defaultCanvasHeight,
			FPS:                 defaultFPS,
			Effect:              defaultEffect,
			AudioBitrate:        defaultAudioBitrate,
			EncoderProbeTimeout: defaultEncoderProbeTimeout,
		},
		Workflow: Workflow{
			GracePeriod:   defaultGracePeriod,
			SettleSeconds: defaultSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
