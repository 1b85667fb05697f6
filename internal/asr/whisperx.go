package asr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

// WhisperX invocation constants.
const (
	UVXCommand   = "uvx"
	DefaultModel = "large-v3"
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"

	CPUDevice      = "cpu"
	CUDADevice     = "cuda"
	CPUComputeType = "float32"
	OutputFormat   = "json"
)

// CommandRunner abstracts process execution for tests.
type CommandRunner interface {
	Execute(ctx context.Context, command cmdexec.Command) (cmdexec.Result, error)
}

// Config captures runtime settings for WhisperX transcription.
type Config struct {
	Model       string
	Language    string
	CUDAEnabled bool
	// FastMode disables the word-alignment pass; output carries only
	// segment-level timestamps.
	FastMode  bool
	BatchSize int
	CacheDir  string
	UVXBinary string
}

// Service runs WhisperX as an external process and loads its JSON output.
type Service struct {
	cfg    Config
	runner CommandRunner
	logger *slog.Logger
}

// NewService creates a WhisperX transcription service.
func NewService(cfg Config, runner CommandRunner, logger *slog.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	if cfg.UVXBinary == "" {
		cfg.UVXBinary = UVXCommand
	}
	return &Service{
		cfg:    cfg,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "whisperx"),
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe runs WhisperX on source and returns the parsed result. outputDir
// receives the raw JSON the tool writes.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) (Result, error) {
	if source == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcribe", "", "ensure output dir", err)
	}

	args := s.buildArgs(source, outputDir)
	s.logger.Info("transcription starting",
		logging.String("model", s.cfg.Model),
		logging.Bool("cuda", s.cfg.CUDAEnabled),
		logging.Bool("fast_mode", s.cfg.FastMode))

	env := map[string]string{}
	if s.cfg.CacheDir != "" {
		env["HF_HOME"] = s.cfg.CacheDir
	}
	_, err := s.runner.Execute(ctx, cmdexec.Command{
		Args:  args,
		Env:   env,
		Check: true,
		OnStderrLine: func(line string) {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				s.logger.Debug("whisperx", logging.String("line", trimmed))
			}
		},
	})
	if err != nil {
		if services.IsCancelled(err) || services.IsTimeout(err) {
			return Result{}, err
		}
		return Result{}, services.Wrap(services.ErrTranscription, "transcribe", "whisperx", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	result, err := LoadResult(jsonPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscription, "transcribe", "load", jsonPath, err)
	}
	s.logger.Info("transcription finished",
		logging.Int("segments", len(result.Segments)),
		logging.String("language", result.Language))
	return result, nil
}

// buildArgs constructs the uvx argv for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)
	args = append(args, s.cfg.UVXBinary)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.cfg.Model,
		"--batch_size", strconv.Itoa(s.cfg.BatchSize),
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	)

	if s.cfg.FastMode {
		args = append(args, "--no_align")
	}

	if lang := NormalizeLanguage(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}
