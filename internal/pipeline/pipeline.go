// Package pipeline wires the full script-to-clip run: parse the script,
// transcribe the narration, align words to script items, then render one clip
// per matched segment.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/datnguyenn1231-bot/autoappv2/internal/align"
	"github.com/datnguyenn1231-bot/autoappv2/internal/asr"
	"github.com/datnguyenn1231-bot/autoappv2/internal/clips"
	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/config"
	"github.com/datnguyenn1231-bot/autoappv2/internal/jobstore"
	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
	"github.com/datnguyenn1231-bot/autoappv2/internal/media/encoder"
	"github.com/datnguyenn1231-bot/autoappv2/internal/progress"
	"github.com/datnguyenn1231-bot/autoappv2/internal/script"
	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
	"github.com/datnguyenn1231-bot/autoappv2/internal/session"
)

// Runner abstracts process execution.
type Runner interface {
	Execute(ctx context.Context, command cmdexec.Command) (cmdexec.Result, error)
}

// Transcriber produces word-level timestamps for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) (asr.Result, error)
	Model() string
}

// Store is the jobstore surface the pipeline needs.
type Store interface {
	clips.Store
	CreateRun(ctx context.Context, id, mode, audioPath, scriptPath string) (jobstore.Run, error)
	UpdateRunStatus(ctx context.Context, id string, status jobstore.RunStatus) error
}

// Options describes one run request.
type Options struct {
	Mode       clips.Mode
	ScriptPath string
	AudioPath  string
	// TranscriptPath reuses an existing WhisperX JSON instead of invoking the
	// transcriber.
	TranscriptPath string
	VideoSourceDir string
	ImageSourceDir string
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Items    int
	Segments int
	Summary  clips.Summary
	Status   jobstore.RunStatus
}

// Pipeline owns the run orchestration.
type Pipeline struct {
	cfg         *config.Config
	sess        *session.Session
	store       Store
	runner      Runner
	transcriber Transcriber
	relay       *progress.Relay
	logger      *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRelay publishes run events to relay.
func WithRelay(relay *progress.Relay) Option {
	return func(p *Pipeline) { p.relay = relay }
}

// New constructs a Pipeline.
func New(cfg *config.Config, sess *session.Session, store Store, runner Runner, transcriber Transcriber, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		sess:        sess,
		store:       store,
		runner:      runner,
		transcriber: transcriber,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) publish(event progress.Event) {
	if p.relay != nil {
		p.relay.Publish(event)
	}
}

func (p *Pipeline) finish(ctx context.Context, runID string, status jobstore.RunStatus) {
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		p.logger.Warn("run status update failed",
			logging.String(logging.FieldRunID, runID),
			logging.Error(err))
	}
}

// Run executes the whole pipeline. A cooperative stop is not an error: the
// result comes back with the stopped status and whatever was rendered. Real
// failures mark the run failed and return the cause.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	items, err := p.loadScript(opts.ScriptPath)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	result := Result{RunID: runID, Items: len(items)}
	if _, err := p.store.CreateRun(ctx, runID, string(opts.Mode), opts.AudioPath, opts.ScriptPath); err != nil {
		return result, err
	}
	p.logger.Info("run started",
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldMode, string(opts.Mode)),
		logging.Int("items", len(items)))
	p.publish(progress.Event{Kind: progress.KindLog, Stage: "start", Message: runID})

	words, err := p.transcribeWords(ctx, opts, runID)
	if err != nil {
		if services.IsCancelled(err) {
			p.finish(ctx, runID, jobstore.RunStopped)
			result.Status = jobstore.RunStopped
			return result, nil
		}
		p.finish(ctx, runID, jobstore.RunFailed)
		result.Status = jobstore.RunFailed
		p.publish(progress.Event{Kind: progress.KindError, Stage: "transcribe", Message: err.Error()})
		return result, err
	}

	aligner := align.New(align.Config{
		RatioThreshold:  p.cfg.Aligner.RatioThreshold,
		OverrunSlack:    p.cfg.Aligner.OverrunSlack,
		SafetyCap:       p.cfg.Aligner.SafetyCap,
		ReclaimInterval: p.cfg.Aligner.ReclaimInterval,
	}, p.logger,
		align.WithCancelCheck(p.sess.Cancelled),
		align.WithReclaim(p.sess.Reclaim))
	segments := aligner.Align(items, words)
	result.Segments = len(segments)
	if p.sess.Cancelled() {
		p.finish(ctx, runID, jobstore.RunStopped)
		result.Status = jobstore.RunStopped
		return result, nil
	}
	if len(segments) == 0 {
		err := services.Wrap(services.ErrValidation, "align", "", "no script item matched the transcript", nil)
		p.finish(ctx, runID, jobstore.RunFailed)
		result.Status = jobstore.RunFailed
		p.publish(progress.Event{Kind: progress.KindError, Stage: "align", Message: err.Error()})
		return result, err
	}
	p.publish(progress.Event{Kind: progress.KindProgress, Stage: "align", Percent: 100,
		Message: "alignment complete"})

	// Release transcription resources before the first encoder starts.
	if err := p.sess.Handoff(ctx); err != nil {
		p.finish(ctx, runID, jobstore.RunStopped)
		result.Status = jobstore.RunStopped
		return result, nil
	}

	profile := encoder.Probe(ctx, p.runner,
		p.cfg.FFmpegBinary(),
		time.Duration(p.cfg.Render.EncoderProbeTimeout)*time.Second,
		p.logger)

	effect, err := clips.ParseEffect(p.cfg.Render.Effect)
	if err != nil {
		p.finish(ctx, runID, jobstore.RunFailed)
		result.Status = jobstore.RunFailed
		return result, err
	}

	renderer := clips.NewRenderer(p.runner, p.store, p.logger,
		clips.WithRelay(p.relay),
		clips.WithCancelCheck(p.sess.Cancelled),
		clips.WithReclaim(p.sess.Reclaim))
	summary, err := renderer.Render(ctx, clips.Options{
		Mode:           opts.Mode,
		RunID:          runID,
		AudioPath:      opts.AudioPath,
		OutputDir:      p.cfg.Paths.OutputDir,
		VideoSourceDir: opts.VideoSourceDir,
		ImageSourceDir: opts.ImageSourceDir,
		CanvasWidth:    p.cfg.Render.CanvasWidth,
		CanvasHeight:   p.cfg.Render.CanvasHeight,
		FPS:            p.cfg.Render.FPS,
		Effect:         effect,
		AudioBitrate:   p.cfg.Render.AudioBitrate,
		Profile:        profile,
		FFmpeg:         p.cfg.FFmpegBinary(),
		FFprobe:        p.cfg.FFprobeBinary(),
		CommandTimeout: time.Duration(p.cfg.Workflow.CommandTimeout) * time.Second,
	}, segments)
	result.Summary = summary
	if err != nil {
		p.finish(ctx, runID, jobstore.RunFailed)
		result.Status = jobstore.RunFailed
		p.publish(progress.Event{Kind: progress.KindError, Stage: "render", Message: err.Error()})
		return result, err
	}

	status := jobstore.RunCompleted
	if summary.Stopped || p.sess.Cancelled() {
		status = jobstore.RunStopped
	}
	p.finish(ctx, runID, status)
	result.Status = status

	p.logger.Info("run finished",
		logging.String(logging.FieldRunID, runID),
		logging.String("status", string(status)),
		logging.Int("rendered", summary.Rendered),
		logging.Int("audio_only", summary.AudioOnly),
		logging.Int("failed", summary.Failed))
	p.publish(progress.Event{Kind: progress.KindResult, Stage: "done", Message: string(status),
		Percent: 100})
	return result, nil
}

func (p *Pipeline) loadScript(path string) ([]script.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "script", "read", path, err)
	}
	items, err := script.Parse(string(raw))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, services.Wrap(services.ErrScriptFormat, "script", "parse", "script is empty", nil)
	}
	return items, nil
}

// transcribeWords produces the word stream, either from a previously saved
// WhisperX JSON or by running the transcriber into the run's work directory.
func (p *Pipeline) transcribeWords(ctx context.Context, opts Options, runID string) ([]asr.Word, error) {
	var result asr.Result
	var err error
	if opts.TranscriptPath != "" {
		result, err = asr.LoadResult(opts.TranscriptPath)
		if err != nil {
			return nil, services.Wrap(services.ErrTranscription, "transcribe", "load", opts.TranscriptPath, err)
		}
	} else {
		outputDir := filepath.Join(p.cfg.Paths.WorkDir, runID)
		result, err = p.transcriber.Transcribe(ctx, opts.AudioPath, outputDir)
		if err != nil {
			return nil, err
		}
	}

	words := result.Words(p.logger)
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "words", "transcript carries no words", nil)
	}
	p.logger.Info("transcript loaded",
		logging.String("language", result.Language),
		logging.Int("words", len(words)))
	return words, nil
}
