// Package clips renders matched segments into per-clip audio and video files
// with ffmpeg. Cut mode trims a source video per script id; image-flow mode
// synthesizes video from a rotating pool of visuals with a motion effect.
package clips

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/datnguyenn1231-bot/autoappv2/internal/align"
	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/jobstore"
	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
	"github.com/datnguyenn1231-bot/autoappv2/internal/media/encoder"
	"github.com/datnguyenn1231-bot/autoappv2/internal/media/ffprobe"
	"github.com/datnguyenn1231-bot/autoappv2/internal/progress"
	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

// Mode selects how clip video is produced.
type Mode string

const (
	// ModeCut trims a per-id source video alongside the narration.
	ModeCut Mode = "cut"
	// ModeImageFlow builds video from a pool of images and b-roll.
	ModeImageFlow Mode = "imageflow"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeCut, ModeImageFlow:
		return Mode(name), nil
	}
	return "", services.Wrap(services.ErrValidation, "clips", "mode",
		fmt.Sprintf("unknown mode %q, want cut or imageflow", name), nil)
}

// reclaimEvery is how many clips to render between memory reclamation calls.
const reclaimEvery = 20

// Runner abstracts process execution.
type Runner interface {
	Execute(ctx context.Context, command cmdexec.Command) (cmdexec.Result, error)
}

// Store persists clip job state transitions.
type Store interface {
	CreateJob(ctx context.Context, job jobstore.Job) (int64, error)
	SetJobStatus(ctx context.Context, id int64, status jobstore.Status, errorMsg string) error
	SetJobOutputs(ctx context.Context, id int64, audioPath, videoPath string) error
}

// Options configures one render pass.
type Options struct {
	Mode      Mode
	RunID     string
	AudioPath string
	// OutputDir receives audios/ and videos/ subdirectories.
	OutputDir string
	// VideoSourceDir holds per-id source videos (cut mode).
	VideoSourceDir string
	// ImageSourceDir holds the visual pool (image-flow mode).
	ImageSourceDir string
	// CanvasWidth and CanvasHeight size image-flow output. Zero means detect
	// the orientation from the first readable visual.
	CanvasWidth  int
	CanvasHeight int
	// FPS is the output frame rate. Zero selects the 30fps default.
	FPS    int
	Effect Effect
	// AudioBitrate is used when clip audio must be re-encoded.
	AudioBitrate string
	Profile      encoder.Profile
	FFmpeg       string
	FFprobe      string
	// CommandTimeout bounds each ffmpeg invocation. Zero disables it.
	CommandTimeout time.Duration
}

// Summary reports what a render pass produced.
type Summary struct {
	Total    int
	Rendered int
	// AudioOnly counts cut-mode clips whose script id had no source video.
	AudioOnly int
	Failed    int
	Stopped   bool
}

// Renderer drives the per-segment clip loop.
type Renderer struct {
	runner    Runner
	store     Store
	relay     *progress.Relay
	logger    *slog.Logger
	sampler   *logging.ProgressSampler
	cancelled func() bool
	reclaim   func()
	randInt   func(n int) int
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithRelay publishes one progress event per clip to relay.
func WithRelay(relay *progress.Relay) RendererOption {
	return func(r *Renderer) { r.relay = relay }
}

// WithCancelCheck installs the stop-flag probe consulted between clips.
func WithCancelCheck(cancelled func() bool) RendererOption {
	return func(r *Renderer) { r.cancelled = cancelled }
}

// WithReclaim installs the hook invoked every reclaimEvery clips.
func WithReclaim(reclaim func()) RendererOption {
	return func(r *Renderer) { r.reclaim = reclaim }
}

// WithRandSource fixes the random-effect choice, for tests.
func WithRandSource(randInt func(n int) int) RendererOption {
	return func(r *Renderer) { r.randInt = randInt }
}

// NewRenderer constructs a Renderer.
func NewRenderer(runner Runner, store Store, logger *slog.Logger, opts ...RendererOption) *Renderer {
	r := &Renderer{
		runner:  runner,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "clips"),
		sampler: logging.NewProgressSampler(0),
		randInt: rand.Intn,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) isCancelled() bool {
	return r.cancelled != nil && r.cancelled()
}

func (r *Renderer) publish(event progress.Event) {
	if r.relay != nil {
		r.relay.Publish(event)
	}
}

// Render processes segments in order. Per-clip failures are recorded and
// skipped; only store failures and cancellation abort the pass. On a stop
// request the summary comes back with Stopped set and a nil error.
func (r *Renderer) Render(ctx context.Context, opts Options, segments []align.Segment) (Summary, error) {
	summary := Summary{Total: len(segments)}
	if opts.AudioPath == "" || opts.OutputDir == "" {
		return summary, services.Wrap(services.ErrValidation, "clips", "render", "audio path and output dir are required", nil)
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	r.sampler.Reset()

	outAud := filepath.Join(opts.OutputDir, "audios")
	outVid := filepath.Join(opts.OutputDir, "videos")
	for _, dir := range []string{outAud, outVid} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, services.Wrap(services.ErrConfiguration, "clips", "render", "create output dir", err)
		}
	}

	var pool *picker
	if opts.Mode == ModeImageFlow {
		files := ListVisuals(opts.ImageSourceDir)
		if len(files) == 0 {
			return summary, services.Wrap(services.ErrNotFound, "clips", "render",
				"no visual files in "+opts.ImageSourceDir, nil)
		}
		readable := r.readableFn(ctx, opts)
		pool = &picker{files: files}
		pool.seek(readable)
		if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
			opts.CanvasWidth, opts.CanvasHeight = r.detectCanvas(ctx, opts, pool.files[pool.cursor])
		}
		r.logger.Info("image flow ready",
			logging.Int("visuals", len(files)),
			logging.Int("canvas_w", opts.CanvasWidth),
			logging.Int("canvas_h", opts.CanvasHeight),
			logging.String("effect", string(opts.Effect)))
	}

	for index, segment := range segments {
		if r.isCancelled() {
			summary.Stopped = true
			r.logger.Info("render stopped",
				logging.Int("rendered", summary.Rendered),
				logging.Int("remaining", len(segments)-index))
			break
		}
		clipNum := index + 1
		if clipNum%reclaimEvery == 0 && r.reclaim != nil {
			r.reclaim()
		}

		jobID, err := r.store.CreateJob(ctx, jobstore.Job{
			RunID:    opts.RunID,
			ScriptID: segment.ScriptID,
			StartSec: segment.Start,
			EndSec:   segment.End,
			Text:     segment.Text,
		})
		if err != nil {
			return summary, err
		}

		audioOut := filepath.Join(outAud, clipName(segment.ScriptID, ".mp3"))
		if err := r.cutAudio(ctx, opts, segment, audioOut); err != nil {
			if services.IsCancelled(err) {
				_ = r.store.SetJobStatus(ctx, jobID, jobstore.StatusAborted, "")
				summary.Stopped = true
				break
			}
			r.failJob(ctx, jobID, jobstore.StatusAudioFailed, segment, err)
			summary.Failed++
			continue
		}
		if err := r.store.SetJobStatus(ctx, jobID, jobstore.StatusAudioCut, ""); err != nil {
			return summary, err
		}

		videoOut := filepath.Join(outVid, clipName(segment.ScriptID, ".mp4"))
		var outcome string
		switch opts.Mode {
		case ModeImageFlow:
			outcome, err = r.renderImageClip(ctx, opts, pool, segment, jobID, audioOut, videoOut)
		default:
			outcome, err = r.renderVideoCut(ctx, opts, segment, jobID, audioOut, videoOut)
		}
		if err != nil {
			if services.IsCancelled(err) {
				_ = r.store.SetJobStatus(ctx, jobID, jobstore.StatusAborted, "")
				summary.Stopped = true
				break
			}
			r.failJob(ctx, jobID, jobstore.StatusFailed, segment, err)
			summary.Failed++
			continue
		}

		switch outcome {
		case "audio_only":
			summary.AudioOnly++
		default:
			summary.Rendered++
		}

		percent := float64(clipNum) / float64(len(segments)) * 100
		r.logger.Debug("clip finished",
			logging.Int(logging.FieldScriptID, segment.ScriptID),
			logging.String("outcome", outcome),
			logging.Float64("seconds", segment.End-segment.Start))
		if r.sampler.ShouldLog(percent, "render") {
			r.logger.Info("render progress",
				logging.Int("clip", clipNum),
				logging.Int("total", len(segments)),
				logging.Float64("percent", percent))
		}
		r.publish(progress.Event{
			Kind:     progress.KindProgress,
			Percent:  percent,
			ScriptID: segment.ScriptID,
			Stage:    "render",
			Message:  outcome,
		})
	}

	r.logger.Info("render finished",
		logging.Int("total", summary.Total),
		logging.Int("rendered", summary.Rendered),
		logging.Int("audio_only", summary.AudioOnly),
		logging.Int("failed", summary.Failed),
		logging.Bool("stopped", summary.Stopped))
	return summary, nil
}

func clipName(scriptID int, ext string) string {
	return fmt.Sprintf("%03d%s", scriptID, ext)
}

func (r *Renderer) readableFn(ctx context.Context, opts Options) func(string) bool {
	return func(path string) bool {
		return ffprobe.IsRenderable(ctx, r.runner, opts.FFprobe, path)
	}
}

// detectCanvas infers output orientation from the first readable visual:
// landscape sources render 1920x1080, everything else renders the portrait
// default 1080x1920.
func (r *Renderer) detectCanvas(ctx context.Context, opts Options, probePath string) (int, int) {
	result, err := ffprobe.Inspect(ctx, r.runner, opts.FFprobe, probePath)
	if err == nil {
		if stream, ok := result.FirstVideoStream(); ok && stream.Width > stream.Height {
			return 1920, 1080
		}
	}
	return 1080, 1920
}

func (r *Renderer) cutAudio(ctx context.Context, opts Options, segment align.Segment, outPath string) error {
	_, err := r.runner.Execute(ctx, cmdexec.Command{
		Args:    audioCutArgs(opts.FFmpeg, opts.AudioPath, segment.Start, segment.End, outPath),
		Timeout: opts.CommandTimeout,
		Check:   true,
	})
	return err
}

// renderVideoCut trims the matching source video. A missing source is not a
// failure: the narration clip stands alone and the job records video_missing.
func (r *Renderer) renderVideoCut(ctx context.Context, opts Options, segment align.Segment, jobID int64, audioOut, videoOut string) (string, error) {
	src := FindSourceVideo(opts.VideoSourceDir, segment.ScriptID)
	if src == "" {
		if err := r.store.SetJobStatus(ctx, jobID, jobstore.StatusVideoMissing, ""); err != nil {
			return "", err
		}
		if err := r.store.SetJobOutputs(ctx, jobID, audioOut, ""); err != nil {
			return "", err
		}
		r.logger.Warn("no source video for clip",
			logging.Int(logging.FieldScriptID, segment.ScriptID))
		return "audio_only", nil
	}
	if err := r.store.SetJobStatus(ctx, jobID, jobstore.StatusEncoding, ""); err != nil {
		return "", err
	}

	duration := segment.End - segment.Start
	// Probe the source once: a silent container cannot need the audio
	// re-encode retry, and a short one is worth flagging before the cut.
	hasAudio := true
	if info, err := ffprobe.Inspect(ctx, r.runner, opts.FFprobe, src); err == nil {
		hasAudio = info.HasAudioStream()
		if srcSeconds := info.DurationSeconds(); srcSeconds > 0 && srcSeconds < duration {
			r.logger.Warn("source video shorter than clip",
				logging.Int(logging.FieldScriptID, segment.ScriptID),
				logging.Float64("source_seconds", srcSeconds),
				logging.Float64("clip_seconds", duration))
		}
	}

	attempts := [][]string{
		videoCutArgs(opts.FFmpeg, src, duration, opts.FPS, opts.Profile, "copy", opts.AudioBitrate, videoOut),
	}
	if hasAudio {
		attempts = append(attempts,
			videoCutArgs(opts.FFmpeg, src, duration, opts.FPS, opts.Profile, "aac", opts.AudioBitrate, videoOut))
	}
	if opts.Profile.Hardware() {
		fallbackAudio := "copy"
		if hasAudio {
			fallbackAudio = "aac"
		}
		attempts = append(attempts,
			videoCutArgs(opts.FFmpeg, src, duration, opts.FPS, encoder.Software(), fallbackAudio, opts.AudioBitrate, videoOut))
	}
	if err := r.runAttempts(ctx, opts, attempts); err != nil {
		return "", err
	}
	return r.finishJob(ctx, jobID, audioOut, videoOut)
}

// renderImageClip synthesizes video from the next readable visual in the
// pool. A hardware-encode failure gets one retry on the software profile.
func (r *Renderer) renderImageClip(ctx context.Context, opts Options, pool *picker, segment align.Segment, jobID int64, audioOut, videoOut string) (string, error) {
	visual, ok := pool.next(r.readableFn(ctx, opts))
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "clips", "pick",
			"no readable visual file", nil)
	}
	if err := r.store.SetJobStatus(ctx, jobID, jobstore.StatusEncoding, ""); err != nil {
		return "", err
	}

	duration := segment.End - segment.Start
	effect := opts.Effect.concrete(r.randInt)
	attempts := [][]string{
		imageClipArgs(opts.FFmpeg, visual, duration, opts.CanvasWidth, opts.CanvasHeight, opts.FPS, effect, opts.Profile, videoOut),
	}
	if opts.Profile.Hardware() {
		attempts = append(attempts,
			imageClipArgs(opts.FFmpeg, visual, duration, opts.CanvasWidth, opts.CanvasHeight, opts.FPS, effect, encoder.Software(), videoOut))
	}
	if err := r.runAttempts(ctx, opts, attempts); err != nil {
		return "", err
	}
	return r.finishJob(ctx, jobID, audioOut, videoOut)
}

// runAttempts executes attempts in order until one succeeds. Cancellation
// stops the ladder immediately; the last error wins otherwise.
func (r *Renderer) runAttempts(ctx context.Context, opts Options, attempts [][]string) error {
	var err error
	for i, args := range attempts {
		_, err = r.runner.Execute(ctx, cmdexec.Command{
			Args:    args,
			Timeout: opts.CommandTimeout,
			Check:   true,
		})
		if err == nil {
			return nil
		}
		if services.IsCancelled(err) {
			return err
		}
		if i < len(attempts)-1 {
			r.logger.Warn("encode attempt failed, retrying",
				logging.Int("attempt", i+1),
				logging.Error(err))
		}
	}
	return err
}

func (r *Renderer) finishJob(ctx context.Context, jobID int64, audioOut, videoOut string) (string, error) {
	if err := r.store.SetJobOutputs(ctx, jobID, audioOut, videoOut); err != nil {
		return "", err
	}
	if err := r.store.SetJobStatus(ctx, jobID, jobstore.StatusDone, ""); err != nil {
		return "", err
	}
	return "rendered", nil
}

func (r *Renderer) failJob(ctx context.Context, jobID int64, status jobstore.Status, segment align.Segment, cause error) {
	_ = r.store.SetJobStatus(ctx, jobID, status, cause.Error())
	r.logger.Warn("clip failed",
		logging.Int(logging.FieldScriptID, segment.ScriptID),
		logging.String("status", string(status)),
		logging.Error(cause))
	r.publish(progress.Event{
		Kind:     progress.KindError,
		ScriptID: segment.ScriptID,
		Stage:    "render",
		Message:  cause.Error(),
	})
}
