package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/datnguyenn1231-bot/autoappv2/internal/asr"
	"github.com/datnguyenn1231-bot/autoappv2/internal/clips"
	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/config"
	"github.com/datnguyenn1231-bot/autoappv2/internal/jobstore"
	"github.com/datnguyenn1231-bot/autoappv2/internal/pipeline"
	"github.com/datnguyenn1231-bot/autoappv2/internal/progress"
	"github.com/datnguyenn1231-bot/autoappv2/internal/session"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		modeFlag       string
		scriptFlag     string
		audioFlag      string
		transcriptFlag string
		videosFlag     string
		imagesFlag     string
		eventsFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full script-to-clip pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			mode, err := clips.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			scriptPath, err := config.ExpandPath(scriptFlag)
			if err != nil {
				return err
			}
			audioPath, err := config.ExpandPath(audioFlag)
			if err != nil {
				return err
			}

			videoDir := firstNonEmpty(videosFlag, cfg.Paths.VideoSourceDir)
			imageDir := firstNonEmpty(imagesFlag, cfg.Paths.ImageSourceDir)
			if mode == clips.ModeCut && videoDir == "" {
				return fmt.Errorf("cut mode needs a video source directory (--videos or paths.video_source_dir)")
			}
			if mode == clips.ModeImageFlow && imageDir == "" {
				return fmt.Errorf("imageflow mode needs an image source directory (--images or paths.image_source_dir)")
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			// One accelerator-using run at a time.
			runLock := flock.New(filepath.Join(cfg.Paths.WorkDir, "autoapp.lock"))
			locked, err := runLock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another run is already active (lock %s)", runLock.Path())
			}
			defer runLock.Unlock() //nolint:errcheck

			sigCtx, stopNotify := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopNotify()

			sess := session.New(time.Duration(cfg.Workflow.SettleSeconds)*time.Second, logger)
			go func() {
				<-sigCtx.Done()
				sess.RequestStop()
			}()

			runner := cmdexec.New(cmdexec.Options{
				Logger:      logger,
				Cancelled:   sess.Cancelled,
				GracePeriod: time.Duration(cfg.Workflow.GracePeriod) * time.Second,
				ArtifactDir: cfg.Paths.WorkDir,
			})

			store, err := jobstore.Open(cfg.Paths.JobDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			transcriber := asr.NewService(asr.Config{
				Model:       cfg.Transcription.Model,
				Language:    cfg.Transcription.Language,
				CUDAEnabled: cfg.Transcription.CUDAEnabled,
				FastMode:    cfg.Transcription.FastMode,
				BatchSize:   cfg.Transcription.BatchSize,
				CacheDir:    cfg.Paths.ModelCacheDir,
				UVXBinary:   cfg.UVXBinary(),
			}, runner, logger)

			var pipelineOpts []pipeline.Option
			if eventsFlag {
				relay := progress.NewRelay(cmd.OutOrStdout(), 0, logger)
				defer relay.Close(2 * time.Second)
				pipelineOpts = append(pipelineOpts, pipeline.WithRelay(relay))
			}

			p := pipeline.New(cfg, sess, store, runner, transcriber, logger, pipelineOpts...)
			result, err := p.Run(sigCtx, pipeline.Options{
				Mode:           mode,
				ScriptPath:     scriptPath,
				AudioPath:      audioPath,
				TranscriptPath: transcriptFlag,
				VideoSourceDir: videoDir,
				ImageSourceDir: imageDir,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Mode", "Status", "Items", "Matched", "Rendered", "Audio only", "Failed"},
				[][]string{{
					result.RunID,
					string(mode),
					string(result.Status),
					strconv.Itoa(result.Items),
					strconv.Itoa(result.Segments),
					strconv.Itoa(result.Summary.Rendered),
					strconv.Itoa(result.Summary.AudioOnly),
					strconv.Itoa(result.Summary.Failed),
				}},
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "Output: %s\n", cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "cut", "Render mode: cut or imageflow")
	cmd.Flags().StringVar(&scriptFlag, "script", "", "Path to the marker script")
	cmd.Flags().StringVar(&audioFlag, "audio", "", "Path to the narration audio")
	cmd.Flags().StringVar(&transcriptFlag, "transcript", "", "Reuse an existing WhisperX JSON instead of transcribing")
	cmd.Flags().StringVar(&videosFlag, "videos", "", "Source video directory (cut mode)")
	cmd.Flags().StringVar(&imagesFlag, "images", "", "Visual pool directory (imageflow mode)")
	cmd.Flags().BoolVar(&eventsFlag, "events", false, "Emit JSONL progress events on stdout")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("audio")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
