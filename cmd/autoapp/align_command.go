package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/datnguyenn1231-bot/autoappv2/internal/align"
	"github.com/datnguyenn1231-bot/autoappv2/internal/asr"
	"github.com/datnguyenn1231-bot/autoappv2/internal/config"
	"github.com/datnguyenn1231-bot/autoappv2/internal/script"
)

// newAlignCommand reports what the aligner would match without rendering
// anything. Useful for tuning scripts against an existing transcript.
func newAlignCommand(ctx *commandContext) *cobra.Command {
	var scriptFlag string
	var transcriptFlag string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Dry-run script alignment against a saved transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			scriptPath, err := config.ExpandPath(scriptFlag)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			items, err := script.Parse(string(raw))
			if err != nil {
				return err
			}

			transcriptPath, err := config.ExpandPath(transcriptFlag)
			if err != nil {
				return err
			}
			result, err := asr.LoadResult(transcriptPath)
			if err != nil {
				return fmt.Errorf("load transcript: %w", err)
			}
			words := result.Words(logger)

			aligner := align.New(align.Config{
				RatioThreshold:  cfg.Aligner.RatioThreshold,
				OverrunSlack:    cfg.Aligner.OverrunSlack,
				SafetyCap:       cfg.Aligner.SafetyCap,
				ReclaimInterval: cfg.Aligner.ReclaimInterval,
			}, logger)
			segments := aligner.Align(items, words)

			rows := make([][]string, 0, len(segments))
			for _, segment := range segments {
				text := segment.Text
				if len(text) > 40 {
					text = text[:40] + "..."
				}
				rows = append(rows, []string{
					strconv.Itoa(segment.ScriptID),
					fmt.Sprintf("%.2f", segment.Start),
					fmt.Sprintf("%.2f", segment.End),
					fmt.Sprintf("%.2f", segment.End-segment.Start),
					text,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Start", "End", "Seconds", "Text"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Matched %d of %d items (%d words)\n", len(segments), len(items), len(words))
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptFlag, "script", "", "Path to the marker script")
	cmd.Flags().StringVar(&transcriptFlag, "transcript", "", "Path to a WhisperX JSON transcript")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}
