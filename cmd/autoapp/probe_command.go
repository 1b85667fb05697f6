package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/media/encoder"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe for a working hardware encoder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			runner := cmdexec.New(cmdexec.Options{Logger: logger})
			profile := encoder.Probe(cmd.Context(), runner,
				cfg.FFmpegBinary(),
				time.Duration(cfg.Render.EncoderProbeTimeout)*time.Second,
				logger)

			mode := "safe (software)"
			if profile.Hardware() {
				mode = "turbo (hardware)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encoder: %s (preset %s), %s\n",
				profile.Codec, profile.Preset, mode)
			return nil
		},
	}
}
