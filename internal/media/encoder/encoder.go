// Package encoder selects the H.264 encoder profile for a run.
package encoder

import (
	"context"
	"log/slog"
	"time"

	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
)

// Profile pairs a codec with its speed preset.
type Profile struct {
	Codec  string
	Preset string
}

// Software returns the always-available CPU profile.
func Software() Profile {
	return Profile{Codec: "libx264", Preset: "ultrafast"}
}

// Hardware returns the NVENC profile used when the probe succeeds.
func Hardware() Profile {
	return Profile{Codec: "h264_nvenc", Preset: "p1"}
}

// Hardware reports whether p is the NVENC profile.
func (p Profile) Hardware() bool {
	return p.Codec == Hardware().Codec
}

// Runner abstracts process execution.
type Runner interface {
	Execute(ctx context.Context, command cmdexec.Command) (cmdexec.Result, error)
}

// Probe encodes one null-sink frame through h264_nvenc to find out whether
// hardware encoding actually works here. Any failure, including a timeout,
// selects the software profile. The result is decided once per run and never
// re-checked.
func Probe(ctx context.Context, runner Runner, ffmpegBinary string, timeout time.Duration, logger *slog.Logger) Profile {
	log := logging.NewComponentLogger(logger, "encoder")
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	_, err := runner.Execute(ctx, cmdexec.Command{
		Args: []string{
			ffmpegBinary,
			"-v", "error",
			"-f", "lavfi",
			"-i", "nullsrc=s=256x256:d=1",
			"-c:v", Hardware().Codec,
			"-frames:v", "1",
			"-f", "null", "-",
		},
		Timeout: timeout,
		Check:   true,
	})
	if err != nil {
		log.Info("encoder probe failed, using software profile",
			logging.String(logging.FieldEncoder, Software().Codec),
			logging.Error(err))
		return Software()
	}
	log.Info("hardware encoder available",
		logging.String(logging.FieldEncoder, Hardware().Codec))
	return Hardware()
}
