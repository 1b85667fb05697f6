// Package ffprobe wraps media inspection via the ffprobe binary.
package ffprobe

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/datnguyenn1231-bot/autoappv2/internal/cmdexec"
	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

// Runner abstracts process execution so inspections share the pipeline's
// cancellation and timeout behavior.
type Runner interface {
	Execute(ctx context.Context, command cmdexec.Command) (cmdexec.Result, error)
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Channels  int    `json:"channels"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response.
func Inspect(ctx context.Context, runner Runner, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "inspect", "empty path", nil)
	}

	res, err := runner.Execute(ctx, cmdexec.Command{
		Args: []string{
			binary,
			"-v", "error",
			"-hide_banner",
			"-show_format",
			"-show_streams",
			"-of", "json",
			"--", path,
		},
		Check:         true,
		CaptureStdout: true,
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", path, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(res.Stdout), &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "parse", path, err)
	}
	return result, nil
}

// FirstVideoStream returns the first video stream, if any.
func (r Result) FirstVideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// HasAudioStream reports whether the container carries audio.
func (r Result) HasAudioStream() bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// IsRenderable reports whether path holds a decodable visual: the probe must
// succeed and the first video stream must have real dimensions. Used to skip
// corrupt assets instead of failing a clip job on them.
func IsRenderable(ctx context.Context, runner Runner, binary, path string) bool {
	result, err := Inspect(ctx, runner, binary, path)
	if err != nil {
		return false
	}
	stream, ok := result.FirstVideoStream()
	return ok && stream.Width > 0 && stream.Height > 0
}
