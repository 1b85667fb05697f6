package clips

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/datnguyenn1231-bot/autoappv2/internal/media/encoder"
)

const (
	// defaultFPS is the output frame rate when none is configured.
	defaultFPS = 30
	// minClipSeconds floors image clip durations so zoompan always has at
	// least one frame to render.
	minClipSeconds = 0.10
	// overscanFactor is the extra canvas rendered for motion effects so the
	// pan/zoom never exposes the frame edge.
	overscanFactor = 1.15
)

// videoExtensions are containers treated as video inputs rather than stills.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

func visualIsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// audioCutArgs extracts [start, end) of the narration into an mp3. Seeking
// before the input keeps the cut fast on long source files.
func audioCutArgs(binary, audioPath string, start, end float64, outPath string) []string {
	return []string{
		binary, "-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", audioPath,
		"-vn", "-acodec", "libmp3lame",
		"-q:a", "2",
		"-loglevel", "error",
		outPath,
	}
}

// videoCutArgs trims a source video to duration, normalizing dimensions to
// even values and the frame rate to fps. audioCodec is "copy" on the first
// attempt; the retry re-encodes with "aac" at bitrate because stream copy
// fails on containers whose audio codec mp4 cannot carry.
func videoCutArgs(binary, srcPath string, duration float64, fps int, profile encoder.Profile, audioCodec, bitrate string, outPath string) []string {
	args := []string{
		binary, "-y",
		"-ss", "0",
		"-i", srcPath,
		"-t", formatSeconds(duration),
		"-vf", fmt.Sprintf("scale=trunc(iw/2)*2:trunc(ih/2)*2,fps=%d", fps),
		"-map", "0:v:0",
		"-map", "0:a?",
		"-c:v", profile.Codec,
		"-preset", profile.Preset,
		"-pix_fmt", "yuv420p",
		"-c:a", audioCodec,
	}
	if audioCodec != "copy" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args,
		"-shortest",
		"-map_metadata", "-1",
		"-loglevel", "error",
		outPath,
	)
	return args
}

// clipFrames converts a clip duration to a zoompan frame count.
func clipFrames(duration float64, fps int) int {
	dur := duration
	if dur < minClipSeconds {
		dur = minClipSeconds
	}
	frames := int(dur * float64(fps))
	if frames < 1 {
		frames = 1
	}
	return frames
}

// motionFilter builds the -vf graph for one visual. Motion effects scale to an
// overscanned canvas first so zoompan has pixels to move through; static fills
// the canvas directly.
func motionFilter(effect Effect, canvasW, canvasH, frames, fps int) string {
	if effect == EffectStatic {
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,format=yuv420p",
			canvasW, canvasH, canvasW, canvasH)
	}

	scaledW := int(float64(canvasW) * overscanFactor)
	scaledH := int(float64(canvasH) * overscanFactor)
	prefix := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase:flags=lanczos,crop=%d:%d,",
		scaledW, scaledH, scaledW, scaledH)
	suffix := fmt.Sprintf(":d=%d:s=%dx%d:fps=%d,format=yuv420p", frames, canvasW, canvasH, fps)

	var zoompan string
	switch effect {
	case EffectZoomOut:
		zoompan = fmt.Sprintf("zoompan=z='1.15-0.10*sin(on/%d*PI/2)':x='0':y='0'", frames)
	case EffectPanLeft:
		zoompan = fmt.Sprintf("zoompan=z='1.0':x='(iw-ow)*on/%d':y='0'", frames)
	case EffectPanRight:
		zoompan = fmt.Sprintf("zoompan=z='1.0':x='(iw-ow)*(1-on/%d)':y='0'", frames)
	default:
		// zoom_in, also the fallback for anything unresolved
		zoompan = fmt.Sprintf("zoompan=z='1.0+0.10*sin(on/%d*PI/2)':x='0':y='0'", frames)
	}
	return prefix + zoompan + suffix
}

// imageClipArgs renders one visual to a silent mp4 of the clip duration. A
// still image is looped for the frame count; a video input is trimmed by time
// instead.
func imageClipArgs(binary, visualPath string, duration float64, canvasW, canvasH, fps int, effect Effect, profile encoder.Profile, outPath string) []string {
	dur := duration
	if dur < minClipSeconds {
		dur = minClipSeconds
	}
	frames := clipFrames(dur, fps)
	vf := motionFilter(effect, canvasW, canvasH, frames, fps)

	var args []string
	if visualIsVideo(visualPath) {
		args = []string{
			binary, "-y",
			"-i", visualPath,
			"-t", formatSeconds(dur),
		}
	} else {
		args = []string{
			binary, "-y",
			"-loop", "1",
			"-i", visualPath,
			"-frames:v", strconv.Itoa(frames),
		}
	}
	return append(args,
		"-vf", vf,
		"-an",
		"-r", strconv.Itoa(fps),
		"-c:v", profile.Codec,
		"-preset", profile.Preset,
		"-pix_fmt", "yuv420p",
		"-map_metadata", "-1",
		"-movflags", "+faststart",
		"-loglevel", "error",
		outPath,
	)
}
