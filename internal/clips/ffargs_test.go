package clips

import (
	"strings"
	"testing"

	"github.com/datnguyenn1231-bot/autoappv2/internal/media/encoder"
)

func TestAudioCutArgs(t *testing.T) {
	args := audioCutArgs("ffmpeg", "/in/narration.wav", 1.5, 4.25, "/out/audios/007.mp3")
	want := []string{
		"ffmpeg", "-y",
		"-ss", "1.5",
		"-to", "4.25",
		"-i", "/in/narration.wav",
		"-vn", "-acodec", "libmp3lame",
		"-q:a", "2",
		"-loglevel", "error",
		"/out/audios/007.mp3",
	}
	assertArgs(t, args, want)
}

func TestVideoCutArgsCopyThenAAC(t *testing.T) {
	profile := encoder.Hardware()
	copyArgs := videoCutArgs("ffmpeg", "/src/7.mp4", 2.5, 30, profile, "copy", "192k", "/out/videos/007.mp4")
	joined := strings.Join(copyArgs, " ")
	for _, want := range []string{
		"-ss 0 -i /src/7.mp4 -t 2.5",
		"-vf scale=trunc(iw/2)*2:trunc(ih/2)*2,fps=30",
		"-map 0:v:0 -map 0:a?",
		"-c:v h264_nvenc -preset p1",
		"-c:a copy -shortest",
		"-map_metadata -1",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("copy argv %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "-b:a") {
		t.Fatal("stream copy must not carry an audio bitrate")
	}

	aacArgs := videoCutArgs("ffmpeg", "/src/7.mp4", 2.5, 30, profile, "aac", "192k", "/out/videos/007.mp4")
	joined = strings.Join(aacArgs, " ")
	if !strings.Contains(joined, "-c:a aac -b:a 192k -shortest") {
		t.Fatalf("aac retry argv %q missing bitrate before -shortest", joined)
	}
}

func TestClipFrames(t *testing.T) {
	cases := []struct {
		duration float64
		fps      int
		want     int
	}{
		{2.0, 30, 60},
		{0.5, 30, 15},
		{0.01, 30, 3},  // floored to 0.10s
		{-1.0, 30, 3},  // floored to 0.10s
		{0.034, 30, 3}, // never below one frame
		{2.0, 60, 120},
		{0.5, 24, 12},
	}
	for _, tc := range cases {
		if got := clipFrames(tc.duration, tc.fps); got != tc.want {
			t.Fatalf("clipFrames(%v, %d) = %d, want %d", tc.duration, tc.fps, got, tc.want)
		}
	}
}

func TestMotionFilterStatic(t *testing.T) {
	got := motionFilter(EffectStatic, 1080, 1920, 60, 30)
	want := "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,format=yuv420p"
	if got != want {
		t.Fatalf("static filter = %q, want %q", got, want)
	}
}

func TestMotionFilterKenBurns(t *testing.T) {
	cases := []struct {
		effect Effect
		want   string
	}{
		{EffectZoomIn, "zoompan=z='1.0+0.10*sin(on/60*PI/2)':x='0':y='0':d=60:s=1080x1920:fps=30"},
		{EffectZoomOut, "zoompan=z='1.15-0.10*sin(on/60*PI/2)':x='0':y='0':d=60:s=1080x1920:fps=30"},
		{EffectPanLeft, "zoompan=z='1.0':x='(iw-ow)*on/60':y='0':d=60:s=1080x1920:fps=30"},
		{EffectPanRight, "zoompan=z='1.0':x='(iw-ow)*(1-on/60)':y='0':d=60:s=1080x1920:fps=30"},
	}
	prefix := "scale=1242:2208:force_original_aspect_ratio=increase:flags=lanczos,crop=1242:2208,"
	for _, tc := range cases {
		got := motionFilter(tc.effect, 1080, 1920, 60, 30)
		if !strings.HasPrefix(got, prefix) {
			t.Fatalf("%s filter missing overscan prefix: %q", tc.effect, got)
		}
		if !strings.Contains(got, tc.want) {
			t.Fatalf("%s filter = %q, want zoompan %q", tc.effect, got, tc.want)
		}
		if !strings.HasSuffix(got, ",format=yuv420p") {
			t.Fatalf("%s filter missing pixel format: %q", tc.effect, got)
		}
	}
}

func TestImageClipArgsStillImage(t *testing.T) {
	args := imageClipArgs("ffmpeg", "/pool/a.jpg", 2.0, 1080, 1920, 30, EffectStatic, encoder.Software(), "/out/videos/001.mp4")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-loop 1 -i /pool/a.jpg",
		"-frames:v 60",
		"-an -r 30",
		"-c:v libx264 -preset ultrafast",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("still-image argv %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "-t ") {
		t.Fatal("still images are framed, not trimmed by time")
	}
}

func TestImageClipArgsVideoInput(t *testing.T) {
	args := imageClipArgs("ffmpeg", "/pool/broll.MP4", 2.0, 1080, 1920, 30, EffectZoomIn, encoder.Hardware(), "/out/videos/002.mp4")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i /pool/broll.MP4 -t 2") {
		t.Fatalf("video input argv %q should trim by time", joined)
	}
	if strings.Contains(joined, "-loop") || strings.Contains(joined, "-frames:v") {
		t.Fatalf("video input argv %q must not loop frames", joined)
	}
}

func TestCustomFrameRate(t *testing.T) {
	cut := strings.Join(videoCutArgs("ffmpeg", "/src/7.mp4", 2.5, 60, encoder.Software(), "copy", "192k", "/out/videos/007.mp4"), " ")
	if !strings.Contains(cut, "fps=60") {
		t.Fatalf("cut argv %q should carry the configured frame rate", cut)
	}

	clip := strings.Join(imageClipArgs("ffmpeg", "/pool/a.jpg", 2.0, 1080, 1920, 24, EffectZoomIn, encoder.Software(), "/out/videos/001.mp4"), " ")
	for _, want := range []string{"-frames:v 48", ":fps=24", "-r 24", ":d=48:"} {
		if !strings.Contains(clip, want) {
			t.Fatalf("image argv %q missing %q", clip, want)
		}
	}
}

func TestVisualIsVideo(t *testing.T) {
	for path, want := range map[string]bool{
		"/p/a.jpg":     false,
		"/p/a.png":     false,
		"/p/clip.mp4":  true,
		"/p/clip.MOV":  true,
		"/p/clip.webm": true,
		"/p/noext":     false,
	} {
		if got := visualIsVideo(path); got != want {
			t.Fatalf("visualIsVideo(%q) = %v, want %v", path, got, want)
		}
	}
}

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("argv length %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}
