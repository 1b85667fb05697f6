package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render", "audio-cut", "ffmpeg exited", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to survive wrapping: %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"render", "audio-cut", "ffmpeg exited", "boom"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("nil marker should default to transient: %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("empty detail should use placeholder: %v", err)
	}
}

func TestClassifiers(t *testing.T) {
	cancelled := services.Wrap(services.ErrCancelled, "render", "video-cut", "stop requested", nil)
	if !services.IsCancelled(cancelled) {
		t.Fatal("expected IsCancelled to match wrapped sentinel")
	}
	if services.IsTimeout(cancelled) {
		t.Fatal("cancelled error should not classify as timeout")
	}
	timeout := services.Wrap(services.ErrTimeout, "exec", "ffmpeg", "deadline exceeded", nil)
	if !services.IsTimeout(timeout) {
		t.Fatal("expected IsTimeout to match wrapped sentinel")
	}
	if !services.Fatal(services.Wrap(services.ErrConfiguration, "config", "load", "bad path", nil)) {
		t.Fatal("configuration errors are fatal")
	}
	if services.Fatal(timeout) {
		t.Fatal("timeouts are retryable, not fatal")
	}
}
