package clips

import (
	"strings"

	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

// Effect selects the motion applied to a still image in image-flow mode.
type Effect string

const (
	EffectStatic   Effect = "static"
	EffectZoomIn   Effect = "zoom_in"
	EffectZoomOut  Effect = "zoom_out"
	EffectPanLeft  Effect = "pan_left"
	EffectPanRight Effect = "pan_right"
	// EffectRandom picks zoom_in or zoom_out per clip.
	EffectRandom Effect = "random"
)

// ParseEffect maps a user-facing effect name to its canonical form. The
// historical "kenburns" spelling is an alias for zoom_in, and the empty
// string means no motion.
func ParseEffect(name string) (Effect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "static":
		return EffectStatic, nil
	case "kenburns", "zoom_in", "zoom in":
		return EffectZoomIn, nil
	case "zoom_out", "zoom out":
		return EffectZoomOut, nil
	case "pan_left", "pan left":
		return EffectPanLeft, nil
	case "pan_right", "pan right":
		return EffectPanRight, nil
	case "random":
		return EffectRandom, nil
	}
	return "", services.Wrap(services.ErrValidation, "clips", "effect", "unknown effect "+name, nil)
}

// concrete resolves EffectRandom to a real motion using pick, which must
// return a value in [0, n).
func (e Effect) concrete(pick func(n int) int) Effect {
	if e != EffectRandom {
		return e
	}
	if pick(2) == 0 {
		return EffectZoomIn
	}
	return EffectZoomOut
}
