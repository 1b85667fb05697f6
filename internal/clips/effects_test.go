package clips

import "testing"

func TestParseEffect(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Effect
	}{
		{"empty means static", "", EffectStatic},
		{"none alias", "none", EffectStatic},
		{"kenburns alias", "kenburns", EffectZoomIn},
		{"mixed case with space", "  Zoom_In ", EffectZoomIn},
		{"zoom out", "zoom_out", EffectZoomOut},
		{"pan left", "pan_left", EffectPanLeft},
		{"pan right", "pan right", EffectPanRight},
		{"random", "random", EffectRandom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEffect(tc.in)
			if err != nil {
				t.Fatalf("ParseEffect(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseEffect(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseEffectRejectsUnknown(t *testing.T) {
	if _, err := ParseEffect("wobble"); err == nil {
		t.Fatal("unknown effect should be rejected")
	}
}

func TestEffectConcrete(t *testing.T) {
	if got := EffectRandom.concrete(func(int) int { return 0 }); got != EffectZoomIn {
		t.Fatalf("pick 0 should resolve zoom_in, got %q", got)
	}
	if got := EffectRandom.concrete(func(int) int { return 1 }); got != EffectZoomOut {
		t.Fatalf("pick 1 should resolve zoom_out, got %q", got)
	}
	if got := EffectPanLeft.concrete(func(int) int { return 0 }); got != EffectPanLeft {
		t.Fatalf("non-random effect must pass through, got %q", got)
	}
}
