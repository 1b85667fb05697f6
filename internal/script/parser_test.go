package script_test

import (
	"errors"
	"testing"

	"github.com/datnguyenn1231-bot/autoappv2/internal/script"
	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []script.Item
	}{
		{
			name:  "two markers",
			input: "[V1] hello world [V2] goodbye now",
			want:  []script.Item{{ID: 1, Text: "hello world"}, {ID: 2, Text: "goodbye now"}},
		},
		{
			name:  "lowercase marker and multiline text",
			input: "[v3] first line\nsecond line\n[V4] tail",
			want:  []script.Item{{ID: 3, Text: "first line\nsecond line"}, {ID: 4, Text: "tail"}},
		},
		{
			name:  "marker with no text yields empty item",
			input: "[V1] spoken [V2]   [V3] more",
			want:  []script.Item{{ID: 1, Text: "spoken"}, {ID: 2, Text: ""}, {ID: 3, Text: "more"}},
		},
		{
			name:  "ids out of order and duplicated are preserved",
			input: "[V9] nine [V2] two [V9] nine again",
			want:  []script.Item{{ID: 9, Text: "nine"}, {ID: 2, Text: "two"}, {ID: 9, Text: "nine again"}},
		},
		{
			name:  "leading prose before first marker is ignored",
			input: "draft notes\n[V1] actual narration",
			want:  []script.Item{{ID: 1, Text: "actual narration"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  []script.Item{},
		},
		{
			name:  "whitespace only input",
			input: "  \n\t ",
			want:  []script.Item{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := script.Parse(tc.input)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d items, want %d: %+v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("item %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestParseRejectsMarkerlessContent(t *testing.T) {
	_, err := script.Parse("just some prose with no markers at all")
	if err == nil {
		t.Fatal("expected format error")
	}
	if !errors.Is(err, services.ErrScriptFormat) {
		t.Fatalf("expected script format marker, got %v", err)
	}
}
