package deps_test

import (
	"testing"

	"github.com/datnguyenn1231-bot/autoappv2/internal/deps"
)

func TestCheckBinaries(t *testing.T) {
	requirements := []deps.Requirement{
		{Name: "shell", Command: "sh", Description: "posix shell"},
		{Name: "absent", Command: "definitely-not-a-real-binary-xyz", Optional: true},
		{Name: "blank", Command: "  "},
	}
	statuses := deps.CheckBinaries(requirements)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("sh should be available: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("missing binary should carry a detail: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("blank command should be unavailable: %+v", statuses[2])
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []deps.Status{
		{Name: "ffmpeg", Available: false},
		{Name: "ffprobe", Available: true},
		{Name: "uvx", Available: false, Optional: true},
	}
	missing := deps.MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "ffmpeg" {
		t.Fatalf("unexpected missing set: %v", missing)
	}
}
