package jobstore

import "time"

// Status tracks a clip job through its lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAudioCut     Status = "audio_cut"
	StatusAudioFailed  Status = "audio_failed"
	StatusVideoMissing Status = "video_missing"
	StatusEncoding     Status = "encoding"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
	StatusAborted      Status = "aborted"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusAudioFailed, StatusVideoMissing, StatusDone, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// RunStatus tracks a whole pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID         string
	Mode       string
	AudioPath  string
	ScriptPath string
	Status     RunStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Job is one clip within a run.
type Job struct {
	ID        int64
	RunID     string
	ScriptID  int
	StartSec  float64
	EndSec    float64
	Status    Status
	AudioPath string
	VideoPath string
	Text      string
	ErrorMsg  string
	UpdatedAt time.Time
}

// Duration returns the clip length in seconds.
func (j Job) Duration() float64 {
	if j.EndSec <= j.StartSec {
		return 0
	}
	return j.EndSec - j.StartSec
}
