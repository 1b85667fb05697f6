// Package cmdexec runs external processes with cooperative cancellation,
// deadline enforcement, and process-group cleanup. Every ffmpeg, ffprobe, and
// WhisperX invocation in the pipeline goes through this kernel.
package cmdexec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/datnguyenn1231-bot/autoappv2/internal/logging"
	"github.com/datnguyenn1231-bot/autoappv2/internal/services"
)

// LastFailedCommandFile is the artifact written next to the run's work files
// when a command exits nonzero, for postmortem reproduction.
const LastFailedCommandFile = "last_failed_cmd.txt"

const defaultPollInterval = 100 * time.Millisecond

// Command describes one process invocation.
type Command struct {
	// Args is the full argv including the program name.
	Args []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env holds KEY=VALUE overrides applied on top of the sanitized
	// parent environment.
	Env map[string]string
	// Timeout bounds the whole invocation. Zero disables the deadline.
	Timeout time.Duration
	// Check turns a nonzero exit status into an error.
	Check bool
	// CaptureStdout buffers stdout into the result. When false stdout is
	// discarded so a chatty child cannot fill a pipe nobody drains.
	CaptureStdout bool
	// OnStderrLine receives each stderr line as it arrives.
	OnStderrLine func(line string)
}

// Result carries the observable outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a nonzero exit status from a checked command.
type ExitError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if len(detail) > 400 {
		detail = detail[len(detail)-400:]
	}
	if detail != "" {
		return fmt.Sprintf("%s exited with status %d: %s", filepath.Base(e.Args[0]), e.ExitCode, detail)
	}
	return fmt.Sprintf("%s exited with status %d", filepath.Base(e.Args[0]), e.ExitCode)
}

// Options configures a Runner.
type Options struct {
	Logger *slog.Logger
	// Cancelled reports whether a cooperative stop has been requested. The
	// runner checks it before launch and while polling a live process.
	Cancelled func() bool
	// GracePeriod is the SIGTERM-to-SIGKILL window.
	GracePeriod time.Duration
	// PollInterval controls how often a live process is re-checked against
	// the stop flag and the deadline.
	PollInterval time.Duration
	// ArtifactDir is where the failing-command artifact is written. Empty
	// disables the artifact.
	ArtifactDir string
}

// Runner executes Commands. The zero value is not usable; construct with New.
type Runner struct {
	logger       *slog.Logger
	cancelled    func() bool
	gracePeriod  time.Duration
	pollInterval time.Duration
	artifactDir  string
}

// New constructs a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = 2 * time.Second
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Runner{
		logger:       logging.NewComponentLogger(logger, "cmdexec"),
		cancelled:    opts.Cancelled,
		gracePeriod:  grace,
		pollInterval: poll,
		artifactDir:  opts.ArtifactDir,
	}
}

func (r *Runner) isCancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return r.cancelled != nil && r.cancelled()
}

// Execute runs one command to completion. Cancellation and timeouts terminate
// the whole process group: SIGTERM first, SIGKILL after the grace period.
func (r *Runner) Execute(ctx context.Context, command Command) (Result, error) {
	if len(command.Args) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "exec", "", "empty argv", nil)
	}
	name := filepath.Base(command.Args[0])

	if r.isCancelled(ctx) {
		return Result{}, services.Wrap(services.ErrCancelled, "exec", name, "stop requested before launch", nil)
	}

	cmd := exec.Command(command.Args[0], command.Args[1:]...) //nolint:gosec
	cmd.Dir = command.Dir
	cmd.Env = buildEnv(command.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "exec", name, "stderr pipe", err)
	}
	var stdoutPipe io.ReadCloser
	if command.CaptureStdout {
		stdoutPipe, err = cmd.StdoutPipe()
		if err != nil {
			return Result{}, services.Wrap(services.ErrConfiguration, "exec", name, "stdout pipe", err)
		}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "exec", name, "start failed", err)
	}
	r.logger.Debug("process started",
		logging.String("name", name),
		logging.Int("pid", cmd.Process.Pid),
		logging.Int("argc", len(command.Args)))

	var stderrBuf, stdoutBuf strings.Builder
	var g errgroup.Group
	g.Go(func() error {
		scanner := bufio.NewScanner(stderrPipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			stderrBuf.WriteString(line)
			stderrBuf.WriteByte('\n')
			if command.OnStderrLine != nil {
				command.OnStderrLine(line)
			}
		}
		return scanner.Err()
	})
	if stdoutPipe != nil {
		g.Go(func() error {
			_, copyErr := io.Copy(&stdoutBuf, stdoutPipe)
			return copyErr
		})
	}

	waitCh := make(chan error, 1)
	go func() {
		ioErr := g.Wait()
		waitErr := cmd.Wait()
		if waitErr == nil {
			waitErr = ioErr
		}
		waitCh <- waitErr
	}()

	var deadline time.Time
	if command.Timeout > 0 {
		deadline = start.Add(command.Timeout)
	}

	var waitErr error
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

wait:
	for {
		select {
		case waitErr = <-waitCh:
			break wait
		case <-ticker.C:
			if r.isCancelled(ctx) {
				r.terminate(cmd, name, waitCh, &waitErr)
				result := r.collect(cmd, &stdoutBuf, &stderrBuf)
				return result, services.Wrap(services.ErrCancelled, "exec", name, "stop requested", nil)
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				r.terminate(cmd, name, waitCh, &waitErr)
				r.writeArtifact(command.Args)
				result := r.collect(cmd, &stdoutBuf, &stderrBuf)
				return result, services.Wrap(services.ErrTimeout, "exec", name,
					fmt.Sprintf("exceeded %s", command.Timeout), nil)
			}
		}
	}

	result := r.collect(cmd, &stdoutBuf, &stderrBuf)
	elapsed := time.Since(start)

	// A stop that lands between the last poll and process exit still counts.
	if r.isCancelled(ctx) {
		return result, services.Wrap(services.ErrCancelled, "exec", name, "stop requested", nil)
	}

	if result.ExitCode != 0 {
		r.logger.Warn("process exited nonzero",
			logging.String("name", name),
			logging.Int(logging.FieldExitCode, result.ExitCode),
			logging.Duration(logging.FieldDuration, elapsed))
		if command.Check {
			r.writeArtifact(command.Args)
			exitErr := &ExitError{Args: command.Args, ExitCode: result.ExitCode, Stderr: result.Stderr}
			return result, services.Wrap(services.ErrExternalTool, "exec", name, "", exitErr)
		}
		return result, nil
	}
	if waitErr != nil && command.Check && result.ExitCode == 0 {
		// Exit status zero but reading the pipes failed.
		return result, services.Wrap(services.ErrExternalTool, "exec", name, "io", waitErr)
	}

	r.logger.Debug("process finished",
		logging.String("name", name),
		logging.Duration(logging.FieldDuration, elapsed))
	return result, nil
}

func (r *Runner) collect(cmd *exec.Cmd, stdout, stderr *strings.Builder) Result {
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// terminate stops the whole process group, escalating from SIGTERM to SIGKILL
// after the grace period, then waits for the reaper goroutine.
func (r *Runner) terminate(cmd *exec.Cmd, name string, waitCh chan error, waitErr *error) {
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		r.logger.Debug("terminate signal", logging.String("name", name), logging.Error(err))
	}
	select {
	case *waitErr = <-waitCh:
		return
	case <-time.After(r.gracePeriod):
	}
	r.logger.Warn("grace period elapsed, killing process group",
		logging.String("name", name),
		logging.Int("pid", pid))
	_ = unix.Kill(-pid, unix.SIGKILL)
	*waitErr = <-waitCh
}

func (r *Runner) writeArtifact(args []string) {
	if r.artifactDir == "" {
		return
	}
	if err := os.MkdirAll(r.artifactDir, 0o755); err != nil {
		r.logger.Debug("artifact dir", logging.Error(err))
		return
	}
	path := filepath.Join(r.artifactDir, LastFailedCommandFile)
	line := strings.Join(args, " ") + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		r.logger.Debug("artifact write", logging.Error(err))
	}
}
