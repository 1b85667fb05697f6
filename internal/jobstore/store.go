// Package jobstore persists run and clip-job state in SQLite so failed runs
// leave an inspectable ledger behind.
package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    audio_path TEXT NOT NULL,
    script_path TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS clip_jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    script_id INTEGER NOT NULL,
    start_sec REAL NOT NULL,
    end_sec REAL NOT NULL,
    status TEXT NOT NULL,
    audio_path TEXT,
    video_path TEXT,
    text TEXT,
    error_msg TEXT,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clip_jobs_run ON clip_jobs(run_id);
`

// Open initializes or connects to the job database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, id, mode, audioPath, scriptPath string) (Run, error) {
	now := timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, audio_path, script_path, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, mode, audioPath, scriptPath, RunRunning, now, now,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// UpdateRunStatus moves a run to its terminal state.
func (s *Store) UpdateRunStatus(ctx context.Context, id string, status RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, audio_path, script_path, status, created_at, updated_at
         FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// Runs lists the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, audio_path, script_path, status, created_at, updated_at
         FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CreateJob inserts a pending clip job and returns its id.
func (s *Store) CreateJob(ctx context.Context, job Job) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clip_jobs (run_id, script_id, start_sec, end_sec, status, audio_path, video_path, text, error_msg, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.RunID, job.ScriptID, job.StartSec, job.EndSec, StatusPending,
		nullableString(job.AudioPath), nullableString(job.VideoPath),
		nullableString(job.Text), nullableString(job.ErrorMsg), timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// SetJobStatus transitions a job, optionally recording an error message.
func (s *Store) SetJobStatus(ctx context.Context, id int64, status Status, errorMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clip_jobs SET status = ?, error_msg = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(errorMsg), timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// SetJobOutputs records the rendered artifact paths.
func (s *Store) SetJobOutputs(ctx context.Context, id int64, audioPath, videoPath string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clip_jobs SET audio_path = ?, video_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(audioPath), nullableString(videoPath), timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update job outputs: %w", err)
	}
	return nil
}

// JobsForRun lists all jobs of a run in script order.
func (s *Store) JobsForRun(ctx context.Context, runID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, script_id, start_sec, end_sec, status, audio_path, video_path, text, error_msg, updated_at
         FROM clip_jobs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FailedJobs lists the jobs of a run that did not finish.
func (s *Store) FailedJobs(ctx context.Context, runID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, script_id, start_sec, end_sec, status, audio_path, video_path, text, error_msg, updated_at
         FROM clip_jobs WHERE run_id = ? AND status IN (?, ?, ?) ORDER BY id`,
		runID, StatusAudioFailed, StatusFailed, StatusAborted)
	if err != nil {
		return nil, fmt.Errorf("query failed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Clear removes all runs and jobs.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clip_jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var status, createdAt, updatedAt string
	if err := row.Scan(&run.ID, &run.Mode, &run.AudioPath, &run.ScriptPath, &status, &createdAt, &updatedAt); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.CreatedAt = parseTime(createdAt)
	run.UpdatedAt = parseTime(updatedAt)
	return run, nil
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status, updatedAt string
	var audioPath, videoPath, text, errorMsg sql.NullString
	if err := row.Scan(&job.ID, &job.RunID, &job.ScriptID, &job.StartSec, &job.EndSec,
		&status, &audioPath, &videoPath, &text, &errorMsg, &updatedAt); err != nil {
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.Status = Status(status)
	job.AudioPath = audioPath.String
	job.VideoPath = videoPath.String
	job.Text = text.String
	job.ErrorMsg = errorMsg.String
	job.UpdatedAt = parseTime(updatedAt)
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
