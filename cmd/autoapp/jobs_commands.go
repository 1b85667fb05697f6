package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/datnguyenn1231-bot/autoappv2/internal/jobstore"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect persisted runs and clip jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	return jobsCmd
}

func (c *commandContext) withStore(fn func(*jobstore.Store) error) error {
	cfg := c.configValue()
	store, err := jobstore.Open(cfg.Paths.JobDBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.Mode,
						string(run.Status),
						run.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Mode", "Status", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the clip jobs of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				runID := args[0]
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("run %s: %w", runID, err)
				}

				var jobs []jobstore.Job
				if failedOnly {
					jobs, err = store.FailedJobs(cmd.Context(), runID)
				} else {
					jobs, err = store.JobsForRun(cmd.Context(), runID)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s (%s, %s)\n", run.ID, run.Mode, run.Status)
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					errMsg := job.ErrorMsg
					if len(errMsg) > 50 {
						errMsg = errMsg[:50] + "..."
					}
					rows = append(rows, []string{
						strconv.Itoa(job.ScriptID),
						string(job.Status),
						fmt.Sprintf("%.2f", job.StartSec),
						fmt.Sprintf("%.2f", job.EndSec),
						errMsg,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Start", "End", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Show only jobs that did not finish")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all persisted runs and clip jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Job history cleared")
				return nil
			})
		},
	}
}
