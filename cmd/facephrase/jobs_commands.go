package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/jobs"
)

const defaultPruneAge = 720 * time.Hour

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs recorded in the job store",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					summaries := api.FromJobs(items)
					if summaries == nil {
						summaries = []api.JobSummary{}
					}
					return writeJSON(cmd, summaries)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No jobs found")
					return nil
				}
				fmt.Fprintln(out, renderJobsTable(items, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (queued, processing, assembling, ready, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.AddCommand(newJobsPruneCommand(ctx))
	return cmd
}

func newJobsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs and their files",
		Long: "Delete ready and error jobs last updated before --older-than, " +
			"together with their uploads and output directories. Active jobs are never touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			cutoff := time.Now().UTC().Add(-olderThan)
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				out := cmd.OutOrStdout()
				if dryRun {
					items, err := store.List(cmd.Context(), jobs.StatusReady, jobs.StatusError)
					if err != nil {
						return err
					}
					count := 0
					for _, job := range items {
						if job.UpdatedAt.Before(cutoff) {
							fmt.Fprintf(out, "Would prune %s (%s, updated %s)\n", job.ID, job.Status, formatAge(job.UpdatedAt, time.Now()))
							count++
						}
					}
					fmt.Fprintf(out, "%d job(s) eligible for pruning\n", count)
					return nil
				}

				ids, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				var failures []string
				for _, id := range ids {
					if err := removeJobFiles(cfg, id); err != nil {
						failures = append(failures, err.Error())
					}
				}
				fmt.Fprintf(out, "Pruned %d job(s)\n", len(ids))
				if len(failures) > 0 {
					return fmt.Errorf("remove job files: %s", strings.Join(failures, "; "))
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", defaultPruneAge, "Minimum age since the last update")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List eligible jobs without deleting anything")
	return cmd
}

// removeJobFiles deletes the output and upload directories of a pruned job.
func removeJobFiles(cfg *config.Config, id string) error {
	dirs := []string{
		jobs.JobDir(cfg.Paths.OutputsDir, id),
		filepath.Dir(jobs.UploadPath(cfg.Paths.UploadsDir, id, "")),
	}
	var errs []error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

func parseStatusFlags(values []string) ([]jobs.Status, error) {
	var statuses []jobs.Status
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := jobs.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(value))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func renderJobsTable(items []*jobs.Job, now time.Time) string {
	headers := []string{"ID", "Status", "Progress", "Stage", "Script", "Updated"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
	rows := make([][]string, 0, len(items))
	for _, job := range items {
		summary := api.FromJob(job)
		detail := summary.Stage
		if job.Status == jobs.StatusError {
			detail = truncate(job.ErrorMessage, 40)
		}
		rows = append(rows, []string{
			job.ID,
			string(job.Status),
			fmt.Sprintf("%d%%", job.Progress),
			detail,
			truncate(job.Script, 32),
			formatAge(job.UpdatedAt, now),
		})
	}
	return renderTable(headers, rows, aligns)
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
