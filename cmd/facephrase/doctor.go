package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"facephrase/internal/config"
	"facephrase/internal/jobs"
	"facephrase/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, external tools, the job store and the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			section(out, "Preflight", colorize)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			section(out, "Dependencies", colorize)
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				kind, detail := statusOK, dep.Resolved
				switch {
				case dep.Available:
				case dep.Optional:
					kind, detail = statusWarn, dep.Detail+" (optional)"
				default:
					kind, detail = statusError, dep.Detail
					problems++
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, kind, detail, colorize))
			}

			section(out, "Job Store", colorize)
			if !reportStore(cmd.Context(), out, cfg, colorize) {
				problems++
			}

			section(out, "Daemon", colorize)
			status, err := ctx.client().Health(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("API", statusWarn, fmt.Sprintf("%s unreachable", ctx.apiBaseURL()), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("API", statusOK, fmt.Sprintf("%s (pid %d)", ctx.apiBaseURL(), status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Runner", statusInfo,
					fmt.Sprintf("%d/%d slots busy, %d in flight", status.Workflow.Running, status.Workflow.Slots, status.Workflow.InFlight), colorize))
				for _, stage := range status.Workflow.StageHealth {
					kind := statusOK
					if !stage.Ready {
						kind = statusError
						problems++
					}
					fmt.Fprintln(out, renderStatusLine("Stage "+stage.Name, kind, stage.Detail, colorize))
				}
			}

			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}

func section(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func reportStore(ctx context.Context, out io.Writer, cfg *config.Config, colorize bool) bool {
	store, err := jobs.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return false
	}
	defer store.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := store.CheckHealth(checkCtx)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Database", statusError, err.Error(), colorize))
		return false
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusOK,
		fmt.Sprintf("%s %s (schema v%d, %d jobs)", health.Driver, health.Location, health.SchemaVersion, health.TotalJobs), colorize))
	return true
}
