package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/daemon"
	"facephrase/internal/jobs"
	"facephrase/internal/services"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var image string
	var script string
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a photo and script for video generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(strings.TrimSpace(image))
			if err != nil {
				return fmt.Errorf("resolve image path: %w", err)
			}
			if path == "" {
				return errors.New("--image is required")
			}
			if strings.TrimSpace(script) == "" {
				return errors.New("--script is required")
			}
			if n := utf8.RuneCountInString(script); n > daemon.MaxScriptRunes {
				return fmt.Errorf("script is %d characters; the limit is %d", n, daemon.MaxScriptRunes)
			}

			client := ctx.client()
			id, err := client.Submit(cmd.Context(), path, script)
			if err != nil {
				return err
			}
			if !wait {
				if asJSON {
					return writeJSON(cmd, api.SubmitResponse{JobID: id})
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			return watchJob(cmd, ctx, id, time.Second, asJSON)
		},
	}

	cmd.Flags().StringVarP(&image, "image", "i", "", "Photo to animate (jpg or png)")
	cmd.Flags().StringVarP(&script, "script", "s", "", "Text to speak, at most 200 characters")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Watch the job until it finishes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the progress of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.client().Status(cmd.Context(), args[0])
			if err != nil {
				return describeJobError(args[0], err)
			}
			if asJSON {
				return writeJSON(cmd, view)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatStatusLine(view, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Show the video and poster URLs of a finished job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			view, err := client.Result(cmd.Context(), args[0])
			if err != nil {
				return describeJobError(args[0], err)
			}
			if asJSON {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Video:    %s\n", client.MediaURL(view.VideoURL))
			fmt.Fprintf(out, "Poster:   %s\n", client.MediaURL(view.PosterURL))
			fmt.Fprintf(out, "Duration: %ds\n", view.DurationSec)
			fmt.Fprintf(out, "Size:     %dx%d\n", view.Width, view.Height)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Poll a job until it is ready or failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd, ctx, args[0], interval, asJSON)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output each snapshot as JSON")
	return cmd
}

// watchJob prints a line per status change and fails when the job ends in
// error.
func watchJob(cmd *cobra.Command, ctx *commandContext, id string, interval time.Duration, asJSON bool) error {
	if interval <= 0 {
		interval = time.Second
	}
	client := ctx.client()
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	var last api.StatusView
	first := true
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		view, err := client.Status(cmd.Context(), id)
		if err != nil {
			return describeJobError(id, err)
		}
		if first || view.Status != last.Status || view.Progress != last.Progress {
			if asJSON {
				if err := writeJSON(cmd, daemon.WatchEvent{JobID: id, StatusView: view}); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, formatStatusLine(view, colorize))
			}
			last = view
			first = false
		}
		switch jobs.Status(view.Status) {
		case jobs.StatusReady:
			if !asJSON {
				fmt.Fprintf(out, "Run `facephrase result %s` for the video URL\n", id)
			}
			return nil
		case jobs.StatusError:
			return fmt.Errorf("job %s failed: %s", id, view.Error)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func describeJobError(id string, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fmt.Errorf("job %s not found", id)
	case errors.Is(err, services.ErrNotReady):
		return fmt.Errorf("job %s is not ready yet; use `facephrase watch %s`", id, id)
	default:
		return err
	}
}

func formatStatusLine(view api.StatusView, colorize bool) string {
	kind := statusInfo
	switch jobs.Status(view.Status) {
	case jobs.StatusReady:
		kind = statusOK
	case jobs.StatusError:
		kind = statusError
	}
	message := fmt.Sprintf("%3d%%", view.Progress)
	if view.Stage != "" {
		message += "  " + view.Stage
	}
	if view.Error != "" {
		message += "  " + view.Error
	}
	return renderStatusLine(view.Status, kind, message, colorize)
}
