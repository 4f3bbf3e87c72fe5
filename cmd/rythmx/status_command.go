package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rythmx/internal/api"
	"rythmx/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and scheduler status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd, status)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, status *api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
	fmt.Fprintln(out, renderStatusLine("Running", boolKind(status.Running), fmt.Sprintf("pid %d", status.PID), colorize))
	if status.StorePath != "" {
		fmt.Fprintln(out, renderStatusLine("Store", statusInfo, status.StorePath, colorize))
	}

	fmt.Fprintln(out, renderSectionHeader("Scheduler", colorize))
	sched := status.Scheduler
	enabledDetail := "cycles disabled"
	if sched.Enabled {
		enabledDetail = fmt.Sprintf("mode %s, every %dh", sched.Mode, sched.CycleHours)
	}
	fmt.Fprintln(out, renderStatusLine("Enabled", boolKind(sched.Enabled), enabledDetail, colorize))
	if sched.Running {
		fmt.Fprintln(out, renderStatusLine("Cycle", statusInfo, "in progress", colorize))
	}
	if sched.LastRun != nil {
		fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, sched.LastRun.Local().Format(time.RFC1123), colorize))
	}
	if result := sched.LastResult; result != nil {
		kind := statusOK
		detail := fmt.Sprintf("%d releases, %d owned, %d queued", result.ReleasesFound, result.Owned, result.Queued)
		if result.Status != "ok" {
			kind = statusWarn
			detail = result.Status
			if result.Message != "" {
				detail += ": " + result.Message
			}
		} else if result.Message != "" {
			detail = result.Message
		}
		fmt.Fprintln(out, renderStatusLine("Last result", kind, detail, colorize))
		if result.PlaylistName != "" {
			fmt.Fprintln(out, renderStatusLine("Playlist", statusInfo, result.PlaylistName, colorize))
		}
	}

	fmt.Fprintln(out, renderSectionHeader("Library", colorize))
	libDetail := fmt.Sprintf("%s backend", status.Library.Backend)
	if status.Library.Accessible {
		libDetail = fmt.Sprintf("%s, %d tracks", libDetail, status.Library.TrackCount)
	}
	fmt.Fprintln(out, renderStatusLine("Library", boolKind(status.Library.Accessible), libDetail, colorize))

	if len(status.Queue) > 0 {
		parts := make([]string, 0, len(status.Queue))
		for name := range status.Queue {
			parts = append(parts, name)
		}
		sort.Strings(parts)
		for i, name := range parts {
			parts[i] = fmt.Sprintf("%d %s", status.Queue[name], name)
		}
		fmt.Fprintln(out, renderStatusLine("Queue", statusInfo, strings.Join(parts, ", "), colorize))
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusWarn
}
