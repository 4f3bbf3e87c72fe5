package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rythmx/internal/api"
	"rythmx/internal/daemonctl"
	"rythmx/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the acquisition queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueCheckCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range statuses {
				if _, err := store.ParseStatus(raw); err != nil {
					return err
				}
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.Queue(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				renderQueue(cmd, resp)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderQueue(cmd *cobra.Command, resp *api.QueueListResponse) {
	out := cmd.OutOrStdout()
	if len(resp.Items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}

	rows := make([][]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		detail := item.RatingKey
		if item.Status == string(store.StatusFailed) {
			detail = item.FailureReason
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.Artist,
			item.Album,
			item.ReleaseDate,
			item.Status,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{{name: "ID", numeric: true}, {name: "Artist"}, {name: "Album"}, {name: "Released"}, {name: "Status"}, {name: "Detail"}},
		rows,
	))

	if len(resp.Stats) > 0 {
		names := make([]string, 0, len(resp.Stats))
		for name := range resp.Stats {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%d %s", resp.Stats[name], name))
		}
		fmt.Fprintln(out, "Totals:", strings.Join(parts, ", "))
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var date string
	var kind string

	cmd := &cobra.Command{
		Use:   "add ARTIST ALBUM",
		Short: "Queue a release for acquisition by hand",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.Enqueue(cmd.Context(), api.EnqueueRequest{
					Artist: args[0],
					Album:  args[1],
					Date:   date,
					Kind:   kind,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.Created {
					fmt.Fprintf(out, "Already queued as item %d (%s)\n", resp.Item.ID, resp.Item.Status)
					return nil
				}
				fmt.Fprintf(out, "Queued %s - %s as item %d\n", resp.Item.Artist, resp.Item.Album, resp.Item.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Release date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&kind, "kind", "album", "Release kind: album, ep, or single")
	return cmd
}

func newQueueCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one acquisition pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.CheckQueue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Checked queue: %d submitted, %d found, %d timed out, %d errors\n",
					resp.Submitted, resp.Found, resp.TimedOut, resp.Errors)
				return nil
			})
		},
	}
}
