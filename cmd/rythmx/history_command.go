package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rythmx/internal/daemonctl"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent cycle outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No history recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{
						entry.CreatedAt.Local().Format("2006-01-02 15:04"),
						entry.Mode,
						entry.Artist,
						entry.Album,
						entry.Outcome,
						entry.Reason,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{{name: "When"}, {name: "Mode"}, {name: "Artist"}, {name: "Album"}, {name: "Outcome"}, {name: "Reason"}},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
