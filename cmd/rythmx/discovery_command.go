package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rythmx/internal/daemonctl"
)

func newDiscoveryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var newOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Show scored recommendations from the library's discovery pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.Discovery(cmd.Context(), limit, newOnly)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Candidates) == 0 {
					fmt.Fprintln(out, "Discovery pool is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Candidates))
				for _, candidate := range resp.Candidates {
					rows = append(rows, []string{
						candidate.Track,
						candidate.Artist,
						candidate.Album,
						strconv.FormatFloat(candidate.Score, 'f', 2, 64),
						yesNo(candidate.Owned),
						yesNo(candidate.NewRelease),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]column{{name: "Track"}, {name: "Artist"}, {name: "Album"}, {name: "Score", numeric: true}, {name: "Owned"}, {name: "New"}},
					rows,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum candidates to show")
	cmd.Flags().BoolVar(&newOnly, "new", false, "Only candidates from recent releases")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
