package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rythmx/internal/daemonctl"
)

func newIdentityCommand(ctx *commandContext) *cobra.Command {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Artist identity resolution tools",
	}
	identityCmd.AddCommand(newIdentityResolveCommand(ctx))
	return identityCmd
}

func newIdentityResolveCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve ARTIST",
		Short: "Resolve an artist name against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artist := strings.Join(args, " ")
			return ctx.withClient(func(client *daemonctl.Client) error {
				resolution, err := client.ResolveIdentity(cmd.Context(), artist, force)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resolution)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				kind := statusOK
				if resolution.Confidence < 85 {
					kind = statusWarn
				}
				matched := resolution.CatalogArtistName
				if matched == "" {
					matched = "(no match)"
				}
				fmt.Fprintln(out, renderSectionHeader(resolution.Artist, colorize))
				fmt.Fprintln(out, renderStatusLine("Match", kind, matched, colorize))
				fmt.Fprintln(out, renderStatusLine("Catalog ID", statusInfo, resolution.CatalogArtistID, colorize))
				fmt.Fprintln(out, renderStatusLine("Confidence", kind, fmt.Sprintf("%d (%s)", resolution.Confidence, resolution.Method), colorize))
				fmt.Fprintln(out, renderStatusLine("Cached", statusInfo, yesNo(resolution.FromCache), colorize))
				if len(resolution.Reasons) > 0 {
					fmt.Fprintln(out, renderStatusLine("Reasons", statusInfo, strings.Join(resolution.Reasons, ", "), colorize))
				}

				if len(resolution.Candidates) > 0 {
					rows := make([][]string, 0, len(resolution.Candidates))
					for _, candidate := range resolution.Candidates {
						overlap := "-"
						if candidate.Overlap >= 0 {
							overlap = fmt.Sprintf("%d", candidate.Overlap)
						}
						rows = append(rows, []string{
							candidate.Name,
							fmt.Sprintf("%d", candidate.ID),
							fmt.Sprintf("%d", candidate.Score),
							overlap,
						})
					}
					fmt.Fprintln(out, renderTable(
						[]column{{name: "Candidate"}, {name: "ID", numeric: true}, {name: "Score", numeric: true}, {name: "Overlap", numeric: true}},
						rows,
					))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass the identity cache")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
