package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rythmx/internal/daemonctl"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the release cache",
	}
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var artist string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached releases so the next cycle refetches them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.ClearCache(cmd.Context(), artist)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Artist != "" {
					fmt.Fprintf(out, "Cleared cached releases for %s\n", resp.Artist)
				} else {
					fmt.Fprintln(out, "Cleared the release cache")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&artist, "artist", "a", "", "Clear only this artist (default clears everything)")
	return cmd
}
