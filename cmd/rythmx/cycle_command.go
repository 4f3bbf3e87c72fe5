package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rythmx/internal/daemonctl"
	"rythmx/internal/scheduler"
)

func newCycleCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var force bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Trigger a discovery cycle",
		Long: "Trigger a discovery cycle on the running daemon. The cycle runs in the\n" +
			"background; use `rythmx status` to see the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "" {
				if _, err := scheduler.ParseMode(mode); err != nil {
					return err
				}
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				resp, err := client.TriggerCycle(cmd.Context(), mode, force)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Triggered {
					fmt.Fprintf(out, "Cycle not triggered: %s\n", resp.Reason)
					return nil
				}
				fmt.Fprintf(out, "Cycle triggered in %s mode\n", resp.Mode)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Cycle mode: dry, playlist, or cruise (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the release cache")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
