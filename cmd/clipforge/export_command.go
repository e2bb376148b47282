package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "export <asset>",
		Short: "Run the full pipeline and write an editor project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			manifest, err := runner.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, manifest)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project written to %s\n", manifest.ProjectPath)
			fmt.Fprintf(out, "%d segments, %d clips, compatible with %s: %v\n",
				manifest.Segments, manifest.Clips, manifest.Compat.Version, manifest.Compat.Valid)
			if manifest.CacheHit {
				fmt.Fprintln(out, "Frame features served from cache.")
			}
			for _, d := range manifest.Degraded {
				fmt.Fprintf(out, "Degraded: %s\n", d)
			}
			for _, w := range manifest.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run manifest as JSON")
	return cmd
}
