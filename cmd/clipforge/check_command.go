package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/compat"
	"clipforge/internal/project"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var target string

	cmd := &cobra.Command{
		Use:         "check <project.json>",
		Short:       "Check a project document against editor versions",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := project.Parse(args[0])
			if err != nil {
				return err
			}

			var results []compat.Result
			if target != "" {
				r, err := compat.Check(doc, target)
				if err != nil {
					return err
				}
				results = []compat.Result{r}
			} else {
				results = compat.CheckAll(doc)
			}

			if jsonOut {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Valid {
					status = fmt.Sprintf("%d issues", len(r.Issues))
				}
				rows = append(rows, []string{r.Version, status})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Version", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			for _, r := range results {
				for _, issue := range r.Issues {
					fmt.Fprintf(out, "%s: %s\n", r.Version, issue.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().StringVar(&target, "target", "", "Check a single editor version")
	return cmd
}
