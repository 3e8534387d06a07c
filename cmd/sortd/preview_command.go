package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sortd/internal/organize"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Show where each scanned file would go without moving anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}

			runner := organize.NewRunner(cfg, catalog, nil, nil)
			planned, err := runner.Preview(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(planned) == 0 {
				fmt.Fprintln(out, "Nothing to organize.")
				return nil
			}

			rows := make([][]string, 0, len(planned))
			for _, entry := range planned {
				action := entry.Destination
				if entry.Skip {
					action = "(skip, destination exists)"
				}
				rows = append(rows, []string{entry.SourcePath, entry.Category, action})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Source", "Category", "Destination"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
