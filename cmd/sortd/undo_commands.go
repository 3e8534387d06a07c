package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sortd/internal/undo"
	"sortd/internal/undolog"
)

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "undo [log-id]",
		Short: "Revert an organize run from its undo log",
		Long: "Revert an organize run by replaying its undo log in reverse. " +
			"Without a log id the most recent run is reverted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			logID := ""
			if len(args) == 1 {
				logID = strings.TrimSpace(args[0])
			}
			if logID == "" {
				info, err := undolog.MostRecent(cfg.Paths.UndoDir)
				if err != nil {
					return err
				}
				logID = info.ID
			}

			confirmed := assumeYes
			if !confirmed {
				confirmed, err = promptConfirm(cmd, cfg.Paths.UndoDir, logID)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			engine := undo.NewEngine(cfg, store, logger)
			result, err := engine.Undo(cmd.Context(), logID, confirmed)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Restored %d file(s) from %s", result.Restored, result.LogID)
			if result.PrunedDirs > 0 {
				fmt.Fprintf(out, ", pruned %d empty directorie(s)", result.PrunedDirs)
			}
			fmt.Fprintln(out)
			for _, failure := range result.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", failure.DestinationPath, failure.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(newUndoListCommand(ctx))
	return cmd
}

// promptConfirm asks on the terminal before restoring. Non-interactive
// callers must pass --yes instead.
func promptConfirm(cmd *cobra.Command, undoDir, logID string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("refusing to undo without confirmation; pass --yes when not running interactively")
	}

	records, err := undolog.Load(undoDir, logID)
	if err != nil {
		return false, err
	}
	moved := 0
	for _, rec := range records {
		if rec.Outcome == undolog.OutcomeMoved {
			moved++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Restore %d file(s) from %s? [y/N] ", moved, logID)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func newUndoListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the undo logs available to revert",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			infos, err := undolog.List(cfg.Paths.UndoDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No undo logs.")
				return nil
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{
					info.ID,
					info.CreatedAt.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%d", info.Records),
					fmt.Sprintf("%d B", info.Size),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Log", "Created", "Records", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}
