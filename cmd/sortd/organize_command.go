package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sortd/internal/organize"
	"sortd/internal/watcher"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Move files from the source directories into the organized tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := ctx.catalog()
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

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner := organize.NewRunner(cfg, catalog, store, logger)
			summary, err := runner.Run(runCtx, organize.Options{DryRun: dryRun})
			printSummary(cmd, summary)
			if err != nil || dryRun || !cfg.Watch.Enabled {
				return err
			}

			// watch.enabled keeps the process alive after the initial run,
			// organizing new files as they settle.
			fmt.Fprintln(cmd.OutOrStdout(), "Watching for new files. Press Ctrl-C to stop.")
			w := watcher.New(cfg, runner, logger)
			if err := w.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report planned moves without touching the filesystem")
	return cmd
}

func printSummary(cmd *cobra.Command, summary organize.Summary) {
	out := cmd.OutOrStdout()
	verb := "Moved"
	if summary.DryRun {
		verb = "Would move"
		for _, entry := range summary.Planned {
			if entry.Skip {
				fmt.Fprintf(out, "skip  %s (destination exists)\n", entry.SourcePath)
				continue
			}
			fmt.Fprintf(out, "move  %s -> %s\n", entry.SourcePath, entry.Destination)
		}
	}
	fmt.Fprintf(out, "%s %d file(s), skipped %d, failed %d\n", verb, summary.Moved, summary.Skipped, summary.Failed())
	if summary.LogID != "" {
		fmt.Fprintf(out, "Undo log: %s (run `sortd undo %s` to revert)\n", summary.LogID, summary.LogID)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", failure.SourcePath, failure.Err)
	}
}
