package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/library"
	"github.com/hiansit/ankiflow/internal/sync"
)

func newSyncCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [SOURCE...]",
		Short: "Import deck files from directories or git repositories",
		Long: "Every .csv, .tsv and .txt file becomes a subject named after the file.\n" +
			"Cards already present are left alone. Without arguments the configured\n" +
			"sources are synced.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := args
			if len(sources) == 0 {
				sources = a.cfg.Sources
			}
			if _, err := a.library(cmd.Context()); err != nil {
				return err
			}

			report := sync.Run(cmd.Context(), a.store, sources, sync.Options{
				ReposDir: a.cfg.ReposDir,
				Prune:    a.cfg.Prune,
				Settings: library.DefaultSettings,
				Progress: cmd.ErrOrStderr(),
				Logger:   a.logger,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Synced %d files: %d imported, %d pruned, %d errors.\n",
				report.Files, report.Imported, report.Pruned, len(report.Errors))
			for _, err := range report.Errors {
				fmt.Fprintf(out, "- %s\n", err)
			}
			if len(report.Errors) > 0 {
				return fmt.Errorf("sync finished with %d errors", len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().Bool("prune", false, "delete cards no longer present in their deck file")
	cmd.Flags().String("repos-dir", "", "directory for git checkouts (default: <data-dir>/repos)")
	return cmd
}
