package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/storage"
)

func newStoresCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Maintain the stores in the data directory",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stores with their subject counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.storeDir()
			if err != nil {
				return err
			}
			names, err := dir.List()
			if err != nil {
				return err
			}
			current := storage.Identity(a.cfg.Context)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSUBJECTS\t")
			for _, name := range names {
				marker := ""
				if name == current {
					marker = "*"
				}
				summary, err := dir.Summary(cmd.Context(), name)
				if err != nil {
					a.logger.Warn("failed to summarise store", "name", name, "error", err)
					fmt.Fprintf(tw, "%s\t?\t%s\n", name, marker)
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", name, summary.SubjectsCount, marker)
			}
			return tw.Flush()
		},
	}

	summary := &cobra.Command{
		Use:   "summary [NAME]",
		Short: "Show the subject count of a store (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.storeDir()
			if err != nil {
				return err
			}
			name := storage.Identity(a.cfg.Context)
			if len(args) == 1 {
				name = args[0]
			}
			s, err := dir.Summary(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d subjects\n", s.Name, s.SubjectsCount)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.storeDir()
			if err != nil {
				return err
			}
			if err := dir.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted store %s.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, summary, remove)
	return cmd
}
