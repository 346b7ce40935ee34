package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/domain"
)

func newItemsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and edit items",
	}

	list := &cobra.Command{
		Use:   "list SUBJECT_ID",
		Short: "List the items of a subject with their level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := lib.Subject(cmd.Context(), subjectID); err != nil {
				return err
			}
			items, err := lib.Items(cmd.Context(), subjectID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLEVEL\tFRONT\tBACK")
			for _, it := range items {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", it.ID, it.Level, it.Front, it.Back)
			}
			return tw.Flush()
		},
	}

	var front, frontInfo, back, backInfo string
	edit := &cobra.Command{
		Use:   "edit ITEM_ID",
		Short: "Replace the text of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			item := domain.Item{ID: id, Front: front, FrontInfo: frontInfo, Back: back, BackInfo: backInfo}
			if err := lib.UpdateItem(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated item %d.\n", id)
			return nil
		},
	}
	edit.Flags().StringVar(&front, "front", "", "front text")
	edit.Flags().StringVar(&frontInfo, "front-info", "", "front supplementary text")
	edit.Flags().StringVar(&back, "back", "", "back text")
	edit.Flags().StringVar(&backInfo, "back-info", "", "back supplementary text")

	remove := &cobra.Command{
		Use:   "delete ITEM_ID",
		Short: "Delete an item and its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			if err := lib.DeleteItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %d.\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, edit, remove)
	return cmd
}
