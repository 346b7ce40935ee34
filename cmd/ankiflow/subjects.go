package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/domain"
)

func newSubjectsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage subjects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			subjects, err := lib.Subjects(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFRONT\tBACK")
			for _, s := range subjects {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Name, s.Settings.FrontLang, s.Settings.BackLang)
			}
			return tw.Flush()
		},
	}

	var frontLang, backLang string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			id, err := lib.CreateSubject(cmd.Context(), args[0], domain.Settings{FrontLang: frontLang, BackLang: backLang})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created subject %d.\n", id)
			return nil
		},
	}
	add.Flags().StringVar(&frontLang, "front-lang", "en-US", "speech language of the front side")
	add.Flags().StringVar(&backLang, "back-lang", "en-US", "speech language of the back side")

	var newName, setFront, setBack string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Rename a subject or replace its languages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch domain.SubjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &newName
			}
			if cmd.Flags().Changed("front-lang") || cmd.Flags().Changed("back-lang") {
				patch.Settings = &domain.Settings{FrontLang: setFront, BackLang: setBack}
			}
			if patch.Name == nil && patch.Settings == nil {
				return fmt.Errorf("nothing to update: pass --name, --front-lang or --back-lang")
			}

			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			if err := lib.UpdateSubject(cmd.Context(), id, patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated subject %d.\n", id)
			return nil
		},
	}
	update.Flags().StringVar(&newName, "name", "", "new name")
	update.Flags().StringVar(&setFront, "front-lang", "", "front language; replaces both languages")
	update.Flags().StringVar(&setBack, "back-lang", "", "back language; replaces both languages")

	remove := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a subject with all of its items",
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
			if err := lib.DeleteSubject(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted subject %d.\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, update, remove)
	return cmd
}
