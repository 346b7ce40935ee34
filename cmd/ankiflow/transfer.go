package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/backup"
)

// openInput returns stdin for "-" and the named file otherwise.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func newImportCommand(a *app) *cobra.Command {
	var clearExisting bool
	cmd := &cobra.Command{
		Use:   "import SUBJECT_ID FILE",
		Short: "Import tab or comma delimited cards into a subject",
		Long: "Each line is one card. Columns are front, front info, back, back info;\n" +
			"three columns are read as front, back, front info. Use - for stdin.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := openInput(cmd, args[1])
			if err != nil {
				return err
			}
			defer in.Close()

			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			n, err := lib.ImportText(cmd.Context(), subjectID, in, clearExisting)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards.\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearExisting, "clear", false, "replace the subject's existing cards")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export SUBJECT_ID",
		Short: "Write a backup of a subject as JSON",
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
			doc, err := lib.Export(cmd.Context(), subjectID)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return backup.Encode(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := backup.Encode(f, doc); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newRestoreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Restore a backup as a new subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			doc, err := backup.Decode(in)
			if err != nil {
				return err
			}
			lib, err := a.library(cmd.Context())
			if err != nil {
				return err
			}
			id, err := lib.Restore(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d cards into subject %d.\n", len(doc.Items), id)
			return nil
		},
	}
}
