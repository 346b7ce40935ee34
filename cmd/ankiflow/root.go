package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hiansit/ankiflow/internal/config"
	"github.com/hiansit/ankiflow/internal/level"
	"github.com/hiansit/ankiflow/internal/library"
	"github.com/hiansit/ankiflow/internal/logging"
	"github.com/hiansit/ankiflow/internal/speech"
	"github.com/hiansit/ankiflow/internal/storage"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger

	dir   *storage.Dir
	store *storage.Store
	lib   *library.Library
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "ankiflow",
		Short:         "Flashcards grouped into subjects, reviewed by level",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.String("data-dir", "", "directory holding the stores")
	flags.String("context", "", "origin the store identity is derived from (default: working directory)")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")
	flags.Int("max-level", level.DefaultMax, "highest mastery level")

	cmd.AddCommand(
		newSubjectsCommand(a),
		newItemsCommand(a),
		newImportCommand(a),
		newExportCommand(a),
		newRestoreCommand(a),
		newReviewCommand(a),
		newStoresCommand(a),
		newSyncCommand(a),
		newServeCommand(a),
	)
	return cmd
}

// storeDir opens the data directory.
func (a *app) storeDir() (*storage.Dir, error) {
	if a.dir != nil {
		return a.dir, nil
	}
	dir, err := storage.NewDir(a.cfg.DataDir, storage.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.dir = dir
	return dir, nil
}

// library opens the store for the configured context and wraps it.
func (a *app) library(ctx context.Context) (*library.Library, error) {
	if a.lib != nil {
		return a.lib, nil
	}
	dir, err := a.storeDir()
	if err != nil {
		return nil, err
	}
	store, err := dir.Open(ctx, a.cfg.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a.store = store

	var speaker speech.Speaker = speech.Nop{}
	if a.cfg.SpeechCommand != "" {
		speaker = speech.Command{Path: a.cfg.SpeechCommand}
	}

	a.lib = library.New(store, library.Options{
		Policy:        &level.Policy{Max: a.cfg.MaxLevel},
		Speaker:       speaker,
		SpeechRate:    a.cfg.SpeechRate,
		SpeechTimeout: a.cfg.SpeechTimeout,
		Logger:        a.logger,
	})
	return a.lib, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.lib = nil, nil
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
