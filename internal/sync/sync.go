// Package sync reconciles deck files from local directories or git
// repositories into subjects.
package sync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/hiansit/ankiflow/internal/gitsource"
	"github.com/hiansit/ankiflow/internal/knol"
	"github.com/hiansit/ankiflow/internal/parser"
)

// deckExtensions are the file types read as decks.
var deckExtensions = map[string]bool{".csv": true, ".tsv": true, ".txt": true}

// Store is the persistence used while reconciling.
type Store interface {
	FindSubjectByName(ctx context.Context, name string) (*domain.Subject, error)
	CreateSubject(ctx context.Context, name string, settings domain.Settings) (int64, error)
	GetAllItemsWithProgress(ctx context.Context, subjectID int64) ([]domain.ItemWithProgress, error)
	ImportItems(ctx context.Context, subjectID int64, records []domain.Record, clearExisting bool) (int, error)
	DeleteItem(ctx context.Context, itemID int64) error
}

// Options controls a sync run.
type Options struct {
	// ReposDir holds checkouts of git sources.
	ReposDir string
	// Prune deletes items whose content no longer appears in their deck file.
	Prune bool
	// Settings are given to subjects created by the sync.
	Settings domain.Settings
	// Progress receives git transfer output; may be nil.
	Progress io.Writer
	Logger   *slog.Logger
}

// Report summarises a sync run.
type Report struct {
	Files    int
	Imported int
	Pruned   int
	Errors   []error
}

// Run syncs every source. Failures of one source or file are collected in
// the report and do not stop the others.
func Run(ctx context.Context, store Store, sources []string, opts Options) *Report {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	report := &Report{}

	if len(sources) == 0 {
		logger.Info("no sources configured")
		return report
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			return report
		}
		logger.Info("syncing source", "source", source)

		path := source
		if gitsource.IsGitURL(source) {
			localPath, err := gitsource.LocalPath(opts.ReposDir, source)
			if err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			if err := gitsource.Sync(ctx, source, localPath, opts.Progress, logger); err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			path = localPath
		}

		reconcileLocalSource(ctx, store, path, opts, logger, report)
	}

	logger.Info("sync complete",
		"files", report.Files,
		"imported", report.Imported,
		"pruned", report.Pruned,
		"errors", len(report.Errors),
	)
	return report
}

func reconcileLocalSource(ctx context.Context, store Store, root string, opts Options, logger *slog.Logger, report *Report) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !deckExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		report.Files++
		if err := reconcileDeck(ctx, store, path, opts, logger, report); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("syncing %s: %w", path, err))
		}
		return nil
	})
	if walkErr != nil {
		logger.Error("error walking directory", "path", root, "error", walkErr)
		report.Errors = append(report.Errors, walkErr)
	}
}

// reconcileDeck imports the records of one file into the subject named after
// it, skipping records whose content hash is already present.
func reconcileDeck(ctx context.Context, store Store, path string, opts Options, logger *slog.Logger, report *Report) error {
	records, err := parser.ParseFile(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	subject, err := store.FindSubjectByName(ctx, name)
	if err != nil {
		return err
	}
	var subjectID int64
	if subject == nil {
		subjectID, err = store.CreateSubject(ctx, name, opts.Settings)
		if err != nil {
			return err
		}
		logger.Info("created subject for deck", "subject_id", subjectID, "name", name)
	} else {
		subjectID = subject.ID
	}

	existing, err := store.GetAllItemsWithProgress(ctx, subjectID)
	if err != nil {
		return err
	}
	known := make(map[string]int64, len(existing))
	for _, it := range existing {
		known[knol.HashItem(it.Item)] = it.ID
	}

	found := make(map[string]bool, len(records))
	var fresh []domain.Record
	for _, r := range records {
		h := knol.Hash(r)
		if found[h] {
			continue
		}
		found[h] = true
		if _, ok := known[h]; !ok {
			fresh = append(fresh, r)
		}
	}

	if len(fresh) > 0 {
		n, err := store.ImportItems(ctx, subjectID, fresh, false)
		if err != nil {
			return err
		}
		report.Imported += n
	}

	if opts.Prune {
		for h, itemID := range known {
			if found[h] {
				continue
			}
			logger.Info("orphaned item, deleting", "item_id", itemID, "subject_id", subjectID)
			if err := store.DeleteItem(ctx, itemID); err != nil {
				logger.Warn("failed to delete orphaned item", "item_id", itemID, "error", err)
				continue
			}
			report.Pruned++
		}
	}

	logger.Debug("deck reconciled", "path", path, "records", len(records), "new", len(fresh))
	return nil
}
