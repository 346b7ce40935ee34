package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	storePrefix = "ankiflow-"
	storeExt    = ".db"
)

// Identity derives the store name for a caller context such as an
// originating path. The same context always yields the same name.
func Identity(context string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(context))
	return storePrefix + id.String()
}

// Dir is a directory holding independent named stores. It tracks the
// handles it has opened so that open stores are not deleted under them.
type Dir struct {
	path   string
	opts   []Option
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]int
}

// Summary describes a persisted store without keeping it open.
type Summary struct {
	Name          string
	SubjectsCount int
}

// NewDir creates the directory if needed.
func NewDir(path string, opts ...Option) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory %s: %w", ErrStorageUnavailable, path, err)
	}

	probe := &Store{logger: slog.Default()}
	for _, opt := range opts {
		opt(probe)
	}

	return &Dir{
		path:   path,
		opts:   opts,
		logger: probe.logger,
		open:   make(map[string]int),
	}, nil
}

// Open opens or creates the store belonging to the caller context.
func (d *Dir) Open(ctx context.Context, callerContext string) (*Store, error) {
	return d.OpenName(ctx, Identity(callerContext))
}

// OpenName opens or creates the store with the given name.
func (d *Dir) OpenName(ctx context.Context, name string) (*Store, error) {
	path, err := d.storePath(name)
	if err != nil {
		return nil, err
	}

	s, err := Open(ctx, path, d.opts...)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.open[name]++
	d.mu.Unlock()
	s.release = func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.open[name]--
		if d.open[name] <= 0 {
			delete(d.open, name)
		}
	}

	d.logger.Debug("store opened", "name", name, "path", path)
	return s, nil
}

// List returns the names of all stores in the directory, sorted.
func (d *Dir) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.path, storePrefix+"*"+storeExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list stores in %s: %w", d.path, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), storeExt))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the named store. It fails with ErrBlocked while a handle
// opened through this Dir is still open.
func (d *Dir) Delete(name string) error {
	path, err := d.storePath(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open[name] > 0 {
		return fmt.Errorf("%w: %s", ErrBlocked, name)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, name)
		}
		return fmt.Errorf("failed to delete store %s: %w", name, err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove store sidecar file", "name", name, "file", path+suffix, "error", err)
		}
	}

	d.logger.Info("store deleted", "name", name)
	return nil
}

// Summary opens the named store read-only and counts its subjects. A store
// without the subjects table counts zero; a store that cannot be opened is an error.
func (d *Dir) Summary(ctx context.Context, name string) (*Summary, error) {
	path, err := d.storePath(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat store %s: %w", name, err)
	}

	conn, err := sql.Open(driverName, "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	defer conn.Close()

	var tables int
	err = conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'subjects'",
	).Scan(&tables)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of store %s: %w", name, err)
	}

	summary := &Summary{Name: name}
	if tables == 0 {
		return summary, nil
	}
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM subjects").Scan(&summary.SubjectsCount); err != nil {
		return nil, fmt.Errorf("failed to count subjects in store %s: %w", name, err)
	}
	return summary, nil
}

func (d *Dir) storePath(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || !strings.HasPrefix(name, storePrefix) {
		return "", fmt.Errorf("%w: invalid store name %q", ErrStoreNotFound, name)
	}
	return filepath.Join(d.path, name+storeExt), nil
}
