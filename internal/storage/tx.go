package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// TxFn is a function that executes within a database transaction.
// The transaction is committed if it returns nil and rolled back otherwise.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn within a single transaction so that every
// row it touches changes together, or none do. A panic inside fn rolls the
// transaction back before being re-raised.
func (s *Store) RunInTransaction(ctx context.Context, fn TxFn) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		s.logger.Debug("rolled back transaction", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// cascade stages keyed deletes across the three collections and applies
// them child-first inside one transaction.
type cascade struct {
	subjects []int64
	items    []int64
}

func (c *cascade) apply(ctx context.Context, tx *sql.Tx) error {
	for _, id := range c.items {
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete progress for item %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete item %d: %w", id, err)
		}
	}
	for _, id := range c.subjects {
		if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete subject %d: %w", id, err)
		}
	}
	return nil
}

// stageSubjectItems adds every item of the subject to the cascade.
func (c *cascade) stageSubjectItems(ctx context.Context, tx *sql.Tx, subjectID int64) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM items WHERE subject_id = ?`, subjectID)
	if err != nil {
		return fmt.Errorf("failed to list items for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan item id for subject %d: %w", subjectID, err)
		}
		c.items = append(c.items, id)
	}
	return rows.Err()
}
