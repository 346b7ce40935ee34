package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hiansit/ankiflow/internal/domain"
)

// ImportItems inserts records into the subject, each with a fresh id and a
// paired progress row, and returns how many were accepted. Records with both
// sides empty are skipped. A record carrying a level restores its progress;
// otherwise progress starts at level 0, never studied. When clearExisting is
// set the subject's items are removed first. The whole batch is one transaction.
func (s *Store) ImportItems(ctx context.Context, subjectID int64, records []domain.Record, clearExisting bool) (int, error) {
	var accepted int
	err := s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, subjectID); err != nil {
			return err
		}
		if clearExisting {
			if err := clearSubject(ctx, tx, subjectID); err != nil {
				return err
			}
		}

		itemStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO items (subject_id, front, front_info, back, back_info, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare item insert: %w", err)
		}
		defer itemStmt.Close()

		progressStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO progress (item_id, level, last_studied) VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare progress insert: %w", err)
		}
		defer progressStmt.Close()

		createdAt := s.nowMillis()
		for _, r := range records {
			if r.Empty() {
				continue
			}
			res, err := itemStmt.ExecContext(ctx, subjectID, r.Front, r.FrontInfo, r.Back, r.BackInfo, createdAt)
			if err != nil {
				return fmt.Errorf("failed to insert item %q: %w", r.Front, err)
			}
			itemID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert ID for item %q: %w", r.Front, err)
			}

			level, lastStudied := 0, int64(0)
			if r.Level != nil {
				level, lastStudied = *r.Level, r.LastStudied
			}
			if level < 0 {
				return fmt.Errorf("invalid level %d for item %q", level, r.Front)
			}
			if _, err := progressStmt.ExecContext(ctx, itemID, level, lastStudied); err != nil {
				return fmt.Errorf("failed to insert progress for item %d: %w", itemID, err)
			}
			accepted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("items imported",
		"subject_id", subjectID,
		"accepted", accepted,
		"received", len(records),
		"cleared", clearExisting,
	)
	return accepted, nil
}

// ClearItemsBySubject deletes every item of the subject together with its progress.
func (s *Store) ClearItemsBySubject(ctx context.Context, subjectID int64) error {
	return s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return clearSubject(ctx, tx, subjectID)
	})
}

func clearSubject(ctx context.Context, tx *sql.Tx, subjectID int64) error {
	c := &cascade{}
	if err := c.stageSubjectItems(ctx, tx, subjectID); err != nil {
		return err
	}
	return c.apply(ctx, tx)
}

// GetAllItemsWithProgress returns the subject's items in id order, each merged
// with its progress. A missing progress row reads as level 0, never studied.
func (s *Store) GetAllItemsWithProgress(ctx context.Context, subjectID int64) ([]domain.ItemWithProgress, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT i.id, i.subject_id, i.front, i.front_info, i.back, i.back_info, i.created_at,
		       COALESCE(p.level, 0), COALESCE(p.last_studied, 0)
		FROM items i
		LEFT JOIN progress p ON p.item_id = i.id
		WHERE i.subject_id = ?
		ORDER BY i.id
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for subject %d: %w", subjectID, err)
	}
	defer rows.Close()

	var items []domain.ItemWithProgress
	for rows.Next() {
		item, err := scanItemWithProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row for subject %d: %w", subjectID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items for subject %d: %w", subjectID, err)
	}
	return items, nil
}

// GetItemWithProgress retrieves one item merged with its progress.
func (s *Store) GetItemWithProgress(ctx context.Context, itemID int64) (*domain.ItemWithProgress, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT i.id, i.subject_id, i.front, i.front_info, i.back, i.back_info, i.created_at,
		       COALESCE(p.level, 0), COALESCE(p.last_studied, 0)
		FROM items i
		LEFT JOIN progress p ON p.item_id = i.id
		WHERE i.id = ?
	`, itemID)

	item, err := scanItemWithProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to find item %d: %w", itemID, err)
	}
	return &item, nil
}

// UpdateItem replaces the four text fields of the item with the same id.
// The subject of an item never changes. An unknown id is ErrItemNotFound.
func (s *Store) UpdateItem(ctx context.Context, item domain.Item) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE items
		SET front = ?, front_info = ?, back = ?, back_info = ?
		WHERE id = ?
	`, item.Front, item.FrontInfo, item.Back, item.BackInfo, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of item %d: %w", item.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrItemNotFound, item.ID)
	}
	return nil
}

// DeleteItem removes the item and its progress together.
func (s *Store) DeleteItem(ctx context.Context, itemID int64) error {
	return s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := itemExists(ctx, tx, itemID); err != nil {
			return err
		}
		c := &cascade{items: []int64{itemID}}
		return c.apply(ctx, tx)
	})
}

func scanItemWithProgress(row rowScanner) (domain.ItemWithProgress, error) {
	var item domain.ItemWithProgress
	err := row.Scan(
		&item.ID,
		&item.SubjectID,
		&item.Front,
		&item.FrontInfo,
		&item.Back,
		&item.BackInfo,
		&item.CreatedAt,
		&item.Level,
		&item.LastStudied,
	)
	return item, err
}

func itemExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to look up item %d: %w", id, err)
	}
	return nil
}
