package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UpdateProgress records a grading event: the item's level is set and its
// last studied time becomes now.
func (s *Store) UpdateProgress(ctx context.Context, itemID int64, level int) error {
	if level < 0 {
		return fmt.Errorf("invalid level %d for item %d", level, itemID)
	}
	return s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := itemExists(ctx, tx, itemID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO progress (item_id, level, last_studied)
			VALUES (?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET
				level = excluded.level,
				last_studied = excluded.last_studied
		`, itemID, level, s.nowMillis())
		if err != nil {
			return fmt.Errorf("failed to update progress for item %d: %w", itemID, err)
		}
		return nil
	})
}
