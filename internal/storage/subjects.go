package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hiansit/ankiflow/internal/domain"
)

// CreateSubject inserts a new subject and returns its generated id.
func (s *Store) CreateSubject(ctx context.Context, name string, settings domain.Settings) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO subjects (name, front_lang, back_lang, created_at)
		VALUES (?, ?, ?, ?)
	`, name, settings.FrontLang, settings.BackLang, s.nowMillis())
	if err != nil {
		return 0, fmt.Errorf("failed to insert subject %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for subject %q: %w", name, err)
	}
	return id, nil
}

// GetSubjects retrieves all subjects. No ordering is promised.
func (s *Store) GetSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, front_lang, back_lang, created_at
		FROM subjects
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all subjects: %w", err)
	}
	defer rows.Close()

	var subjects []domain.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}
	return subjects, nil
}

// GetSubject retrieves one subject by id.
func (s *Store) GetSubject(ctx context.Context, id int64) (*domain.Subject, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, front_lang, back_lang, created_at
		FROM subjects WHERE id = ?
	`, id)

	subject, err := scanSubject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrSubjectNotFound, id)
		}
		return nil, fmt.Errorf("failed to find subject %d: %w", id, err)
	}
	return &subject, nil
}

// FindSubjectByName returns the first subject with the given name, or nil if there is none.
func (s *Store) FindSubjectByName(ctx context.Context, name string) (*domain.Subject, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, front_lang, back_lang, created_at
		FROM subjects WHERE name = ? ORDER BY id LIMIT 1
	`, name)

	subject, err := scanSubject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subject by name %q: %w", name, err)
	}
	return &subject, nil
}

// UpdateSubject applies the non-nil fields of patch. Settings replace the
// stored settings as a whole.
func (s *Store) UpdateSubject(ctx context.Context, id int64, patch domain.SubjectPatch) error {
	return s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, id); err != nil {
			return err
		}
		if patch.Name != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE subjects SET name = ? WHERE id = ?`, *patch.Name, id); err != nil {
				return fmt.Errorf("failed to rename subject %d: %w", id, err)
			}
		}
		if patch.Settings != nil {
			if _, err := tx.ExecContext(ctx, `
				UPDATE subjects SET front_lang = ?, back_lang = ? WHERE id = ?
			`, patch.Settings.FrontLang, patch.Settings.BackLang, id); err != nil {
				return fmt.Errorf("failed to update settings for subject %d: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteSubject removes the subject, its items and their progress in one transaction.
func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	err := s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := subjectExists(ctx, tx, id); err != nil {
			return err
		}
		c := &cascade{subjects: []int64{id}}
		if err := c.stageSubjectItems(ctx, tx, id); err != nil {
			return err
		}
		return c.apply(ctx, tx)
	})
	if err != nil {
		return err
	}
	s.logger.Info("subject deleted", "subject_id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (domain.Subject, error) {
	var subject domain.Subject
	err := row.Scan(
		&subject.ID,
		&subject.Name,
		&subject.Settings.FrontLang,
		&subject.Settings.BackLang,
		&subject.CreatedAt,
	)
	return subject, err
}

func subjectExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrSubjectNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to look up subject %d: %w", id, err)
	}
	return nil
}
