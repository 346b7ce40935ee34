package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.conn.QueryRow(query, args...).Scan(&n))
	return n
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := Open(ctx, path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"subjects", "items", "progress"} {
		var name string
		err := s.conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestOpen_UnavailableDirectory(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestSubjects_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	s := openTestStore(t, WithClock(func() time.Time { return now }))

	id, err := s.CreateSubject(ctx, "French", domain.Settings{FrontLang: "en-US", BackLang: "fr-FR"})
	require.NoError(t, err)

	subjects, err := s.GetSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, id, subjects[0].ID)
	assert.Equal(t, "French", subjects[0].Name)
	assert.Equal(t, "fr-FR", subjects[0].Settings.BackLang)
	assert.Equal(t, now.UnixMilli(), subjects[0].CreatedAt)

	name := "Français"
	require.NoError(t, s.UpdateSubject(ctx, id, domain.SubjectPatch{Name: &name}))
	got, err := s.GetSubject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Français", got.Name)
	assert.Equal(t, "fr-FR", got.Settings.BackLang, "settings untouched when absent from patch")

	// Settings are replaced, not merged.
	require.NoError(t, s.UpdateSubject(ctx, id, domain.SubjectPatch{Settings: &domain.Settings{BackLang: "fr-CA"}}))
	got, err = s.GetSubject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Settings{BackLang: "fr-CA"}, got.Settings)
	assert.Equal(t, "Français", got.Name)

	err = s.UpdateSubject(ctx, id+100, domain.SubjectPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrSubjectNotFound)

	found, err := s.FindSubjectByName(ctx, "Français")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)

	missing, err := s.FindSubjectByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestImportItems(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)

	records := []domain.Record{
		{Front: "one", Back: "un"},
		{FrontInfo: "only info"},
		{Front: "two", Back: "deux", Level: intPtr(2), LastStudied: 100},
	}
	n, err := s.ImportItems(ctx, subjectID, records, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Front)
	assert.Equal(t, 0, items[0].Level)
	assert.Equal(t, int64(0), items[0].LastStudied)
	assert.Equal(t, "two", items[1].Front)
	assert.Equal(t, 2, items[1].Level)
	assert.Equal(t, int64(100), items[1].LastStudied)

	assert.Equal(t, 2, countRows(t, s, "SELECT COUNT(*) FROM progress"))

	// Appending keeps the existing items.
	n, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "three"}}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, countRows(t, s, "SELECT COUNT(*) FROM items WHERE subject_id = ?", subjectID))
}

func TestImportItems_ClearExistingNeverReusesIDs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "a"}, {Front: "b"}}, false)
	require.NoError(t, err)

	before, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)
	maxBefore := before[len(before)-1].ID

	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "c"}}, true)
	require.NoError(t, err)

	after, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "c", after[0].Front)
	assert.Greater(t, after[0].ID, maxBefore)
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM progress"))
}

func TestImportItems_IsAtomic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "keep"}}, false)
	require.NoError(t, err)

	// The negative level fails the batch after the clear and first insert ran.
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{
		{Front: "new"},
		{Front: "bad", Level: intPtr(-1)},
	}, true)
	require.Error(t, err)

	items, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "keep", items[0].Front)
}

func TestImportItems_UnknownSubject(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ImportItems(context.Background(), 42, []domain.Record{{Front: "x"}}, false)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestDeleteSubject_CascadesWithoutOrphans(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	keepID, err := s.CreateSubject(ctx, "Keep", domain.Settings{})
	require.NoError(t, err)
	dropID, err := s.CreateSubject(ctx, "Drop", domain.Settings{})
	require.NoError(t, err)

	_, err = s.ImportItems(ctx, keepID, []domain.Record{{Front: "k1"}}, false)
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, dropID, []domain.Record{{Front: "d1"}, {Front: "d2"}, {Front: "d3"}}, false)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSubject(ctx, dropID))

	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM items WHERE subject_id = ?", dropID))
	assert.Equal(t, 0, countRows(t, s,
		"SELECT COUNT(*) FROM progress WHERE item_id NOT IN (SELECT id FROM items)"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM items"))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM progress"))

	_, err = s.GetSubject(ctx, dropID)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
	assert.ErrorIs(t, s.DeleteSubject(ctx, dropID), ErrNotFound)
}

func TestClearItemsBySubject(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "a"}, {Front: "b"}}, false)
	require.NoError(t, err)

	require.NoError(t, s.ClearItemsBySubject(ctx, subjectID))
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM items"))
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM progress"))

	_, err = s.GetSubject(ctx, subjectID)
	assert.NoError(t, err, "clearing items keeps the subject")
}

func TestGetAllItemsWithProgress_MissingProgressDefaults(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "a", Level: intPtr(1), LastStudied: 5}}, false)
	require.NoError(t, err)

	_, err = s.conn.Exec("DELETE FROM progress")
	require.NoError(t, err)

	items, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0, items[0].Level)
	assert.Equal(t, int64(0), items[0].LastStudied)
}

func TestUpdateProgress(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_123_000)
	s := openTestStore(t, WithClock(func() time.Time { return now }))

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "a"}}, false)
	require.NoError(t, err)
	items, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)
	itemID := items[0].ID

	require.NoError(t, s.UpdateProgress(ctx, itemID, 2))
	got, err := s.GetItemWithProgress(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, now.UnixMilli(), got.LastStudied)

	// Upsert recreates a missing row.
	_, err = s.conn.Exec("DELETE FROM progress WHERE item_id = ?", itemID)
	require.NoError(t, err)
	require.NoError(t, s.UpdateProgress(ctx, itemID, 1))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM progress WHERE item_id = ?", itemID))

	assert.ErrorIs(t, s.UpdateProgress(ctx, itemID+99, 1), ErrItemNotFound)
	assert.Error(t, s.UpdateProgress(ctx, itemID, -1))
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	otherID, err := s.CreateSubject(ctx, "Other", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "a", Back: "b"}}, false)
	require.NoError(t, err)
	items, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)

	updated := items[0].Item
	updated.Front = "A"
	updated.FrontInfo = "fi"
	updated.Back = "B"
	updated.BackInfo = "bi"
	updated.SubjectID = otherID
	require.NoError(t, s.UpdateItem(ctx, updated))

	got, err := s.GetItemWithProgress(ctx, updated.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Front)
	assert.Equal(t, "fi", got.FrontInfo)
	assert.Equal(t, "B", got.Back)
	assert.Equal(t, "bi", got.BackInfo)
	assert.Equal(t, subjectID, got.SubjectID, "subject id is immutable")

	err = s.UpdateItem(ctx, domain.Item{ID: updated.ID + 50, Front: "x"})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	subjectID, err := s.CreateSubject(ctx, "Words", domain.Settings{})
	require.NoError(t, err)
	_, err = s.ImportItems(ctx, subjectID, []domain.Record{{Front: "a"}, {Front: "b"}}, false)
	require.NoError(t, err)
	items, err := s.GetAllItemsWithProgress(ctx, subjectID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, items[0].ID))
	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM items"))
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM progress WHERE item_id = ?", items[0].ID))

	assert.ErrorIs(t, s.DeleteItem(ctx, items[0].ID), ErrItemNotFound)
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO subjects (name, created_at) VALUES ('tmp', 0)"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM subjects"))
}

func TestRunInTransaction_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	assert.Panics(t, func() {
		_ = s.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO subjects (name, created_at) VALUES ('tmp', 0)"); err != nil {
				return err
			}
			panic("boom")
		})
	})
	assert.Equal(t, 0, countRows(t, s, "SELECT COUNT(*) FROM subjects"))
}
