package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_Deterministic(t *testing.T) {
	a := Identity("/home/me/decks")
	b := Identity("/home/me/decks")
	c := Identity("/home/me/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, storePrefix)
}

func TestDir_OpenListDelete(t *testing.T) {
	ctx := context.Background()
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	s1, err := d.Open(ctx, "/origin/one")
	require.NoError(t, err)
	s2, err := d.Open(ctx, "/origin/two")
	require.NoError(t, err)
	require.NoError(t, s2.Close())

	names, err := d.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{Identity("/origin/one"), Identity("/origin/two")}, names)

	err = d.Delete(Identity("/origin/one"))
	assert.ErrorIs(t, err, ErrBlocked)

	require.NoError(t, d.Delete(Identity("/origin/two")))
	require.NoError(t, s1.Close())
	require.NoError(t, s1.Close(), "closing twice is harmless")
	require.NoError(t, d.Delete(Identity("/origin/one")))

	names, err = d.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	assert.ErrorIs(t, d.Delete(Identity("/origin/one")), ErrNotFound)
	assert.ErrorIs(t, d.Delete("../escape"), ErrNotFound)
}

func TestDir_RepeatedOpensShareIdentity(t *testing.T) {
	ctx := context.Background()
	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	s1, err := d.Open(ctx, "/origin")
	require.NoError(t, err)
	_, err = s1.CreateSubject(ctx, "Shared", domain.Settings{})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := d.Open(ctx, "/origin")
	require.NoError(t, err)
	defer s2.Close()

	subjects, err := s2.GetSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Shared", subjects[0].Name)
}

func TestDir_Summary(t *testing.T) {
	ctx := context.Background()
	dirPath := t.TempDir()
	d, err := NewDir(dirPath)
	require.NoError(t, err)

	s, err := d.Open(ctx, "/origin")
	require.NoError(t, err)
	_, err = s.CreateSubject(ctx, "A", domain.Settings{})
	require.NoError(t, err)
	_, err = s.CreateSubject(ctx, "B", domain.Settings{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	summary, err := d.Summary(ctx, Identity("/origin"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SubjectsCount)

	// A database without the schema counts zero subjects.
	bare := storePrefix + "bare"
	conn, err := sql.Open(driverName, filepath.Join(dirPath, bare+storeExt))
	require.NoError(t, err)
	_, err = conn.Exec("CREATE TABLE other (id INTEGER)")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	summary, err = d.Summary(ctx, bare)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.SubjectsCount)

	_, err = d.Summary(ctx, storePrefix+"missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
