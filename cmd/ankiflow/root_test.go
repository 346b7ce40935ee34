package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiansit/ankiflow/internal/storage"
)

const testContext = "/home/user/decks"

// run executes one invocation against dataDir and returns its stdout.
func run(t *testing.T, dataDir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--context", testContext, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dataDir, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, dataDir, stdin, args...)
	require.NoError(t, err, "ankiflow %s", strings.Join(args, " "))
	return out
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"subjects", "items", "import", "export", "restore", "review", "stores", "sync", "serve"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestSubjectsLifecycle(t *testing.T) {
	dataDir := t.TempDir()

	out := mustRun(t, dataDir, "", "subjects", "list")
	assert.Contains(t, out, "General")

	out = mustRun(t, dataDir, "", "subjects", "add", "Spanish", "--front-lang", "es-ES")
	assert.Contains(t, out, "Created subject 2.")

	mustRun(t, dataDir, "", "subjects", "update", "2", "--name", "Español")
	out = mustRun(t, dataDir, "", "subjects", "list")
	assert.Contains(t, out, "Español")
	assert.Contains(t, out, "es-ES")

	_, err := run(t, dataDir, "", "subjects", "update", "2")
	assert.Error(t, err)

	mustRun(t, dataDir, "", "subjects", "delete", "2")
	_, err = run(t, dataDir, "", "subjects", "delete", "2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestImportExportRestore(t *testing.T) {
	dataDir := t.TempDir()
	deck := filepath.Join(t.TempDir(), "spanish.tsv")
	require.NoError(t, os.WriteFile(deck, []byte("hola\tgreeting\thello\t\nadiós\t\tgoodbye\t\n"), 0o644))

	mustRun(t, dataDir, "", "subjects", "add", "Spanish")
	out := mustRun(t, dataDir, "", "import", "1", deck)
	assert.Contains(t, out, "Imported 2 cards.")

	out = mustRun(t, dataDir, "", "items", "list", "1")
	assert.Regexp(t, `1\s+0\s+hola\s+hello`, out)
	assert.Regexp(t, `2\s+0\s+adiós\s+goodbye`, out)

	exported := mustRun(t, dataDir, "", "export", "1")
	assert.Contains(t, exported, `"name": "Spanish"`)

	out = mustRun(t, dataDir, exported, "restore", "-")
	assert.Contains(t, out, "Restored 2 cards into subject 2.")
	out = mustRun(t, dataDir, "", "subjects", "list")
	assert.Contains(t, out, "Spanish (Imported)")

	out = mustRun(t, dataDir, "good\tbueno\n", "import", "1", "-", "--clear")
	assert.Contains(t, out, "Imported 1 cards.")
	out = mustRun(t, dataDir, "", "items", "list", "1")
	assert.NotContains(t, out, "hola")
	assert.Contains(t, out, "good")

	_, err := run(t, dataDir, "{", "restore", "-")
	assert.Error(t, err)
}

func TestItemsEditAndDelete(t *testing.T) {
	dataDir := t.TempDir()
	mustRun(t, dataDir, "", "subjects", "add", "Spanish")
	mustRun(t, dataDir, "hola\thello\n", "import", "1", "-")

	mustRun(t, dataDir, "", "items", "edit", "1", "--front", "buenos días", "--back", "good morning")
	out := mustRun(t, dataDir, "", "items", "list", "1")
	assert.Contains(t, out, "buenos días")

	mustRun(t, dataDir, "", "items", "delete", "1")
	_, err := run(t, dataDir, "", "items", "delete", "1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = run(t, dataDir, "", "items", "edit", "1", "--front", "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReview(t *testing.T) {
	dataDir := t.TempDir()
	mustRun(t, dataDir, "", "subjects", "add", "Spanish")
	mustRun(t, dataDir, "hola\thello\nadiós\tgoodbye\n", "import", "1", "-")

	// Reveal and grade good, reveal and retry an invalid grade then again, quit.
	script := "\n3\n\n7\n1\nq\n"
	out := mustRun(t, dataDir, script, "review", "1", "--mode", "id_asc")
	assert.Contains(t, out, "[1/2] Spanish")
	assert.Contains(t, out, "good: level 0 -> 1")
	assert.Contains(t, out, "Enter 1 (again)")
	assert.Contains(t, out, "again: level 0 -> 0")
	assert.Contains(t, out, "Reviewed 2 cards.")

	out = mustRun(t, dataDir, "", "items", "list", "1")
	assert.Regexp(t, `1\s+1\s+hola`, out)

	out = mustRun(t, dataDir, "", "review", "1", "--levels", "2")
	assert.Contains(t, out, "No cards to review")
}

func TestStores(t *testing.T) {
	dataDir := t.TempDir()
	mustRun(t, dataDir, "", "subjects", "list")

	name := storage.Identity(testContext)
	out := mustRun(t, dataDir, "", "stores", "list")
	assert.Regexp(t, name+`\s+1\s+\*`, out)

	out = mustRun(t, dataDir, "", "stores", "summary")
	assert.Contains(t, out, name+": 1 subjects")

	mustRun(t, dataDir, "", "stores", "delete", name)
	out = mustRun(t, dataDir, "", "stores", "list")
	assert.NotContains(t, out, name)

	_, err := run(t, dataDir, "", "stores", "summary", name)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSyncLocalDirectory(t *testing.T) {
	dataDir := t.TempDir()
	decks := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(decks, "verbs.csv"), []byte("ser,to be\nestar,to be\n"), 0o644))

	out := mustRun(t, dataDir, "", "sync", decks)
	assert.Contains(t, out, "Synced 1 files: 2 imported")

	out = mustRun(t, dataDir, "", "sync", decks)
	assert.Contains(t, out, "0 imported")

	out = mustRun(t, dataDir, "", "subjects", "list")
	assert.Contains(t, out, "verbs")
}
