package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestListReturnsSortedTxtFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	names, err := NewLoader(dir).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestListMissingDirectory(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent")).List()
	assert.ErrorIs(t, err, domain.ErrDocumentLoad)
}

func TestLoadReadsDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "first document")
	writeFile(t, dir, "two.txt", "second document")

	documents, err := NewLoader(dir).Load([]string{"one.txt", "two.txt"})
	require.NoError(t, err)
	require.Len(t, documents, 2)
	assert.Equal(t, "one.txt", documents[0].Name)
	assert.Equal(t, "first document", documents[0].Text)
	assert.NotEqual(t, documents[0].ID, documents[1].ID)
}

func TestLoadEmptySelection(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load(nil)
	assert.ErrorIs(t, err, domain.ErrDocumentLoad)
}

func TestLoadMissingFileFailsWholeSelection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "present.txt", "content")

	_, err := NewLoader(dir).Load([]string{"present.txt", "absent.txt"})
	assert.ErrorIs(t, err, domain.ErrDocumentLoad)
}
