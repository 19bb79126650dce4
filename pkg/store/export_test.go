package store_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src := newNotebookStore(t)
	meta, err := src.Create("portable")
	require.NoError(t, err)
	require.NoError(t, src.SaveMessages(meta.ID, []models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "take me along"},
	}))
	doc := &models.Document{ID: "d1", Name: "notes.txt", Ext: "txt",
		Chunks: []string{"hello"}, Embeddings: [][]float32{{1, 2}}}
	require.NoError(t, src.AddDocument(meta.ID, doc, []byte("hello")))

	var archive bytes.Buffer
	require.NoError(t, src.Export(meta.ID, &archive))

	dst := newNotebookStore(t)
	imported, warning, err := dst.Import(bytes.NewReader(archive.Bytes()), int64(archive.Len()))
	require.NoError(t, err)

	assert.False(t, warning)
	assert.NotEqual(t, meta.ID, imported.ID, "import must assign a fresh id")
	assert.Equal(t, "portable", imported.Title)

	nb := dst.Load(imported.ID)
	require.Len(t, nb.Messages, 1)
	assert.Equal(t, "take me along", nb.Messages[0].Content)
	require.Len(t, nb.Files.Docs, 1)

	data, err := os.ReadFile(filepath.Join(dst.Dir(imported.ID), "docs", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestExport_MissingNotebook(t *testing.T) {
	s := newNotebookStore(t)

	var buf bytes.Buffer
	err := s.Export("notebook-ghost", &buf)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestImport_DropsMissingDocumentFiles(t *testing.T) {
	src := newNotebookStore(t)
	meta, err := src.Create("damaged")
	require.NoError(t, err)
	doc := &models.Document{ID: "d1", Name: "lost.txt", Ext: "txt",
		Chunks: []string{"x"}, Embeddings: [][]float32{{1}}}
	require.NoError(t, src.AddDocument(meta.ID, doc, []byte("x")))

	// Simulate a damaged archive: payload vanished, sidecar still there.
	require.NoError(t, os.Remove(filepath.Join(src.Dir(meta.ID), "docs", "lost.txt")))

	var archive bytes.Buffer
	require.NoError(t, src.Export(meta.ID, &archive))

	dst := newNotebookStore(t)
	imported, warning, err := dst.Import(bytes.NewReader(archive.Bytes()), int64(archive.Len()))
	require.NoError(t, err)

	assert.True(t, warning)
	assert.Empty(t, dst.ListDocuments(imported.ID))
}

func TestImport_GarbageArchive(t *testing.T) {
	s := newNotebookStore(t)

	_, _, err := s.Import(bytes.NewReader([]byte("not a zip")), 9)
	assert.Error(t, err)
}
