package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/pkg/store"
)

func newNotebookStore(t *testing.T) *store.NotebookStore {
	t.Helper()
	s, err := store.NewNotebookStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNotebookStore_CreateLayout(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("Research")
	require.NoError(t, err)

	assert.Contains(t, meta.ID, "notebook-")
	assert.Equal(t, "Research", meta.Title)
	for _, bucket := range []string{"docs", "images", "videos", "outputs"} {
		info, err := os.Stat(filepath.Join(s.Dir(meta.ID), bucket))
		require.NoError(t, err, bucket)
		assert.True(t, info.IsDir())
	}
}

func TestNotebookStore_MessagesRoundTrip(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("")
	require.NoError(t, err)

	messages := []models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "what is RAG?"},
		{ID: "m2", Role: models.RoleAssistant, Content: "retrieval augmented generation",
			Sources: []models.Source{{Text: "snippet", Index: 0, FileName: "intro.txt"}}},
	}
	require.NoError(t, s.SaveMessages(meta.ID, messages))

	loaded := s.Load(meta.ID)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "what is RAG?", loaded.Messages[0].Content)
	require.Len(t, loaded.Messages[1].Sources, 1)
	assert.Equal(t, "intro.txt", loaded.Messages[1].Sources[0].FileName)
}

func TestNotebookStore_LoadMissingIsEmptyDefault(t *testing.T) {
	s := newNotebookStore(t)

	nb := s.Load("notebook-ghost")
	assert.Equal(t, "notebook-ghost", nb.Meta.ID)
	assert.Empty(t, nb.Messages)
	assert.Empty(t, nb.Files.Docs)
}

func TestNotebookStore_StatsRecomputedOnLoad(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("stats")
	require.NoError(t, err)

	// Persisted stats lie; load must not trust them.
	require.NoError(t, s.UpdateMeta(meta.ID, func(m *models.NotebookMeta) {
		m.Stats.TotalMessages = 999
		m.Stats.TotalFiles = 999
	}))
	require.NoError(t, s.SaveMessages(meta.ID, []models.Message{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "two"},
	}))

	nb := s.Load(meta.ID)
	assert.Equal(t, 2, nb.Meta.Stats.TotalMessages)
	assert.Equal(t, 0, nb.Meta.Stats.TotalFiles)
}

func TestNotebookStore_RenameAndImmutableID(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("before")
	require.NoError(t, err)

	require.NoError(t, s.Rename(meta.ID, "after"))

	nb := s.Load(meta.ID)
	assert.Equal(t, "after", nb.Meta.Title)
	assert.Equal(t, meta.ID, nb.Meta.ID)
	assert.True(t, nb.Meta.UpdatedAt.After(meta.UpdatedAt) || nb.Meta.UpdatedAt.Equal(meta.UpdatedAt))
}

func TestNotebookStore_DeleteIdempotentAndList(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("doomed")
	require.NoError(t, err)

	require.NoError(t, s.Delete(meta.ID))
	require.NoError(t, s.Delete(meta.ID))

	metas, err := s.List()
	require.NoError(t, err)
	for _, m := range metas {
		assert.NotEqual(t, meta.ID, m.ID)
	}
}

func TestNotebookStore_DocumentLifecycle(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("docs")
	require.NoError(t, err)

	doc := &models.Document{
		ID: "d1", Name: "guide.md", Ext: "md", Size: 9,
		Chunks:     []string{"part one", "part two"},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
	}
	require.NoError(t, s.AddDocument(meta.ID, doc, []byte("full text")))

	loaded, ok := s.LoadDocument(meta.ID, "guide.md")
	require.True(t, ok)
	assert.Equal(t, doc.Chunks, loaded.Chunks)

	byID, ok := s.LoadDocument(meta.ID, "d1")
	require.True(t, ok)
	assert.Equal(t, "guide.md", byID.Name)

	require.NoError(t, s.RemoveDocument(meta.ID, "guide.md"))
	require.NoError(t, s.RemoveDocument(meta.ID, "guide.md"))
	assert.Empty(t, s.ListDocuments(meta.ID))
}

func TestNotebookStore_LoadDocumentMissingPayload(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("broken")
	require.NoError(t, err)

	doc := &models.Document{ID: "d1", Name: "gone.txt", Ext: "txt",
		Chunks: []string{"x"}, Embeddings: [][]float32{{1}}}
	require.NoError(t, s.AddDocument(meta.ID, doc, []byte("x")))
	require.NoError(t, os.Remove(filepath.Join(s.Dir(meta.ID), "docs", "gone.txt")))

	_, ok := s.LoadDocument(meta.ID, "gone.txt")
	assert.False(t, ok)
}

func TestNotebookStore_MediaCollisionGetsSuffix(t *testing.T) {
	s := newNotebookStore(t)
	meta, err := s.Create("media")
	require.NoError(t, err)

	first, err := s.AddMedia(meta.ID, "shot.png", []byte("aaa"))
	require.NoError(t, err)
	second, err := s.AddMedia(meta.ID, "shot.png", []byte("bbb"))
	require.NoError(t, err)

	assert.Equal(t, "shot.png", first.FileName)
	assert.NotEqual(t, first.FileName, second.FileName)
	assert.Equal(t, "shot.png", second.OriginalName)
	assert.Equal(t, models.MediaImage, second.FileType)

	images := s.ListMedia(meta.ID, store.BucketImages)
	assert.Len(t, images, 2)
}

func TestNotebookStore_MediaClassification(t *testing.T) {
	assert.Equal(t, store.BucketImages, store.ClassifyMedia("photo.JPG"))
	assert.Equal(t, store.BucketVideos, store.ClassifyMedia("clip.mp4"))
	assert.Equal(t, store.BucketOutputs, store.ClassifyMedia("result.csv"))
}

func TestNotebookStore_ListSortedByUpdatedAt(t *testing.T) {
	s := newNotebookStore(t)
	older, err := s.Create("older")
	require.NoError(t, err)
	newer, err := s.Create("newer")
	require.NoError(t, err)

	require.NoError(t, s.SaveMessages(newer.ID, []models.Message{{Role: models.RoleUser, Content: "hi"}}))

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, newer.ID, metas[0].ID)
	assert.Equal(t, older.ID, metas[1].ID)
}
