package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
	cfgPkg "github.com/snapthinkllm/snapthinkllm/pkg/config"
	"github.com/snapthinkllm/snapthinkllm/server"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg, err := cfgPkg.LoadConfig("")
	require.NoError(t, err)
	cfg.Storage.DataDir = t.TempDir()

	srv, err := server.New(cfg)
	require.NoError(t, err)
	return srv.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestNotebookLifecycle(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/notebooks", map[string]string{"title": "Research"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var meta models.NotebookMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "Research", meta.Title)

	rec = doJSON(t, handler, http.MethodGet, "/api/notebooks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.NotebookMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = doJSON(t, handler, http.MethodPut, "/api/notebooks/"+meta.ID+"/title",
		map[string]string{"title": "Physics"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/notebooks/"+meta.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var nb models.Notebook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &nb))
	assert.Equal(t, "Physics", nb.Meta.Title)

	rec = doJSON(t, handler, http.MethodDelete, "/api/notebooks/"+meta.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/notebooks", nil)
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestRenameWithoutTitle(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/notebooks/notebook-1/title", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessagesRoundTrip(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/notebooks", map[string]string{"title": "Notes"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var meta models.NotebookMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))

	payload := map[string]interface{}{
		"messages": []models.Message{
			{ID: "m1", Role: models.RoleUser, Content: "hello"},
			{ID: "m2", Role: models.RoleAssistant, Content: "hi there"},
		},
	}
	rec = doJSON(t, handler, http.MethodPut, "/api/notebooks/"+meta.ID+"/messages", payload)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/notebooks/"+meta.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestExportMissingNotebook(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/notebooks/notebook-nope/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/notebooks", map[string]string{"title": "Travel"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var meta models.NotebookMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))

	rec = doJSON(t, handler, http.MethodGet, "/api/notebooks/"+meta.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodPost, "/api/notebooks/import", bytes.NewReader(rec.Body.Bytes()))
	imported := httptest.NewRecorder()
	handler.ServeHTTP(imported, req)
	require.Equal(t, http.StatusCreated, imported.Code)

	var resp struct {
		Notebook models.NotebookMeta `json:"notebook"`
		Warning  bool                `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(imported.Body.Bytes(), &resp))
	assert.NotEqual(t, meta.ID, resp.Notebook.ID)
	assert.Equal(t, "Travel", resp.Notebook.Title)
	assert.False(t, resp.Warning)
}

func TestImportGarbageArchive(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notebooks/import",
		bytes.NewReader([]byte("not a zip archive")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/notebooks/notebook-1/ask",
		map[string]string{"question": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHardware(t *testing.T) {
	handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/hardware", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info server.HardwareInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Greater(t, info.CPUCount, 0)
	assert.NotEmpty(t, info.OS)
}
