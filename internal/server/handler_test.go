package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/labelkit/internal/config"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/session"
)

const testLabelingConfig = `objects:
  - type: image
    name: img

controls:
  - type: rectanglelabels
    name: boxes
    to_name: img
    labels:
      - value: Car
      - value: Person
  - type: choices
    name: quality
    to_name: img
    required: true
    labels:
      - value: Good
      - value: Bad
`

func newTestServer(t *testing.T, cfg *Config) (http.Handler, *session.Session) {
	t.Helper()
	dir := t.TempDir()
	pcfg, err := config.Initialize(dir, "test")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pcfg.LabelingPath(), []byte(testLabelingConfig), 0644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess, err := session.Open(pcfg, logger)
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	return Handler(sess, cfg, logger), sess
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(out))
}

func rectItem(id string) models.ResultItem {
	x, y, width, height := 10.0, 10.0, 20.0, 20.0
	return models.ResultItem{
		ID: id, FromName: "boxes", ToName: "img",
		Type: models.ResultRectangleLabels,
		Value: models.ResultValue{
			X: &x, Y: &y, Width: &width, Height: &height,
			RectangleLabels: []string{"Car"},
		},
	}
}

func choicesItem(values ...string) models.ResultItem {
	return models.ResultItem{
		FromName: "quality", ToName: "img",
		Type:  models.ResultChoices,
		Value: models.ResultValue{Choices: values},
	}
}

func TestHandler_Healthz(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandler_GetConfig(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, "test", body["project_name"])
	assert.Len(t, body["controls"], 2)
	assert.Len(t, body["objects"], 1)

	// Editor settings ride along so a frontend can honor them.
	settings, ok := body["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, settings["enableAutoSave"])
	assert.Equal(t, true, settings["showLabels"])
}

func TestHandler_CreateAndGetAnnotation(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/annotations", map[string]any{
		"task_id": "task-1",
		"result":  []models.ResultItem{rectItem("r1")},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID      string   `json:"id"`
		Regions int      `json:"regions"`
		Skipped []string `json:"skipped"`
	}
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Regions)
	assert.Empty(t, created.Skipped)

	w = doJSON(t, h, http.MethodGet, "/api/v1/annotations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec models.AnnotationRecord
	decode(t, w, &rec)
	assert.Equal(t, "task-1", rec.TaskID)

	w = doJSON(t, h, http.MethodGet, "/api/v1/annotations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.AnnotationRecord
	decode(t, w, &list)
	assert.Len(t, list, 1)
}

func TestHandler_CreateReportsSkippedItems(t *testing.T) {
	h, _ := newTestServer(t, nil)

	bad := models.ResultItem{ID: "bad", FromName: "boxes", ToName: "img",
		Type: models.ResultRectangleLabels}
	w := doJSON(t, h, http.MethodPost, "/api/v1/annotations", map[string]any{
		"task_id": "task-1",
		"result":  []models.ResultItem{rectItem("r1"), bad},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Regions int      `json:"regions"`
		Skipped []string `json:"skipped"`
	}
	decode(t, w, &created)
	assert.Equal(t, 1, created.Regions)
	assert.Len(t, created.Skipped, 1)
}

func TestHandler_CreateRejectsBadJSON(t *testing.T) {
	h, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/annotations",
		bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetAnnotationMissing(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/annotations/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_SubmitValidationFailure(t *testing.T) {
	h, _ := newTestServer(t, nil)

	// Missing the required choices control.
	w := doJSON(t, h, http.MethodPost, "/api/v1/annotations", map[string]any{
		"task_id": "task-1",
		"result":  []models.ResultItem{rectItem("r1")},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = doJSON(t, h, http.MethodPost, "/api/v1/annotations/"+created.ID+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error    string                     `json:"error"`
		Warnings []models.ValidationWarning `json:"warnings"`
	}
	decode(t, w, &body)
	assert.Equal(t, "validation_failed", body.Error)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, `Choices "quality" is required`, body.Warnings[0].Message)
}

func TestHandler_SubmitAndResults(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/annotations", map[string]any{
		"task_id": "task-1",
		"result":  []models.ResultItem{rectItem("r1"), choicesItem("Good")},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = doJSON(t, h, http.MethodPost, "/api/v1/annotations/"+created.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var submitted struct {
		ID     string              `json:"id"`
		Result []models.ResultItem `json:"result"`
	}
	decode(t, w, &submitted)
	assert.Equal(t, created.ID, submitted.ID)
	assert.Len(t, submitted.Result, 2)

	w = doJSON(t, h, http.MethodGet, "/api/v1/annotations/"+created.ID+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.ResultItem
	decode(t, w, &items)
	assert.Len(t, items, 2)

	w = doJSON(t, h, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Annotations int64
		Results     int64
	}
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Annotations)
	assert.Equal(t, int64(2), stats.Results)
}

func TestHandler_SubmitMissing(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/annotations/ghost/submit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_DeleteAnnotation(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/annotations", map[string]any{
		"task_id": "task-1",
		"result":  []models.ResultItem{rectItem("r1")},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = doJSON(t, h, http.MethodDelete, "/api/v1/annotations/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/v1/annotations/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Blobs(t *testing.T) {
	h, _ := newTestServer(t, nil)

	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x01, 0x02}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blobs", bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var posted struct {
		Hash string `json:"hash"`
	}
	decode(t, w, &posted)
	require.NotEmpty(t, posted.Hash)

	w = doJSON(t, h, http.MethodGet, "/api/v1/blobs/"+posted.Hash, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = doJSON(t, h, http.MethodGet, "/api/v1/blobs/"+fmt.Sprintf("%064d", 0), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_BlobTooLarge(t *testing.T) {
	h, _ := newTestServer(t, &Config{MaxRequestBody: 1024, MaxBlobSize: 8})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/blobs",
		bytes.NewReader(make([]byte, 9)))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
