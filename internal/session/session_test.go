package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/labelkit/internal/annotation"
	"github.com/kilupskalvis/labelkit/internal/config"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/regions"
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

// newTestSession initializes a project in a temp directory and opens it.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Initialize(dir, "test")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.LabelingPath(), []byte(testLabelingConfig), 0644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess, err := Open(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func addBox(t *testing.T, ann *annotation.Annotation) {
	t.Helper()
	_, err := ann.Store().CreateRegion("boxes",
		regions.Rectangle{X: 10, Y: 10, Width: 20, Height: 20}, []string{"Car"})
	require.NoError(t, err)
}

func TestSession_OpenFailsWithoutLabelingConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Initialize(dir, "broken")
	require.NoError(t, err)

	_, err = Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestSession_SubmitPersists(t *testing.T) {
	sess := newTestSession(t)

	ann := sess.NewAnnotation("task-1")
	addBox(t, ann)
	require.NoError(t, ann.SetGlobalClassification("quality",
		regions.ClassificationValue{Choices: []string{"Good"}}))

	warnings, err := sess.Submit(ann)
	require.NoError(t, err)
	require.Empty(t, warnings)

	rec, err := sess.State.GetAnnotation(ann.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "task-1", rec.TaskID)
	assert.True(t, rec.SentUserGenerate)
	assert.Len(t, rec.Result, 2)

	items, err := sess.Results.GetResults(ann.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSession_SubmitBlockedByValidation(t *testing.T) {
	sess := newTestSession(t)

	ann := sess.NewAnnotation("task-1")
	addBox(t, ann)

	warnings, err := sess.Submit(ann)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, `Choices "quality" is required`, warnings[0].Message)

	rec, err := sess.State.GetAnnotation(ann.ID)
	require.NoError(t, err)
	assert.Nil(t, rec, "failed validation must not persist anything")
}

func TestSession_LoadAnnotationPrefersDraft(t *testing.T) {
	sess := newTestSession(t)

	rect := func(id string) models.ResultItem {
		x, y, w, h := 5.0, 5.0, 10.0, 10.0
		return models.ResultItem{
			ID: id, FromName: "boxes", ToName: "img",
			Type: models.ResultRectangleLabels,
			Value: models.ResultValue{
				X: &x, Y: &y, Width: &w, Height: &h,
				RectangleLabels: []string{"Car"},
			},
		}
	}

	require.NoError(t, sess.State.PutAnnotation(&models.AnnotationRecord{
		ID:     "ann-1",
		Result: []models.ResultItem{rect("r1")},
	}))
	draft, _ := json.Marshal([]models.ResultItem{rect("r1"), rect("r2")})
	require.NoError(t, sess.State.SaveDraft("ann-1", draft))

	ann, decodeErrs, err := sess.LoadAnnotation("ann-1")
	require.NoError(t, err)
	assert.Empty(t, decodeErrs)
	assert.Equal(t, 2, ann.Store().Len(), "the draft wins over the submitted result")
}

func TestSession_LoadAnnotationMissing(t *testing.T) {
	sess := newTestSession(t)
	_, _, err := sess.LoadAnnotation("ghost")
	assert.Error(t, err)
}

func TestSession_ImportResults(t *testing.T) {
	sess := newTestSession(t)

	x, y, w, h := 5.0, 5.0, 10.0, 10.0
	items := []models.ResultItem{
		{
			ID: "r1", FromName: "boxes", ToName: "img",
			Type: models.ResultRectangleLabels,
			Value: models.ResultValue{
				X: &x, Y: &y, Width: &w, Height: &h,
				RectangleLabels: []string{"Car"},
			},
		},
		{ID: "bad", FromName: "boxes", ToName: "img", Type: models.ResultRectangleLabels},
	}

	ann, decodeErrs, err := sess.ImportResults("task-7", items)
	require.NoError(t, err)
	assert.Len(t, decodeErrs, 1, "malformed items are reported, not fatal")
	assert.Equal(t, 1, ann.Store().Len())

	rec, err := sess.State.GetAnnotation(ann.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Result, 2, "the raw import is stored as-is")
}

func TestSession_AutosaveFlushWritesDraft(t *testing.T) {
	sess := newTestSession(t)

	ann := sess.NewAnnotation("task-1")
	addBox(t, ann)

	sess.FlushDrafts()

	draft, err := sess.State.GetDraft(ann.ID)
	require.NoError(t, err)
	require.NotNil(t, draft)

	var items []models.ResultItem
	require.NoError(t, json.Unmarshal(draft, &items))
	assert.Len(t, items, 1)
}

func TestSession_SubmitClearsDraft(t *testing.T) {
	sess := newTestSession(t)

	ann := sess.NewAnnotation("task-1")
	addBox(t, ann)
	sess.FlushDrafts()
	require.NoError(t, ann.SetGlobalClassification("quality",
		regions.ClassificationValue{Choices: []string{"Good"}}))

	warnings, err := sess.Submit(ann)
	require.NoError(t, err)
	require.Empty(t, warnings)

	draft, err := sess.State.GetDraft(ann.ID)
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestSession_SelectedTool(t *testing.T) {
	sess := newTestSession(t)

	_, ok := sess.SelectedTool("img")
	assert.False(t, ok)

	require.NoError(t, sess.SetSelectedTool("img", "boxes"))
	tool, ok := sess.SelectedTool("img")
	require.True(t, ok)
	assert.Equal(t, "boxes", tool)

	// Tools the config no longer declares are filtered on read.
	require.NoError(t, sess.State.SetSelectedTool("img", "retired_tool"))
	_, ok = sess.SelectedTool("img")
	assert.False(t, ok)
}

func TestSession_SelectAfterCreate(t *testing.T) {
	sess := newTestSession(t)

	ann := sess.NewAnnotation("task-1")
	addBox(t, ann)
	r := ann.Store().Selected()
	require.NotNil(t, r, "selectAfterCreate is on by default")

	require.NoError(t, sess.UpdateSettings(func(s *models.EditorSettings) {
		s.SelectAfterCreate = false
	}))
	ann = sess.NewAnnotation("task-2")
	addBox(t, ann)
	assert.Nil(t, ann.Store().Selected())
}

func TestSession_VideoDrawOutside(t *testing.T) {
	sess := newTestSession(t)

	outside := regions.Rectangle{X: 95, Y: -10, Width: 20, Height: 20}

	ann := sess.NewAnnotation("task-1")
	_, err := ann.Store().CreateRegion("boxes", outside, []string{"Car"})
	require.Error(t, err)

	require.NoError(t, sess.UpdateSettings(func(s *models.EditorSettings) {
		s.VideoDrawOutside = true
	}))
	ann = sess.NewAnnotation("task-2")
	_, err = ann.Store().CreateRegion("boxes", outside, []string{"Car"})
	assert.NoError(t, err)
}

func TestSession_UpdateSettingsPersists(t *testing.T) {
	sess := newTestSession(t)

	require.NoError(t, sess.UpdateSettings(func(s *models.EditorSettings) {
		s.HistorySize = 7
	}))
	assert.Equal(t, 7, sess.Settings().HistorySize)

	stored, err := sess.State.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, 7, stored.HistorySize)
}
