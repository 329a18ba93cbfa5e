// Package session wires one open project together: labeling config, state
// and result stores, editor settings, mask blobs, and the debounced draft
// autosave. CLI commands and the HTTP server both work through a session.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kilupskalvis/labelkit/internal/annotation"
	"github.com/kilupskalvis/labelkit/internal/autosave"
	"github.com/kilupskalvis/labelkit/internal/blob"
	"github.com/kilupskalvis/labelkit/internal/config"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/regions"
	"github.com/kilupskalvis/labelkit/internal/serialize"
	"github.com/kilupskalvis/labelkit/internal/store"
	"github.com/kilupskalvis/labelkit/internal/tags"
)

// Session is one open labelkit project.
type Session struct {
	Config  *config.Config
	Tree    *tags.Tree
	State   *store.Store
	Results *store.ResultDB
	Masks   *blob.Store

	settings models.EditorSettings
	codec    *serialize.Codec
	saver    *autosave.Scheduler
	logger   *slog.Logger

	current *annotation.Annotation
}

// Open loads the project configuration and opens every store.
func Open(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tree, err := tags.LoadFile(cfg.LabelingPath())
	if err != nil {
		return nil, err
	}
	state, err := store.New(cfg.StatePath())
	if err != nil {
		return nil, err
	}
	results, err := store.OpenResults(cfg.ResultsPath())
	if err != nil {
		state.Close()
		return nil, err
	}
	masks, err := blob.NewStore(cfg.BlobsPath())
	if err != nil {
		state.Close()
		results.Close()
		return nil, err
	}
	settings, err := state.LoadSettings()
	if err != nil {
		logger.Warn("falling back to default settings", "error", err)
	}

	s := &Session{
		Config:   cfg,
		Tree:     tree,
		State:    state,
		Results:  results,
		Masks:    masks,
		settings: settings,
		codec:    serialize.NewCodec(logger),
		logger:   logger,
	}
	s.saver = autosave.New(
		time.Duration(settings.AutoSaveDelayMS)*time.Millisecond,
		s.flushDraft,
		logger,
	)
	return s, nil
}

// Close flushes nothing and releases every store. Pending autosaves for
// the current annotation are cancelled first.
func (s *Session) Close() {
	if s.current != nil {
		s.saver.Cancel(s.current.ID)
	}
	s.State.Close()
	s.Results.Close()
}

// Settings returns the active editor settings.
func (s *Session) Settings() models.EditorSettings {
	return s.settings
}

// UpdateSettings mutates and persists editor settings.
func (s *Session) UpdateSettings(mutate func(*models.EditorSettings)) error {
	mutate(&s.settings)
	return s.State.SaveSettings(s.settings)
}

// NewAnnotation starts a fresh annotation for a task and makes it current.
// Any in-flight autosave of the previous annotation is cancelled so a late
// flush cannot touch the new one.
func (s *Session) NewAnnotation(taskID string) *annotation.Annotation {
	s.detachCurrent()
	ann := annotation.New(s.Tree, s.codec, annotation.Options{
		TaskID:            taskID,
		CreatedBy:         s.Config.CreatedBy,
		AllowDrawOutside:  s.Config.AllowDrawOutside || s.settings.VideoDrawOutside,
		SelectAfterCreate: s.settings.SelectAfterCreate,
		HistoryLimit:      s.settings.HistorySize,
		Logger:            s.logger,
	})
	s.attach(ann)
	return ann
}

// LoadAnnotation restores a stored annotation, preferring its draft over
// the submitted result. Decode errors are returned for logging; partial
// loads still succeed.
func (s *Session) LoadAnnotation(id string) (*annotation.Annotation, []error, error) {
	rec, err := s.State.GetAnnotation(id)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("annotation %q not found", id)
	}
	s.detachCurrent()

	ann := annotation.New(s.Tree, s.codec, annotation.Options{
		ID:                rec.ID,
		TaskID:            rec.TaskID,
		CreatedBy:         rec.CreatedBy,
		AllowDrawOutside:  s.Config.AllowDrawOutside || s.settings.VideoDrawOutside,
		SelectAfterCreate: s.settings.SelectAfterCreate,
		HistoryLimit:      s.settings.HistorySize,
		Logger:            s.logger,
	})

	items := rec.Result
	if draft, derr := s.State.GetDraft(id); derr == nil && draft != nil {
		var draftItems []models.ResultItem
		if jerr := json.Unmarshal(draft, &draftItems); jerr == nil {
			items = draftItems
		} else {
			s.logger.Warn("ignoring unreadable draft", "annotation_id", id, "error", jerr)
		}
	}

	decodeErrs := s.codec.Decode(items, ann)
	if rec.PK != "" {
		ann.MarkPersisted(rec.PK)
	}
	ann.GroundTruth = rec.GroundTruth
	ann.Skipped = rec.Skipped
	ann.History().Reset()
	s.attach(ann)
	return ann, decodeErrs, nil
}

// ImportResults builds a new annotation from a raw result array, persists
// its record, and returns it with any per-item decode errors.
func (s *Session) ImportResults(taskID string, items []models.ResultItem) (*annotation.Annotation, []error, error) {
	ann := s.NewAnnotation(taskID)
	decodeErrs := s.codec.Decode(items, ann)
	ann.History().Reset()
	rec := ann.Record()
	rec.Result = items
	if err := s.State.PutAnnotation(&rec); err != nil {
		return nil, decodeErrs, err
	}
	return ann, decodeErrs, nil
}

// Submit validates and persists the current state of an annotation. On
// validation failure the warnings are returned and nothing is written.
func (s *Session) Submit(ann *annotation.Annotation) ([]models.ValidationWarning, error) {
	warnings := ann.Submit()
	if len(warnings) > 0 {
		return warnings, nil
	}
	rec := ann.Record()
	if err := s.State.PutAnnotation(&rec); err != nil {
		return nil, fmt.Errorf("persist annotation: %w", err)
	}
	if err := s.Results.InsertSubmission(&rec); err != nil {
		return nil, fmt.Errorf("store submitted results: %w", err)
	}
	s.saver.Cancel(ann.ID)
	if err := s.State.DeleteDraft(ann.ID); err != nil {
		return nil, fmt.Errorf("clear draft: %w", err)
	}
	return nil, nil
}

// SelectedTool resolves the remembered tool for an object, ignoring tools
// the current config no longer declares.
func (s *Session) SelectedTool(objectName string) (string, bool) {
	tool, ok := s.State.SelectedTool(objectName)
	if !ok {
		return "", false
	}
	if s.Tree.Control(tool) == nil {
		s.logger.Warn("stored tool no longer in config", "object", objectName, "tool", tool)
		return "", false
	}
	return tool, true
}

// SetSelectedTool remembers a tool for an object.
func (s *Session) SetSelectedTool(objectName, tool string) error {
	return s.State.SetSelectedTool(objectName, tool)
}

// FlushDrafts forces any scheduled draft save for the current annotation.
func (s *Session) FlushDrafts() {
	if s.current != nil {
		s.saver.Flush(s.current.ID)
	}
}

func (s *Session) attach(ann *annotation.Annotation) {
	s.current = ann
	if !s.settings.EnableAutoSave {
		return
	}
	ann.Store().Subscribe(func(e regions.Event) {
		if !e.Structural {
			return
		}
		s.saver.Schedule(ann.ID, func() []byte {
			items := ann.SaveDraft()
			data, err := json.Marshal(items)
			if err != nil {
				s.logger.Error("draft marshal failed", "annotation_id", ann.ID, "error", err)
				return nil
			}
			return data
		})
	})
}

func (s *Session) detachCurrent() {
	if s.current != nil {
		s.saver.Cancel(s.current.ID)
		s.current = nil
	}
}

func (s *Session) flushDraft(key string, payload []byte) error {
	if payload == nil {
		return nil
	}
	return s.State.SaveDraft(key, payload)
}
