// Package annotation aggregates one labeling pass: the region store, the
// relations between regions, global classifications, and the draft/submit
// version lifecycle. It is the canonical surface history snapshots and the
// serializer operate on.
package annotation

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kilupskalvis/labelkit/internal/governor"
	"github.com/kilupskalvis/labelkit/internal/history"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/regions"
	"github.com/kilupskalvis/labelkit/internal/tags"
)

// Codec encodes annotation state to the wire result array and back. The
// serialize package provides the implementation; the aggregate only depends
// on this narrow interface.
type Codec interface {
	Encode(a *Annotation) []models.ResultItem
	// Decode rebuilds regions, relations, and classifications from items.
	// Malformed items are skipped; their errors are returned for logging.
	Decode(items []models.ResultItem, a *Annotation) []error
}

// Options configure a new annotation.
type Options struct {
	ID                string
	TaskID            string
	CreatedBy         string
	AllowDrawOutside  bool
	SelectAfterCreate bool
	HistoryLimit      int
	Logger            *slog.Logger
}

// Annotation is one labeling pass over a task.
type Annotation struct {
	ID string
	PK string

	TaskID    string
	CreatedBy string
	CreatedAt time.Time

	GroundTruth  bool
	Skipped      bool
	WasCancelled bool

	store *regions.Store
	tree  *tags.Tree
	codec Codec

	relations []*models.Relation
	// Classifications attached to the whole annotation rather than to a
	// region (non-perRegion choices, taxonomy, textarea).
	global map[string]regions.ClassificationValue

	versions         models.Versions
	sentUserGenerate bool
	showingDraft     bool
	dirty            bool

	hist   *history.Engine
	logger *slog.Logger
}

// New creates an empty annotation with its own region store and history
// engine wired to structural store events.
func New(tree *tags.Tree, codec Codec, opts Options) *Annotation {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	a := &Annotation{
		ID:        id,
		TaskID:    opts.TaskID,
		CreatedBy: opts.CreatedBy,
		CreatedAt: time.Now(),
		tree:      tree,
		codec:     codec,
		global:    map[string]regions.ClassificationValue{},
		logger:    logger,
	}
	a.store = regions.NewStore(tree, regions.Options{
		AllowDrawOutside:  opts.AllowDrawOutside,
		SelectAfterCreate: opts.SelectAfterCreate,
		Logger:            logger,
	})
	a.hist = history.New(a, opts.HistoryLimit)
	a.store.Subscribe(func(e regions.Event) {
		if e.Type == regions.EventDeleted {
			a.cascadeRelations(e.RegionID)
		}
		if e.Structural {
			a.dirty = true
			a.hist.Record(models.ReasonEdit)
		}
	})
	return a
}

// Store exposes the region store.
func (a *Annotation) Store() *regions.Store {
	return a.store
}

// Tree exposes the labeling config.
func (a *Annotation) Tree() *tags.Tree {
	return a.tree
}

// History exposes the undo/redo engine.
func (a *Annotation) History() *history.Engine {
	return a.hist
}

// Versions returns the current draft/submitted snapshots.
func (a *Annotation) Versions() models.Versions {
	return a.versions
}

// SentUserGenerate reports whether the annotation has ever been persisted.
func (a *Annotation) SentUserGenerate() bool {
	return a.sentUserGenerate
}

// Dirty reports whether unsaved edits exist since the last draft flush or
// submit.
func (a *Annotation) Dirty() bool {
	return a.dirty
}

// Relations returns a copy of the relation list.
func (a *Annotation) Relations() []*models.Relation {
	return slices.Clone(a.relations)
}

// AddRelation links two regions. Both endpoints must exist in the store
// (stale ids are logged no-ops) and duplicates on (from, to, direction) are
// rejected silently, returning the existing relation.
func (a *Annotation) AddRelation(fromID, toID string, direction models.RelationDirection, labels []string) *models.Relation {
	if a.store.Get(fromID) == nil || a.store.Get(toID) == nil {
		a.logger.Warn("relation endpoints missing", "from", fromID, "to", toID)
		return nil
	}
	if direction == "" {
		direction = models.RelationRight
	}
	candidate := &models.Relation{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		Direction: direction,
		Labels:    slices.Clone(labels),
	}
	for _, r := range a.relations {
		if r.SameEndpoints(candidate) {
			return r
		}
	}
	a.relations = append(a.relations, candidate)
	a.dirty = true
	a.hist.Record(models.ReasonEdit)
	return candidate
}

// RemoveRelation deletes a relation by id; unknown ids are no-ops.
func (a *Annotation) RemoveRelation(id string) {
	before := len(a.relations)
	a.relations = slices.DeleteFunc(a.relations, func(r *models.Relation) bool { return r.ID == id })
	if len(a.relations) != before {
		a.dirty = true
		a.hist.Record(models.ReasonEdit)
	}
}

// cascadeRelations drops relations referencing a deleted region. Runs from
// the store's delete event before the history snapshot is taken.
func (a *Annotation) cascadeRelations(regionID string) {
	a.relations = slices.DeleteFunc(a.relations, func(r *models.Relation) bool {
		return r.FromID == regionID || r.ToID == regionID
	})
}

// RestoreRelation re-adds a relation during deserialization or history
// replay, bypassing endpoint checks until decoding finishes.
func (a *Annotation) RestoreRelation(r *models.Relation) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for _, existing := range a.relations {
		if existing.SameEndpoints(r) {
			return
		}
	}
	a.relations = append(a.relations, r)
}

// RestoreGlobalClassification re-adds an annotation-wide value during
// deserialization, bypassing usage checks: stored results are
// authoritative even when the config has since changed.
func (a *Annotation) RestoreGlobalClassification(control string, value regions.ClassificationValue) {
	if value.Empty() {
		return
	}
	a.global[control] = value.Clone()
}

// SetGlobalClassification stores an annotation-wide classification value.
// Choice values pass through the governor's usage limits first.
func (a *Annotation) SetGlobalClassification(control string, value regions.ClassificationValue) error {
	prev := a.global[control]
	for _, choice := range value.Choices {
		if slices.Contains(prev.Choices, choice) {
			continue
		}
		if err := governor.CheckMaxUsage(a.tree, a, control, choice); err != nil {
			return err
		}
	}
	if value.Empty() {
		delete(a.global, control)
	} else {
		a.global[control] = value.Clone()
	}
	a.dirty = true
	a.hist.Record(models.ReasonEdit)
	return nil
}

// GlobalClassification returns the annotation-wide value for a control.
func (a *Annotation) GlobalClassification(control string) (regions.ClassificationValue, bool) {
	v, ok := a.global[control]
	return v, ok
}

// GlobalClassifications lists controls with annotation-wide values.
func (a *Annotation) GlobalClassifications() map[string]regions.ClassificationValue {
	out := make(map[string]regions.ClassificationValue, len(a.global))
	for k, v := range a.global {
		out[k] = v.Clone()
	}
	return out
}

// Undo steps history back once.
func (a *Annotation) Undo() { a.hist.Undo() }

// Redo re-applies the last undone step.
func (a *Annotation) Redo() { a.hist.Redo() }
