package annotation

import (
	"encoding/json"

	"github.com/kilupskalvis/labelkit/internal/governor"
	"github.com/kilupskalvis/labelkit/internal/history"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/regions"
)

// Submit validates and transitions draft -> submitted. On validation
// failure the warning list is returned and the annotation is left exactly
// as it was. On success versions.Result holds the serialized state,
// sentUserGenerate flips on, and the draft is cleared.
func (a *Annotation) Submit() []models.ValidationWarning {
	if warnings := governor.CheckRequired(a.tree, a); len(warnings) > 0 {
		return warnings
	}
	a.versions.Result = a.codec.Encode(a)
	a.versions.Draft = nil
	a.sentUserGenerate = true
	a.dirty = false
	return nil
}

// Update re-submits an already persisted annotation. Same validation and
// transition semantics as Submit.
func (a *Annotation) Update() []models.ValidationWarning {
	return a.Submit()
}

// SaveDraft serializes the current state into versions.Draft. Called by the
// debounced autosave; the submitted result is never touched.
func (a *Annotation) SaveDraft() []models.ResultItem {
	a.versions.Draft = a.codec.Encode(a)
	a.dirty = false
	return a.versions.Draft
}

// ToggleDraft switches the displayed version between the last submitted
// result and the in-progress draft without discarding either.
func (a *Annotation) ToggleDraft() {
	a.showingDraft = !a.showingDraft
}

// ShowingDraft reports which version is displayed.
func (a *Annotation) ShowingDraft() bool {
	return a.showingDraft
}

// MarkPersisted records the backend primary key after a save.
func (a *Annotation) MarkPersisted(pk string) {
	a.PK = pk
	a.sentUserGenerate = true
}

// Record is the persisted envelope of the annotation's current state.
func (a *Annotation) Record() models.AnnotationRecord {
	return models.AnnotationRecord{
		ID:               a.ID,
		PK:               a.PK,
		TaskID:           a.TaskID,
		Result:           a.versions.Result,
		Versions:         a.versions,
		CreatedBy:        a.CreatedBy,
		CreatedAt:        a.CreatedAt,
		GroundTruth:      a.GroundTruth,
		Skipped:          a.Skipped,
		WasCancelled:     a.WasCancelled,
		SentUserGenerate: a.sentUserGenerate,
	}
}

// governor.State implementation ----------------------------------------

// UsedLabels counts store usage plus annotation-wide choice selections.
func (a *Annotation) UsedLabels(control, label string) int {
	n := a.store.UsedLabels(control, label)
	if v, ok := a.global[control]; ok {
		for _, c := range v.Choices {
			if c == label {
				n++
			}
		}
	}
	return n
}

// HasResult reports whether any active result exists for the control:
// a region created by it, a per-region value, or a global value.
func (a *Annotation) HasResult(control string) bool {
	if v, ok := a.global[control]; ok && !v.Empty() {
		return true
	}
	for _, r := range a.store.Regions() {
		if r.Control == control {
			return true
		}
		if v, ok := r.Classification(control); ok && !v.Empty() {
			return true
		}
	}
	return false
}

// HasResultForRegion reports a per-region value on one region.
func (a *Annotation) HasResultForRegion(control, regionID string) bool {
	r := a.store.Get(regionID)
	if r == nil {
		return false
	}
	v, ok := r.Classification(control)
	return ok && !v.Empty()
}

// VisibleRegionIDs delegates to the store.
func (a *Annotation) VisibleRegionIDs() []string {
	return a.store.VisibleRegionIDs()
}

// SelectedRegionIDs delegates to the store.
func (a *Annotation) SelectedRegionIDs() []string {
	return a.store.SelectedIDs()
}

// SelectedChoices returns the annotation-wide selections of a choices or
// taxonomy control (leaf values for taxonomy).
func (a *Annotation) SelectedChoices(control string) []string {
	v, ok := a.global[control]
	if !ok {
		return nil
	}
	out := append([]string(nil), v.Choices...)
	for _, path := range v.Taxonomy {
		if len(path) > 0 {
			out = append(out, path[len(path)-1])
		}
	}
	return out
}

// history.Target implementation ----------------------------------------

// snapshotPayload is the serialized form of one history entry.
type snapshotPayload struct {
	Items []models.ResultItem `json:"items"`
}

// TakeSnapshot captures the full serializable state plus the current
// primary selection.
func (a *Annotation) TakeSnapshot() history.Snapshot {
	payload := snapshotPayload{Items: a.codec.Encode(a)}
	data, err := json.Marshal(payload)
	if err != nil {
		// Encode output is always marshalable; reaching here is a
		// programmer error worth surfacing loudly in logs.
		a.logger.Error("history snapshot marshal failed", "error", err)
	}
	selected := ""
	if r := a.store.Selected(); r != nil {
		selected = r.ID
	}
	return history.Snapshot{Data: data, SelectedID: selected, Structural: true}
}

// RestoreSnapshot rebuilds state from a snapshot. The history engine is in
// its applying state while this runs, so the store events fired during the
// rebuild do not create new history entries.
func (a *Annotation) RestoreSnapshot(s history.Snapshot) {
	var payload snapshotPayload
	if err := json.Unmarshal(s.Data, &payload); err != nil {
		a.logger.Error("history snapshot unmarshal failed", "error", err)
		return
	}
	current := ""
	if r := a.store.Selected(); r != nil {
		current = r.ID
	}
	a.store.Clear()
	a.relations = nil
	a.global = map[string]regions.ClassificationValue{}
	for _, err := range a.codec.Decode(payload.Items, a) {
		a.logger.Warn("skipped result item during history restore", "error", err)
	}
	// Selection is not an undoable edit: a region selected before the
	// restore stays selected as long as it survives it. The snapshot's
	// selection only applies when the current one is gone.
	switch {
	case current != "" && a.store.Get(current) != nil:
		a.store.SelectRegion(current, false)
	case s.SelectedID != "" && a.store.Get(s.SelectedID) != nil:
		a.store.SelectRegion(s.SelectedID, false)
	default:
		a.store.SelectRegion("", false)
	}
}
