// Package regions holds the region entity and the per-annotation region
// store. A region is the persistent unit of annotation: one shape (or
// classification holder), its labels, and its per-region classification
// values. Regions live inside exactly one store and reference it by id,
// never by pointer.
package regions

import (
	"slices"

	"github.com/kilupskalvis/labelkit/internal/models"
)

// ClassificationValue is the value a classification control attaches to a
// region (or to the whole annotation when the control is not per-region).
type ClassificationValue struct {
	Choices  []string   `json:"choices,omitempty"`
	Taxonomy [][]string `json:"taxonomy,omitempty"`
	Texts    []string   `json:"texts,omitempty"`
}

// Clone deep-copies the value.
func (v ClassificationValue) Clone() ClassificationValue {
	out := ClassificationValue{
		Choices: slices.Clone(v.Choices),
		Texts:   slices.Clone(v.Texts),
	}
	for _, path := range v.Taxonomy {
		out.Taxonomy = append(out.Taxonomy, slices.Clone(path))
	}
	return out
}

// Empty reports whether the value carries nothing.
func (v ClassificationValue) Empty() bool {
	return len(v.Choices) == 0 && len(v.Taxonomy) == 0 && len(v.Texts) == 0
}

// Region is one annotated object. Geometry mutations, labeling, and
// classification go through the owning Store so usage limits and change
// notifications apply; the toggles here are pure state flips that always
// succeed.
type Region struct {
	ID string
	PK string // backend primary key once saved

	StoreID string // owning store, id not pointer
	Control string // control tag that created the region
	Object  string // object tag the region annotates

	Kind     Kind
	geometry Geometry

	Labels          []string
	Classifications map[string]ClassificationValue

	Origin      models.Origin
	Score       *float64
	GroundTruth bool
	ItemIndex   *int // multi-item group index

	// Transient display state, never serialized.
	Hidden      bool
	Selected    bool
	Highlighted bool
	ShowDraft   bool
}

// Geometry returns a copy of the region's normalized geometry.
func (r *Region) Geometry() Geometry {
	return r.geometry.Clone()
}

// HasLabel reports label membership.
func (r *Region) HasLabel(label string) bool {
	return slices.Contains(r.Labels, label)
}

// Classification returns the value stored for a control, if any.
func (r *Region) Classification(control string) (ClassificationValue, bool) {
	v, ok := r.Classifications[control]
	return v, ok
}

// ToggleVisibility flips the hidden flag. Always succeeds.
func (r *Region) ToggleVisibility() {
	r.Hidden = !r.Hidden
}

// SetGroundTruth marks or unmarks the region as ground truth.
func (r *Region) SetGroundTruth(v bool) {
	r.GroundTruth = v
}

// ToggleDraft switches the region between showing its draft and submitted
// result version.
func (r *Region) ToggleDraft() {
	r.ShowDraft = !r.ShowDraft
}

func (r *Region) clone() *Region {
	out := *r
	out.geometry = r.geometry.Clone()
	out.Labels = slices.Clone(r.Labels)
	out.Classifications = make(map[string]ClassificationValue, len(r.Classifications))
	for k, v := range r.Classifications {
		out.Classifications[k] = v.Clone()
	}
	if r.Score != nil {
		s := *r.Score
		out.Score = &s
	}
	if r.ItemIndex != nil {
		i := *r.ItemIndex
		out.ItemIndex = &i
	}
	return &out
}
