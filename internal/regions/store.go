package regions

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/kilupskalvis/labelkit/internal/governor"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/tags"
)

// GroupMode selects how DisplayOrder groups regions. Grouping never touches
// the canonical storage order.
type GroupMode string

const (
	GroupManual GroupMode = "manual"
	GroupLabel  GroupMode = "label"
	GroupTool   GroupMode = "tool"
	GroupTime   GroupMode = "time"
)

// EventType tags store change notifications.
type EventType string

const (
	EventCreated    EventType = "created"
	EventUpdated    EventType = "updated"
	EventDeleted    EventType = "deleted"
	EventSelection  EventType = "selection"
	EventVisibility EventType = "visibility"
	EventOrder      EventType = "order"
)

// Event is published after every successful store mutation. Renderers and
// the history engine subscribe explicitly; there is no implicit reactivity.
type Event struct {
	Type     EventType
	RegionID string
	// Structural marks changes that warrant a history snapshot: region
	// added/removed/geometry or value changed. Pure selection and
	// visibility flips are not structural.
	Structural bool
}

// Options tune store behavior.
type Options struct {
	// AllowDrawOutside relaxes the [0,100]% bounds check (videoDrawOutside).
	AllowDrawOutside bool
	// SelectAfterCreate makes every freshly drawn region the primary
	// selection. Restore paths are not affected.
	SelectAfterCreate bool
	Logger            *slog.Logger
}

// Store owns every region of one annotation: storage order, indexing,
// selection, visibility, and display grouping. All mutations run on the
// single UI goroutine; the store performs no locking of its own.
type Store struct {
	ID   string
	tree *tags.Tree

	regions []*Region // canonical storage order
	index   map[string]*Region

	primary string          // single-select region id
	multi   map[string]bool // multi-select membership

	groupBy GroupMode

	allowOutside   bool
	selectOnCreate bool
	logger         *slog.Logger
	subs           []func(Event)
}

// NewStore creates an empty store bound to a labeling config tree.
func NewStore(tree *tags.Tree, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		ID:             uuid.NewString(),
		tree:           tree,
		index:          map[string]*Region{},
		multi:          map[string]bool{},
		groupBy:        GroupManual,
		allowOutside:   opts.AllowDrawOutside,
		selectOnCreate: opts.SelectAfterCreate,
		logger:         logger,
	}
}

// Subscribe registers a change listener. Listeners run synchronously in
// mutation order.
func (s *Store) Subscribe(fn func(Event)) {
	s.subs = append(s.subs, fn)
}

func (s *Store) publish(e Event) {
	for _, fn := range s.subs {
		fn(e)
	}
}

// Tree exposes the labeling config the store validates against.
func (s *Store) Tree() *tags.Tree {
	return s.tree
}

// Len returns the number of regions.
func (s *Store) Len() int {
	return len(s.regions)
}

// Get returns a region by id, or nil.
func (s *Store) Get(id string) *Region {
	return s.index[id]
}

// Regions returns the regions in canonical storage order.
func (s *Store) Regions() []*Region {
	return slices.Clone(s.regions)
}

// UsedLabels implements governor.UsageCounter: regions carrying the label
// plus per-region classification instances selecting it as a choice.
func (s *Store) UsedLabels(control, label string) int {
	n := 0
	for _, r := range s.regions {
		if r.Control == control && r.HasLabel(label) {
			n++
		}
		if v, ok := r.Classifications[control]; ok && slices.Contains(v.Choices, label) {
			n++
		}
	}
	return n
}

// CreateRegion validates labels against the governor and geometry against
// its bounds, then appends a fresh region to storage order. On any failure
// nothing is mutated.
func (s *Store) CreateRegion(control string, geom Geometry, labels []string) (*Region, error) {
	ctrl := s.tree.Control(control)
	if ctrl == nil {
		return nil, fmt.Errorf("createRegion: unknown control %q", control)
	}
	for _, label := range labels {
		if err := governor.CheckMaxUsage(s.tree, s, control, label); err != nil {
			return nil, err
		}
	}
	if err := geom.Validate(s.allowOutside); err != nil {
		return nil, err
	}

	r := &Region{
		ID:              uuid.NewString(),
		StoreID:         s.ID,
		Control:         control,
		Object:          ctrl.ToName,
		Kind:            geom.Kind(),
		geometry:        geom.Clone(),
		Labels:          slices.Clone(labels),
		Classifications: map[string]ClassificationValue{},
		Origin:          models.OriginManual,
	}
	s.regions = append(s.regions, r)
	s.index[r.ID] = r
	s.publish(Event{Type: EventCreated, RegionID: r.ID, Structural: true})
	if s.selectOnCreate {
		s.SelectRegion(r.ID, false)
	}
	return r, nil
}

// Restore re-adds a fully formed region (deserialization, history replay).
// It bypasses usage checks: stored results are authoritative.
func (s *Store) Restore(r *Region) {
	r.StoreID = s.ID
	if r.Classifications == nil {
		r.Classifications = map[string]ClassificationValue{}
	}
	s.regions = append(s.regions, r)
	s.index[r.ID] = r
	s.publish(Event{Type: EventCreated, RegionID: r.ID, Structural: true})
}

// NewRegion builds a detached region for Restore. Used by the serializer.
func NewRegion(id, control, object string, geom Geometry) *Region {
	if id == "" {
		id = uuid.NewString()
	}
	return &Region{
		ID:              id,
		Control:         control,
		Object:          object,
		Kind:            geom.Kind(),
		geometry:        geom.Clone(),
		Classifications: map[string]ClassificationValue{},
		Origin:          models.OriginManual,
	}
}

// DeleteRegion removes a region. Unknown ids are expected UI races and are
// logged no-ops, never errors.
func (s *Store) DeleteRegion(id string) {
	r := s.index[id]
	if r == nil {
		s.warnStale("deleteRegion", id)
		return
	}
	delete(s.index, id)
	s.regions = slices.DeleteFunc(s.regions, func(c *Region) bool { return c.ID == id })
	if s.primary == id {
		s.primary = ""
	}
	if s.multi[id] {
		delete(s.multi, id)
	}
	r.Selected = false
	s.publish(Event{Type: EventDeleted, RegionID: id, Structural: true})
}

// Clear removes every region (bulk-clear).
func (s *Store) Clear() {
	for _, r := range slices.Clone(s.regions) {
		s.DeleteRegion(r.ID)
	}
}

// SelectRegion selects a region. additive=false clears prior selection and
// makes the region primary; additive=true toggles multi-select membership.
// An empty id with additive=false clears selection entirely.
func (s *Store) SelectRegion(id string, additive bool) {
	if id == "" && !additive {
		s.clearSelection()
		s.publish(Event{Type: EventSelection})
		return
	}
	r := s.index[id]
	if r == nil {
		s.warnStale("selectRegion", id)
		return
	}
	if additive {
		if s.multi[id] {
			delete(s.multi, id)
			r.Selected = false
		} else {
			s.multi[id] = true
			r.Selected = true
		}
		s.publish(Event{Type: EventSelection, RegionID: id})
		return
	}
	s.clearSelection()
	s.primary = id
	r.Selected = true
	s.publish(Event{Type: EventSelection, RegionID: id})
}

func (s *Store) clearSelection() {
	for id := range s.multi {
		if r := s.index[id]; r != nil {
			r.Selected = false
		}
	}
	if r := s.index[s.primary]; r != nil {
		r.Selected = false
	}
	s.primary = ""
	s.multi = map[string]bool{}
}

// Selected returns the primary selected region, or nil.
func (s *Store) Selected() *Region {
	return s.index[s.primary]
}

// SelectedIDs returns the full selection set, primary included.
func (s *Store) SelectedIDs() []string {
	var out []string
	if s.primary != "" {
		out = append(out, s.primary)
	}
	for id := range s.multi {
		if id != s.primary {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SetLabel adds a label to a region, or replaces the label set when
// exclusive. The governor is consulted first; on deny the region is left
// unchanged and the MaxUsageError is returned for the UI to surface.
func (s *Store) SetLabel(id, label string, exclusive bool) error {
	r := s.index[id]
	if r == nil {
		s.warnStale("setLabel", id)
		return nil
	}
	if r.HasLabel(label) {
		return nil
	}
	if err := governor.CheckMaxUsage(s.tree, s, r.Control, label); err != nil {
		return err
	}
	if exclusive {
		r.Labels = []string{label}
	} else {
		r.Labels = append(r.Labels, label)
	}
	s.publish(Event{Type: EventUpdated, RegionID: id, Structural: true})
	return nil
}

// UpdateRegion merges a partial geometry update, re-validates bounds, and
// notifies. The region keeps its previous geometry on any failure.
func (s *Store) UpdateRegion(id string, patch Patch) error {
	r := s.index[id]
	if r == nil {
		s.warnStale("updateRegion", id)
		return nil
	}
	merged, err := patch.Apply(r.geometry)
	if err != nil {
		return err
	}
	if err := merged.Validate(s.allowOutside); err != nil {
		return err
	}
	r.geometry = merged
	s.publish(Event{Type: EventUpdated, RegionID: id, Structural: true})
	return nil
}

// SetClassification stores a per-region classification value. Choice
// values run through the governor's usage limits; an empty value removes
// the entry.
func (s *Store) SetClassification(id, control string, value ClassificationValue) error {
	r := s.index[id]
	if r == nil {
		s.warnStale("setClassification", id)
		return nil
	}
	prev := r.Classifications[control]
	for _, choice := range value.Choices {
		if slices.Contains(prev.Choices, choice) {
			continue
		}
		if err := governor.CheckMaxUsage(s.tree, s, control, choice); err != nil {
			return err
		}
	}
	if value.Empty() {
		delete(r.Classifications, control)
	} else {
		r.Classifications[control] = value.Clone()
	}
	s.publish(Event{Type: EventUpdated, RegionID: id, Structural: true})
	return nil
}

// RestoreClassification sets a per-region value without usage checks, for
// deserialization and history replay where stored results are authoritative.
func (s *Store) RestoreClassification(id, control string, value ClassificationValue) {
	r := s.index[id]
	if r == nil {
		s.warnStale("restoreClassification", id)
		return
	}
	if value.Empty() {
		return
	}
	r.Classifications[control] = value.Clone()
}

// ToggleVisibility flips one region's hidden flag.
func (s *Store) ToggleVisibility(id string) {
	r := s.index[id]
	if r == nil {
		s.warnStale("toggleVisibility", id)
		return
	}
	r.ToggleVisibility()
	s.publish(Event{Type: EventVisibility, RegionID: id})
}

// SetVisibilityAll shows or hides every region. With zero regions this is
// the documented no-op state, not an error.
func (s *Store) SetVisibilityAll(visible bool) {
	if len(s.regions) == 0 {
		return
	}
	for _, r := range s.regions {
		r.Hidden = !visible
	}
	s.publish(Event{Type: EventVisibility})
}

// VisibleRegionIDs lists regions not currently hidden, in storage order.
func (s *Store) VisibleRegionIDs() []string {
	var out []string
	for _, r := range s.regions {
		if !r.Hidden {
			out = append(out, r.ID)
		}
	}
	return out
}

// SetGroupBy changes the display grouping. Idempotent; storage order is
// never touched.
func (s *Store) SetGroupBy(mode GroupMode) {
	if mode == s.groupBy {
		return
	}
	s.groupBy = mode
	s.publish(Event{Type: EventOrder})
}

// GroupBy returns the current display grouping mode.
func (s *Store) GroupBy() GroupMode {
	return s.groupBy
}

// DisplayOrder returns regions ordered for display under the current
// grouping: a stable sort by group key with ties broken by storage index.
func (s *Store) DisplayOrder() []*Region {
	out := slices.Clone(s.regions)
	if s.groupBy == GroupManual {
		return out
	}
	key := func(r *Region) string {
		switch s.groupBy {
		case GroupLabel:
			if len(r.Labels) > 0 {
				return r.Labels[0]
			}
			return "\uffff" // unlabeled sorts last
		case GroupTool:
			return r.Control
		}
		return ""
	}
	if s.groupBy == GroupTime {
		sort.SliceStable(out, func(i, j int) bool {
			return timeKey(out[i]) < timeKey(out[j])
		})
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) < key(out[j])
	})
	return out
}

func timeKey(r *Region) float64 {
	switch g := r.geometry.(type) {
	case TimeSpan:
		return g.Start
	case TextSpan:
		return float64(g.Start)
	}
	return 0
}

// MoveRegion reorders storage order explicitly (outliner drag-and-drop).
// Out-of-range targets clamp; unknown ids are no-ops.
func (s *Store) MoveRegion(id string, to int) {
	from := slices.IndexFunc(s.regions, func(r *Region) bool { return r.ID == id })
	if from < 0 {
		s.warnStale("moveRegion", id)
		return
	}
	to = max(0, min(to, len(s.regions)-1))
	if from == to {
		return
	}
	r := s.regions[from]
	s.regions = slices.Delete(s.regions, from, from+1)
	s.regions = slices.Insert(s.regions, to, r)
	s.publish(Event{Type: EventOrder, RegionID: id})
}

func (s *Store) warnStale(op, id string) {
	s.logger.Warn("operation on missing region", "op", op, "region_id", id)
}
