// Package governor centralizes cross-control validation: per-label usage
// limits, required-field checks, and visibility conditions. Everything here
// is pure over its inputs; callers re-run checks after each mutation rather
// than caching results across edits.
package governor

import (
	"fmt"

	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/tags"
)

// MaxUsageError reports a rejected label assignment. Its message text is a
// compatibility contract with the surrounding UI and must not change.
type MaxUsageError struct {
	Label string
	Limit int
}

func (e *MaxUsageError) Error() string {
	return fmt.Sprintf("You can't use %s more than %d time(s)", e.Label, e.Limit)
}

// UsageCounter is the minimal view needed for max-usage checks. The region
// store implements it directly so label checks work during region creation,
// before an annotation aggregate exists.
type UsageCounter interface {
	// UsedLabels returns how many regions or classification instances
	// currently carry the label on the control.
	UsedLabels(control, label string) int
}

// State is the read-only view of the current annotation the governor
// evaluates against. The annotation aggregate implements it.
type State interface {
	UsageCounter
	// HasResult reports whether any active result exists for the control.
	HasResult(control string) bool
	// HasResultForRegion reports whether the region carries a value for a
	// per-region control.
	HasResultForRegion(control, regionID string) bool
	// VisibleRegionIDs lists the ids of regions not currently hidden.
	VisibleRegionIDs() []string
	// SelectedRegionIDs lists the ids of currently selected regions.
	SelectedRegionIDs() []string
	// SelectedChoices returns the currently selected values of a choices
	// or taxonomy control (leaf values for taxonomy).
	SelectedChoices(control string) []string
}

// CheckMaxUsage decides whether one more use of label on control is
// allowed. The deny path returns *MaxUsageError and the caller must leave
// state untouched.
func CheckMaxUsage(tree *tags.Tree, usage UsageCounter, control, label string) error {
	limit := tree.MaxUsages(control, label)
	if limit <= 0 {
		return nil
	}
	// Labels absent from the current config carry no declared limit; they
	// are retained from older configs and never rejected.
	if !tree.HasLabel(control, label) {
		return nil
	}
	if usage.UsedLabels(control, label) >= limit {
		return &MaxUsageError{Label: label, Limit: limit}
	}
	return nil
}

// Active evaluates the visibility condition of a control subtree. Controls
// inside an inactive subtree contribute neither to validation nor to
// serialization.
func Active(tree *tags.Tree, c *tags.Control, state State) bool {
	for cur := c; cur != nil; cur = tree.Parent(cur.Name) {
		if !activeHere(cur, state) {
			return false
		}
	}
	return true
}

func activeHere(c *tags.Control, state State) bool {
	switch c.VisibleWhen {
	case "":
		return true
	case "region-selected":
		return len(state.SelectedRegionIDs()) > 0
	case "choice-selected":
		return choiceMatches(c, state)
	case "choice-unselected":
		return !choiceMatches(c, state)
	}
	return true
}

func choiceMatches(c *tags.Control, state State) bool {
	if c.WhenTagName == "" {
		return false
	}
	selected := state.SelectedChoices(c.WhenTagName)
	if c.WhenChoiceValue == "" {
		return len(selected) > 0
	}
	for _, v := range selected {
		if v == c.WhenChoiceValue {
			return true
		}
	}
	return false
}

// CheckRequired scans every required, currently active control and reports
// the ones with no qualifying result. Per-region controls require a value
// on every visible region; the first offending region id is carried so the
// UI can reveal it.
func CheckRequired(tree *tags.Tree, state State) []models.ValidationWarning {
	var warnings []models.ValidationWarning
	for _, c := range tree.AllControls() {
		if !c.Required || !Active(tree, c, state) {
			continue
		}
		if c.PerRegion {
			missing := ""
			for _, id := range state.VisibleRegionIDs() {
				if !state.HasResultForRegion(c.Name, id) {
					missing = id
					break
				}
			}
			if missing != "" {
				warnings = append(warnings, requiredWarning(c, missing))
			}
			continue
		}
		if !state.HasResult(c.Name) {
			warnings = append(warnings, requiredWarning(c, ""))
		}
	}
	return warnings
}

func requiredWarning(c *tags.Control, regionID string) models.ValidationWarning {
	return models.ValidationWarning{
		Message:  fmt.Sprintf("%s %q is required", c.DisplayName(), c.Name),
		Control:  c.Name,
		RegionID: regionID,
	}
}
