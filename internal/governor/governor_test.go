package governor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/labelkit/internal/tags"
)

// fakeState is a hand-rolled governor.State for tests.
type fakeState struct {
	used      map[string]int // "control/label" -> count
	results   map[string]bool
	perRegion map[string]bool // "control/region" -> has value
	visible   []string
	selected  []string
	choices   map[string][]string
}

func (s *fakeState) UsedLabels(control, label string) int {
	return s.used[control+"/"+label]
}

func (s *fakeState) HasResult(control string) bool {
	return s.results[control]
}

func (s *fakeState) HasResultForRegion(control, regionID string) bool {
	return s.perRegion[control+"/"+regionID]
}

func (s *fakeState) VisibleRegionIDs() []string {
	return s.visible
}

func (s *fakeState) SelectedRegionIDs() []string {
	return s.selected
}

func (s *fakeState) SelectedChoices(control string) []string {
	return s.choices[control]
}

func newTestTree(t *testing.T) *tags.Tree {
	t.Helper()
	tree, err := tags.BuildTree([]*tags.Control{
		{Type: tags.TypeRectangleLabels, Name: "boxes", ToName: "img", Labels: []tags.Label{
			{Value: "Planet", MaxUsages: 1},
			{Value: "Moon"},
		}},
		{Type: tags.TypeChoices, Name: "quality", ToName: "img", Required: true, Labels: []tags.Label{
			{Value: "Good"}, {Value: "Bad"},
		}},
		{Type: tags.TypeChoices, Name: "defect", ToName: "img", Required: true,
			VisibleWhen: "choice-selected", WhenTagName: "quality", WhenChoiceValue: "Bad",
			Labels: []tags.Label{{Value: "Scratch"}},
			Children: []*tags.Control{
				{Type: tags.TypeTextArea, Name: "defect_note", ToName: "img", Required: true},
			},
		},
		{Type: tags.TypeChoices, Name: "per_region", ToName: "img", Required: true, PerRegion: true,
			Labels: []tags.Label{{Value: "Yes"}}},
		{Type: tags.TypeChoices, Name: "region_meta", ToName: "img",
			VisibleWhen: "region-selected",
			Labels:      []tags.Label{{Value: "Occluded"}}},
	}, []*tags.Object{
		{Type: "image", Name: "img"},
	})
	require.NoError(t, err)
	return tree
}

func TestCheckMaxUsage_DeniesAtLimit(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{used: map[string]int{"boxes/Planet": 1}}

	err := CheckMaxUsage(tree, state, "boxes", "Planet")
	require.Error(t, err)

	var maxErr *MaxUsageError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, "You can't use Planet more than 1 time(s)", err.Error())
}

func TestCheckMaxUsage_AllowsBelowLimit(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{used: map[string]int{}}
	assert.NoError(t, CheckMaxUsage(tree, state, "boxes", "Planet"))
}

func TestCheckMaxUsage_UnlimitedLabel(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{used: map[string]int{"boxes/Moon": 1000}}
	assert.NoError(t, CheckMaxUsage(tree, state, "boxes", "Moon"))
}

func TestCheckMaxUsage_UnknownLabelNeverRejected(t *testing.T) {
	// Labels retained from an older config carry no declared limit.
	tree := newTestTree(t)
	state := &fakeState{used: map[string]int{"boxes/Legacy": 50}}
	assert.NoError(t, CheckMaxUsage(tree, state, "boxes", "Legacy"))
}

func TestActive_VisibleWhenChoiceSelected(t *testing.T) {
	tree := newTestTree(t)
	defect := tree.Control("defect")

	hidden := &fakeState{choices: map[string][]string{}}
	assert.False(t, Active(tree, defect, hidden))

	wrongChoice := &fakeState{choices: map[string][]string{"quality": {"Good"}}}
	assert.False(t, Active(tree, defect, wrongChoice))

	shown := &fakeState{choices: map[string][]string{"quality": {"Bad"}}}
	assert.True(t, Active(tree, defect, shown))
}

func TestActive_RegionSelectedKeysOnSelection(t *testing.T) {
	tree := newTestTree(t)
	meta := tree.Control("region_meta")

	none := &fakeState{}
	assert.False(t, Active(tree, meta, none))

	// A region being visible is not enough; it must be selected.
	visibleOnly := &fakeState{visible: []string{"r1"}}
	assert.False(t, Active(tree, meta, visibleOnly))

	selected := &fakeState{visible: []string{"r1"}, selected: []string{"r1"}}
	assert.True(t, Active(tree, meta, selected))
}

func TestActive_NestedControlInheritsParentVisibility(t *testing.T) {
	tree := newTestTree(t)
	note := tree.Control("defect_note")

	hidden := &fakeState{choices: map[string][]string{}}
	assert.False(t, Active(tree, note, hidden))

	shown := &fakeState{choices: map[string][]string{"quality": {"Bad"}}}
	assert.True(t, Active(tree, note, shown))
}

func TestCheckRequired_SkipsInactiveControls(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{
		results: map[string]bool{"quality": true},
		choices: map[string][]string{"quality": {"Good"}},
	}

	warnings := CheckRequired(tree, state)
	// "defect" and "defect_note" are hidden (quality != Bad), "per_region"
	// has no visible regions, and "quality" is satisfied.
	assert.Empty(t, warnings)
}

func TestCheckRequired_MissingGlobal(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{}

	warnings := CheckRequired(tree, state)
	require.Len(t, warnings, 1)
	assert.Equal(t, `Choices "quality" is required`, warnings[0].Message)
	assert.Equal(t, "quality", warnings[0].Control)
	assert.Empty(t, warnings[0].RegionID)
}

func TestCheckRequired_PerRegionReportsFirstOffender(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{
		results:   map[string]bool{"quality": true},
		visible:   []string{"r1", "r2", "r3"},
		perRegion: map[string]bool{"per_region/r1": true},
		choices:   map[string][]string{"quality": {"Good"}},
	}

	warnings := CheckRequired(tree, state)
	require.Len(t, warnings, 1)
	assert.Equal(t, "per_region", warnings[0].Control)
	assert.Equal(t, "r2", warnings[0].RegionID)
}

func TestCheckRequired_HiddenRegionsDoNotCount(t *testing.T) {
	tree := newTestTree(t)
	state := &fakeState{
		results: map[string]bool{"quality": true},
		visible: nil, // every region hidden
		choices: map[string][]string{"quality": {"Good"}},
	}
	assert.Empty(t, CheckRequired(tree, state))
}
