// Package tags models the parsed labeling configuration: the control tags
// (label sets, choices, taxonomies, text areas) and object tags (image,
// text, audio, ...) a project declares. The core consumes this tree as
// static data; markup parsing happens upstream.
package tags

import (
	"fmt"

	"github.com/kilupskalvis/labelkit/internal/models"
)

// Label is one selectable value inside a label-set or choices control.
type Label struct {
	Value     string `yaml:"value"`
	MaxUsages int    `yaml:"max_usages,omitempty"` // 0 = unlimited, overrides the control default
	Alias     string `yaml:"alias,omitempty"`
	Hotkey    string `yaml:"hotkey,omitempty"`
}

// Control is one control tag: a label set, classification input, or text
// area. Controls may nest (taxonomy children, conditional subtrees).
type Control struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name"`
	ToName    string `yaml:"to_name"`
	Required  bool   `yaml:"required,omitempty"`
	PerRegion bool   `yaml:"per_region,omitempty"`
	MaxUsages int    `yaml:"max_usages,omitempty"` // control-wide default

	// Visibility condition for the subtree rooted at this control.
	VisibleWhen     string `yaml:"visible_when,omitempty"` // "choice-selected" | "region-selected" | "choice-unselected"
	WhenTagName     string `yaml:"when_tag_name,omitempty"`
	WhenChoiceValue string `yaml:"when_choice_value,omitempty"`
	WhenLabelValue  string `yaml:"when_label_value,omitempty"`

	Labels   []Label    `yaml:"labels,omitempty"`
	Children []*Control `yaml:"children,omitempty"`
}

// Object is one object tag: the data a control annotates.
type Object struct {
	Type  string `yaml:"type"`
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// Tree is the full parsed configuration.
type Tree struct {
	Controls []*Control
	Objects  []*Object

	controlIndex map[string]*Control
	objectIndex  map[string]*Object
	parents      map[string]*Control
}

// BuildTree indexes a set of controls and objects into a queryable tree.
// Every control type must be registered; unknown tags fail closed.
func BuildTree(controls []*Control, objects []*Object) (*Tree, error) {
	t := &Tree{
		Controls:     controls,
		Objects:      objects,
		controlIndex: map[string]*Control{},
		objectIndex:  map[string]*Object{},
		parents:      map[string]*Control{},
	}
	var walk func(c *Control, parent *Control) error
	walk = func(c *Control, parent *Control) error {
		if err := validateControl(c); err != nil {
			return err
		}
		if _, dup := t.controlIndex[c.Name]; dup {
			return fmt.Errorf("duplicate control name %q", c.Name)
		}
		t.controlIndex[c.Name] = c
		if parent != nil {
			t.parents[c.Name] = parent
		}
		for _, child := range c.Children {
			if err := walk(child, c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range controls {
		if err := walk(c, nil); err != nil {
			return nil, err
		}
	}
	for _, o := range objects {
		if !knownObjectTypes[o.Type] {
			return nil, &UnknownControlError{Tag: o.Type}
		}
		if _, dup := t.objectIndex[o.Name]; dup {
			return nil, fmt.Errorf("duplicate object name %q", o.Name)
		}
		t.objectIndex[o.Name] = o
	}
	return t, nil
}

// Control looks up a control by name.
func (t *Tree) Control(name string) *Control {
	return t.controlIndex[name]
}

// Object looks up an object by name.
func (t *Tree) Object(name string) *Object {
	return t.objectIndex[name]
}

// Parent returns the enclosing control of a nested control, or nil at the
// top level.
func (t *Tree) Parent(name string) *Control {
	return t.parents[name]
}

// AllControls returns every control in the tree, depth first.
func (t *Tree) AllControls() []*Control {
	var out []*Control
	var walk func(c *Control)
	walk = func(c *Control) {
		out = append(out, c)
		for _, child := range c.Children {
			walk(child)
		}
	}
	for _, c := range t.Controls {
		walk(c)
	}
	return out
}

// MaxUsages resolves the usage limit for one label on a control: the
// per-label limit when set, otherwise the control default. 0 = unlimited.
func (t *Tree) MaxUsages(controlName, label string) int {
	c := t.controlIndex[controlName]
	if c == nil {
		return 0
	}
	for i := range c.Labels {
		if c.Labels[i].Value == label && c.Labels[i].MaxUsages > 0 {
			return c.Labels[i].MaxUsages
		}
	}
	return c.MaxUsages
}

// HasLabel reports whether a control declares the given label value. Stored
// results may legitimately carry labels the current config no longer
// declares; callers must retain those rather than drop them.
func (t *Tree) HasLabel(controlName, label string) bool {
	c := t.controlIndex[controlName]
	if c == nil {
		return false
	}
	for i := range c.Labels {
		if c.Labels[i].Value == label {
			return true
		}
	}
	return false
}

// ResultType maps a control to the wire type its results carry.
func (c *Control) ResultType() models.ResultType {
	return controlResultTypes[c.Type]
}

// IsClassification reports whether the control produces classification
// values rather than geometry labels.
func (c *Control) IsClassification() bool {
	switch c.Type {
	case TypeChoices, TypeTaxonomy, TypeTextArea:
		return true
	}
	return false
}
