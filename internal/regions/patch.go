package regions

import (
	"slices"

	"github.com/kilupskalvis/labelkit/internal/coords"
)

// Patch is a partial geometry update. Apply merges the set fields into the
// existing geometry and returns the merged value; it fails when the patch
// does not match the geometry kind.
type Patch interface {
	Apply(g Geometry) (Geometry, error)
}

func kindMismatch(want Kind, got Geometry) error {
	return &ValidationError{Field: "patch", Reason: "does not match " + string(got.Kind()) + " geometry (wants " + string(want) + ")"}
}

// RectanglePatch updates any subset of a rectangle's fields.
type RectanglePatch struct {
	X, Y, Width, Height, Rotation *float64
}

func (p RectanglePatch) Apply(g Geometry) (Geometry, error) {
	r, ok := g.(Rectangle)
	if !ok {
		return nil, kindMismatch(KindRectangle, g)
	}
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}
	if p.Rotation != nil {
		r.Rotation = *p.Rotation
	}
	return r, nil
}

// PolygonPatch replaces the vertex list.
type PolygonPatch struct {
	Points []coords.Point
}

func (p PolygonPatch) Apply(g Geometry) (Geometry, error) {
	if _, ok := g.(Polygon); !ok {
		return nil, kindMismatch(KindPolygon, g)
	}
	return Polygon{Points: slices.Clone(p.Points)}, nil
}

// BrushPatch replaces the mask payload. A brush stroke rewrites the whole
// RLE rather than diffing runs.
type BrushPatch struct {
	RLE      []int
	MaskHash *string
}

func (p BrushPatch) Apply(g Geometry) (Geometry, error) {
	b, ok := g.(Brush)
	if !ok {
		return nil, kindMismatch(KindBrush, g)
	}
	if p.RLE != nil {
		b.RLE = slices.Clone(p.RLE)
	}
	if p.MaskHash != nil {
		b.MaskHash = *p.MaskHash
	}
	return b, nil
}

// KeyPointPatch moves a keypoint.
type KeyPointPatch struct {
	X, Y, Width *float64
}

func (p KeyPointPatch) Apply(g Geometry) (Geometry, error) {
	k, ok := g.(KeyPoint)
	if !ok {
		return nil, kindMismatch(KindKeyPoint, g)
	}
	if p.X != nil {
		k.X = *p.X
	}
	if p.Y != nil {
		k.Y = *p.Y
	}
	if p.Width != nil {
		k.Width = *p.Width
	}
	return k, nil
}

// TextSpanPatch adjusts span boundaries.
type TextSpanPatch struct {
	Start, End *int
	Text       *string
}

func (p TextSpanPatch) Apply(g Geometry) (Geometry, error) {
	s, ok := g.(TextSpan)
	if !ok {
		return nil, kindMismatch(KindTextSpan, g)
	}
	if p.Start != nil {
		s.Start = *p.Start
	}
	if p.End != nil {
		s.End = *p.End
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	return s, nil
}

// TimeSpanPatch adjusts a timeline range.
type TimeSpanPatch struct {
	Start, End *float64
	Channel    *int
}

func (p TimeSpanPatch) Apply(g Geometry) (Geometry, error) {
	s, ok := g.(TimeSpan)
	if !ok {
		return nil, kindMismatch(KindTimeSpan, g)
	}
	if p.Start != nil {
		s.Start = *p.Start
	}
	if p.End != nil {
		s.End = *p.End
	}
	if p.Channel != nil {
		s.Channel = *p.Channel
	}
	return s, nil
}
