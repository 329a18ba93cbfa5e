package regions

import (
	"fmt"
	"math"
	"slices"

	"github.com/kilupskalvis/labelkit/internal/coords"
)

// Kind discriminates the geometry variants a region can carry.
type Kind string

const (
	KindRectangle      Kind = "rectangle"
	KindPolygon        Kind = "polygon"
	KindBrush          Kind = "brush"
	KindKeyPoint       Kind = "keypoint"
	KindTextSpan       Kind = "textspan"
	KindTimeSpan       Kind = "timespan"
	KindClassification Kind = "classification" // non-geometric result holder
)

// ValidationError reports malformed or out-of-bounds geometry. It is local
// and recoverable: the caller discards the in-progress edit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid geometry: %s %s", e.Field, e.Reason)
}

// Geometry is the normalized-space shape of a region. All pixel/time
// coordinates are stored resolution independent: percentages for 2D shapes,
// seconds for time spans, rune offsets for text spans.
type Geometry interface {
	Kind() Kind
	// Validate checks bounds. allowOutside relaxes the [0,100] percent box
	// (videoDrawOutside and similar overrides).
	Validate(allowOutside bool) error
	Clone() Geometry
}

func finite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "coordinate", Reason: "is not finite"}
		}
	}
	return nil
}

func inPercentBox(field string, v float64) error {
	if v < 0 || v > 100 {
		return &ValidationError{Field: field, Reason: "outside [0,100]%"}
	}
	return nil
}

// Rectangle is an axis-aligned (optionally rotated) bounding box in percent
// coordinates.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64 // degrees
}

func (Rectangle) Kind() Kind { return KindRectangle }

func (g Rectangle) Validate(allowOutside bool) error {
	if err := finite(g.X, g.Y, g.Width, g.Height, g.Rotation); err != nil {
		return err
	}
	if g.Width < 0 || g.Height < 0 {
		return &ValidationError{Field: "size", Reason: "is negative"}
	}
	if allowOutside {
		return nil
	}
	bounds := []struct {
		field string
		v     float64
	}{
		{"x", g.X},
		{"y", g.Y},
		{"x+width", g.X + g.Width},
		{"y+height", g.Y + g.Height},
	}
	for _, b := range bounds {
		if err := inPercentBox(b.field, b.v); err != nil {
			return err
		}
	}
	return nil
}

func (g Rectangle) Clone() Geometry { return g }

// Polygon is a closed path of percent-space vertices.
type Polygon struct {
	Points []coords.Point
}

func (Polygon) Kind() Kind { return KindPolygon }

func (g Polygon) Validate(allowOutside bool) error {
	if len(g.Points) < 3 {
		return &ValidationError{Field: "points", Reason: "needs at least 3 vertices"}
	}
	for _, p := range g.Points {
		if err := finite(p.X, p.Y); err != nil {
			return err
		}
		if allowOutside {
			continue
		}
		if err := inPercentBox("point.x", p.X); err != nil {
			return err
		}
		if err := inPercentBox("point.y", p.Y); err != nil {
			return err
		}
	}
	return nil
}

func (g Polygon) Clone() Geometry {
	return Polygon{Points: slices.Clone(g.Points)}
}

// Brush is a raster mask, run-length encoded. Large masks live in the blob
// store and are referenced by hash instead of carrying the RLE inline.
type Brush struct {
	Format   string // "rle"
	RLE      []int
	MaskHash string
}

func (Brush) Kind() Kind { return KindBrush }

func (g Brush) Validate(bool) error {
	if len(g.RLE) == 0 && g.MaskHash == "" {
		return &ValidationError{Field: "mask", Reason: "is empty"}
	}
	for _, run := range g.RLE {
		if run < 0 {
			return &ValidationError{Field: "rle", Reason: "has negative run"}
		}
	}
	return nil
}

func (g Brush) Clone() Geometry {
	return Brush{Format: g.Format, RLE: slices.Clone(g.RLE), MaskHash: g.MaskHash}
}

// KeyPoint is a single percent-space point with a display width.
type KeyPoint struct {
	X, Y  float64
	Width float64
}

func (KeyPoint) Kind() Kind { return KindKeyPoint }

func (g KeyPoint) Validate(allowOutside bool) error {
	if err := finite(g.X, g.Y, g.Width); err != nil {
		return err
	}
	if allowOutside {
		return nil
	}
	if err := inPercentBox("x", g.X); err != nil {
		return err
	}
	return inPercentBox("y", g.Y)
}

func (g KeyPoint) Clone() Geometry { return g }

// TextSpan addresses a range of text. Start/End are global rune offsets;
// StartPath/EndPath optionally carry node-path addressing for rich text and
// are preserved verbatim across round trips.
type TextSpan struct {
	Start, End         int
	StartPath, EndPath string
	Text               string // the quoted span text
}

func (TextSpan) Kind() Kind { return KindTextSpan }

func (g TextSpan) Validate(bool) error {
	if g.Start < 0 || g.End < g.Start {
		return &ValidationError{Field: "offsets", Reason: "are not an ordered range"}
	}
	return nil
}

func (g TextSpan) Clone() Geometry { return g }

// TimeSpan is a range on an audio/video timeline, in seconds.
type TimeSpan struct {
	Start, End float64
	Channel    int
}

func (TimeSpan) Kind() Kind { return KindTimeSpan }

func (g TimeSpan) Validate(bool) error {
	if err := finite(g.Start, g.End); err != nil {
		return err
	}
	if g.Start < 0 || g.End < g.Start {
		return &ValidationError{Field: "range", Reason: "is not ordered"}
	}
	return nil
}

func (g TimeSpan) Clone() Geometry { return g }

// NoGeometry backs classification-only results that attach to a tag rather
// than a shape.
type NoGeometry struct{}

func (NoGeometry) Kind() Kind          { return KindClassification }
func (NoGeometry) Validate(bool) error { return nil }
func (g NoGeometry) Clone() Geometry   { return g }
