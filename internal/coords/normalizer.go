// Package coords converts between the pixel space tools draw in and the
// normalized, resolution-independent space regions are stored in. Stored
// coordinates are percentages (0-100) of the source object's natural size,
// so they survive any zoom, pan, or rotation of the viewport.
package coords

import (
	"errors"
	"fmt"
	"math"
)

// ErrFrameNotReady is returned when a conversion is attempted before the
// object's natural dimensions are known (image still loading).
var ErrFrameNotReady = errors.New("object frame not ready")

// FrameError is the typed error raised for degenerate or non-finite frames.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("invalid object frame: %s", e.Reason)
}

// Frame describes the current display state of one visual object: its
// natural size plus the viewport transform applied to it.
type Frame struct {
	NaturalWidth  float64
	NaturalHeight float64
	Zoom          float64 // 1.0 = unscaled
	PanX          float64 // display-space offset
	PanY          float64
	Rotation      float64 // degrees, counter-clockwise positive
}

// Validate rejects frames that would produce NaN or Infinity downstream.
// Transient zero-size frames during load are reported as *FrameError so
// callers can skip-and-log instead of crashing.
func (f Frame) Validate() error {
	for _, v := range []float64{f.NaturalWidth, f.NaturalHeight, f.Zoom, f.PanX, f.PanY, f.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &FrameError{Reason: "non-finite component"}
		}
	}
	if f.NaturalWidth <= 0 || f.NaturalHeight <= 0 {
		return &FrameError{Reason: "degenerate natural size"}
	}
	if f.Zoom <= 0 {
		return &FrameError{Reason: "non-positive zoom"}
	}
	return nil
}

// displayMatrix builds the natural-pixels -> display-pixels transform.
// Rotation is applied around the natural center, then zoom, then pan; the
// inverse direction undoes them in reverse so both mappings agree.
func (f Frame) displayMatrix() Matrix {
	cx := f.NaturalWidth / 2
	cy := f.NaturalHeight / 2
	m := Translate(cx, cy).Multiply(Rotate(f.Rotation)).Multiply(Translate(-cx, -cy))
	m = Scale(f.Zoom, f.Zoom).Multiply(m)
	return Translate(f.PanX, f.PanY).Multiply(m)
}

// ToNormalized maps a display-space point into percent coordinates of the
// object's natural size.
func (f Frame) ToNormalized(p Point) (Point, error) {
	if err := f.Validate(); err != nil {
		return Point{}, err
	}
	inv, ok := f.displayMatrix().Invert()
	if !ok {
		return Point{}, &FrameError{Reason: "non-invertible transform"}
	}
	natural := inv.Apply(p)
	out := Point{
		X: natural.X / f.NaturalWidth * 100,
		Y: natural.Y / f.NaturalHeight * 100,
	}
	if !out.IsFinite() {
		return Point{}, &FrameError{Reason: "non-finite result"}
	}
	return out, nil
}

// ToDisplay maps a stored percent point back into current display space.
func (f Frame) ToDisplay(p Point) (Point, error) {
	if err := f.Validate(); err != nil {
		return Point{}, err
	}
	natural := Point{
		X: p.X / 100 * f.NaturalWidth,
		Y: p.Y / 100 * f.NaturalHeight,
	}
	out := f.displayMatrix().Apply(natural)
	if !out.IsFinite() {
		return Point{}, &FrameError{Reason: "non-finite result"}
	}
	return out, nil
}

// Normalizer tracks the frame of one visual object and queues conversions
// requested before the frame is known. It is the single source of truth for
// that object's coordinate mapping.
type Normalizer struct {
	frame    Frame
	ready    bool
	deferred []func(Frame)
}

// NewNormalizer returns a normalizer with no frame yet.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Ready reports whether the frame has been set.
func (n *Normalizer) Ready() bool {
	return n.ready
}

// Frame returns the current frame; valid only when Ready.
func (n *Normalizer) Frame() Frame {
	return n.frame
}

// SetFrame installs a frame and flushes any deferred conversions against it.
// Invalid frames are rejected and the queue is kept.
func (n *Normalizer) SetFrame(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	n.frame = f
	n.ready = true
	pending := n.deferred
	n.deferred = nil
	for _, fn := range pending {
		fn(f)
	}
	return nil
}

// ToNormalized converts immediately, or fails with ErrFrameNotReady.
func (n *Normalizer) ToNormalized(p Point) (Point, error) {
	if !n.ready {
		return Point{}, ErrFrameNotReady
	}
	return n.frame.ToNormalized(p)
}

// ToDisplay converts immediately, or fails with ErrFrameNotReady.
func (n *Normalizer) ToDisplay(p Point) (Point, error) {
	if !n.ready {
		return Point{}, ErrFrameNotReady
	}
	return n.frame.ToDisplay(p)
}

// Defer runs fn now if the frame is known, otherwise queues it until
// SetFrame. This is how early pointer events survive slow image loads
// without producing NaN geometry.
func (n *Normalizer) Defer(fn func(Frame)) {
	if n.ready {
		fn(n.frame)
		return
	}
	n.deferred = append(n.deferred, fn)
}
