package board

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/errors"
)

// widthTolerance bounds the rounding drift allowed between the two
// half-widths of a segment and its width.
const widthTolerance = 1e-9

// Segment is one routable piece of a trace on a single layer.
//
// WidthLeft and WidthRight are measured from the spine (Start to End) and
// always sum to the segment width.
type Segment struct {
	Trace      int // index into Board.Traces
	Start      geom.Point
	End        geom.Point
	WidthLeft  float64
	WidthRight float64

	VoltageStart float64
	VoltageEnd   float64
	Current      float64
	Length       float64
}

// Width returns WidthLeft + WidthRight.
func (s *Segment) Width() float64 { return s.WidthLeft + s.WidthRight }

// CheckWidth verifies both half-widths are non-negative and sum to width.
func (s *Segment) CheckWidth(width float64) error {
	if s.WidthLeft < 0 || s.WidthRight < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative half-width (%g, %g)", s.WidthLeft, s.WidthRight)
	}
	if math.Abs(s.Width()-width) > widthTolerance*math.Max(1, width) {
		return errors.New(errors.ErrCodeInvalidInput, "half-widths %g + %g do not sum to %g", s.WidthLeft, s.WidthRight, width)
	}
	return nil
}

// SetRouted records the realized width and length of the segment. The
// left/right split keeps its proportion; a zero-width segment is split evenly.
func (s *Segment) SetRouted(width, length float64) {
	old := s.Width()
	if old > 0 {
		s.WidthLeft = width * s.WidthLeft / old
	} else {
		s.WidthLeft = width / 2
	}
	s.WidthRight = width - s.WidthLeft
	s.Length = length
}

// Outline returns the rectangle swept by the segment: the spine offset by
// WidthLeft on its left and WidthRight on its right. A zero-length segment
// yields an axis-aligned square of side Width centered on Start.
func (s *Segment) Outline() geom.Polygon {
	dx, dy := s.End.X-s.Start.X, s.End.Y-s.Start.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		h := s.Width() / 2
		return Rect(s.Start.X-h, s.Start.Y-h, s.Start.X+h, s.Start.Y+h)
	}
	nx, ny := -dy/l, dx/l
	return geom.Polygon{{
		{X: s.Start.X + nx*s.WidthLeft, Y: s.Start.Y + ny*s.WidthLeft},
		{X: s.Start.X - nx*s.WidthRight, Y: s.Start.Y - ny*s.WidthRight},
		{X: s.End.X - nx*s.WidthRight, Y: s.End.Y - ny*s.WidthRight},
		{X: s.End.X + nx*s.WidthLeft, Y: s.End.Y + ny*s.WidthLeft},
	}}
}

// Rect returns the axis-aligned rectangle spanning (x0, y0)-(x1, y1).
func Rect(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	}}
}
