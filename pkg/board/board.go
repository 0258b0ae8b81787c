// Package board holds the physical database a PDN run operates on.
//
// A Board owns every object in flat slices. Objects refer to each other by
// index into those slices, never by pointer:
//
//	Board.Nets[n].Segments[layer] -> indices into Board.Segments
//	Board.Segments[s].Trace       -> index into Board.Traces
//	Board.Nets[n].Vias            -> indices into Board.Vias
//	Port.Cluster                  -> index into Board.Clusters
//
// Boards are usually decoded from TOML with [Load] or [Decode], but can be
// assembled in code and checked with [Board.Validate].
package board

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/errors"
)

// Role distinguishes the single source port of a net from its load ports.
type Role int

const (
	RoleSource Role = iota
	RoleTarget
)

// String returns "source" or "target".
func (r Role) String() string {
	if r == RoleSource {
		return "source"
	}
	return "target"
}

// NoCluster marks a port whose via cluster has not been placed yet.
const NoCluster = -1

// Port is an electrical terminal of a net.
type Port struct {
	Role    Role
	Voltage float64      // demanded voltage (V)
	Current float64      // demanded current (A)
	Outline geom.Polygon // footprint (mm)
	ViaArea float64      // required via contact area (mm²)
	Cluster int          // index into Board.Clusters, NoCluster until placed
}

// Encloses reports whether (x, y) lies inside or on the edge of the port footprint.
func (p *Port) Encloses(x, y float64) bool {
	return geom.Point{X: x, Y: y}.Within(p.Outline) != geom.Outside
}

// LoadConductance linearizes the port's demand about its operating point.
func (p *Port) LoadConductance() float64 {
	if p.Voltage == 0 {
		return 0
	}
	return p.Current / p.Voltage
}

// Net is one power net: Ports[0] is the source, Ports[1:] the targets in order.
type Net struct {
	Name     string
	Ports    []Port
	Segments [][]int // per layer, indices into Board.Segments
	Vias     []int   // indices into Board.Vias
}

// Source returns the source port.
func (n *Net) Source() *Port { return &n.Ports[0] }

// Targets returns the target ports in order.
func (n *Net) Targets() []Port { return n.Ports[1:] }

// Trace is the parent shape of a segment: node-center endpoints and nominal width.
type Trace struct {
	Net   int
	Layer int
	From  geom.Point
	To    geom.Point
	Width float64
}

// Via is a single plated via instance.
type Via struct {
	Net  int
	Port int
	At   geom.Point
}

// ViaCluster groups the vias serving one port.
type ViaCluster struct {
	Net  int
	Port int
	Vias []int // indices into Board.Vias
}

// Board is the complete physical database of a run.
type Board struct {
	Pitch        float64 // grid cell size (mm)
	Width        float64 // board extent along x (mm)
	Height       float64 // board extent along y (mm)
	ViaMetalArea float64 // metal cross-section of one reference via (mm²)

	Stackup  Stackup
	Nets     []Net
	Traces   []Trace
	Segments []Segment
	Vias     []Via
	Clusters []ViaCluster
}

// NumX returns the number of grid columns covering the board.
func (b *Board) NumX() int { return int(math.Ceil(b.Width/b.Pitch - 1e-9)) }

// NumY returns the number of grid rows covering the board.
func (b *Board) NumY() int { return int(math.Ceil(b.Height/b.Pitch - 1e-9)) }

// NumLayers returns the number of metal layers.
func (b *Board) NumLayers() int { return len(b.Stackup.Metals) }

// AddSegment creates a trace and its segment on a net's layer and returns the
// segment index. widthLeft is measured from the spine; the right side takes
// the remainder of width.
func (b *Board) AddSegment(net, layer int, from, to geom.Point, width, widthLeft float64) int {
	b.Traces = append(b.Traces, Trace{Net: net, Layer: layer, From: from, To: to, Width: width})
	b.Segments = append(b.Segments, Segment{
		Trace:      len(b.Traces) - 1,
		Start:      from,
		End:        to,
		WidthLeft:  widthLeft,
		WidthRight: width - widthLeft,
		Length:     math.Hypot(to.X-from.X, to.Y-from.Y),
	})
	n := &b.Nets[net]
	for len(n.Segments) <= layer {
		n.Segments = append(n.Segments, nil)
	}
	n.Segments[layer] = append(n.Segments[layer], len(b.Segments)-1)
	return len(b.Segments) - 1
}

// SegmentsOn returns the segment indices of a net on one layer.
func (b *Board) SegmentsOn(net, layer int) []int {
	n := &b.Nets[net]
	if layer >= len(n.Segments) {
		return nil
	}
	return n.Segments[layer]
}

// AddVia instantiates a via for a port and returns its index.
func (b *Board) AddVia(net, port int, at geom.Point) int {
	b.Vias = append(b.Vias, Via{Net: net, Port: port, At: at})
	idx := len(b.Vias) - 1
	b.Nets[net].Vias = append(b.Nets[net].Vias, idx)
	return idx
}

// AssignCluster records the via cluster of a port. A port's cluster is set
// once; a second assignment is an error.
func (b *Board) AssignCluster(net, port int, vias []int) error {
	p := &b.Nets[net].Ports[port]
	if p.Cluster != NoCluster {
		return errors.New(errors.ErrCodeInternal, "net %d port %d: via cluster already assigned", net, port)
	}
	b.Clusters = append(b.Clusters, ViaCluster{Net: net, Port: port, Vias: vias})
	p.Cluster = len(b.Clusters) - 1
	return nil
}

// ClusterOf returns the via cluster of a port, or nil if none was placed.
func (b *Board) ClusterOf(net, port int) *ViaCluster {
	c := b.Nets[net].Ports[port].Cluster
	if c == NoCluster {
		return nil
	}
	return &b.Clusters[c]
}

// ViaCount returns the number of vias a port needs: ceil(ViaArea / ViaMetalArea).
func (b *Board) ViaCount(p *Port) int {
	return int(math.Ceil(p.ViaArea/b.ViaMetalArea - 1e-9))
}

// Validate checks the board for structural consistency.
func (b *Board) Validate() error {
	if err := errors.ValidatePositive("pitch", b.Pitch); err != nil {
		return err
	}
	if err := errors.ValidatePositive("board width", b.Width); err != nil {
		return err
	}
	if err := errors.ValidatePositive("board height", b.Height); err != nil {
		return err
	}
	if err := errors.ValidatePositive("via metal area", b.ViaMetalArea); err != nil {
		return err
	}
	if err := b.Stackup.Validate(); err != nil {
		return err
	}
	if len(b.Nets) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "board has no nets")
	}
	for i := range b.Nets {
		if err := b.validateNet(i); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) validateNet(i int) error {
	n := &b.Nets[i]
	if len(n.Ports) < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "net %d (%s): needs a source and at least one target", i, n.Name)
	}
	for j := range n.Ports {
		p := &n.Ports[j]
		want := RoleTarget
		if j == 0 {
			want = RoleSource
		}
		if p.Role != want {
			return errors.New(errors.ErrCodeInvalidInput, "net %d port %d: expected %s, got %s", i, j, want, p.Role)
		}
		if len(p.Outline) == 0 || len(p.Outline[0]) < 3 {
			return errors.New(errors.ErrCodeInvalidInput, "net %d port %d: outline needs at least 3 points", i, j)
		}
		if err := errors.ValidatePositive("port via area", p.ViaArea); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "net %d port %d", i, j)
		}
		if err := errors.ValidatePositive("port voltage", p.Voltage); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "net %d port %d", i, j)
		}
		if p.Role == RoleTarget {
			if err := errors.ValidatePositive("target current", p.Current); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "net %d port %d", i, j)
			}
		}
	}
	if len(n.Segments) > b.NumLayers() {
		return errors.New(errors.ErrCodeInvalidInput, "net %d: segments on %d layers, stackup has %d", i, len(n.Segments), b.NumLayers())
	}
	for layer, segs := range n.Segments {
		for _, s := range segs {
			if err := errors.ValidateIndex("segment", s, len(b.Segments)); err != nil {
				return err
			}
			seg := &b.Segments[s]
			if err := seg.CheckWidth(b.Traces[seg.Trace].Width); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "net %d layer %d segment %d", i, layer, s)
			}
			for _, pt := range []geom.Point{seg.Start, seg.End} {
				if pt.X < 0 || pt.Y < 0 || pt.X > b.Width || pt.Y > b.Height {
					return errors.New(errors.ErrCodeInvalidInput, "net %d layer %d segment %d: endpoint (%g, %g) outside board", i, layer, s, pt.X, pt.Y)
				}
			}
		}
	}
	return nil
}
