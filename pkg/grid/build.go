package grid

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/matzehuels/pdnroute/pkg/board"
)

// noPort marks a shape that belongs to a segment rather than a port.
const noPort = -1

// shape is an indexed outline: a segment on one layer or a port footprint.
type shape struct {
	geom.Polygon
	net   int
	layer int
	port  int
}

var _ geom.Geom = (*shape)(nil)

// Encloses reports whether any corner of column x, row y lies inside or on
// the edge of poly.
func Encloses(poly geom.Polygon, x, y int, pitch float64) bool {
	x0, y0 := float64(x)*pitch, float64(y)*pitch
	x1, y1 := x0+pitch, y0+pitch
	for _, p := range [4]geom.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}} {
		if p.Within(poly) != geom.Outside {
			return true
		}
	}
	return false
}

// Build stamps the initial occupancy of every net: the outlines of segments
// with positive width on their layer, and port footprints on every layer.
// Cells covered by a port are also recorded in that port's cell list
// (port 0 is the source).
func Build(b *board.Board) (*Map, error) {
	m := New(b.NumLayers(), b.NumX(), b.NumY(), b.Pitch, len(b.Nets))

	tree := rtree.NewTree(25, 50)
	for n := range b.Nets {
		for layer := 0; layer < b.NumLayers(); layer++ {
			for _, s := range b.SegmentsOn(n, layer) {
				seg := &b.Segments[s]
				if seg.Width() <= 0 {
					continue
				}
				tree.Insert(&shape{Polygon: seg.Outline(), net: n, layer: layer, port: noPort})
			}
		}
		for p := range b.Nets[n].Ports {
			tree.Insert(&shape{Polygon: b.Nets[n].Ports[p].Outline, net: n, layer: -1, port: p})
		}
	}

	eps := b.Pitch * 1e-6
	var segHits, portHits []*shape
	for x := 0; x < m.NumX; x++ {
		for y := 0; y < m.NumY; y++ {
			box := &geom.Bounds{
				Min: geom.Point{X: float64(x)*b.Pitch - eps, Y: float64(y)*b.Pitch - eps},
				Max: geom.Point{X: float64(x+1)*b.Pitch + eps, Y: float64(y+1)*b.Pitch + eps},
			}
			segHits, portHits = segHits[:0], portHits[:0]
			for _, sp := range tree.SearchIntersect(box) {
				s := sp.(*shape)
				if !Encloses(s.Polygon, x, y, b.Pitch) {
					continue
				}
				if s.port == noPort {
					segHits = append(segHits, s)
				} else {
					portHits = append(portHits, s)
				}
			}

			// Segments, layer-major then net order; one stamp per (net, layer).
			sort.Slice(segHits, func(i, j int) bool {
				if segHits[i].layer != segHits[j].layer {
					return segHits[i].layer < segHits[j].layer
				}
				return segHits[i].net < segHits[j].net
			})
			for i, s := range segHits {
				if i > 0 && segHits[i-1].layer == s.layer && segHits[i-1].net == s.net {
					continue
				}
				if err := m.Stamp(s.layer, x, y, s.net); err != nil {
					return nil, err
				}
			}

			sort.Slice(portHits, func(i, j int) bool {
				if portHits[i].net != portHits[j].net {
					return portHits[i].net < portHits[j].net
				}
				return portHits[i].port < portHits[j].port
			})
			for _, s := range portHits {
				m.AddPortCell(s.net, s.port, x, y)
				for layer := 0; layer < m.NumLayers; layer++ {
					m.StampMissing(layer, x, y, s.net)
				}
			}
		}
	}
	return m, nil
}

// StampPorts restamps the port footprints of net on layer where missing.
func (m *Map) StampPorts(net, layer int) {
	for _, cells := range m.ports[net] {
		for _, c := range cells {
			m.StampMissing(layer, c.X, c.Y, net)
		}
	}
}
