// Package grid implements the discretized occupancy map the router and the
// resistive solver share.
//
// A [Map] owns one [Cell] per (layer, x, y) in a flat arena. Cells record
// which nets occupy them; the congestion counter of a cell always equals the
// number of distinct nets on it. Per (net, layer) the map also keeps the
// cells in stamp order, which is the node order of the resistive network.
package grid

import (
	"math"
	"sort"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/errors"
)

// Coord addresses a column/row of the grid independent of layer.
type Coord struct {
	X, Y int
}

// Cell is one grid square on one layer.
type Cell struct {
	Layer, X, Y int

	// Nets holds the ids of the nets on this cell, sorted, without duplicates.
	Nets []int
	// Congestion counts the nets on this cell.
	Congestion int

	Voltage map[int]float64
	Current map[int]float64
}

// Has reports whether net occupies the cell.
func (c *Cell) Has(net int) bool {
	i := sort.SearchInts(c.Nets, net)
	return i < len(c.Nets) && c.Nets[i] == net
}

// Others returns the number of nets on the cell other than net.
func (c *Cell) Others(net int) int {
	if c.Has(net) {
		return c.Congestion - 1
	}
	return c.Congestion
}

func (c *Cell) add(net int) bool {
	i := sort.SearchInts(c.Nets, net)
	if i < len(c.Nets) && c.Nets[i] == net {
		return false
	}
	c.Nets = append(c.Nets, 0)
	copy(c.Nets[i+1:], c.Nets[i:])
	c.Nets[i] = net
	c.Congestion++
	return true
}

func (c *Cell) remove(net int) bool {
	i := sort.SearchInts(c.Nets, net)
	if i == len(c.Nets) || c.Nets[i] != net {
		return false
	}
	c.Nets = append(c.Nets[:i], c.Nets[i+1:]...)
	c.Congestion--
	delete(c.Voltage, net)
	delete(c.Current, net)
	return true
}

// Map is the occupancy grid of a board.
type Map struct {
	NumLayers int
	NumX      int
	NumY      int
	Pitch     float64

	cells []Cell
	// occupied[net][layer] lists cell indices in stamp order.
	occupied [][][]int
	// ports[net][port] lists the cells covered by a port footprint.
	ports [][][]Coord
}

// New allocates an empty map for the given extent and net count.
func New(layers, nx, ny int, pitch float64, nets int) *Map {
	m := &Map{
		NumLayers: layers,
		NumX:      nx,
		NumY:      ny,
		Pitch:     pitch,
		cells:     make([]Cell, layers*nx*ny),
		occupied:  make([][][]int, nets),
		ports:     make([][][]Coord, nets),
	}
	for l := 0; l < layers; l++ {
		for x := 0; x < nx; x++ {
			for y := 0; y < ny; y++ {
				c := &m.cells[m.Index(l, x, y)]
				c.Layer, c.X, c.Y = l, x, y
			}
		}
	}
	for n := range m.occupied {
		m.occupied[n] = make([][]int, layers)
	}
	return m
}

// NumNets returns the number of nets the map was allocated for.
func (m *Map) NumNets() int { return len(m.occupied) }

// Index returns the arena index of (layer, x, y).
func (m *Map) Index(layer, x, y int) int {
	return (layer*m.NumX+x)*m.NumY + y
}

// InBounds reports whether (x, y) is a column/row of the map.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.NumX && y < m.NumY
}

// Cell returns the cell at (layer, x, y).
func (m *Map) Cell(layer, x, y int) *Cell {
	return &m.cells[m.Index(layer, x, y)]
}

// At returns the cell at arena index i.
func (m *Map) At(i int) *Cell { return &m.cells[i] }

// Len returns the number of cells in the arena.
func (m *Map) Len() int { return len(m.cells) }

// Center returns the physical center of column x, row y.
func (m *Map) Center(x, y int) geom.Point {
	return geom.Point{X: (float64(x) + 0.5) * m.Pitch, Y: (float64(y) + 0.5) * m.Pitch}
}

// Locate returns the cell column/row containing the physical point p. Points
// on the far board edge belong to the last column/row; points outside the
// board map to coordinates that fail InBounds.
func (m *Map) Locate(p geom.Point) Coord {
	return Coord{X: locate(p.X, m.Pitch, m.NumX), Y: locate(p.Y, m.Pitch, m.NumY)}
}

func locate(v, pitch float64, n int) int {
	i := int(math.Floor(v / pitch))
	if i == n && v <= float64(n)*pitch {
		i--
	}
	return i
}

// Stamp marks (layer, x, y) as occupied by net. Stamping a cell the net
// already occupies is a precondition violation.
func (m *Map) Stamp(layer, x, y, net int) error {
	i := m.Index(layer, x, y)
	if !m.cells[i].add(net) {
		return errors.New(errors.ErrCodeDuplicateStamp, "net %d layer %d cell (%d, %d): already stamped", net, layer, x, y)
	}
	m.occupied[net][layer] = append(m.occupied[net][layer], i)
	return nil
}

// StampMissing marks (layer, x, y) for net unless it is already there.
// It reports whether the cell was newly stamped.
func (m *Map) StampMissing(layer, x, y, net int) bool {
	i := m.Index(layer, x, y)
	if !m.cells[i].add(net) {
		return false
	}
	m.occupied[net][layer] = append(m.occupied[net][layer], i)
	return true
}

// ClearNet removes net from every cell it occupies on layer.
func (m *Map) ClearNet(layer, net int) {
	for _, i := range m.occupied[net][layer] {
		m.cells[i].remove(net)
	}
	m.occupied[net][layer] = nil
}

// Occupied returns the arena indices of the cells net occupies on layer, in
// stamp order. The slice must not be modified.
func (m *Map) Occupied(net, layer int) []int {
	return m.occupied[net][layer]
}

// AddPortCell records that port of net covers column x, row y.
func (m *Map) AddPortCell(net, port, x, y int) {
	ps := m.ports[net]
	for len(ps) <= port {
		ps = append(ps, nil)
	}
	ps[port] = append(ps[port], Coord{X: x, Y: y})
	m.ports[net] = ps
}

// PortCells returns the cells covered by port of net.
func (m *Map) PortCells(net, port int) []Coord {
	if port >= len(m.ports[net]) {
		return nil
	}
	return m.ports[net][port]
}

// Check verifies the occupancy invariants: every cell's net set is sorted and
// unique with congestion equal to its size, and the per-(net, layer) lists
// name exactly the cells carrying that net.
func (m *Map) Check() error {
	count := make([]int, len(m.cells))
	for net := range m.occupied {
		for layer, cells := range m.occupied[net] {
			for _, i := range cells {
				c := &m.cells[i]
				if c.Layer != layer || !c.Has(net) {
					return errors.New(errors.ErrCodeInternal, "net %d layer %d: listed cell (%d, %d) does not carry the net", net, layer, c.X, c.Y)
				}
				count[i]++
			}
		}
	}
	for i := range m.cells {
		c := &m.cells[i]
		if c.Congestion != len(c.Nets) {
			return errors.New(errors.ErrCodeInternal, "layer %d cell (%d, %d): congestion %d, %d nets", c.Layer, c.X, c.Y, c.Congestion, len(c.Nets))
		}
		for j := 1; j < len(c.Nets); j++ {
			if c.Nets[j] <= c.Nets[j-1] {
				return errors.New(errors.ErrCodeInternal, "layer %d cell (%d, %d): net set not sorted/unique %v", c.Layer, c.X, c.Y, c.Nets)
			}
		}
		if count[i] != len(c.Nets) {
			return errors.New(errors.ErrCodeInternal, "layer %d cell (%d, %d): %d nets but listed %d times", c.Layer, c.X, c.Y, len(c.Nets), count[i])
		}
	}
	return nil
}

// Usage summarizes how much of the board is covered.
type Usage struct {
	OccupiedCells int     `json:"occupied_cells"`
	Area          float64 `json:"area"`    // mm² covered by at least one net
	Overlap       float64 `json:"overlap"` // mm² of extra coverage where nets share cells
}

// Usage returns the occupied area and overlap summed over all layers.
func (m *Map) Usage() Usage {
	var occupied, total int
	for i := range m.cells {
		if c := m.cells[i].Congestion; c > 0 {
			occupied++
			total += c
		}
	}
	a := m.Pitch * m.Pitch
	return Usage{
		OccupiedCells: occupied,
		Area:          float64(occupied) * a,
		Overlap:       float64(total-occupied) * a,
	}
}

// SetField stores the solved voltage and current of net at arena index i.
func (m *Map) SetField(i, net int, voltage, current float64) {
	c := &m.cells[i]
	if c.Voltage == nil {
		c.Voltage = make(map[int]float64)
		c.Current = make(map[int]float64)
	}
	c.Voltage[net] = voltage
	c.Current[net] = current
}
