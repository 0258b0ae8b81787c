// Package solve turns a routed net into a resistive network and solves it for
// node voltages and currents.
//
// Every (layer, cell) the net occupies becomes a node. Neighboring cells on a
// layer are joined by the metal's sheet conductance, vias join the same cell
// on adjacent layers, and ports attach on layer 0 at their via cells: the
// source through a branch to its fixed voltage, each target through a private
// load node that drains to the reference with conductance I/V.
package solve

import (
	"fmt"
	"math"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/errors"
	"github.com/matzehuels/pdnroute/pkg/grid"
)

// Defaults for the CG solve.
const (
	DefaultTolerance     = 1e-10
	DefaultMaxIterations = 1_000_000
)

// Node is one occupied (layer, cell) of the net.
type Node struct {
	Layer int
	X, Y  int
	Cell  int // arena index in the grid
}

type edge struct {
	a, b int
	g    float64
}

// terminal is a branch from a layer-0 via node to the fixed source voltage.
type terminal struct {
	node int
	g    float64
}

// load is the private node of one target port.
type load struct {
	port int
	g    float64 // I/V of the port
}

// Network is the assembled resistive system of one net.
type Network struct {
	Net     int
	Nodes   []Node
	Source  float64 // source voltage
	edges   []edge  // planar, via and target via-to-load branches
	sources []terminal
	loads   []load
	byCell  map[int]int
}

// Size is the number of unknowns: grid nodes plus one load node per target.
func (n *Network) Size() int { return len(n.Nodes) + len(n.loads) }

// NodeAt returns the node index of arena cell i, or -1.
func (n *Network) NodeAt(i int) int {
	if k, ok := n.byCell[i]; ok {
		return k
	}
	return -1
}

// Build assembles the network of net from the occupancy map. Vias and their
// clusters must already be placed.
func Build(b *board.Board, m *grid.Map, net int) (*Network, error) {
	if net < 0 || net >= len(b.Nets) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "net %d out of range", net)
	}
	nw := &Network{Net: net, Source: b.Nets[net].Source().Voltage, byCell: make(map[int]int)}

	for l := 0; l < m.NumLayers; l++ {
		for _, i := range m.Occupied(net, l) {
			c := m.At(i)
			nw.byCell[i] = len(nw.Nodes)
			nw.Nodes = append(nw.Nodes, Node{Layer: l, X: c.X, Y: c.Y, Cell: i})
		}
	}

	// Planar edges, each pair once via its +x and +y neighbor.
	for k, nd := range nw.Nodes {
		g := b.Stackup.PlanarConductance(nd.Layer)
		for _, d := range [2][2]int{{1, 0}, {0, 1}} {
			x, y := nd.X+d[0], nd.Y+d[1]
			if !m.InBounds(x, y) {
				continue
			}
			if o := nw.NodeAt(m.Index(nd.Layer, x, y)); o >= 0 {
				nw.edges = append(nw.edges, edge{a: k, b: o, g: g})
			}
		}
	}

	gTerm := b.Stackup.TerminalConductance(b.ViaMetalArea)
	for _, v := range b.Nets[net].Vias {
		via := b.Vias[v]
		c := m.Locate(via.At)
		if !m.InBounds(c.X, c.Y) {
			return nil, errors.New(errors.ErrCodeInternal, "net %d via %d at %v: outside the board", net, v, via.At)
		}
		for l := 0; l+1 < m.NumLayers; l++ {
			lo, hi := nw.NodeAt(m.Index(l, c.X, c.Y)), nw.NodeAt(m.Index(l+1, c.X, c.Y))
			if lo < 0 || hi < 0 {
				return nil, errors.New(errors.ErrCodeInternal, "net %d via %d: cell (%d, %d) not occupied on layers %d-%d", net, v, c.X, c.Y, l, l+1)
			}
			nw.edges = append(nw.edges, edge{a: lo, b: hi, g: b.Stackup.InterLayerConductance(l, b.ViaMetalArea)})
		}
	}

	nets := &b.Nets[net]
	for p := range nets.Ports {
		port := &nets.Ports[p]
		cl := b.ClusterOf(net, p)
		if cl == nil {
			continue
		}
		var ld int
		if port.Role == board.RoleTarget {
			ld = len(nw.Nodes) + len(nw.loads)
			nw.loads = append(nw.loads, load{port: p, g: port.LoadConductance()})
		}
		for _, v := range cl.Vias {
			c := m.Locate(b.Vias[v].At)
			k := nw.NodeAt(m.Index(0, c.X, c.Y))
			if k < 0 {
				return nil, errors.New(errors.ErrCodeInternal, "net %d port %d via %d: no layer-0 node", net, p, v)
			}
			if port.Role == board.RoleSource {
				nw.sources = append(nw.sources, terminal{node: k, g: gTerm})
			} else {
				nw.edges = append(nw.edges, edge{a: k, b: ld, g: gTerm})
			}
		}
	}

	if err := nw.checkConnected(); err != nil {
		return nil, err
	}
	return nw, nil
}

// checkConnected walks from the source terminals and fails on the first node
// the walk cannot reach.
func (n *Network) checkConnected() error {
	if len(n.sources) == 0 {
		return errors.New(errors.ErrCodeSingularSystem, "net %d: no source terminal", n.Net)
	}
	adj := make([][]int, n.Size())
	for _, e := range n.edges {
		adj[e.a] = append(adj[e.a], e.b)
		adj[e.b] = append(adj[e.b], e.a)
	}
	seen := make([]bool, n.Size())
	stack := make([]int, 0, len(n.sources))
	for _, t := range n.sources {
		if !seen[t.node] {
			seen[t.node] = true
			stack = append(stack, t.node)
		}
	}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, o := range adj[k] {
			if !seen[o] {
				seen[o] = true
				stack = append(stack, o)
			}
		}
	}
	for k, ok := range seen {
		if ok {
			continue
		}
		if k < len(n.Nodes) {
			nd := n.Nodes[k]
			return errors.New(errors.ErrCodeSingularSystem, "net %d layer %d cell (%d, %d): floating node", n.Net, nd.Layer, nd.X, nd.Y)
		}
		return errors.New(errors.ErrCodeSingularSystem, "net %d port %d: floating load", n.Net, n.loads[k-len(n.Nodes)].port)
	}
	return nil
}

// system returns the conductance matrix and right-hand side.
func (n *Network) system() (*CSR, []float64) {
	es := make([]entry, 0, 4*len(n.edges)+len(n.sources)+len(n.loads))
	for _, e := range n.edges {
		es = append(es,
			entry{e.a, e.a, e.g}, entry{e.b, e.b, e.g},
			entry{e.a, e.b, -e.g}, entry{e.b, e.a, -e.g})
	}
	rhs := make([]float64, n.Size())
	for _, t := range n.sources {
		es = append(es, entry{t.node, t.node, t.g})
		rhs[t.node] += n.Source * t.g
	}
	for k, ld := range n.loads {
		i := len(n.Nodes) + k
		es = append(es, entry{i, i, ld.g})
	}
	return assemble(n.Size(), es), rhs
}

// Options control the linear solve.
type Options struct {
	Tolerance     float64
	MaxIterations int
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
}

// PortReport is the solved state of one port.
type PortReport struct {
	Port    int        `json:"port"`
	Role    board.Role `json:"-"`
	Voltage float64    `json:"voltage"`
	Current float64    `json:"current"`
	Vias    int        `json:"vias"`
}

// Solution holds the solved field of one net.
type Solution struct {
	Net        int
	Nodes      []Node
	Voltage    []float64 // per node
	Current    []float64 // per node
	Ports      []PortReport
	Iterations int
	Residual   float64
}

// Solve runs the preconditioned CG on the network and derives node currents
// and port reports.
func (n *Network) Solve(opts Options) (*Solution, error) {
	opts.SetDefaults()
	a, rhs := n.system()
	res, err := pcg(a, rhs, opts.Tolerance, opts.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("net %d: %w", n.Net, err)
	}
	v := res.X

	s := &Solution{
		Net:        n.Net,
		Nodes:      n.Nodes,
		Voltage:    v[:len(n.Nodes)],
		Current:    make([]float64, len(n.Nodes)),
		Iterations: res.Iterations,
		Residual:   res.Residual,
	}
	nodes := len(n.Nodes)
	for _, e := range n.edges {
		c := 0.5 * math.Abs(v[e.a]-v[e.b]) * e.g
		if e.a < nodes {
			s.Current[e.a] += c
		}
		if e.b < nodes {
			s.Current[e.b] += c
		}
	}

	src := PortReport{Port: 0, Role: board.RoleSource, Voltage: n.Source, Vias: len(n.sources)}
	for _, t := range n.sources {
		s.Current[t.node] += 0.5 * math.Abs(n.Source-v[t.node]) * t.g
		src.Current += (n.Source - v[t.node]) * t.g
	}
	s.Ports = append(s.Ports, src)
	for k, ld := range n.loads {
		vp := v[nodes+k]
		s.Ports = append(s.Ports, PortReport{Port: ld.port, Role: board.RoleTarget, Voltage: vp, Current: vp * ld.g})
	}
	for _, e := range n.edges {
		if e.b >= nodes {
			s.Ports[1+e.b-nodes].Vias++
		}
	}
	return s, nil
}
