// Package route finds congestion-aware grid paths for net segments.
//
// A [Router] runs an A* search over one layer of a [grid.Map]. Moves are
// 4-connected. Each hop into a cell costs
//
//	pitch                                            base distance
//	+ Penalty * others(window) * Decay^hops          congestion
//	+ WidthWeight * max(0, nominal - clearance) * pitch  width shortfall
//
// where the window is the run of cells perpendicular to the hop that a trace
// of the nominal width would cover, others counts the nets other than the
// routed one on those cells, and clearance is the number of those cells the
// trace can actually claim. The router reads the grid but never writes it.
//
// [RouteNets] drives the router over every net of a board and commits the
// resulting footprints to the grid.
package route

import (
	"math"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/errors"
	"github.com/matzehuels/pdnroute/pkg/grid"
)

// Default router parameters.
const (
	DefaultDecay       = 0.9
	DefaultWidthWeight = 0.2
	// PenaltyPerNet scales the congestion penalty with the number of nets.
	PenaltyPerNet = 10.0
)

// Params configures the cost model of a Router.
type Params struct {
	Pitch       float64
	Decay       float64
	Penalty     float64
	WidthWeight float64
	// Capacity makes cells already carrying this many other nets impassable.
	// Zero means unlimited.
	Capacity int
}

// DefaultParams returns the default cost model for a board with the given
// pitch and net count.
func DefaultParams(pitch float64, nets int) Params {
	return Params{
		Pitch:       pitch,
		Decay:       DefaultDecay,
		Penalty:     float64(nets) * PenaltyPerNet,
		WidthWeight: DefaultWidthWeight,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if err := errors.ValidatePositive("pitch", p.Pitch); err != nil {
		return err
	}
	if err := errors.ValidateFraction("congestion decay", p.Decay); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("congestion penalty", p.Penalty); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("width weight", p.WidthWeight); err != nil {
		return err
	}
	if p.Capacity < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "capacity must not be negative, got %d", p.Capacity)
	}
	return nil
}

// Request describes one segment to route.
type Request struct {
	Layer int
	Net   int

	// Start and Goal are the grid cells of the trace node centers.
	Start grid.Coord
	Goal  grid.Coord
	// RealStart and RealEnd are the unrounded segment endpoints.
	RealStart geom.Point
	RealEnd   geom.Point

	// Width is the nominal trace width (mm).
	Width float64
}

// Result is a routed segment.
type Result struct {
	// Path lists the spine cells from Start to Goal.
	Path []grid.Coord
	// Footprint lists every cell the routed trace covers: the spine plus
	// the free cells of each perpendicular window. Cells are unique.
	Footprint []grid.Coord
	// ExactWidth is the narrowest clearance along the path (mm), capped at
	// the nominal width.
	ExactWidth float64
	// ExactLength is the path length with the real endpoints substituted
	// for the first and last cell centers (mm).
	ExactLength float64
	// Cost is the accumulated search cost of the path.
	Cost float64
}

// Hops returns the number of moves along the path.
func (r *Result) Hops() int { return len(r.Path) - 1 }

type axis int

const (
	alongX axis = iota // hop changes x; the window spans y
	alongY             // hop changes y; the window spans x
)

var moves = [4]struct {
	dx, dy int
	axis   axis
}{
	{1, 0, alongX},
	{-1, 0, alongX},
	{0, 1, alongY},
	{0, -1, alongY},
}

// Router searches paths on a grid map.
type Router struct {
	m *grid.Map
	p Params
}

// New returns a router over m.
func New(m *grid.Map, p Params) *Router {
	return &Router{m: m, p: p}
}

// Route finds the least-cost path for req. It fails with UNREACHABLE when no
// path exists and INVALID_INPUT when an endpoint lies outside the board.
func (r *Router) Route(req Request) (*Result, error) {
	m := r.m
	if err := errors.ValidateIndex("layer", req.Layer, m.NumLayers); err != nil {
		return nil, err
	}
	if !m.InBounds(req.Start.X, req.Start.Y) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "start cell (%d, %d) outside %dx%d board", req.Start.X, req.Start.Y, m.NumX, m.NumY)
	}
	if !m.InBounds(req.Goal.X, req.Goal.Y) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "goal cell (%d, %d) outside %dx%d board", req.Goal.X, req.Goal.Y, m.NumX, m.NumY)
	}

	nominal := r.nominalCells(req.Width)
	size := m.NumX * m.NumY
	g := make([]float64, size)
	hops := make([]int, size)
	parent := make([]int, size)
	dir := make([]axis, size)
	closed := make([]bool, size)
	for i := range g {
		g[i] = math.Inf(1)
		parent[i] = -1
	}

	start := req.Start.X*m.NumY + req.Start.Y
	goal := req.Goal.X*m.NumY + req.Goal.Y
	g[start] = 0

	var q queue
	h0 := r.heuristic(req.Start.X, req.Start.Y, req.Goal)
	q.push(start, h0, h0)
	for !q.empty() {
		u := q.pop().cell
		if closed[u] {
			continue
		}
		closed[u] = true
		if u == goal {
			break
		}
		ux, uy := u/m.NumY, u%m.NumY
		for _, mv := range moves {
			vx, vy := ux+mv.dx, uy+mv.dy
			if !m.InBounds(vx, vy) {
				continue
			}
			v := vx*m.NumY + vy
			if closed[v] || (v != goal && r.blocked(req, vx, vy)) {
				continue
			}
			cost := g[u] + r.stepCost(req, nominal, vx, vy, mv.axis, hops[u]+1)
			if cost < g[v] {
				g[v] = cost
				hops[v] = hops[u] + 1
				parent[v] = u
				dir[v] = mv.axis
				h := r.heuristic(vx, vy, req.Goal)
				q.push(v, cost+h, h)
			}
		}
	}
	if !closed[goal] {
		return nil, errors.New(errors.ErrCodeUnreachable, "layer %d net %d: no path from (%d, %d) to (%d, %d)",
			req.Layer, req.Net, req.Start.X, req.Start.Y, req.Goal.X, req.Goal.Y)
	}

	var cells []int
	for v := goal; v != -1; v = parent[v] {
		cells = append(cells, v)
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}

	res := &Result{Cost: g[goal]}
	seen := make(map[grid.Coord]bool)
	minClear := nominal
	for i, v := range cells {
		c := grid.Coord{X: v / m.NumY, Y: v % m.NumY}
		res.Path = append(res.Path, c)

		a := dir[v]
		if i == 0 {
			a = alongX
			if len(cells) > 1 {
				a = dir[cells[1]]
			}
		}
		free := r.window(req, nominal, c.X, c.Y, a)
		if len(free) < minClear {
			minClear = len(free)
		}
		for _, fc := range free {
			if !seen[fc] {
				seen[fc] = true
				res.Footprint = append(res.Footprint, fc)
			}
		}
	}
	res.ExactWidth = math.Min(req.Width, float64(minClear)*m.Pitch)
	res.ExactLength = r.exactLength(req, res.Path)
	return res, nil
}

// nominalCells is the trace width in whole cells, at least one.
func (r *Router) nominalCells(width float64) int {
	n := int(math.Round(width / r.p.Pitch))
	if n < 1 {
		n = 1
	}
	return n
}

// span returns how far the window extends on each side of the spine.
func span(nominal int) (lo, hi int) {
	lo = (nominal - 1) / 2
	return lo, nominal - 1 - lo
}

func offset(x, y int, a axis, k int) (int, int) {
	if a == alongX {
		return x, y + k
	}
	return x + k, y
}

func (r *Router) blocked(req Request, x, y int) bool {
	if r.p.Capacity == 0 {
		return false
	}
	return r.m.Cell(req.Layer, x, y).Others(req.Net) >= r.p.Capacity
}

// window returns the cells a trace centered on (x, y) can claim across a hop
// along a: the spine cell plus the runs of cells free of other nets on each
// side, capped at the nominal width and clipped by the board edge.
func (r *Router) window(req Request, nominal, x, y int, a axis) []grid.Coord {
	free := []grid.Coord{{X: x, Y: y}}
	lo, hi := span(nominal)
	for _, side := range [2]struct{ sign, n int }{{-1, lo}, {1, hi}} {
		for k := 1; k <= side.n; k++ {
			wx, wy := offset(x, y, a, side.sign*k)
			if !r.m.InBounds(wx, wy) || r.m.Cell(req.Layer, wx, wy).Others(req.Net) > 0 {
				break
			}
			free = append(free, grid.Coord{X: wx, Y: wy})
		}
	}
	return free
}

// stepCost is the cost of entering (x, y) along a as the hops-th move.
func (r *Router) stepCost(req Request, nominal, x, y int, a axis, hops int) float64 {
	cost := r.p.Pitch

	if r.p.Penalty > 0 {
		lo, hi := span(nominal)
		others := 0
		for k := -lo; k <= hi; k++ {
			wx, wy := offset(x, y, a, k)
			if r.m.InBounds(wx, wy) {
				others += r.m.Cell(req.Layer, wx, wy).Others(req.Net)
			}
		}
		cost += r.p.Penalty * float64(others) * math.Pow(r.p.Decay, float64(hops))
	}

	if r.p.WidthWeight > 0 {
		if short := nominal - len(r.window(req, nominal, x, y, a)); short > 0 {
			cost += r.p.WidthWeight * float64(short) * r.p.Pitch
		}
	}
	return cost
}

func (r *Router) heuristic(x, y int, goal grid.Coord) float64 {
	return math.Hypot(float64(goal.X-x), float64(goal.Y-y)) * r.p.Pitch
}

func (r *Router) exactLength(req Request, path []grid.Coord) float64 {
	pts := make([]geom.Point, len(path)+1)
	pts[0] = req.RealStart
	for i := 1; i < len(path)-1; i++ {
		pts[i] = r.m.Center(path[i].X, path[i].Y)
	}
	pts = pts[:max(len(path), 2)]
	pts[len(pts)-1] = req.RealEnd

	var l float64
	for i := 1; i < len(pts); i++ {
		l += math.Hypot(pts[i].X-pts[i-1].X, pts[i].Y-pts[i-1].Y)
	}
	return l
}
