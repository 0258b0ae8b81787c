package solve

import (
	"context"
	"runtime"
	"time"

	"github.com/ctessum/geom"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/grid"
	"github.com/matzehuels/pdnroute/pkg/observability"
)

// Nets builds and solves every net, at most workers at a time (GOMAXPROCS
// when workers <= 0). The solves only read the map; once all of them succeed
// the fields are written into the cells and the segment end voltages and
// currents are annotated, in net order. On error nothing is written.
func Nets(ctx context.Context, b *board.Board, m *grid.Map, opts Options, workers int) ([]*Solution, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	solutions := make([]*Solution, len(b.Nets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for n := range b.Nets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			s, err := solveNet(b, m, n, opts)
			iters := 0
			if s != nil {
				iters = s.Iterations
			}
			observability.Pipeline().OnNetSolved(gctx, b.Nets[n].Name, iters, time.Since(start), err)
			if err != nil {
				return err
			}
			solutions[n] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range solutions {
		s.writeBack(b, m)
	}
	return solutions, nil
}

func solveNet(b *board.Board, m *grid.Map, n int, opts Options) (*Solution, error) {
	nw, err := Build(b, m, n)
	if err != nil {
		return nil, err
	}
	return nw.Solve(opts)
}

// writeBack stores the field of s in the map and annotates the net's segments
// with the voltage at their end cells and the mean current of those cells.
func (s *Solution) writeBack(b *board.Board, m *grid.Map) {
	byCell := make(map[int]int, len(s.Nodes))
	for k, nd := range s.Nodes {
		m.SetField(nd.Cell, s.Net, s.Voltage[k], s.Current[k])
		byCell[nd.Cell] = k
	}

	for layer, ids := range b.Nets[s.Net].Segments {
		for _, id := range ids {
			seg := &b.Segments[id]
			a, okA := nodeAt(m, byCell, layer, seg.Start)
			z, okZ := nodeAt(m, byCell, layer, seg.End)
			if okA {
				seg.VoltageStart = s.Voltage[a]
			}
			if okZ {
				seg.VoltageEnd = s.Voltage[z]
			}
			if okA && okZ {
				seg.Current = 0.5 * (s.Current[a] + s.Current[z])
			}
		}
	}
}

func nodeAt(m *grid.Map, byCell map[int]int, layer int, p geom.Point) (int, bool) {
	c := m.Locate(p)
	if !m.InBounds(c.X, c.Y) {
		return 0, false
	}
	k, ok := byCell[m.Index(layer, c.X, c.Y)]
	return k, ok
}
