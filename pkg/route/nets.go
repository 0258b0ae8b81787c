package route

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/grid"
)

// Stats summarizes a RouteNets pass.
type Stats struct {
	Segments int     // segments routed
	Hops     int     // grid moves over all paths
	Length   float64 // sum of exact lengths (mm)
}

// RouteNets routes every segment of positive width, net by net in index
// order and layer by layer within a net. All segments of a net are routed
// against the current grid first (the router ignores the net's own cells);
// only when every one of them succeeds is the net's occupancy on each layer
// cleared and replaced by the union of its footprints plus its port cells.
// Later nets therefore see the congestion of earlier ones.
//
// Segment widths and lengths are updated to the routed values at the same
// time. A segment that cannot be routed aborts the pass with the failing
// net's occupancy and segments untouched.
func RouteNets(ctx context.Context, b *board.Board, m *grid.Map, p Params, logger *log.Logger) (Stats, error) {
	var st Stats
	if err := p.Validate(); err != nil {
		return st, err
	}
	r := New(m, p)

	for n := range b.Nets {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		routed, err := routeNet(r, b, m, n)
		if err != nil {
			return st, err
		}

		for layer := 0; layer < m.NumLayers; layer++ {
			m.ClearNet(layer, n)
		}
		for _, rs := range routed {
			seg := &b.Segments[rs.segment]
			seg.SetRouted(rs.ExactWidth, rs.ExactLength)
			for _, c := range rs.Footprint {
				m.StampMissing(rs.layer, c.X, c.Y, n)
			}

			st.Segments++
			st.Hops += rs.Hops()
			st.Length += rs.ExactLength
			if logger != nil {
				logger.Debug("routed segment",
					"net", n, "layer", rs.layer, "segment", rs.segment,
					"hops", rs.Hops(), "width", rs.ExactWidth, "length", rs.ExactLength)
			}
		}
		for layer := 0; layer < m.NumLayers; layer++ {
			m.StampPorts(n, layer)
		}
	}
	return st, nil
}

// routedSegment is a route result waiting to be committed.
type routedSegment struct {
	*Result
	segment int
	layer   int
}

// routeNet routes the segments of net n without touching the grid or the
// board.
func routeNet(r *Router, b *board.Board, m *grid.Map, n int) ([]routedSegment, error) {
	var routed []routedSegment
	for layer := 0; layer < m.NumLayers; layer++ {
		for _, s := range b.SegmentsOn(n, layer) {
			seg := &b.Segments[s]
			if seg.Width() <= 0 {
				continue
			}
			tr := &b.Traces[seg.Trace]
			res, err := r.Route(Request{
				Layer:     layer,
				Net:       n,
				Start:     m.Locate(tr.From),
				Goal:      m.Locate(tr.To),
				RealStart: seg.Start,
				RealEnd:   seg.End,
				Width:     seg.Width(),
			})
			if err != nil {
				return nil, fmt.Errorf("net %d (%s) layer %d segment %d: %w", n, b.Nets[n].Name, layer, s, err)
			}
			routed = append(routed, routedSegment{Result: res, segment: s, layer: layer})
		}
	}
	return routed, nil
}
