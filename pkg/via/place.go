package via

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/grid"
)

// NewRand returns the deterministic random source used for seeding clusters.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Place clusters every port's covering cells and instantiates one via per
// centroid, source port first, then targets in order. The vias of a port form
// its cluster. Each via cell is stamped for the net on every layer where the
// net is missing so the resistive network has a node there on all layers.
// It returns the number of vias placed.
func Place(ctx context.Context, b *board.Board, m *grid.Map, epochs int, rng *rand.Rand) (int, error) {
	placed := 0
	for n := range b.Nets {
		if err := ctx.Err(); err != nil {
			return placed, err
		}
		for p := range b.Nets[n].Ports {
			port := &b.Nets[n].Ports[p]
			cells := m.PortCells(n, p)
			points := make([]geom.Point, len(cells))
			for i, c := range cells {
				points[i] = m.Center(c.X, c.Y)
			}

			cl, err := KMeans(points, b.ViaCount(port), epochs, rng)
			if err != nil {
				return placed, fmt.Errorf("net %d (%s) %s port %d: %w", n, b.Nets[n].Name, port.Role, p, err)
			}

			// The cluster is recorded before any via exists so a port that
			// already has one leaves the board untouched.
			vias := make([]int, len(cl.Centroids))
			for i := range vias {
				vias[i] = len(b.Vias) + i
			}
			if err := b.AssignCluster(n, p, vias); err != nil {
				return placed, err
			}
			for _, at := range cl.Centroids {
				b.AddVia(n, p, at)
				c := m.Locate(at)
				for layer := 0; layer < m.NumLayers; layer++ {
					m.StampMissing(layer, c.X, c.Y, n)
				}
			}
			placed += len(vias)
		}
	}
	return placed, nil
}
