// Package via places vias under port footprints.
//
// Each port needs ceil(contactArea / viaMetalArea) vias. They are spread over
// the cells the port covers by k-means clustering of the cell centers: one
// via per centroid.
package via

import (
	"math/rand/v2"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/errors"
)

// DefaultEpochs is the number of assign/update rounds KMeans runs.
const DefaultEpochs = 100

// Clustering is the outcome of KMeans.
type Clustering struct {
	Centroids []geom.Point
	// Assign maps each input point to its cluster.
	Assign []int
}

// KMeans partitions points into k clusters. Seeds are k distinct points drawn
// uniformly from rng; the algorithm then runs exactly epochs rounds of
// nearest-centroid assignment (ties go to the lower cluster index) and
// centroid update. A cluster left without points keeps its centroid.
func KMeans(points []geom.Point, k, epochs int, rng *rand.Rand) (*Clustering, error) {
	if k <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cluster count must be positive, got %d", k)
	}
	if k > len(points) {
		return nil, errors.New(errors.ErrCodeInsufficientCells, "%d clusters requested from %d points", k, len(points))
	}
	if epochs < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "epochs must not be negative, got %d", epochs)
	}

	c := &Clustering{
		Centroids: make([]geom.Point, k),
		Assign:    make([]int, len(points)),
	}
	for i, p := range rng.Perm(len(points))[:k] {
		c.Centroids[i] = points[p]
	}

	sums := make([]geom.Point, k)
	counts := make([]int, k)
	c.assign(points)
	for e := 0; e < epochs; e++ {
		for j := range sums {
			sums[j] = geom.Point{}
			counts[j] = 0
		}
		for i, p := range points {
			j := c.Assign[i]
			sums[j].X += p.X
			sums[j].Y += p.Y
			counts[j]++
		}
		for j := range c.Centroids {
			if counts[j] > 0 {
				c.Centroids[j] = geom.Point{X: sums[j].X / float64(counts[j]), Y: sums[j].Y / float64(counts[j])}
			}
		}
		c.assign(points)
	}
	return c, nil
}

func (c *Clustering) assign(points []geom.Point) {
	for i, p := range points {
		best, bestD := 0, sqDist(p, c.Centroids[0])
		for j := 1; j < len(c.Centroids); j++ {
			if d := sqDist(p, c.Centroids[j]); d < bestD {
				best, bestD = j, d
			}
		}
		c.Assign[i] = best
	}
}

// Inertia is the sum of squared distances from each point to its centroid.
func (c *Clustering) Inertia(points []geom.Point) float64 {
	var s float64
	for i, p := range points {
		s += sqDist(p, c.Centroids[c.Assign[i]])
	}
	return s
}

func sqDist(a, b geom.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}
