// Package pipeline runs the complete PDN routing flow on a board.
//
// This package implements the occupancy → route → vias → solve pipeline used
// by the CLI. By centralizing it, every entry point gets the same defaults,
// stage logging, observability events and report caching.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Occupancy: stamp segment and port outlines onto the layer grids
//  2. Route: A* route every segment, net by net, against the congestion of
//     the nets before it
//  3. Vias: cluster each port's cells and place one via per centroid
//  4. Solve: build and solve every net's resistive network in parallel
//
// The stages mutate the board (routed widths and lengths, vias, clusters,
// segment voltages), so a board is run once.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	b, err := board.Load("board.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := runner.Execute(ctx, b, pipeline.Options{Seed: 7})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.WriteJSON(result.Report, os.Stdout)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/cache"
	"github.com/matzehuels/pdnroute/pkg/errors"
	"github.com/matzehuels/pdnroute/pkg/grid"
	"github.com/matzehuels/pdnroute/pkg/report"
	"github.com/matzehuels/pdnroute/pkg/route"
	"github.com/matzehuels/pdnroute/pkg/solve"
	"github.com/matzehuels/pdnroute/pkg/via"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and library callers
// =============================================================================

const (
	// DefaultSeed seeds the via clusterer.
	DefaultSeed = uint64(42)

	// DefaultEpochs is the number of k-means rounds per port.
	DefaultEpochs = via.DefaultEpochs

	// DefaultTolerance is the relative residual the CG solve stops at.
	DefaultTolerance = solve.DefaultTolerance

	// DefaultMaxIterations caps the CG solve.
	DefaultMaxIterations = solve.DefaultMaxIterations
)

// Stage names, as reported to observability hooks and wrapped into errors.
const (
	StageOccupancy = "occupancy"
	StageRoute     = "route"
	StageVias      = "vias"
	StageSolve     = "solve"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run. Zero values and nil
// weights select the defaults.
type Options struct {
	// Router options. The cost weights are pointers so an explicit zero
	// differs from unset; nil Penalty means 10 × number of nets.
	Decay       *float64 `json:"decay,omitempty"`
	Penalty     *float64 `json:"penalty,omitempty"`
	WidthWeight *float64 `json:"width_weight,omitempty"`
	Capacity    int      `json:"capacity,omitempty"`

	// Via clustering options
	Epochs int    `json:"epochs,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`

	// Solver options
	Tolerance     float64 `json:"tolerance,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty"`
	Workers       int     `json:"workers,omitempty"` // 0 = GOMAXPROCS

	// Refresh recomputes the report even if it is cached.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero fields with their defaults.
func (o *Options) SetDefaults() {
	if o.Decay == nil {
		o.Decay = Float(route.DefaultDecay)
	}
	if o.WidthWeight == nil {
		o.WidthWeight = Float(route.DefaultWidthWeight)
	}
	if o.Epochs == 0 {
		o.Epochs = DefaultEpochs
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks option ranges. Call SetDefaults first.
func (o *Options) Validate() error {
	if o.Decay != nil {
		if err := errors.ValidateFraction("congestion decay", *o.Decay); err != nil {
			return err
		}
	}
	if o.Penalty != nil {
		if err := errors.ValidateNonNegative("congestion penalty", *o.Penalty); err != nil {
			return err
		}
	}
	if o.WidthWeight != nil {
		if err := errors.ValidateNonNegative("width weight", *o.WidthWeight); err != nil {
			return err
		}
	}
	if o.Capacity < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "capacity must not be negative, got %d", o.Capacity)
	}
	if o.Epochs < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "epochs must not be negative, got %d", o.Epochs)
	}
	if err := errors.ValidatePositive("solver tolerance", o.Tolerance); err != nil {
		return err
	}
	if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max iterations must not be negative, got %d", o.MaxIterations)
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", o.Workers)
	}
	return nil
}

// Float returns a pointer to v, for the optional cost weights.
func Float(v float64) *float64 { return &v }

// RouteParams returns the router cost model for b. Unset weights keep the
// router defaults.
func (o *Options) RouteParams(b *board.Board) route.Params {
	p := route.DefaultParams(b.Pitch, len(b.Nets))
	if o.Decay != nil {
		p.Decay = *o.Decay
	}
	if o.Penalty != nil {
		p.Penalty = *o.Penalty
	}
	if o.WidthWeight != nil {
		p.WidthWeight = *o.WidthWeight
	}
	p.Capacity = o.Capacity
	return p
}

// SolveOptions returns the linear solver options.
func (o *Options) SolveOptions() solve.Options {
	return solve.Options{Tolerance: o.Tolerance, MaxIterations: o.MaxIterations}
}

// ReportKeyOpts returns cache key options for the report of b, with the
// cost weights resolved so unset and explicit defaults share a key.
func (o *Options) ReportKeyOpts(b *board.Board) cache.ReportKeyOpts {
	p := o.RouteParams(b)
	return cache.ReportKeyOpts{
		Decay:         p.Decay,
		Penalty:       p.Penalty,
		WidthWeight:   p.WidthWeight,
		Capacity:      p.Capacity,
		Epochs:        o.Epochs,
		Seed:          o.Seed,
		Tolerance:     o.Tolerance,
		MaxIterations: o.MaxIterations,
	}
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run that produced Report. A cached report keeps
	// the id of the run that computed it.
	RunID string

	// BoardHash is the content hash of the input board.
	BoardHash string

	// Report is the routed and solved output.
	Report *report.Report

	// Grid is the final occupancy. It is nil when the report came from cache.
	Grid *grid.Map

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the report came from cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Nets       int
	Segments   int
	Hops       int
	Length     float64 // routed length (mm)
	Vias       int
	Iterations int // CG iterations over all nets

	OccupancyTime time.Duration
	RouteTime     time.Duration
	ViaTime       time.Duration
	SolveTime     time.Duration
}

// CacheInfo tracks cache usage of a run.
type CacheInfo struct {
	ReportHit bool // Whether the report came from cache
	Key       string
}
