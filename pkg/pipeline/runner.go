package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/cache"
	"github.com/matzehuels/pdnroute/pkg/errors"
	"github.com/matzehuels/pdnroute/pkg/grid"
	"github.com/matzehuels/pdnroute/pkg/observability"
	"github.com/matzehuels/pdnroute/pkg/report"
	"github.com/matzehuels/pdnroute/pkg/route"
	"github.com/matzehuels/pdnroute/pkg/solve"
	"github.com/matzehuels/pdnroute/pkg/via"
)

const cacheKeyType = "report"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner on different boards.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs occupancy → route → vias → solve on b and returns the report.
// A cached report for the same board and options is returned without running
// the stages unless opts.Refresh is set. Stage failures are wrapped with the
// stage name.
func (r *Runner) Execute(ctx context.Context, b *board.Board, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board: %w", err)
	}

	hash, err := BoardHash(b)
	if err != nil {
		return nil, err
	}
	key := r.Keyer.ReportKey(hash, opts.ReportKeyOpts(b))
	result := &Result{BoardHash: hash, CacheInfo: CacheInfo{Key: key}}
	result.Stats.Nets = len(b.Nets)

	if !opts.Refresh {
		if rep, ok := r.cached(ctx, key); ok {
			result.Report = rep
			result.RunID = rep.RunID
			result.CacheInfo.ReportHit = true
			r.Logger.Info("report from cache", "run", rep.RunID, "nets", len(rep.Nets))
			return result, nil
		}
	}

	result.RunID = uuid.NewString()
	if err := r.run(ctx, b, opts, result); err != nil {
		return nil, err
	}
	result.Report.RunID = result.RunID

	var buf bytes.Buffer
	if err := report.WriteJSON(result.Report, &buf); err == nil {
		if err := r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLReport); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, cacheKeyType, buf.Len())
		}
	}
	return result, nil
}

// cached looks up a report. Backend errors and undecodable entries count as
// misses.
func (r *Runner) cached(ctx context.Context, key string) (*report.Report, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	rep, err := report.ReadJSON(bytes.NewReader(data))
	if err != nil {
		r.Logger.Debug("discarding undecodable cache entry", "err", err)
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	return rep, true
}

// run executes the four stages and fills result.
func (r *Runner) run(ctx context.Context, b *board.Board, opts Options, result *Result) error {
	st := &result.Stats
	var m *grid.Map

	d, err := r.stage(ctx, StageOccupancy, func() error {
		var err error
		m, err = grid.Build(b)
		return err
	})
	if err != nil {
		return err
	}
	st.OccupancyTime = d
	usage := m.Usage()
	r.Logger.Info("built occupancy",
		"layers", m.NumLayers,
		"cells", m.Len(),
		"occupied", usage.OccupiedCells,
		"duration", d)

	d, err = r.stage(ctx, StageRoute, func() error {
		rs, err := route.RouteNets(ctx, b, m, opts.RouteParams(b), opts.Logger)
		if err != nil {
			return err
		}
		st.Segments, st.Hops, st.Length = rs.Segments, rs.Hops, rs.Length
		if err := m.Check(); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "occupancy corrupted by routing")
		}
		return nil
	})
	if err != nil {
		return err
	}
	st.RouteTime = d
	r.Logger.Info("routed nets",
		"nets", len(b.Nets),
		"segments", st.Segments,
		"length", st.Length,
		"duration", d)

	d, err = r.stage(ctx, StageVias, func() error {
		n, err := via.Place(ctx, b, m, opts.Epochs, via.NewRand(opts.Seed))
		st.Vias = n
		return err
	})
	if err != nil {
		return err
	}
	st.ViaTime = d
	r.Logger.Info("placed vias", "vias", st.Vias, "duration", d)

	var sols []*solve.Solution
	d, err = r.stage(ctx, StageSolve, func() error {
		var err error
		sols, err = solve.Nets(ctx, b, m, opts.SolveOptions(), opts.Workers)
		return err
	})
	if err != nil {
		return err
	}
	st.SolveTime = d
	for _, s := range sols {
		st.Iterations += s.Iterations
		opts.Logger.Debug("solved net",
			"net", b.Nets[s.Net].Name,
			"nodes", len(s.Nodes),
			"iterations", s.Iterations,
			"residual", s.Residual)
	}
	r.Logger.Info("solved networks", "nets", len(sols), "iterations", st.Iterations, "duration", d)

	result.Grid = m
	result.Report = report.New(b, m, sols)
	return nil
}

// stage runs fn as the named stage, reporting it to the pipeline hooks.
func (r *Runner) stage(ctx context.Context, name string, fn func() error) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, name, d, err)
	if err != nil {
		return d, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// BoardHash returns the content hash of a board description.
func BoardHash(b *board.Board) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash board")
	}
	return cache.Hash(data), nil
}
