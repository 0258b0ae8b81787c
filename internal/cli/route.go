package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/pipeline"
	"github.com/matzehuels/pdnroute/pkg/report"
	"github.com/matzehuels/pdnroute/pkg/route"
)

// stdoutPath selects standard output for the report.
const stdoutPath = "-"

// routeOpts holds the command-line flags for the route command.
type routeOpts struct {
	output   string // report path; "-" for stdout
	cache    cacheFlags
	pipeline pipeline.Options

	// Router weights are copied into pipeline only when given on the
	// command line, so an explicit 0 is kept.
	decay       float64
	penalty     float64
	widthWeight float64
}

// applyWeights copies the router weights the user set into the pipeline options.
func (o *routeOpts) applyWeights(f *pflag.FlagSet) {
	for _, w := range []struct {
		flag string
		val  float64
		dst  **float64
	}{
		{"decay", o.decay, &o.pipeline.Decay},
		{"penalty", o.penalty, &o.pipeline.Penalty},
		{"width-weight", o.widthWeight, &o.pipeline.WidthWeight},
	} {
		if f.Changed(w.flag) {
			*w.dst = pipeline.Float(w.val)
		}
	}
}

// routeCommand creates the route command that runs the full pipeline on a
// board description and writes the JSON report.
func (c *CLI) routeCommand() *cobra.Command {
	var opts routeOpts

	cmd := &cobra.Command{
		Use:   "route [board.toml]",
		Short: "Route, place vias and solve a board",
		Long: `Route every power net of a board description, place vias under its ports,
solve the resistive network of each net, and write the result as JSON.

The report is cached by board content and options; use --refresh to recompute
it or --no-cache to bypass the cache entirely.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBoards,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyWeights(cmd.Flags())
			return c.runRoute(cmd.Context(), args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "report file (default: <board>.report.json, '-' for stdout)")
	f.Float64Var(&opts.decay, "decay", route.DefaultDecay, "congestion decay per hop in [0, 1]")
	f.Float64Var(&opts.penalty, "penalty", 0, "congestion penalty per foreign net; 0 disables it (default 10 x nets)")
	f.Float64Var(&opts.widthWeight, "width-weight", route.DefaultWidthWeight, "cost weight of missing trace width; 0 disables it")
	f.IntVar(&opts.pipeline.Capacity, "capacity", 0, "foreign nets that make a cell impassable (0 = unlimited)")
	f.IntVar(&opts.pipeline.Epochs, "epochs", 0, "k-means rounds per port (default 100)")
	f.Uint64Var(&opts.pipeline.Seed, "seed", 0, "via clustering seed (default 42)")
	f.Float64Var(&opts.pipeline.Tolerance, "tolerance", 0, "relative CG residual (default 1e-10)")
	f.IntVar(&opts.pipeline.MaxIterations, "max-iter", 0, "CG iteration cap (default 1000000)")
	f.IntVar(&opts.pipeline.Workers, "workers", 0, "parallel net solves (default GOMAXPROCS)")
	f.BoolVar(&opts.pipeline.Refresh, "refresh", false, "recompute even if a cached report exists")
	f.BoolVar(&opts.cache.noCache, "no-cache", false, "disable the report cache")
	f.StringVar(&opts.cache.redis, "redis", "", "shared report cache, e.g. redis://localhost:6379/0")

	return cmd
}

// runRoute loads the board, executes the pipeline and writes the report.
func (c *CLI) runRoute(ctx context.Context, path string, opts *routeOpts) error {
	prog := newProgress(c.Logger)

	b, err := board.Load(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	res, err := runner.Execute(ctx, b, opts.pipeline)
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = defaultOutput(path)
	}
	if out == stdoutPath {
		return report.WriteJSON(res.Report, stdout())
	}
	if err := report.Export(res.Report, out); err != nil {
		return err
	}

	prog.done("Routed "+filepath.Base(path), "nets", len(res.Report.Nets), "cached", res.CacheInfo.ReportHit)
	printRouteSummary(res)
	printFile(out)
	return nil
}

// defaultOutput derives the report path from the board path:
// boards/main.toml → boards/main.report.json.
func defaultOutput(boardPath string) string {
	return strings.TrimSuffix(boardPath, filepath.Ext(boardPath)) + ".report.json"
}
