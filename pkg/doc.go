// Package pkg provides the core libraries of pdnroute, a router for the power
// delivery network of a multi-layer board.
//
// # Overview
//
// pdnroute takes a board description (a grid pitch, a layer stackup, and power
// nets with source and target ports plus requested trace segments), routes
// every segment over a shared occupancy grid, places vias under each port, and
// solves each net as a resistive network. The pkg directory is organized into
// four areas:
//
//  1. [board], [grid] - Input model and the layered occupancy grid
//  2. [route], [via], [solve] - The routing, via placement and solver stages
//  3. [pipeline], [report] - Orchestration and the JSON result format
//  4. [cache], [observability], [errors], [buildinfo] - Infrastructure
//
// # Architecture
//
// The data flow of one run:
//
//	board.toml
//	     ↓
//	[board] package (load + validate)
//	     ↓
//	[grid] package (stamp traces and ports)
//	     ↓
//	[route] package (congestion-aware A* per segment)
//	     ↓
//	[via] package (k-means via clusters per port)
//	     ↓
//	[solve] package (conductance matrix + preconditioned CG per net)
//	     ↓
//	[report] JSON
//
// # Quick Start
//
//	b, err := board.Load("examples/boards/dual_rail.toml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, err := runner.Execute(ctx, b, pipeline.Options{})
//	if err != nil {
//	    return err
//	}
//	return report.Export(res.Report, "dual_rail.report.json")
//
// # Main Packages
//
// [board] - Board, stackup, nets, ports, traces and segments, decoded from
// TOML and validated before any stage runs.
//
// [grid] - Layered cell map with per-net occupancy, congestion counts, port
// membership and the solved voltage/current field.
//
// [route] - Congestion-aware A* that prefers wide, uncongested paths and
// stamps each finished segment into the grid.
//
// [via] - Chooses how many vias each port needs and spreads them over the
// port's cells with seeded k-means.
//
// [solve] - Builds the conductance network of a net and solves it with a
// Jacobi-preconditioned conjugate gradient, nets in parallel.
//
// [pipeline] - Runs the four stages with caching, hooks and logging. Used by
// the CLI.
//
// [report] - Serializable result: segments, vias per port, port voltages and
// currents, and the per-cell field.
//
// [cache] - Report cache backends: file (CLI default), Redis (shared), null.
//
// # Testing
//
//	go test ./pkg/...                          # All tests
//	PDNROUTE_TEST_REDIS=redis://localhost:6379/15 go test ./pkg/cache/
//
// [board]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/board
// [grid]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/grid
// [route]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/route
// [via]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/via
// [solve]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/solve
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/pipeline
// [report]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/report
// [cache]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/pdnroute/pkg/buildinfo
package pkg
