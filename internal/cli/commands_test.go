package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pdnroute/pkg/pipeline"
	"github.com/matzehuels/pdnroute/pkg/report"
)

const testBoard = "../../pkg/board/testdata/two_layer.toml"

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	prev := output
	output = &buf
	t.Cleanup(func() { output = prev })

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(t.Context())
	return buf.String(), err
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", testBoard)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{"is valid", "10 × 10 cells", "VDD", "1 targets"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommandInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("pitch = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "check", path); err == nil {
		t.Fatal("check accepted a board with zero pitch")
	}
}

func TestRouteCommand(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.json")
	out, err := execute(t, "route", testBoard, "-o", dst, "--no-cache")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !strings.Contains(out, "fresh") || !strings.Contains(out, dst) {
		t.Errorf("unexpected summary:\n%s", out)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rep, err := report.ReadJSON(f)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	vdd := rep.Net("VDD")
	if vdd == nil {
		t.Fatal("report has no VDD net")
	}
	if len(vdd.Segments) != 1 || len(vdd.Field) == 0 {
		t.Errorf("VDD: %d segments, %d field cells", len(vdd.Segments), len(vdd.Field))
	}
	for _, p := range vdd.Ports {
		if len(p.Vias) == 0 {
			t.Errorf("port %d has no vias", p.Port)
		}
	}
}

func TestRouteCommandStdout(t *testing.T) {
	out, err := execute(t, "route", testBoard, "-o", "-", "--no-cache")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	rep, err := report.ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatalf("stdout is not a report: %v\n%s", err, out)
	}
	if len(rep.Nets) != 1 || rep.RunID == "" {
		t.Errorf("report = %d nets, run %q", len(rep.Nets), rep.RunID)
	}
}

func TestRouteCommandDefaultOutput(t *testing.T) {
	data, err := os.ReadFile(testBoard)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "main.toml")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "route", src, "--no-cache"); err != nil {
		t.Fatalf("route: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "main.report.json")); err != nil {
		t.Errorf("default report not written: %v", err)
	}
}

func TestRouteCommandCacheAndClear(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dst := filepath.Join(t.TempDir(), "out.json")

	if out, err := execute(t, "route", testBoard, "-o", dst); err != nil || !strings.Contains(out, "fresh") {
		t.Fatalf("first route: err %v\n%s", err, out)
	}
	if out, err := execute(t, "route", testBoard, "-o", dst); err != nil || !strings.Contains(out, "cached") {
		t.Fatalf("second route: err %v\n%s", err, out)
	}

	out, err := execute(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 cached reports") {
		t.Errorf("cache clear output:\n%s", out)
	}
}

func TestRouteCommandBadFlags(t *testing.T) {
	if _, err := execute(t, "route", testBoard, "--decay", "2", "--no-cache", "-o", "-"); err == nil {
		t.Fatal("route accepted decay 2")
	}
	if _, err := execute(t, "route"); err == nil {
		t.Fatal("route accepted no board")
	}
}

func TestRouteWeightFlags(t *testing.T) {
	tests := []struct {
		args        []string
		penalty     *float64
		widthWeight *float64
	}{
		{nil, nil, nil},
		{[]string{"--penalty", "0"}, pipeline.Float(0), nil},
		{[]string{"--penalty", "4", "--width-weight", "0"}, pipeline.Float(4), pipeline.Float(0)},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			cmd := New(io.Discard, LogInfo).routeCommand()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			var opts routeOpts
			opts.decay, _ = cmd.Flags().GetFloat64("decay")
			opts.penalty, _ = cmd.Flags().GetFloat64("penalty")
			opts.widthWeight, _ = cmd.Flags().GetFloat64("width-weight")
			opts.applyWeights(cmd.Flags())

			if opts.pipeline.Decay != nil {
				t.Errorf("decay = %v, want unset", *opts.pipeline.Decay)
			}
			if diff := cmp.Diff(tt.penalty, opts.pipeline.Penalty); diff != "" {
				t.Errorf("penalty (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.widthWeight, opts.pipeline.WidthWeight); diff != "" {
				t.Errorf("width weight (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRouteCommandZeroPenalty(t *testing.T) {
	out, err := execute(t, "route", testBoard, "--penalty", "0", "--width-weight", "0", "--no-cache", "-o", "-")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if _, err := report.ReadJSON(strings.NewReader(out)); err != nil {
		t.Fatalf("stdout is not a report: %v", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		out, err := execute(t, "completion", shell)
		if err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, "pdnroute") {
			t.Errorf("%s script does not mention pdnroute", shell)
		}
	}
	if _, err := execute(t, "completion", "powershell"); err == nil {
		t.Error("completion accepted powershell")
	}
}

func TestCompleteBoards(t *testing.T) {
	exts, dir := completeBoards(nil, nil, "")
	if dir != cobra.ShellCompDirectiveFilterFileExt || len(exts) != 1 || exts[0] != "toml" {
		t.Errorf("first argument = %v, %v", exts, dir)
	}
	if _, dir := completeBoards(nil, []string{"a.toml"}, ""); dir != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second argument directive = %v", dir)
	}
}

func TestCachePathCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != filepath.Join(xdg, appName) {
		t.Errorf("cache path = %q", got)
	}
}

func TestDefaultOutput(t *testing.T) {
	tests := map[string]string{
		"board.toml":    "board.report.json",
		"dir/b.v2.toml": "dir/b.v2.report.json",
		"noext":         "noext.report.json",
	}
	for in, want := range tests {
		if got := defaultOutput(in); got != want {
			t.Errorf("defaultOutput(%q) = %q, want %q", in, got, want)
		}
	}
}
