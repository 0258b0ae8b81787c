package grid

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/errors"
)

func TestStampAndCheck(t *testing.T) {
	m := New(2, 4, 4, 1, 3)

	for _, net := range []int{2, 0, 1} {
		if err := m.Stamp(0, 1, 1, net); err != nil {
			t.Fatalf("Stamp net %d: %v", net, err)
		}
	}
	c := m.Cell(0, 1, 1)
	if diff := cmp.Diff([]int{0, 1, 2}, c.Nets); diff != "" {
		t.Errorf("nets mismatch (-want +got):\n%s", diff)
	}
	if c.Congestion != 3 {
		t.Errorf("Congestion = %d, want 3", c.Congestion)
	}
	if c.Others(1) != 2 || c.Others(5) != 3 {
		t.Errorf("Others = %d/%d, want 2/3", c.Others(1), c.Others(5))
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if m.Cell(1, 1, 1).Congestion != 0 {
		t.Error("stamp leaked to another layer")
	}
}

func TestStampDuplicate(t *testing.T) {
	m := New(1, 3, 3, 1, 1)
	if err := m.Stamp(0, 2, 2, 0); err != nil {
		t.Fatal(err)
	}
	err := m.Stamp(0, 2, 2, 0)
	if !errors.Is(err, errors.ErrCodeDuplicateStamp) {
		t.Fatalf("second Stamp = %v, want DUPLICATE_STAMP", err)
	}
	if m.Cell(0, 2, 2).Congestion != 1 {
		t.Error("failed stamp must not change congestion")
	}
	if m.StampMissing(0, 2, 2, 0) {
		t.Error("StampMissing on an occupied cell should report false")
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestClearNetIdempotent(t *testing.T) {
	m := New(1, 5, 5, 1, 2)
	cells := []Coord{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}}
	for _, c := range cells {
		if err := m.Stamp(0, c.X, c.Y, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Stamp(0, 2, 0, 1); err != nil {
		t.Fatal(err)
	}
	before := append([]int(nil), m.Occupied(0, 0)...)

	m.ClearNet(0, 0)
	if len(m.Occupied(0, 0)) != 0 {
		t.Fatal("ClearNet should empty the occupancy list")
	}
	if c := m.Cell(0, 2, 0); c.Congestion != 1 || !c.Has(1) || c.Has(0) {
		t.Errorf("shared cell after clear = %+v", c)
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check after clear: %v", err)
	}

	for _, c := range cells {
		if err := m.Stamp(0, c.X, c.Y, 0); err != nil {
			t.Fatalf("restamp: %v", err)
		}
	}
	if diff := cmp.Diff(before, m.Occupied(0, 0)); diff != "" {
		t.Errorf("restamped occupancy mismatch (-want +got):\n%s", diff)
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check after restamp: %v", err)
	}
}

func TestCheckDetectsCorruption(t *testing.T) {
	m := New(1, 2, 2, 1, 1)
	if err := m.Stamp(0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	m.Cell(0, 0, 0).Congestion = 2
	if err := m.Check(); err == nil {
		t.Error("Check should report a congestion mismatch")
	}
}

func TestUsage(t *testing.T) {
	m := New(1, 4, 4, 0.5, 2)
	_ = m.Stamp(0, 0, 0, 0)
	_ = m.Stamp(0, 1, 0, 0)
	_ = m.Stamp(0, 1, 0, 1)

	u := m.Usage()
	want := Usage{OccupiedCells: 2, Area: 0.5, Overlap: 0.25}
	if diff := cmp.Diff(want, u); diff != "" {
		t.Errorf("Usage mismatch (-want +got):\n%s", diff)
	}
}

func TestLocate(t *testing.T) {
	m := New(1, 10, 10, 1, 1)
	tests := []struct {
		p    geom.Point
		want Coord
		in   bool
	}{
		{geom.Point{X: 0.5, Y: 0.5}, Coord{0, 0}, true},
		{geom.Point{X: 9.5, Y: 3.2}, Coord{9, 3}, true},
		{geom.Point{X: 10, Y: 10}, Coord{9, 9}, true},
		{geom.Point{X: -0.5, Y: 1}, Coord{-1, 1}, false},
		{geom.Point{X: 12, Y: 1}, Coord{12, 1}, false},
	}
	for _, tt := range tests {
		got := m.Locate(tt.p)
		if got != tt.want {
			t.Errorf("Locate(%v) = %v, want %v", tt.p, got, tt.want)
		}
		if m.InBounds(got.X, got.Y) != tt.in {
			t.Errorf("InBounds(%v) = %v, want %v", got, !tt.in, tt.in)
		}
	}
}

func buildBoard() *board.Board {
	b := &board.Board{
		Pitch:        1,
		Width:        10,
		Height:       6,
		ViaMetalArea: 0.05,
		Stackup: board.Stackup{
			Metals: []board.Metal{{Conductivity: 5.8e7, Thickness: 0.035}, {Conductivity: 5.8e7, Thickness: 0.035}},
			Media:  []board.Dielectric{{Thickness: 0.1}, {Thickness: 0.1}},
		},
		Nets: []board.Net{
			{Name: "A", Ports: []board.Port{
				{Role: board.RoleSource, Voltage: 1, ViaArea: 0.05, Outline: board.Rect(0, 2, 1, 3), Cluster: board.NoCluster},
				{Role: board.RoleTarget, Voltage: 1, Current: 1, ViaArea: 0.05, Outline: board.Rect(9, 2, 10, 3), Cluster: board.NoCluster},
			}},
			{Name: "B", Ports: []board.Port{
				{Role: board.RoleSource, Voltage: 1, ViaArea: 0.05, Outline: board.Rect(4, 5, 5, 6), Cluster: board.NoCluster},
				{Role: board.RoleTarget, Voltage: 1, Current: 1, ViaArea: 0.05, Outline: board.Rect(4, 0, 5, 1), Cluster: board.NoCluster},
			}},
		},
	}
	b.AddSegment(0, 0, geom.Point{X: 0.5, Y: 2}, geom.Point{X: 9.5, Y: 2}, 1, 0.5)
	b.AddSegment(1, 0, geom.Point{X: 4, Y: 5.5}, geom.Point{X: 4, Y: 0.5}, 1, 0.5)
	b.AddSegment(1, 1, geom.Point{X: 4, Y: 5.5}, geom.Point{X: 4, Y: 0.5}, 0, 0)
	return b
}

func TestBuild(t *testing.T) {
	b := buildBoard()
	m, err := Build(b)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}

	// Net A's spine lies on the boundary between rows 1 and 2 of layer 0.
	for x := 1; x < 9; x++ {
		if !m.Cell(0, x, 1).Has(0) || !m.Cell(0, x, 2).Has(0) {
			t.Errorf("column %d should carry net A on rows 1 and 2", x)
		}
		if m.Cell(0, x, 4).Has(0) || m.Cell(0, x, 0).Has(0) {
			t.Errorf("column %d: net A leaked away from its trace", x)
		}
	}
	// The crossing cell is shared.
	if c := m.Cell(0, 4, 2); c.Congestion != 2 {
		t.Errorf("crossing congestion = %d, want 2", c.Congestion)
	}
	// Zero-width segments stamp nothing; only B's ports reach layer 1.
	if m.Cell(1, 4, 3).Has(1) {
		t.Error("zero-width segment should not be stamped")
	}

	// Port footprints are recorded per port and stamped on every layer.
	src := m.PortCells(0, 0)
	if len(src) == 0 {
		t.Fatal("source port of net A covers no cells")
	}
	for _, c := range src {
		for layer := 0; layer < m.NumLayers; layer++ {
			if !m.Cell(layer, c.X, c.Y).Has(0) {
				t.Errorf("port cell %v missing on layer %d", c, layer)
			}
		}
	}
	if len(m.PortCells(1, 1)) == 0 {
		t.Error("target port of net B covers no cells")
	}
}

func TestBuildThenClearAndRestampPorts(t *testing.T) {
	b := buildBoard()
	m, err := Build(b)
	if err != nil {
		t.Fatal(err)
	}
	m.ClearNet(1, 0)
	m.StampPorts(0, 1)
	for _, port := range []int{0, 1} {
		for _, c := range m.PortCells(0, port) {
			if !m.Cell(1, c.X, c.Y).Has(0) {
				t.Errorf("port %d cell %v not restamped", port, c)
			}
		}
	}
	if err := m.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestShapeIndex(t *testing.T) {
	tree := rtree.NewTree(25, 50)
	tree.Insert(&shape{Polygon: board.Rect(0, 0, 2, 1), net: 0, layer: 1, port: noPort})
	tree.Insert(&shape{Polygon: board.Rect(5, 5, 6, 6), net: 1, layer: -1, port: 0})

	hits := tree.SearchIntersect(&geom.Bounds{Min: geom.Point{X: 4.5, Y: 4.5}, Max: geom.Point{X: 5.5, Y: 5.5}})
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	s := hits[0].(*shape)
	if s.net != 1 || s.port != 0 {
		t.Errorf("hit net %d port %d, want net 1 port 0", s.net, s.port)
	}
	want := &geom.Bounds{Min: geom.Point{X: 5, Y: 5}, Max: geom.Point{X: 6, Y: 6}}
	if diff := cmp.Diff(want, s.Bounds()); diff != "" {
		t.Errorf("Bounds (-want +got):\n%s", diff)
	}
}
