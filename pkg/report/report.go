package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/board"
	"github.com/matzehuels/pdnroute/pkg/grid"
	"github.com/matzehuels/pdnroute/pkg/solve"
)

// Point is an (x, y) position in mm.
type Point [2]float64

func point(p geom.Point) Point { return Point{p.X, p.Y} }

// Report is the output of one routing run.
type Report struct {
	RunID string     `json:"run_id,omitempty"`
	Board BoardInfo  `json:"board"`
	Usage grid.Usage `json:"usage"`
	Nets  []Net      `json:"nets"`
}

// BoardInfo echoes the board extent the report was produced for.
type BoardInfo struct {
	Pitch  float64 `json:"pitch"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Layers int     `json:"layers"`
}

// Net is the routed and solved state of one net.
type Net struct {
	Name       string    `json:"name"`
	Ports      []Port    `json:"ports"`
	Segments   []Segment `json:"segments"`
	Field      []Field   `json:"field"`
	Iterations int       `json:"iterations"`
	Residual   float64   `json:"residual"`
}

// Port is a solved port with the vias serving it.
type Port struct {
	Port    int     `json:"port"`
	Role    string  `json:"role"`
	Demand  float64 `json:"demand"` // demanded voltage
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Vias    []Point `json:"vias"`
}

// Segment is a finalized routed segment.
type Segment struct {
	Layer        int     `json:"layer"`
	From         Point   `json:"from"`
	To           Point   `json:"to"`
	Width        float64 `json:"width"`
	WidthLeft    float64 `json:"width_left"`
	Length       float64 `json:"length"`
	VoltageStart float64 `json:"voltage_start"`
	VoltageEnd   float64 `json:"voltage_end"`
	Current      float64 `json:"current"`
}

// Field is the solved voltage and current of one occupied cell.
type Field struct {
	Layer   int     `json:"layer"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
}

// New collects a report from a solved board. sols is indexed by net.
func New(b *board.Board, m *grid.Map, sols []*solve.Solution) *Report {
	r := &Report{
		Board: BoardInfo{Pitch: b.Pitch, Width: b.Width, Height: b.Height, Layers: b.NumLayers()},
		Usage: m.Usage(),
		Nets:  make([]Net, len(b.Nets)),
	}
	for n := range b.Nets {
		net := &b.Nets[n]
		out := Net{Name: net.Name}

		var sol *solve.Solution
		if n < len(sols) {
			sol = sols[n]
		}
		for p := range net.Ports {
			port := Port{Port: p, Role: net.Ports[p].Role.String(), Demand: net.Ports[p].Voltage, Voltage: net.Ports[p].Voltage}
			if cl := b.ClusterOf(n, p); cl != nil {
				for _, v := range cl.Vias {
					port.Vias = append(port.Vias, point(b.Vias[v].At))
				}
			}
			if sol != nil {
				for _, pr := range sol.Ports {
					if pr.Port == p {
						port.Voltage, port.Current = pr.Voltage, pr.Current
					}
				}
			}
			out.Ports = append(out.Ports, port)
		}

		for layer, ids := range net.Segments {
			for _, id := range ids {
				s := &b.Segments[id]
				out.Segments = append(out.Segments, Segment{
					Layer:        layer,
					From:         point(s.Start),
					To:           point(s.End),
					Width:        s.Width(),
					WidthLeft:    s.WidthLeft,
					Length:       s.Length,
					VoltageStart: s.VoltageStart,
					VoltageEnd:   s.VoltageEnd,
					Current:      s.Current,
				})
			}
		}

		if sol != nil {
			out.Iterations, out.Residual = sol.Iterations, sol.Residual
			out.Field = make([]Field, len(sol.Nodes))
			for k, nd := range sol.Nodes {
				out.Field[k] = Field{Layer: nd.Layer, X: nd.X, Y: nd.Y, Voltage: sol.Voltage[k], Current: sol.Current[k]}
			}
		}
		r.Nets[n] = out
	}
	return r
}

// Net returns the net named name, or nil.
func (r *Report) Net(name string) *Net {
	for i := range r.Nets {
		if r.Nets[i].Name == name {
			return &r.Nets[i]
		}
	}
	return nil
}

// Targets returns the target ports of the net.
func (n *Net) Targets() []Port {
	var out []Port
	for _, p := range n.Ports {
		if p.Role == board.RoleTarget.String() {
			out = append(out, p)
		}
	}
	return out
}

// WriteJSON encodes a report as indented JSON and writes it to w.
func WriteJSON(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a report written by [WriteJSON].
func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &r, nil
}

// Export writes a report to a JSON file at path.
func Export(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(r, f)
}
