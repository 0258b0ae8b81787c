package board

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"

	"github.com/matzehuels/pdnroute/pkg/errors"
)

type boardFile struct {
	Pitch        float64      `toml:"pitch"`
	Width        float64      `toml:"width"`
	Height       float64      `toml:"height"`
	ViaMetalArea float64      `toml:"via_metal_area"`
	Metal        []Metal      `toml:"metal"`
	Dielectric   []Dielectric `toml:"dielectric"`
	Net          []netFile    `toml:"net"`
}

type netFile struct {
	Name    string        `toml:"name"`
	Source  portFile      `toml:"source"`
	Target  []portFile    `toml:"target"`
	Segment []segmentFile `toml:"segment"`
}

type portFile struct {
	Voltage float64      `toml:"voltage"`
	Current float64      `toml:"current"`
	ViaArea float64      `toml:"via_area"`
	Outline [][2]float64 `toml:"outline"`
}

type segmentFile struct {
	Layer     int        `toml:"layer"`
	From      [2]float64 `toml:"from"`
	To        [2]float64 `toml:"to"`
	Width     float64    `toml:"width"`
	WidthLeft *float64   `toml:"width_left"`
}

// Load reads and validates a board description from a TOML file.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read board %s", path)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "board %s", path)
	}
	return b, nil
}

// Parse decodes and validates a TOML board description. Unknown keys are
// rejected so typos in the file do not silently fall back to zero values.
func Parse(data []byte) (*Board, error) {
	var f boardFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown key %q", undecoded[0].String())
	}

	b := &Board{
		Pitch:        f.Pitch,
		Width:        f.Width,
		Height:       f.Height,
		ViaMetalArea: f.ViaMetalArea,
		Stackup:      Stackup{Metals: f.Metal, Media: f.Dielectric},
	}
	for i, nf := range f.Net {
		ports := make([]Port, 0, 1+len(nf.Target))
		ports = append(ports, nf.Source.port(RoleSource))
		for _, t := range nf.Target {
			ports = append(ports, t.port(RoleTarget))
		}
		b.Nets = append(b.Nets, Net{Name: nf.Name, Ports: ports})

		for j, sf := range nf.Segment {
			if err := errors.ValidateIndex("segment layer", sf.Layer, len(f.Metal)); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "net %d segment %d", i, j)
			}
			left := sf.Width / 2
			if sf.WidthLeft != nil {
				left = *sf.WidthLeft
			}
			b.AddSegment(i, sf.Layer,
				geom.Point{X: sf.From[0], Y: sf.From[1]},
				geom.Point{X: sf.To[0], Y: sf.To[1]},
				sf.Width, left)
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (pf portFile) port(role Role) Port {
	path := make(geom.Path, len(pf.Outline))
	for i, xy := range pf.Outline {
		path[i] = geom.Point{X: xy[0], Y: xy[1]}
	}
	return Port{
		Role:    role,
		Voltage: pf.Voltage,
		Current: pf.Current,
		Outline: geom.Polygon{path},
		ViaArea: pf.ViaArea,
		Cluster: NoCluster,
	}
}
