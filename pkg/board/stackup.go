package board

import (
	"github.com/matzehuels/pdnroute/pkg/errors"
)

// Metal is one routing layer of the stackup.
type Metal struct {
	Conductivity float64 `toml:"conductivity"` // S/m
	Thickness    float64 `toml:"thickness"`    // mm
}

// Dielectric is the insulating layer above a metal layer.
type Dielectric struct {
	Thickness float64 `toml:"thickness"` // mm
}

// Stackup is the layer cross-section. Media[l] lies directly above Metals[l],
// so Media[0] separates the top metal from the port side and Media[l+1]
// separates Metals[l] from Metals[l+1].
type Stackup struct {
	Metals []Metal
	Media  []Dielectric
}

// Validate checks that every layer has positive electrical parameters.
func (s *Stackup) Validate() error {
	if len(s.Metals) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "stackup has no metal layers")
	}
	if len(s.Media) != len(s.Metals) {
		return errors.New(errors.ErrCodeInvalidInput, "stackup has %d metal layers but %d dielectrics", len(s.Metals), len(s.Media))
	}
	for i, m := range s.Metals {
		if err := errors.ValidatePositive("metal conductivity", m.Conductivity); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "layer %d", i)
		}
		if err := errors.ValidatePositive("metal thickness", m.Thickness); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "layer %d", i)
		}
	}
	for i, d := range s.Media {
		if err := errors.ValidatePositive("dielectric thickness", d.Thickness); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "dielectric %d", i)
		}
	}
	return nil
}

// PlanarConductance is the sheet conductance between two adjacent cells of
// one layer (S).
func (s *Stackup) PlanarConductance(layer int) float64 {
	m := s.Metals[layer]
	return m.Conductivity * m.Thickness * 1e-3
}

// ViaConductance is the conductance of a via of the given metal area (mm²)
// made of Metals[metal] and crossing Media[medium] (S).
func (s *Stackup) ViaConductance(metal, medium int, area float64) float64 {
	return s.Metals[metal].Conductivity * area * 1e-6 / (s.Media[medium].Thickness * 1e-3)
}

// InterLayerConductance couples layer l to layer l+1 through one via.
func (s *Stackup) InterLayerConductance(layer int, area float64) float64 {
	return s.ViaConductance(layer, layer+1, area)
}

// TerminalConductance couples a port to the top metal through one via.
func (s *Stackup) TerminalConductance(area float64) float64 {
	return s.ViaConductance(0, 0, area)
}
