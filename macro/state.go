// SPDX-License-Identifier: MIT

package macro

import (
	"errors"
	"fmt"
)

// Sentinel errors for macro state construction and mutation.
var (
	ErrTooFewCells  = errors.New("macro: a macro lane needs at least 2 cells")
	ErrBadCellCount = errors.New("macro: cell count must divide evenly for fixed-width cells")
	ErrDensityRange = errors.New("macro: density out of [0, rho_jam] range")
)

// State is the mode-dependent state of one MACRO lane: an array
// of N_cells cells, each holding a density in [0, rho_jam]. CellLength is
// Δx = L / N_cells.
type State struct {
	CellLength float64
	Rho        []float64
	// carry accumulates sub-vehicle mass at the upstream and downstream
	// boundaries between ticks, so that no mass is lost to rounding across
	// ticks even when less than one vehicle crosses per tick.
	UpstreamCarry   float64
	DownstreamCarry float64
}

// NewState constructs a MACRO state with nCells cells over a lane of the
// given length, all initialized to zero density.
func NewState(laneLength float64, nCells int) (*State, error) {
	if nCells < 2 {
		return nil, ErrTooFewCells
	}

	return &State{
		CellLength: laneLength / float64(nCells),
		Rho:        make([]float64, nCells),
	}, nil
}

// Clamp enforces 0 <= rho_i <= rho_jam for every cell (spec invariant §3).
func (s *State) Clamp(rhoJam float64) {
	for i, r := range s.Rho {
		if r < 0 {
			s.Rho[i] = 0
		} else if r > rhoJam {
			s.Rho[i] = rhoJam
		}
	}
}

// Validate reports a density-range violation without mutating the state;
// used by tests and by the snapshot invariant check.
func (s *State) Validate(rhoJam float64) error {
	for i, r := range s.Rho {
		if r < 0 || r > rhoJam {
			return fmt.Errorf("%w: cell %d rho=%g", ErrDensityRange, i, r)
		}
	}

	return nil
}

// TotalMass returns ∫ρ dx over the lane, i.e. the equivalent vehicle count.
func (s *State) TotalMass() float64 {
	total := 0.0
	for _, r := range s.Rho {
		total += r * s.CellLength
	}

	return total
}

// MeanDensity returns the arithmetic mean density across cells.
func (s *State) MeanDensity() float64 {
	if len(s.Rho) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range s.Rho {
		sum += r
	}

	return sum / float64(len(s.Rho))
}
