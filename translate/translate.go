// SPDX-License-Identifier: MIT
//
// Package translate implements the micro<->macro translator: the two
// one-shot conversions a lane undergoes at a mode switch, plus the per-tick
// boundary-flux helper that lets a MICRO lane and a MACRO lane exchange
// traffic across a shared boundary without either side needing to know the
// other's representation.
package translate

import (
	"errors"
	"fmt"

	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/micro"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// ErrMassConservationViolated is a fatal assertion error: a translation
// event changed total mass by more than one vehicle-equivalent, which
// indicates a bug rather than ordinary sub-vehicle rounding. It aborts the
// tick rather than being absorbed (the error taxonomy's "translator
// rounding" entry draws this exact line at one vehicle).
var ErrMassConservationViolated = errors.New("translate: mass conservation violated beyond one vehicle-equivalent")

// DefaultVehicleLength is used by MacroToMicro when no finer-grained length
// distribution is available for spawned vehicles.
const DefaultVehicleLength = 4.5

// minSpawnMargin keeps a spawned vehicle's position strictly inside the
// lane, away from the s=L boundary where it would otherwise immediately
// read as having crossed out.
const minSpawnMargin = 0.1

// MicroToMacro converts a MICRO lane's vehicles into a MACRO density
// profile over nCells cells, then deletes the vehicle objects. Density is
// a vehicle count per unit length (consistent with rho_jam's own
// vehicles/meter units): each vehicle contributes one count to the cell
// its midpoint falls in, divided by the cell width, clamped to
// [0, rho_jam]. Since count density integrates back to a vehicle count
// directly, TotalMass() after translation is already the equivalent
// vehicle count for the conservation check.
func MicroToMacro(lane *geometry.Lane, ls *micro.LaneState, store *vehicle.Store, fd macro.FundamentalDiagram, nCells int) (*macro.State, error) {
	state, err := macro.NewState(lane.Length(), nCells)
	if err != nil {
		return nil, err
	}

	vehiclesBefore := ls.Len()
	ids := ls.Order()

	for _, id := range ids {
		st, err := store.Get(id)
		if err != nil {
			return nil, err
		}
		midpoint := st.S - st.Length/2

		cell := int(midpoint / state.CellLength)
		if cell < 0 {
			cell = 0
		}
		if cell >= nCells {
			cell = nCells - 1
		}
		state.Rho[cell] += 1.0 / state.CellLength
	}
	state.Clamp(fd.RhoJam)

	for _, id := range ids {
		ls.Index.Remove(id)
		if err := store.Remove(id); err != nil {
			return nil, err
		}
	}

	massAfter := state.TotalMass()
	if diff := absf(float64(vehiclesBefore) - massAfter); diff > 1.0 {
		return nil, fmt.Errorf("%w: lane %s, before=%d after=%.3f", ErrMassConservationViolated, lane.ID(), vehiclesBefore, massAfter)
	}

	return state, nil
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}

// MacroToMicro converts a MACRO lane's density profile into discrete
// vehicles, sweeping cells left to right and accumulating carry mass. Each
// time the carry reaches one full vehicle-equivalent, a vehicle is placed
// inside the current cell at the point where the cell's cumulative mass
// completes that vehicle, and carry is decremented by one, so positions
// increase along the lane. Each spawned vehicle is assigned the
// equilibrium speed for its cell's density and driverProfile's parameters.
func MacroToMicro(lane *geometry.Lane, state *macro.State, fd macro.FundamentalDiagram, store *vehicle.Store, driverProfile vehicle.DriverParams) (*micro.LaneState, error) {
	ls := micro.NewLaneState(lane)

	massBefore := state.TotalMass()

	carry := 0.0
	for i, rho := range state.Rho {
		cellMass := rho * state.CellLength
		carry += cellMass
		cellStart := float64(i) * state.CellLength

		for carry >= 1.0 {
			// carry enters each cell below one, so it only reaches a whole
			// vehicle in a cell with positive mass; (carry-1)/cellMass is the
			// fraction of this cell's mass still ahead of the vehicle.
			pos := cellStart + (1-(carry-1)/cellMass)*state.CellLength
			if pos < 0 {
				pos = 0
			}
			if pos >= lane.Length() {
				pos = lane.Length() - minSpawnMargin
			}

			id := store.Add(vehicle.State{
				LaneID: lane.ID(),
				S:      pos,
				V:      fd.EquilibriumSpeed(rho),
				Length: DefaultVehicleLength,
				Driver: driverProfile,
			})
			ls.Index.Insert(id, pos)

			carry--
		}
	}

	vehiclesAfter := ls.Len()
	if diff := absf(massBefore - float64(vehiclesAfter)); diff > 1.0 {
		return nil, fmt.Errorf("%w: lane %s, before=%.3f after=%d", ErrMassConservationViolated, lane.ID(), massBefore, vehiclesAfter)
	}

	return ls, nil
}
