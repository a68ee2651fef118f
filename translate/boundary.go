// SPDX-License-Identifier: MIT

package translate

import (
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/micro"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// MicroToMacroFlux handles one tick's worth of crossings out of a MICRO
// lane into a downstream MACRO lane's first cell: each crossing vehicle's
// mass (approximated as one vehicle-equivalent) is folded into the
// downstream cell's density via the lane's UpstreamCarry accumulator, so
// that fractional vehicles never silently vanish between ticks. Returns the
// realized flux (vehicles/second) for the caller's per-tick accounting.
func MicroToMacroFlux(downstream *macro.State, crossingCount int, dt float64) float64 {
	downstream.UpstreamCarry += float64(crossingCount)
	for downstream.UpstreamCarry >= 1.0 && len(downstream.Rho) > 0 {
		downstream.Rho[0] += 1.0 / downstream.CellLength
		downstream.UpstreamCarry--
	}

	return float64(crossingCount) / dt
}

// MacroToMicroFlux handles one tick's worth of outflow from an upstream
// MACRO lane's last cell into a downstream MICRO lane: the upstream cell
// emits its sending flux F for the tick; F*dt accumulates into the MICRO
// lane's spawn carry, and a vehicle is spawned at the MICRO lane's start
// each time the carry reaches one full vehicle-equivalent.
func MacroToMicroFlux(upstream *macro.State, downLane *geometry.Lane, downLS *micro.LaneState, store *vehicle.Store, fd macro.FundamentalDiagram, driverProfile vehicle.DriverParams, dt float64) float64 {
	lastCell := len(upstream.Rho) - 1
	if lastCell < 0 {
		return 0
	}
	flux := fd.Sending(upstream.Rho[lastCell])
	upstream.DownstreamCarry += flux * dt

	for upstream.DownstreamCarry >= 1.0 {
		id := store.Add(vehicle.State{
			LaneID: downLane.ID(),
			S:      minSpawnMargin,
			V:      fd.EquilibriumSpeed(upstream.Rho[lastCell]),
			Length: DefaultVehicleLength,
			Driver: driverProfile,
		})
		downLS.Index.Insert(id, minSpawnMargin)
		upstream.DownstreamCarry--
	}

	upstream.Rho[lastCell] -= flux * dt / upstream.CellLength
	if upstream.Rho[lastCell] < 0 {
		upstream.Rho[lastCell] = 0
	}

	return flux
}
