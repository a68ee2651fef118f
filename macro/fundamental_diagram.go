// SPDX-License-Identifier: MIT
//
// Package macro implements the macroscopic (density-cell) lane stepper: a
// first-order Godunov scheme over a triangular fundamental diagram (the
// cell-transmission model, CTM).
package macro

import "math"

// FundamentalDiagram holds the triangular flow-density relation's
// parameters: free-flow speed, congestion-wave speed, jam density, and the
// flow cap.
type FundamentalDiagram struct {
	Vf     float64 // free-flow speed, m/s
	W      float64 // congestion (backward) wave speed, m/s
	RhoJam float64 // jam density, vehicles/meter
	QMax   float64 // maximum flow, vehicles/second
}

// Flow returns Q(rho) = min(vf*rho, w*(rho_jam-rho), Q_max), the triangular
// fundamental diagram value at density rho.
func (fd FundamentalDiagram) Flow(rho float64) float64 {
	return math.Min(math.Min(fd.Vf*rho, fd.W*(fd.RhoJam-rho)), fd.QMax)
}

// Sending is the outflow capacity a cell at density rho can send downstream:
// sending(ρ) = min(vf·ρ, Q_max).
func (fd FundamentalDiagram) Sending(rho float64) float64 {
	return math.Min(fd.Vf*rho, fd.QMax)
}

// Receiving is the inflow capacity a cell at density rho can accept from
// upstream: receiving(ρ) = min(w·(ρ_jam−ρ), Q_max).
func (fd FundamentalDiagram) Receiving(rho float64) float64 {
	return math.Min(fd.W*(fd.RhoJam-rho), fd.QMax)
}

// GodunovFlux is the outgoing flux at one cell boundary: the minimum of the
// upstream cell's sending capacity and the downstream cell's receiving
// capacity.
func (fd FundamentalDiagram) GodunovFlux(rhoUp, rhoDown float64) float64 {
	return math.Min(fd.Sending(rhoUp), fd.Receiving(rhoDown))
}

// EquilibriumSpeed returns V(ρ) = Q(ρ)/ρ, the speed a vehicle spawned at
// this density should be assigned when the translator converts a cell back
// into discrete vehicles. Free of ρ=0 (returns Vf).
func (fd FundamentalDiagram) EquilibriumSpeed(rho float64) float64 {
	if rho <= 0 {
		return fd.Vf
	}
	v := fd.Flow(rho) / rho
	if v > fd.Vf {
		v = fd.Vf
	}
	if v < 0 {
		v = 0
	}

	return v
}

// MaxCharacteristicSpeed is max(v_f, w), the quantity the CFL constraint
// bounds dt/Δx against.
func (fd FundamentalDiagram) MaxCharacteristicSpeed() float64 {
	return math.Max(fd.Vf, fd.W)
}
