// SPDX-License-Identifier: MIT

package macro

// CFLSatisfied reports whether (dt, Δx) satisfies the CFL constraint
// dt <= Δx / max(v_f, w). The scheduler rejects any configuration that
// violates this at construction time.
func CFLSatisfied(dt, dx float64, fd FundamentalDiagram) bool {
	return dt <= dx/fd.MaxCharacteristicSpeed()
}

// interiorFluxes computes the Godunov flux at every interior cell boundary
// (indices 1..n-1 of the n+1 boundary array), leaving the two endpoints for
// the caller to fill in with boundary-specific flux values: MACRO-MACRO
// neighbors use standard Godunov against the neighbor's boundary cell;
// MICRO neighbors route through the translator's boundary-flux helper
// instead.
func (s *State) interiorFluxes(fd FundamentalDiagram) []float64 {
	n := len(s.Rho)
	fluxes := make([]float64, n+1)
	for i := 1; i < n; i++ {
		fluxes[i] = fd.GodunovFlux(s.Rho[i-1], s.Rho[i])
	}

	return fluxes
}

// Step advances the cell grid by one tick using the first-order Godunov
// update ρᵢ ← ρᵢ + (dt/Δx)·(F_{i-½} − F_{i+½}). fluxIn and
// fluxOut are the boundary fluxes at the lane's two ends, already resolved
// by the caller according to the neighbor's representation (Godunov against
// a MACRO neighbor, or the translator's boundary-flux helper against a
// MICRO neighbor, or an open-boundary default at a network edge). Step
// returns nothing; densities are clamped to [0, rho_jam] after the update.
func (s *State) Step(fd FundamentalDiagram, dt float64, fluxIn, fluxOut float64) {
	fluxes := s.interiorFluxes(fd)
	n := len(s.Rho)
	fluxes[0] = fluxIn
	fluxes[n] = fluxOut

	next := make([]float64, n)
	for i := 0; i < n; i++ {
		next[i] = s.Rho[i] + (dt/s.CellLength)*(fluxes[i]-fluxes[i+1])
	}
	copy(s.Rho, next)
	s.Clamp(fd.RhoJam)
}

// OpenBoundaryInflow is the default upstream flux at a lane with no
// predecessor: zero, since nothing feeds the network here absent an
// explicit inflow source supplied by the caller.
func OpenBoundaryInflow() float64 { return 0 }

// OpenBoundaryOutflow is the default downstream flux at a lane with no
// successor: the cell's own sending capacity, i.e. vehicles leave the
// network freely rather than congesting against a phantom downstream wall.
func OpenBoundaryOutflow(fd FundamentalDiagram, lastCellRho float64) float64 {
	return fd.Sending(lastCellRho)
}
