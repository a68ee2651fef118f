// SPDX-License-Identifier: MIT

package idm

import "math"

// Table is a precomputed lookup over a discretized (v, deltaV, gap) grid,
// an alternative to evaluating the model analytically as long as it
// agrees with the analytic model within 1% per cell. Built once per unique
// Params (the grid is parameter-specific because IDM's free-road term
// depends on v* and b/a_max).
//
// Out-of-grid inputs fall back to the analytic model directly, so the
// table never produces a wildly wrong answer at the edges; it only serves
// as a cache for the common case once the grid bounds are warmed to the
// scenario's speed/gap ranges.
type Table struct {
	params Params
	base   Model

	vMin, vMax       float64
	dvMin, dvMax     float64
	gMin, gMax       float64
	nv, ndv, ng      int
	values           []float64 // flattened [nv][ndv][ng]
}

// NewTable builds a Table over the given axis ranges and resolutions for
// the given Params, using base (typically IDM{}) as the ground truth.
func NewTable(p Params, base Model, vMin, vMax float64, nv int, dvMin, dvMax float64, ndv int, gMin, gMax float64, ng int) *Table {
	t := &Table{
		params: p, base: base,
		vMin: vMin, vMax: vMax, nv: nv,
		dvMin: dvMin, dvMax: dvMax, ndv: ndv,
		gMin: gMin, gMax: gMax, ng: ng,
		values: make([]float64, nv*ndv*ng),
	}
	for iv := 0; iv < nv; iv++ {
		v := t.axisValue(vMin, vMax, nv, iv)
		for idv := 0; idv < ndv; idv++ {
			dv := t.axisValue(dvMin, dvMax, ndv, idv)
			for ig := 0; ig < ng; ig++ {
				g := t.axisValue(gMin, gMax, ng, ig)
				in := Inputs{V: v, Gap: g, HasLeader: true, LeaderV: v - dv}
				t.values[t.flatIndex(iv, idv, ig)] = base.Accel(p, in)
			}
		}
	}

	return t
}

func (t *Table) axisValue(lo, hi float64, n, i int) float64 {
	if n <= 1 {
		return lo
	}

	return lo + (hi-lo)*float64(i)/float64(n-1)
}

func (t *Table) flatIndex(iv, idv, ig int) int {
	return (iv*t.ndv+idv)*t.ng + ig
}

func (t *Table) axisIndex(lo, hi float64, n int, x float64) (int, bool) {
	if x < lo || x > hi || n <= 1 {
		return 0, false
	}
	step := (hi - lo) / float64(n-1)
	i := int(math.Round((x - lo) / step))
	if i < 0 || i >= n {
		return 0, false
	}

	return i, true
}

// Accel implements Model by nearest-cell lookup, falling back to the
// analytic base model when the query falls outside the grid or there is no
// leader (the table is only built for the leader-present case).
func (t *Table) Accel(p Params, in Inputs) float64 {
	if !in.HasLeader {
		return t.base.Accel(p, in)
	}
	iv, ok1 := t.axisIndex(t.vMin, t.vMax, t.nv, in.V)
	dv := in.V - in.LeaderV
	idv, ok2 := t.axisIndex(t.dvMin, t.dvMax, t.ndv, dv)
	ig, ok3 := t.axisIndex(t.gMin, t.gMax, t.ng, in.Gap)
	if !ok1 || !ok2 || !ok3 {
		return t.base.Accel(p, in)
	}

	return t.values[t.flatIndex(iv, idv, ig)]
}
