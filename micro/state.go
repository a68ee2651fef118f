// SPDX-License-Identifier: MIT
//
// Package micro implements the microscopic (per-vehicle) lane stepper from
// spec §4.6: the four-phase perceive/decide/integrate/resolve tick for a
// MICRO lane. Each phase is a free function over a LaneState and the shared
// vehicle.Store rather than a method with hidden state, so the scheduler
// (C10) can run Perceive/Decide/Integrate for many lanes concurrently and
// call Resolve once, sequentially, across all of them at the tick barrier.
package micro

import (
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/spatial"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// BucketSize is the default spatial-index bucket width in meters: large
// enough to exceed the interaction range of any model that queries the
// index (spec §4.3 suggests 100-200m).
const BucketSize = 150.0

// LaneState is the MicroState named in spec §3: the ordered vehicle
// sequence for one lane, represented by its spatial index (Ordered()
// reconstructs the sorted sequence on demand rather than maintaining a
// second copy that could drift out of sync).
type LaneState struct {
	Lane  *geometry.Lane
	Index *spatial.Index
}

// NewLaneState builds an empty MicroState for lane.
func NewLaneState(lane *geometry.Lane) *LaneState {
	return &LaneState{
		Lane:  lane,
		Index: spatial.NewIndex(lane.Length(), BucketSize),
	}
}

// Order returns the lane's vehicle ids ascending by arc-length position,
// per the MicroState invariant (spec §3).
func (ls *LaneState) Order() []vehicle.ID {
	entries := ls.Index.Ordered()
	ids := make([]vehicle.ID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	return ids
}

// Len reports how many vehicles currently occupy the lane.
func (ls *LaneState) Len() int { return ls.Index.Len() }
