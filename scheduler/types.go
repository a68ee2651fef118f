// SPDX-License-Identifier: MIT
//
// Package scheduler implements the tick scheduler: the single
// logical-thread orchestrator that advances the whole network by one dt,
// running lane-local work (microscopic and macroscopic stepping) across a
// worker pool and cross-lane work (lane changes, boundary flux, mode
// transitions) sequentially under a barrier.
package scheduler

import "github.com/jamfree-go/hybridtraffic/vehicle"

// VehicleRecord is one vehicle's externally observable state.
type VehicleRecord struct {
	ID     vehicle.ID
	LaneID string
	S, V, A float64
	Length float64
}

// LaneRecord is one lane's externally observable state.
type LaneRecord struct {
	LaneID       string
	Mode         string
	VehicleCount int
	MeanDensity  float64
	MeanSpeed    float64
}

// Counters are the per-tick diagnostic counts named in the external
// interface's snapshot format.
type Counters struct {
	MicroLanes          int
	MacroLanes           int
	TransitioningLanes   int
	Translations         int
	BoundaryFluxEvents   int
	LaneChangeCommits    int
	LaneChangeConflicts  int
	PatchingEvents       int
}

// Snapshot is a read-only view of the whole network at one tick, published
// for external observers (spec §6). It is safe to read concurrently with
// the scheduler's next tick because the scheduler only ever swaps in a
// freshly built Snapshot value; it never mutates one in place.
type Snapshot struct {
	Tick     uint64
	SimTime  float64
	Vehicles []VehicleRecord
	Lanes    []LaneRecord
	Counters Counters
}
