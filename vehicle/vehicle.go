// SPDX-License-Identifier: MIT
//
// Package vehicle defines per-vehicle longitudinal state and driver-model
// parameters (spec §3, §4.2), stored in an arena indexed by a dense integer
// ID. Per design note §9 ("Back-pointer from vehicle to lane..."), vehicles
// never hold a pointer back into their owning lane's stepper; callers look
// vehicles up by ID through the Store, and the owning lane only ever holds
// a sorted slice of IDs. This avoids cyclic ownership between lane and
// vehicle and makes vehicle transfer between lanes a matter of moving an ID
// between two ID lists.
package vehicle

import "errors"

// ErrNotFound is returned when an ID has no live vehicle.
var ErrNotFound = errors.New("vehicle: not found")

// ID is a dense, reused integer key into a Store's arena.
type ID uint32

// DriverParams are the per-vehicle car-following and lane-change parameters
// named in spec §3: time headway, minimum gap, acceleration bounds,
// politeness and lane bias.
type DriverParams struct {
	DesiredSpeed     float64 // v*, m/s
	TimeHeadway      float64 // T, s
	MinGap           float64 // s0, m
	MaxAccel         float64 // a_max, m/s^2
	ComfortDecel     float64 // b, m/s^2 (comfortable deceleration)
	SafetyDecelBound float64 // b_safe, m/s^2 (MOBIL safety criterion bound)
	HardDecelBound   float64 // b_hard, m/s^2 (IDM acceleration clamp floor)
	Politeness       float64 // p, in [0,1]
	RightBias        float64 // bias_side, added to MOBIL's threshold for right-side changes
}

// State is the mutable longitudinal state of one vehicle, owned by exactly
// one lane's stepper during a tick (spec §5).
type State struct {
	LaneID     string
	S          float64 // arc-length position along LaneID, in [0, L)
	V          float64 // speed, >= 0
	A          float64 // acceleration, last computed value
	Length     float64 // vehicle length, meters
	Driver     DriverParams
	RouteNext  RouteFunc // chooses a successor lane when crossing into one
	PatchCount int       // number of times the last-resort consistency patch (§4.6) applied to this vehicle
}

// RouteFunc picks the next lane ID for a vehicle crossing the end of
// current, given its list of successor lane IDs. A nil RouteFunc defaults
// to always picking the first (lowest-ID) successor, which keeps behavior
// deterministic without requiring a route-planning collaborator.
type RouteFunc func(current string, successors []string) string

// DefaultRoute always selects the first successor, which by convention is
// sorted ascending by ID by the caller. Used when a vehicle carries no
// RouteFunc of its own.
func DefaultRoute(_ string, successors []string) string {
	if len(successors) == 0 {
		return ""
	}

	return successors[0]
}
