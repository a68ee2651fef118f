// SPDX-License-Identifier: MIT

package micro

import (
	"sort"

	"github.com/jamfree-go/hybridtraffic/vehicle"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}

// reservationConflicts reports whether incoming would overlap an existing
// occupant of ls within half the sum of their lengths plus the safety
// margin — the reservation rule's admission test (spec §4.5).
func reservationConflicts(ls *LaneState, store *vehicle.Store, incoming vehicle.State) bool {
	for _, e := range ls.Index.Ordered() {
		other, err := store.Get(e.ID)
		if err != nil {
			continue
		}
		if abs(other.S-incoming.S) < (other.Length+incoming.Length)/2+minSafetyEps {
			return true
		}
	}

	return false
}

// applyLaneChanges commits queued lane changes under the reservation rule:
// within each target lane, requesters are admitted in order of decreasing
// incentive (ties by ascending vehicle id, per spec §4.10's determinism
// guarantee); a requester that would overlap any vehicle already in the
// target lane (an existing occupant or an earlier-admitted requester)
// loses its reservation and simply stays in its current lane this tick.
func applyLaneChanges(lanes map[string]*LaneState, store *vehicle.Store, changes []*PendingChange, touched map[string]bool) error {
	byTarget := make(map[string][]*PendingChange)
	for _, c := range changes {
		if c == nil {
			continue
		}
		byTarget[c.ToLaneID] = append(byTarget[c.ToLaneID], c)
	}

	for toLaneID, group := range byTarget {
		toLane, ok := lanes[toLaneID]
		if !ok {
			// Target is not a MICRO lane this tick (e.g. mid-translation);
			// no reservation surface exists to change into, so every
			// requester in this group simply keeps its current lane.
			continue
		}

		sort.Slice(group, func(i, j int) bool {
			if group[i].Incentive != group[j].Incentive {
				return group[i].Incentive > group[j].Incentive
			}
			return group[i].VehicleID < group[j].VehicleID
		})

		for _, c := range group {
			st, err := store.Get(c.VehicleID)
			if err != nil {
				continue
			}
			if reservationConflicts(toLane, store, st) {
				continue
			}

			if fromLane, ok := lanes[c.FromLaneID]; ok {
				fromLane.Index.Remove(c.VehicleID)
				touched[c.FromLaneID] = true
			}

			st.LaneID = toLaneID
			if err := store.Set(c.VehicleID, st); err != nil {
				return err
			}
			toLane.Index.Insert(c.VehicleID, st.S)
			touched[toLaneID] = true
		}
	}

	return nil
}

// applyCrossings relocates vehicles that overflowed their lane's length
// this tick into the successor lane their route selected, or removes them
// from the network entirely. Crossings are processed in ascending vehicle
// id order for determinism (spec §4.10).
func applyCrossings(lanes map[string]*LaneState, store *vehicle.Store, crossings []Crossing, touched map[string]bool) error {
	sorted := make([]Crossing, len(crossings))
	copy(sorted, crossings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VehicleID < sorted[j].VehicleID })

	for _, c := range sorted {
		if from, ok := lanes[c.FromLaneID]; ok {
			from.Index.Remove(c.VehicleID)
			touched[c.FromLaneID] = true
		}

		if c.ToLaneID == "" {
			if err := store.Remove(c.VehicleID); err != nil {
				return err
			}
			continue
		}

		toLane, ok := lanes[c.ToLaneID]
		if !ok {
			// Successor is MACRO or transitioning this tick: the translator's
			// boundary-flux helper owns the hand-off, not the micro resolution
			// pass. Leave the vehicle's store entry as-is for the scheduler to
			// pick up.
			continue
		}

		st, err := store.Get(c.VehicleID)
		if err != nil {
			continue
		}
		st.LaneID = c.ToLaneID
		st.S = c.OverflowS
		st.V = c.V
		if err := store.Set(c.VehicleID, st); err != nil {
			return err
		}
		toLane.Index.Insert(c.VehicleID, st.S)
		touched[c.ToLaneID] = true
	}

	return nil
}

// Resolve applies one tick's queued lane changes and crossings across every
// MICRO lane (spec §4.10 step 5), then reports which lane ids mutated,
// sorted ascending.
func Resolve(lanes map[string]*LaneState, store *vehicle.Store, changes []*PendingChange, crossings []Crossing) ([]string, error) {
	touched := make(map[string]bool)

	if err := applyLaneChanges(lanes, store, changes, touched); err != nil {
		return nil, err
	}
	if err := applyCrossings(lanes, store, crossings, touched); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}
