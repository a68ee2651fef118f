// SPDX-License-Identifier: MIT

package micro

import (
	"sort"

	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// minSafetyEps is the ε in the last-resort consistency patch.
const minSafetyEps = 0.05

// Crossing describes a vehicle whose integration moved it past its lane's
// end this tick. ToLaneID is empty if the vehicle has no successor and
// exits the network; otherwise it is the successor the vehicle's route
// picked, whatever that lane's mode this tick (the resolution pass leaves
// a crossing into a non-MICRO lane to the scheduler's boundary-flux
// hand-off).
type Crossing struct {
	VehicleID  vehicle.ID
	FromLaneID string
	ToLaneID   string
	OverflowS  float64
	V          float64
}

func successorIDs(succ []*geometry.Lane) []string {
	ids := make([]string, len(succ))
	for i, l := range succ {
		ids[i] = l.ID()
	}
	sort.Strings(ids)

	return ids
}

// Integrate advances every vehicle on ls by one tick using the scratch
// accelerations from Decide: `v <- max(0, v+a*dt)`,
// `s <- s + v*dt + 1/2*a*dt^2`. Vehicles are processed leader-first (largest
// s to smallest) so the last-resort consistency patch can clamp each
// vehicle against its leader's already-integrated position, never its
// stale pre-tick one. Overflowing vehicles are reported as Crossings for
// the resolution pass to relocate; Integrate itself never writes across
// lane boundaries.
func Integrate(ls *LaneState, store *vehicle.Store, scratch map[vehicle.ID]Decision, dt float64) ([]Crossing, int, error) {
	order := ls.Order()
	length := ls.Lane.Length()

	var crossings []Crossing
	patches := 0

	haveLeader := false
	var leaderS, leaderV float64

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		st, err := store.Get(id)
		if err != nil {
			return nil, 0, err
		}
		dec := scratch[id]

		v := st.V + dec.Accel*dt
		if v < 0 {
			v = 0
		}
		s := st.S + st.V*dt + 0.5*dec.Accel*dt*dt

		if haveLeader && s > leaderS-st.Length-minSafetyEps {
			s = leaderS - st.Length - minSafetyEps
			if v > leaderV {
				v = leaderV
			}
			st.PatchCount++
			patches++
		}

		if s >= length {
			toLaneID := ""
			if succ := ls.Lane.Successors(); len(succ) > 0 {
				route := st.RouteNext
				if route == nil {
					route = vehicle.DefaultRoute
				}
				toLaneID = route(ls.Lane.ID(), successorIDs(succ))
			}
			crossings = append(crossings, Crossing{
				VehicleID:  id,
				FromLaneID: ls.Lane.ID(),
				ToLaneID:   toLaneID,
				OverflowS:  s - length,
				V:          v,
			})

			st.V = v
			st.A = dec.Accel
			if err := store.Set(id, st); err != nil {
				return nil, 0, err
			}

			leaderS, leaderV, haveLeader = length, v, true
			continue
		}

		st.S = s
		st.V = v
		st.A = dec.Accel
		if err := store.Set(id, st); err != nil {
			return nil, 0, err
		}

		leaderS, leaderV, haveLeader = s, v, true
	}

	return crossings, patches, nil
}
