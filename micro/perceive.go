// SPDX-License-Identifier: MIT

package micro

import "github.com/jamfree-go/hybridtraffic/vehicle"

// noExcludeID is passed to spatial.Index queries against a neighbor lane's
// index, where the querying vehicle is never itself present in that index,
// so no real id needs excluding.
const noExcludeID = vehicle.ID(^uint32(0))

// SideView is the hypothetical leader/follower a vehicle would have if it
// changed into the named adjacent lane, per spec §4.3's
// neighbors_on(lane_ref, s_query, radius) query. Nil on Perception.Left or
// Perception.Right means that side has no lane to evaluate.
type SideView struct {
	HasLeader                    bool
	LeaderS, LeaderV, LeaderLength float64

	HasFollower         bool
	FollowerID          vehicle.ID
	FollowerS, FollowerV float64
}

// Perception is the per-vehicle observation gathered in phase 1 of the
// microscopic stepper (spec §4.6): its current leader/follower in-lane, and
// the hypothetical leader/follower on each adjacent lane.
type Perception struct {
	ID     vehicle.ID
	S, V   float64
	Length float64

	HasLeader                      bool
	LeaderID                       vehicle.ID
	LeaderS, LeaderV, LeaderLength float64
	Gap                            float64 // bumper-to-bumper gap to leader

	HasFollower bool
	FollowerID  vehicle.ID
	FollowerS   float64
	FollowerV   float64

	Left, Right *SideView
}

// Perceive walks ls in order and records each vehicle's leader/follower and
// hypothetical adjacent-lane neighbors, per spec §4.6 phase 1. left/right
// may be nil (no adjacent lane, or the adjacent lane is not MICRO this
// tick).
func Perceive(ls, left, right *LaneState, store *vehicle.Store) ([]Perception, error) {
	order := ls.Order()
	out := make([]Perception, 0, len(order))

	for _, id := range order {
		st, err := store.Get(id)
		if err != nil {
			return nil, err
		}

		p := Perception{ID: id, S: st.S, V: st.V, Length: st.Length}

		if e, ok := ls.Index.Leader(id); ok {
			lst, err := store.Get(e.ID)
			if err != nil {
				return nil, err
			}
			p.HasLeader = true
			p.LeaderID = e.ID
			p.LeaderS, p.LeaderV, p.LeaderLength = lst.S, lst.V, lst.Length
			p.Gap = lst.S - lst.Length - st.S
		}

		if e, ok := ls.Index.Follower(id); ok {
			fst, err := store.Get(e.ID)
			if err != nil {
				return nil, err
			}
			p.HasFollower = true
			p.FollowerID = e.ID
			p.FollowerS, p.FollowerV = fst.S, fst.V
		}

		sv, err := sideView(left, st, store)
		if err != nil {
			return nil, err
		}
		p.Left = sv

		sv, err = sideView(right, st, store)
		if err != nil {
			return nil, err
		}
		p.Right = sv

		out = append(out, p)
	}

	return out, nil
}

func sideView(nls *LaneState, ego vehicle.State, store *vehicle.Store) (*SideView, error) {
	if nls == nil {
		return nil, nil
	}
	sv := &SideView{}

	if e, ok := nls.Index.LeaderAt(ego.S, noExcludeID); ok {
		lst, err := store.Get(e.ID)
		if err != nil {
			return nil, err
		}
		sv.HasLeader = true
		sv.LeaderS, sv.LeaderV, sv.LeaderLength = lst.S, lst.V, lst.Length
	}

	if e, ok := nls.Index.FollowerAt(ego.S, noExcludeID); ok {
		fst, err := store.Get(e.ID)
		if err != nil {
			return nil, err
		}
		sv.HasFollower = true
		sv.FollowerID = e.ID
		sv.FollowerS, sv.FollowerV = fst.S, fst.V
	}

	return sv, nil
}
