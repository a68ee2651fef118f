// SPDX-License-Identifier: MIT

package micro

import (
	"github.com/jamfree-go/hybridtraffic/idm"
	"github.com/jamfree-go/hybridtraffic/mobil"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// Config bundles the car-following model and MOBIL's calibration constant
// for one Decide call. Model is an interface rather than a concrete type
// per idm's own design note, so the stepper's hot loop dispatches over a
// fixed, small set of tagged variants (idm.IDM, idm.IDMPlus, idm.Table)
// instead of open-ended virtual dispatch.
type Config struct {
	Model          idm.Model
	DeltaThreshold float64 // Δ_threshold, spec §4.5
}

// Decision is the scratch-buffer outcome of the decide phase for one
// vehicle (spec §4.6 phase 2): writes go here, never to the vehicle's live
// state, until the resolution pass commits them.
type Decision struct {
	Accel  float64
	Change *PendingChange
}

// PendingChange is a queued lane-change intent. It is committed atomically
// across all lanes in the resolution pass under the reservation rule
// (spec §4.5).
type PendingChange struct {
	VehicleID  vehicle.ID
	FromLaneID string
	ToLaneID   string
	Side       mobil.Side
	Incentive  float64
}

func idmParams(d vehicle.DriverParams) idm.Params {
	return idm.Params{
		DesiredSpeed: d.DesiredSpeed,
		TimeHeadway:  d.TimeHeadway,
		MinGap:       d.MinGap,
		MaxAccel:     d.MaxAccel,
		ComfortDecel: d.ComfortDecel,
		HardDecel:    d.HardDecelBound,
	}
}

// Decide computes the IDM acceleration and MOBIL lane-change intent for
// every perceived vehicle on ls (spec §4.6 phase 2).
func Decide(ls *LaneState, store *vehicle.Store, perceptions []Perception, cfg Config) (map[vehicle.ID]Decision, error) {
	out := make(map[vehicle.ID]Decision, len(perceptions))

	for _, p := range perceptions {
		st, err := store.Get(p.ID)
		if err != nil {
			return nil, err
		}

		params := idmParams(st.Driver)
		a := cfg.Model.Accel(params, idm.Inputs{V: p.V, Gap: p.Gap, HasLeader: p.HasLeader, LeaderV: p.LeaderV})
		dec := Decision{Accel: a}

		var leftVerdict, rightVerdict *mobil.Verdict
		if p.Left != nil && ls.Lane.LeftNeighbor() != nil {
			v, err := evaluateSide(p, st, p.Left, mobil.Left, a, store, cfg)
			if err != nil {
				return nil, err
			}
			leftVerdict = v
		}
		if p.Right != nil && ls.Lane.RightNeighbor() != nil {
			v, err := evaluateSide(p, st, p.Right, mobil.Right, a, store, cfg)
			if err != nil {
				return nil, err
			}
			rightVerdict = v
		}

		choice := mobil.Decide(leftVerdict, rightVerdict)
		if choice.Change {
			target := ls.Lane.RightNeighbor()
			if choice.Side == mobil.Left {
				target = ls.Lane.LeftNeighbor()
			}
			dec.Change = &PendingChange{
				VehicleID:  p.ID,
				FromLaneID: ls.Lane.ID(),
				ToLaneID:   target.ID(),
				Side:       choice.Side,
				Incentive:  choice.Incentive,
			}
		}

		out[p.ID] = dec
	}

	return out, nil
}

// evaluateSide gathers the six accelerations MOBIL needs (spec §4.5) for
// one candidate side and returns the resulting verdict.
func evaluateSide(p Perception, st vehicle.State, sv *SideView, side mobil.Side, egoCurrentAccel float64, store *vehicle.Store, cfg Config) (*mobil.Verdict, error) {
	params := idmParams(st.Driver)

	egoGap, egoLeaderV := 0.0, 0.0
	if sv.HasLeader {
		egoGap = sv.LeaderS - sv.LeaderLength - st.S
		egoLeaderV = sv.LeaderV
	}
	egoIfChanged := cfg.Model.Accel(params, idm.Inputs{V: p.V, Gap: egoGap, HasLeader: sv.HasLeader, LeaderV: egoLeaderV})

	var newFollowerCurrent, newFollowerIfChanged float64
	if sv.HasFollower {
		fst, err := store.Get(sv.FollowerID)
		if err != nil {
			return nil, err
		}
		fParams := idmParams(fst.Driver)

		curGap, curLeaderV := 0.0, 0.0
		if sv.HasLeader {
			curGap = sv.LeaderS - sv.LeaderLength - sv.FollowerS
			curLeaderV = sv.LeaderV
		}
		newFollowerCurrent = cfg.Model.Accel(fParams, idm.Inputs{V: sv.FollowerV, Gap: curGap, HasLeader: sv.HasLeader, LeaderV: curLeaderV})

		changedGap := st.S - st.Length - sv.FollowerS
		newFollowerIfChanged = cfg.Model.Accel(fParams, idm.Inputs{V: sv.FollowerV, Gap: changedGap, HasLeader: true, LeaderV: p.V})
	}

	var oldFollowerCurrent, oldFollowerIfChanged float64
	if p.HasFollower {
		fst, err := store.Get(p.FollowerID)
		if err != nil {
			return nil, err
		}
		fParams := idmParams(fst.Driver)

		curGap := st.S - st.Length - p.FollowerS
		oldFollowerCurrent = cfg.Model.Accel(fParams, idm.Inputs{V: p.FollowerV, Gap: curGap, HasLeader: true, LeaderV: p.V})

		changedGap, changedLeaderV := 0.0, 0.0
		if p.HasLeader {
			changedGap = p.LeaderS - p.LeaderLength - p.FollowerS
			changedLeaderV = p.LeaderV
		}
		oldFollowerIfChanged = cfg.Model.Accel(fParams, idm.Inputs{V: p.FollowerV, Gap: changedGap, HasLeader: p.HasLeader, LeaderV: changedLeaderV})
	}

	scenario := mobil.Scenario{
		Side:                 side,
		EgoCurrent:           egoCurrentAccel,
		EgoIfChanged:         egoIfChanged,
		NewFollowerCurrent:   newFollowerCurrent,
		NewFollowerIfChanged: newFollowerIfChanged,
		OldFollowerCurrent:   oldFollowerCurrent,
		OldFollowerIfChanged: oldFollowerIfChanged,
		Politeness:           st.Driver.Politeness,
		SafetyDecelBound:     st.Driver.SafetyDecelBound,
		RightBias:            st.Driver.RightBias,
	}
	verdict := mobil.Evaluate(scenario, cfg.DeltaThreshold)

	return &verdict, nil
}
