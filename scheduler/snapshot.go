// SPDX-License-Identifier: MIT

package scheduler

import "sort"

// buildSnapshot renders the current tick's state with zero counters; used
// only at construction, before any tick has run.
func (s *Scheduler) buildSnapshot() Snapshot {
	return s.buildSnapshotWithCounters(Counters{})
}

// buildSnapshotWithCounters walks every lane and every live vehicle and
// renders a fresh, self-contained Snapshot. Called once per tick, under
// s.mu, after the tick's mutations have committed.
func (s *Scheduler) buildSnapshotWithCounters(counters Counters) Snapshot {
	laneIDs := s.sortedLaneIDs()

	lanes := make([]LaneRecord, 0, len(laneIDs))
	vehicles := make([]VehicleRecord, 0, s.store.Len())

	for _, laneID := range laneIDs {
		rec := s.records[laneID]

		if ls, ok := s.microLanes[laneID]; ok {
			ordered := ls.Index.Ordered()
			var speedSum float64
			for _, e := range ordered {
				st, err := s.store.Get(e.ID)
				if err != nil {
					continue
				}
				speedSum += st.V
				vehicles = append(vehicles, VehicleRecord{
					ID: e.ID, LaneID: laneID, S: st.S, V: st.V, A: st.A, Length: st.Length,
				})
			}
			n := len(ordered)
			meanSpeed := 0.0
			if n > 0 {
				meanSpeed = speedSum / float64(n)
			}
			lanes = append(lanes, LaneRecord{
				LaneID: laneID, Mode: rec.Mode.String(), VehicleCount: n,
				MeanDensity: float64(n) / ls.Lane.Length(), MeanSpeed: meanSpeed,
			})
			continue
		}

		if ms, ok := s.macroState[laneID]; ok {
			lanes = append(lanes, LaneRecord{
				LaneID: laneID, Mode: rec.Mode.String(),
				VehicleCount: int(ms.TotalMass() + 0.5),
				MeanDensity:  ms.MeanDensity(),
				MeanSpeed:    s.fd.EquilibriumSpeed(ms.MeanDensity()),
			})
		}
	}

	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })

	return Snapshot{
		Tick:     s.tick,
		SimTime:  float64(s.tick) * s.dt,
		Vehicles: vehicles,
		Lanes:    lanes,
		Counters: counters,
	}
}
