// SPDX-License-Identifier: MIT

package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/idm"
	"github.com/jamfree-go/hybridtraffic/internal/config"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/micro"
	"github.com/jamfree-go/hybridtraffic/translate"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// ErrStopped is returned by Step/StepN once a cooperative Stop has taken
// effect; the caller's last successful Snapshot reflects tick t-1.
var ErrStopped = errors.New("scheduler: stopped")

// ErrUnknownLane is an influence error (spec §7): reported to the caller
// and dropped, never aborting the tick.
var ErrUnknownLane = errors.New("scheduler: unknown lane")

// Config bundles every construction input named in spec §6.
type Config struct {
	Network        *geometry.Network
	DT             float64
	CellsPerLane   int
	Thresholds     fsm.Thresholds
	FD             macro.FundamentalDiagram
	Model          idm.Model
	DeltaThreshold float64
	DefaultDriver  vehicle.DriverParams
	WorkerCount    int
	Seed           int64
	InitialVehicles []vehicle.State
	Logger         *zap.Logger
}

// Scheduler is the top-level tick orchestrator. It owns the lane-mode map
// and the global tick counter exclusively (spec §5); nothing outside Step
// mutates lane mode or advances tick.
type Scheduler struct {
	network *geometry.Network
	store   *vehicle.Store
	log     *zap.Logger

	dt            float64
	cellsPerLane  int
	fd            macro.FundamentalDiagram
	idmCfg        micro.Config
	defaultDriver vehicle.DriverParams
	workerCount   int

	controller *fsm.Controller

	mu         sync.Mutex // guards records and the micro/macro lane maps between ticks
	microLanes map[string]*micro.LaneState
	macroState map[string]*macro.State
	records    map[string]*fsm.Record

	tick    uint64
	stopped atomic.Bool

	pendingAdds    []vehicle.State
	pendingRemoves []vehicle.ID

	snapshot atomic.Value // holds Snapshot
}

// NewScheduler validates cfg and constructs a Scheduler with every lane
// starting in MICRO mode (empty if it carries no initial vehicles).
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Network == nil {
		return nil, fmt.Errorf("scheduler: nil network")
	}
	lanes := cfg.Network.Lanes()
	if err := config.Validate(cfg.DT, cfg.CellsPerLane, cfg.WorkerCount, cfg.Thresholds, cfg.FD, lanes); err != nil {
		return nil, err
	}

	controller, err := fsm.NewController(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Scheduler{
		network:       cfg.Network,
		store:         vehicle.NewStore(),
		log:           log,
		dt:            cfg.DT,
		cellsPerLane:  cfg.CellsPerLane,
		fd:            cfg.FD,
		idmCfg:        micro.Config{Model: cfg.Model, DeltaThreshold: cfg.DeltaThreshold},
		defaultDriver: cfg.DefaultDriver,
		workerCount:   cfg.WorkerCount,
		controller:    controller,
		microLanes:    make(map[string]*micro.LaneState, len(lanes)),
		macroState:    make(map[string]*macro.State),
		records:       make(map[string]*fsm.Record, len(lanes)),
	}

	for _, lane := range lanes {
		s.microLanes[lane.ID()] = micro.NewLaneState(lane)
		s.records[lane.ID()] = &fsm.Record{Mode: fsm.Micro}
	}

	for _, v := range cfg.InitialVehicles {
		ls, ok := s.microLanes[v.LaneID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLane, v.LaneID)
		}
		id := s.store.Add(v)
		ls.Index.Insert(id, v.S)
	}

	s.snapshot.Store(s.buildSnapshot())

	return s, nil
}

// ForceMode sets or clears a lane's forced-mode override.
func (s *Scheduler) ForceMode(laneID string, forced fsm.Forced) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[laneID]
	if !ok {
		s.log.Warn("force_mode on unknown lane", zap.String("lane_id", laneID))
		return fmt.Errorf("%w: %s", ErrUnknownLane, laneID)
	}
	rec.Forced = forced

	return nil
}

// MarkCritical sets or clears a lane's critical (intersection/ramp) flag.
func (s *Scheduler) MarkCritical(laneID string, critical bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[laneID]
	if !ok {
		s.log.Warn("mark_critical on unknown lane", zap.String("lane_id", laneID))
		return fmt.Errorf("%w: %s", ErrUnknownLane, laneID)
	}
	rec.Critical = critical

	return nil
}

// AddVehicle queues a vehicle to be spawned at the start of the next tick.
// Per the influence-error taxonomy, an unknown lane is reported and
// dropped rather than aborting the simulation.
func (s *Scheduler) AddVehicle(st vehicle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.microLanes[st.LaneID]; !ok {
		if _, ok := s.macroState[st.LaneID]; !ok {
			s.log.Warn("add_vehicle on unknown lane", zap.String("lane_id", st.LaneID))
			return fmt.Errorf("%w: %s", ErrUnknownLane, st.LaneID)
		}
	}
	s.pendingAdds = append(s.pendingAdds, st)

	return nil
}

// RemoveVehicle queues a vehicle for removal at the start of the next
// tick. An unknown id is reported (logged) and dropped.
func (s *Scheduler) RemoveVehicle(id vehicle.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingRemoves = append(s.pendingRemoves, id)
}

// Stop requests cooperative shutdown. If observed mid-tick, the in-flight
// tick aborts before commit; if observed between ticks, Step returns
// ErrStopped immediately without starting a new one.
func (s *Scheduler) Stop() { s.stopped.Store(true) }

// Snapshot returns the most recently published read-only snapshot.
func (s *Scheduler) Snapshot() Snapshot {
	return s.snapshot.Load().(Snapshot)
}

// StepN advances n ticks, stopping early if a Stop is observed.
func (s *Scheduler) StepN(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}

	return nil
}

// Step advances the simulation by one dt, following the seven-step tick
// laid out in the component design: mode-controller pass, translation
// pass, stepper pass (parallel), barrier, resolution pass, commit,
// snapshot publish.
func (s *Scheduler) Step() error {
	if s.stopped.Load() {
		return ErrStopped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyPendingInfluences()

	counters := Counters{}

	transitioned := s.runModeController(s.tick, &counters)
	if err := s.runTranslations(transitioned, &counters); err != nil {
		return err
	}

	if s.stopped.Load() {
		return ErrStopped
	}

	decisions, crossings, patches, err := s.runStepperPass()
	if err != nil {
		s.log.Error("tick aborted by worker error", zap.Uint64("tick", s.tick), zap.Error(err))
		return err
	}
	counters.PatchingEvents = patches

	if s.stopped.Load() {
		return ErrStopped
	}

	if err := s.runResolutionPass(decisions, crossings, &counters); err != nil {
		return err
	}

	// Commit: bring every MICRO lane's spatial index up to the positions
	// integrated this tick, so the next tick's leader/follower and
	// adjacent-lane queries see current arc lengths.
	for _, ls := range s.microLanes {
		for _, e := range ls.Index.Ordered() {
			if st, err := s.store.Get(e.ID); err == nil && st.S != e.S {
				ls.Index.UpdateS(e.ID, st.S)
			}
		}
	}

	for _, ls := range s.microLanes {
		counters.MicroLanes++
		_ = ls
	}
	for range s.macroState {
		counters.MacroLanes++
	}

	s.tick++
	s.snapshot.Store(s.buildSnapshotWithCounters(counters))

	return nil
}

func (s *Scheduler) applyPendingInfluences() {
	for _, st := range s.pendingAdds {
		ls, ok := s.microLanes[st.LaneID]
		if !ok {
			continue // lane switched to MACRO since the influence was queued; dropped
		}
		id := s.store.Add(st)
		ls.Index.Insert(id, st.S)
	}
	s.pendingAdds = nil

	for _, id := range s.pendingRemoves {
		for _, ls := range s.microLanes {
			ls.Index.Remove(id)
		}
		if err := s.store.Remove(id); err != nil {
			// unknown id: influence error, reported and dropped
			s.log.Warn("remove_vehicle on unknown id", zap.Uint32("vehicle_id", uint32(id)))
		}
	}
	s.pendingRemoves = nil
}

// runModeController runs the hysteresis policy for every lane, sequential
// and cheap (spec §4.10 step 1), and returns the lanes scheduled to
// transition this tick.
func (s *Scheduler) runModeController(tick uint64, counters *Counters) []string {
	var transitioned []string

	for _, laneID := range s.sortedLaneIDs() {
		rec := s.records[laneID]
		load, density := s.laneLoad(laneID)

		newMode := s.controller.Decide(*rec, tick, load, density)
		if newMode != rec.Mode {
			rec.Mode = newMode
			rec.LastSwitchTick = tick
			rec.EverSwitched = true
		}
		if newMode == fsm.TransitioningToMacro || newMode == fsm.TransitioningToMicro {
			transitioned = append(transitioned, laneID)
			counters.TransitioningLanes++
		}
	}

	return transitioned
}

func (s *Scheduler) laneLoad(laneID string) (int, float64) {
	lane, _ := s.network.Lane(laneID)
	if ls, ok := s.microLanes[laneID]; ok {
		n := ls.Len()
		return n, float64(n) / lane.Length()
	}
	if ms, ok := s.macroState[laneID]; ok {
		return int(ms.TotalMass() + 0.5), ms.MeanDensity()
	}

	return 0, 0
}

// runTranslations executes the translator for every lane scheduled to
// transition this tick (spec §4.10 step 2).
func (s *Scheduler) runTranslations(transitioned []string, counters *Counters) error {
	for _, laneID := range transitioned {
		lane, _ := s.network.Lane(laneID)
		rec := s.records[laneID]

		switch rec.Mode {
		case fsm.TransitioningToMacro:
			ls := s.microLanes[laneID]
			state, err := translate.MicroToMacro(lane, ls, s.store, s.fd, s.cellsPerLane)
			if err != nil {
				return err
			}
			delete(s.microLanes, laneID)
			s.macroState[laneID] = state
			rec.Mode = fsm.Settle(rec.Mode)
			counters.Translations++
		case fsm.TransitioningToMicro:
			state := s.macroState[laneID]
			ls, err := translate.MacroToMicro(lane, state, s.fd, s.store, s.defaultDriver)
			if err != nil {
				return err
			}
			delete(s.macroState, laneID)
			s.microLanes[laneID] = ls
			rec.Mode = fsm.Settle(rec.Mode)
			counters.Translations++
		}
	}

	return nil
}

type stepperResult struct {
	laneID     string
	decisions  map[vehicle.ID]micro.Decision
	crossings  []micro.Crossing
	patches    int
}

// runStepperPass runs perceive/decide/integrate across all MICRO lanes
// concurrently (spec §4.10 step 3) and the macro cell update across all
// MACRO lanes, using boundary fluxes captured from pre-tick density so the
// parallel Step calls never observe each other's post-update state.
func (s *Scheduler) runStepperPass() (map[string]*stepperResult, []micro.Crossing, int, error) {
	laneIDs := make([]string, 0, len(s.microLanes))
	for id := range s.microLanes {
		laneIDs = append(laneIDs, id)
	}
	sort.Strings(laneIDs)

	results := make([]*stepperResult, len(laneIDs))

	grp := &errgroup.Group{}
	grp.SetLimit(s.workerCount)
	for i, laneID := range laneIDs {
		i, laneID := i, laneID
		grp.Go(func() error {
			ls := s.microLanes[laneID]
			lane := ls.Lane

			var left, right *micro.LaneState
			if n := lane.LeftNeighbor(); n != nil {
				left = s.microLanes[n.ID()]
			}
			if n := lane.RightNeighbor(); n != nil {
				right = s.microLanes[n.ID()]
			}

			perceptions, err := micro.Perceive(ls, left, right, s.store)
			if err != nil {
				return err
			}
			decisions, err := micro.Decide(ls, s.store, perceptions, s.idmCfg)
			if err != nil {
				return err
			}
			crossings, patches, err := micro.Integrate(ls, s.store, decisions, s.dt)
			if err != nil {
				return err
			}

			results[i] = &stepperResult{laneID: laneID, decisions: decisions, crossings: crossings, patches: patches}

			return nil
		})
	}

	macroLaneIDs := make([]string, 0, len(s.macroState))
	for id := range s.macroState {
		macroLaneIDs = append(macroLaneIDs, id)
	}
	sort.Strings(macroLaneIDs)

	fluxIn, fluxOut := s.precomputeMacroBoundaryFluxes(macroLaneIDs)

	for _, laneID := range macroLaneIDs {
		laneID, ms := laneID, s.macroState[laneID]
		grp.Go(func() error {
			ms.Step(s.fd, s.dt, fluxIn[laneID], fluxOut[laneID])
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, nil, 0, err
	}

	out := make(map[string]*stepperResult, len(results))
	var allCrossings []micro.Crossing
	patches := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		out[r.laneID] = r
		allCrossings = append(allCrossings, r.crossings...)
		patches += r.patches
	}

	return out, allCrossings, patches, nil
}

// precomputeMacroBoundaryFluxes computes each MACRO lane's upstream and
// downstream flux using only pre-tick density, so it is safe to read
// concurrently with the parallel Step calls that follow.
func (s *Scheduler) precomputeMacroBoundaryFluxes(macroLaneIDs []string) (map[string]float64, map[string]float64) {
	fluxIn := make(map[string]float64, len(macroLaneIDs))
	fluxOut := make(map[string]float64, len(macroLaneIDs))

	for _, laneID := range macroLaneIDs {
		lane, _ := s.network.Lane(laneID)
		ms := s.macroState[laneID]

		fluxIn[laneID] = macro.OpenBoundaryInflow()
		for _, pred := range lane.Predecessors() {
			if pState, ok := s.macroState[pred.ID()]; ok {
				fluxIn[laneID] = s.fd.GodunovFlux(pState.Rho[len(pState.Rho)-1], ms.Rho[0])
				break
			}
			// predecessor is MICRO or transitioning this tick: the
			// boundary-flux helper in the resolution pass handles that
			// crossing instead, so this lane takes no CTM inflow from it.
		}

		fluxOut[laneID] = macro.OpenBoundaryOutflow(s.fd, ms.Rho[len(ms.Rho)-1])
		for _, succ := range lane.Successors() {
			if scState, ok := s.macroState[succ.ID()]; ok {
				fluxOut[laneID] = s.fd.GodunovFlux(ms.Rho[len(ms.Rho)-1], scState.Rho[0])
				break
			}
			if _, ok := s.microLanes[succ.ID()]; ok {
				// successor is MICRO: MacroToMicroFlux in the resolution pass
				// drains this lane's last cell, so no CTM outflow here.
				fluxOut[laneID] = 0
			}
		}
	}

	return fluxIn, fluxOut
}

// runResolutionPass applies queued lane changes and crossings across all
// MICRO lanes, hands MICRO->MACRO and MACRO->MICRO boundary crossings to
// the translator, and updates lane-change counters (spec §4.10 step 5).
func (s *Scheduler) runResolutionPass(results map[string]*stepperResult, crossings []micro.Crossing, counters *Counters) error {
	var changes []*micro.PendingChange
	for _, r := range results {
		for _, dec := range r.decisions {
			if dec.Change != nil {
				changes = append(changes, dec.Change)
			}
		}
	}
	counters.LaneChangeConflicts = countConflicts(changes)

	_, err := micro.Resolve(s.microLanes, s.store, changes, crossings)
	if err != nil {
		return err
	}
	counters.LaneChangeCommits = countCommits(s.store, changes)

	macroCrossingCounts := make(map[string]int)
	for _, c := range crossings {
		if c.ToLaneID == "" {
			continue // already removed from the network by micro.Resolve
		}
		if _, isMicro := s.microLanes[c.ToLaneID]; isMicro {
			continue // already relocated by micro.Resolve
		}
		if _, isMacro := s.macroState[c.ToLaneID]; isMacro {
			macroCrossingCounts[c.ToLaneID]++
			if err := s.store.Remove(c.VehicleID); err != nil {
				return err
			}
		}
	}
	for laneID, count := range macroCrossingCounts {
		translate.MicroToMacroFlux(s.macroState[laneID], count, s.dt)
		counters.BoundaryFluxEvents++
	}

	for laneID, ls := range s.microLanes {
		lane, _ := s.network.Lane(laneID)
		for _, pred := range lane.Predecessors() {
			if pState, ok := s.macroState[pred.ID()]; ok {
				translate.MacroToMicroFlux(pState, lane, ls, s.store, s.fd, s.defaultDriver, s.dt)
				counters.BoundaryFluxEvents++
			}
		}
	}

	return nil
}

func countConflicts(changes []*micro.PendingChange) int {
	byTarget := make(map[string]int)
	for _, c := range changes {
		byTarget[c.ToLaneID]++
	}
	conflicts := 0
	for _, n := range byTarget {
		if n > 1 {
			conflicts += n - 1
		}
	}

	return conflicts
}

func countCommits(store *vehicle.Store, changes []*micro.PendingChange) int {
	commits := 0
	for _, c := range changes {
		st, err := store.Get(c.VehicleID)
		if err == nil && st.LaneID == c.ToLaneID {
			commits++
		}
	}

	return commits
}

func (s *Scheduler) sortedLaneIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
