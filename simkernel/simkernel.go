// SPDX-License-Identifier: MIT

// Package simkernel is the top-level façade named in the external
// interface: construction from a network, a scheduler configuration, and
// an initial population, followed by the small runtime surface (step,
// step_n, force_mode, mark_critical, add_vehicle, remove_vehicle,
// snapshot, stop). It owns no simulation logic of its own — every method
// forwards to a scheduler.Scheduler — and exists so collaborators never
// need to import scheduler, fsm, macro, or micro directly to run a
// simulation.
package simkernel

import (
	"go.uber.org/zap"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/idm"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/scheduler"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// NetworkSpec is the construction-time road network: a flat list of lane
// specs resolved into a geometry.Network.
type NetworkSpec = []geometry.LaneSpec

// Config bundles every construction input named in the external interface:
// the road network, the scheduler configuration (dt, cells-per-lane,
// thresholds, fundamental diagram, car-following model, worker count), the
// default driver profile used for vehicles the translator spawns, and the
// initial vehicle population.
type Config struct {
	Network         NetworkSpec
	DT              float64
	CellsPerLane    int
	Thresholds      fsm.Thresholds
	FundamentalDiag macro.FundamentalDiagram
	Model           idm.Model
	DeltaThreshold  float64
	DefaultDriver   vehicle.DriverParams
	WorkerCount     int
	Seed            int64
	InitialVehicles []vehicle.State
	Logger          *zap.Logger
}

// Simulation is a constructed, runnable hybrid traffic simulation.
type Simulation struct {
	sched *scheduler.Scheduler
}

// New validates cfg, builds the road network, and constructs a Simulation
// with every lane starting in MICRO mode.
func New(cfg Config) (*Simulation, error) {
	net, err := geometry.NewNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.NewScheduler(scheduler.Config{
		Network:         net,
		DT:              cfg.DT,
		CellsPerLane:    cfg.CellsPerLane,
		Thresholds:      cfg.Thresholds,
		FD:              cfg.FundamentalDiag,
		Model:           cfg.Model,
		DeltaThreshold:  cfg.DeltaThreshold,
		DefaultDriver:   cfg.DefaultDriver,
		WorkerCount:     cfg.WorkerCount,
		Seed:            cfg.Seed,
		InitialVehicles: cfg.InitialVehicles,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Simulation{sched: sched}, nil
}

// Step advances the simulation by one tick.
func (s *Simulation) Step() error { return s.sched.Step() }

// StepN advances the simulation by n ticks, stopping early on error.
func (s *Simulation) StepN(n int) error { return s.sched.StepN(n) }

// ForceMode sets or clears a lane's forced-mode override.
func (s *Simulation) ForceMode(laneID string, mode fsm.Forced) error {
	return s.sched.ForceMode(laneID, mode)
}

// MarkCritical sets or clears a lane's critical (no-auto-macro) flag.
func (s *Simulation) MarkCritical(laneID string, critical bool) error {
	return s.sched.MarkCritical(laneID, critical)
}

// AddVehicle queues a vehicle to be spawned at the next tick.
func (s *Simulation) AddVehicle(st vehicle.State) error { return s.sched.AddVehicle(st) }

// RemoveVehicle queues a vehicle for removal at the next tick.
func (s *Simulation) RemoveVehicle(id vehicle.ID) { s.sched.RemoveVehicle(id) }

// Snapshot returns a read-only view of the whole network at the most
// recently committed tick.
func (s *Simulation) Snapshot() scheduler.Snapshot { return s.sched.Snapshot() }

// Stop requests cooperative shutdown; the next Step/StepN call returns
// scheduler.ErrStopped instead of advancing.
func (s *Simulation) Stop() { s.sched.Stop() }
