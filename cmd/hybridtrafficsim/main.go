// SPDX-License-Identifier: MIT

// Command hybridtrafficsim constructs a small demonstration network, runs
// it for a configurable number of ticks, and prints a snapshot summary
// after the last tick (or after every tick with -verbose) — a smoke-test
// driver for simkernel, not a visualization tool.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/idm"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/simkernel"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		ticks        = flag.Int("ticks", 200, "number of ticks to simulate")
		laneLength   = flag.Float64("lane-length", 2000, "demonstration lane length, meters")
		vehicleCount = flag.Int("vehicles", 30, "number of vehicles to spawn at tick 0")
		dt           = flag.Float64("dt", 0.2, "tick duration, seconds")
		cellsPerLane = flag.Int("cells", 20, "macro cells per lane")
		verbose      = flag.Bool("verbose", false, "log every tick's snapshot instead of just the last one")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("hybridtrafficsim: build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	driver := vehicle.DriverParams{
		DesiredSpeed: 25, TimeHeadway: 1.5, MinGap: 2, MaxAccel: 1.5,
		ComfortDecel: 2.0, SafetyDecelBound: 4.0, HardDecelBound: 8.0,
		Politeness: 0.3, RightBias: 0.1,
	}

	initial := make([]vehicle.State, 0, *vehicleCount)
	spacing := *laneLength / float64(*vehicleCount+1)
	for i := 0; i < *vehicleCount; i++ {
		initial = append(initial, vehicle.State{
			LaneID: "L1", S: spacing * float64(i+1), V: 15, Length: 4.5, Driver: driver,
		})
	}

	cfg := simkernel.Config{
		Network: []geometry.LaneSpec{
			{ID: "L1", RoadID: "R1", Polyline: []geometry.Point{{X: 0, Y: 0}, {X: *laneLength, Y: 0}}, SpeedLimit: 30},
		},
		DT:           *dt,
		CellsPerLane: *cellsPerLane,
		Thresholds: fsm.Thresholds{
			EnterMacroDensity: 0.08, LeaveMacroDensity: 0.04,
			EnterMacroCount: 60, LeaveMacroCount: 20, DwellTicks: 10,
		},
		FundamentalDiag: macro.FundamentalDiagram{Vf: 30, W: 6, RhoJam: 0.15, QMax: 0.5},
		Model:           idm.IDM{},
		DeltaThreshold:  0.1,
		DefaultDriver:   driver,
		WorkerCount:     4,
		InitialVehicles: initial,
		Logger:          logger,
	}

	sim, err := simkernel.New(cfg)
	if err != nil {
		return fmt.Errorf("hybridtrafficsim: construct simulation: %w", err)
	}

	for t := 0; t < *ticks; t++ {
		if err := sim.Step(); err != nil {
			return fmt.Errorf("hybridtrafficsim: tick %d: %w", t, err)
		}
		if *verbose {
			printSnapshot(sim)
		}
	}
	if !*verbose {
		printSnapshot(sim)
	}

	return nil
}

func printSnapshot(sim *simkernel.Simulation) {
	snap := sim.Snapshot()
	fmt.Printf("tick=%d sim_time=%.1fs vehicles=%d\n", snap.Tick, snap.SimTime, len(snap.Vehicles))
	for _, l := range snap.Lanes {
		fmt.Printf("  lane=%s mode=%s count=%d mean_density=%.4f mean_speed=%.2f\n",
			l.LaneID, l.Mode, l.VehicleCount, l.MeanDensity, l.MeanSpeed)
	}
	fmt.Printf("  translations=%d boundary_flux=%d lc_commits=%d lc_conflicts=%d patches=%d\n",
		snap.Counters.Translations, snap.Counters.BoundaryFluxEvents,
		snap.Counters.LaneChangeCommits, snap.Counters.LaneChangeConflicts, snap.Counters.PatchingEvents)
}
