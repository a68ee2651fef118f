// SPDX-License-Identifier: MIT

package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/idm"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/scheduler"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

func straightNetwork(t *testing.T, length float64) *geometry.Network {
	t.Helper()
	net, err := geometry.NewNetwork([]geometry.LaneSpec{
		{ID: "L1", RoadID: "R", Polyline: []geometry.Point{{X: 0, Y: 0}, {X: length, Y: 0}}, SpeedLimit: 30},
	})
	require.NoError(t, err)

	return net
}

func twoLaneChain(t *testing.T, length float64) *geometry.Network {
	t.Helper()
	net, err := geometry.NewNetwork([]geometry.LaneSpec{
		{ID: "A", RoadID: "R", Polyline: []geometry.Point{{X: 0, Y: 0}, {X: length, Y: 0}}, SpeedLimit: 30, Successors: []string{"B"}},
		{ID: "B", RoadID: "R", Polyline: []geometry.Point{{X: length, Y: 0}, {X: 2 * length, Y: 0}}, SpeedLimit: 30, Predecessors: []string{"A"}},
	})
	require.NoError(t, err)

	return net
}

func driver() vehicle.DriverParams {
	return vehicle.DriverParams{
		DesiredSpeed: 25, TimeHeadway: 1.5, MinGap: 2, MaxAccel: 1.5,
		ComfortDecel: 2.0, SafetyDecelBound: 4.0, HardDecelBound: 8.0,
		Politeness: 0.3, RightBias: 0.1,
	}
}

func loadThresholds() fsm.Thresholds {
	return fsm.Thresholds{EnterMacroDensity: 0.08, LeaveMacroDensity: 0.04, EnterMacroCount: 40, LeaveMacroCount: 10, DwellTicks: 5}
}

func fd() macro.FundamentalDiagram { return macro.FundamentalDiagram{Vf: 25, W: 6, RhoJam: 0.2, QMax: 0.5} }

func baseConfig(t *testing.T, net *geometry.Network) scheduler.Config {
	t.Helper()
	return scheduler.Config{
		Network:        net,
		DT:             0.2,
		CellsPerLane:   10,
		Thresholds:     loadThresholds(),
		FD:             fd(),
		Model:          idm.IDM{},
		DeltaThreshold: 0.1,
		DefaultDriver:  driver(),
		WorkerCount:    2,
	}
}

func TestNewSchedulerRejectsInvalidConfig(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	cfg.DT = 10 // violates CFL at dx=100
	_, err := scheduler.NewScheduler(cfg)
	require.Error(t, err)
}

func TestStepAdvancesTickAndSimTime(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Step())
	snap := s.Snapshot()
	require.Equal(t, uint64(1), snap.Tick)
	require.InDelta(t, 0.2, snap.SimTime, 1e-9)
}

func TestVehiclesStayStrictlyOrderedAcrossTicks(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddVehicle(vehicle.State{
			LaneID: "L1", S: float64(i) * 20, V: 10, Length: 4.5, Driver: driver(),
		}))
	}

	for tick := 0; tick < 20; tick++ {
		require.NoError(t, s.Step())
		snap := s.Snapshot()
		for i := 1; i < len(snap.Vehicles); i++ {
			require.LessOrEqual(t, snap.Vehicles[i-1].S, snap.Vehicles[i].S)
		}
	}
}

func TestAddVehicleOnUnknownLaneIsReportedAndDropped(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	err = s.AddVehicle(vehicle.State{LaneID: "does-not-exist", S: 0, V: 10, Length: 4.5, Driver: driver()})
	require.ErrorIs(t, err, scheduler.ErrUnknownLane)

	require.NoError(t, s.Step())
	require.Empty(t, s.Snapshot().Vehicles)
}

func TestForceMacroTranslatesLaneAndPreservesApproximateCount(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		require.NoError(t, s.AddVehicle(vehicle.State{
			LaneID: "L1", S: float64(i) * 100, V: 10, Length: 4.5, Driver: driver(),
		}))
	}
	require.NoError(t, s.Step()) // commit the queued adds

	require.NoError(t, s.ForceMode("L1", fsm.ForceMacro))

	var lastSnap scheduler.Snapshot
	for tick := 0; tick < 8; tick++ {
		require.NoError(t, s.Step())
		lastSnap = s.Snapshot()
	}

	require.Len(t, lastSnap.Lanes, 1)
	require.Equal(t, "MACRO", lastSnap.Lanes[0].Mode)
	require.InDelta(t, 6, lastSnap.Lanes[0].VehicleCount, 1)
}

func TestForceMicroHoldsLaneInMicro(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	require.NoError(t, s.ForceMode("L1", fsm.ForceMicro))

	for tick := 0; tick < 3; tick++ {
		require.NoError(t, s.Step())
	}

	snap := s.Snapshot()
	require.Equal(t, "MICRO", snap.Lanes[0].Mode)
}

func TestMarkCriticalUnknownLaneErrors(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	require.ErrorIs(t, s.MarkCritical("nope", true), scheduler.ErrUnknownLane)
}

func TestStopHaltsFurtherTicks(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	s.Stop()
	err = s.Step()
	require.ErrorIs(t, err, scheduler.ErrStopped)
}

func TestStepNAdvancesNTicks(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	require.NoError(t, s.StepN(3))
	require.Equal(t, uint64(3), s.Snapshot().Tick)
}

func TestTwoRunsFromTheSameConfigurationAreDeterministic(t *testing.T) {
	build := func() *scheduler.Scheduler {
		cfg := baseConfig(t, straightNetwork(t, 1000))
		s, err := scheduler.NewScheduler(cfg)
		require.NoError(t, err)
		for i := 0; i < 8; i++ {
			require.NoError(t, s.AddVehicle(vehicle.State{
				LaneID: "L1", S: float64(i) * 15, V: 8, Length: 4.5, Driver: driver(),
			}))
		}
		return s
	}

	s1, s2 := build(), build()
	for tick := 0; tick < 10; tick++ {
		require.NoError(t, s1.Step())
		require.NoError(t, s2.Step())
	}

	snap1, snap2 := s1.Snapshot(), s2.Snapshot()
	require.Equal(t, len(snap1.Vehicles), len(snap2.Vehicles))
	for i := range snap1.Vehicles {
		require.InDelta(t, snap1.Vehicles[i].S, snap2.Vehicles[i].S, 1e-9)
		require.InDelta(t, snap1.Vehicles[i].V, snap2.Vehicles[i].V, 1e-9)
	}
}

func TestVehicleCrossesIntoSuccessorLaneAndIsConserved(t *testing.T) {
	cfg := baseConfig(t, twoLaneChain(t, 60))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	require.NoError(t, s.AddVehicle(vehicle.State{LaneID: "A", S: 55, V: 10, Length: 4.5, Driver: driver()}))
	require.NoError(t, s.Step())

	found := false
	for tick := 0; tick < 10; tick++ {
		require.NoError(t, s.Step())
		snap := s.Snapshot()
		require.LessOrEqual(t, len(snap.Vehicles), 1)
		if len(snap.Vehicles) == 1 && snap.Vehicles[0].LaneID == "B" {
			found = true
		}
	}
	require.True(t, found, "vehicle should have crossed into lane B within 10 ticks")
}

func TestDensityStaysWithinJamBoundsUnderForcedMacro(t *testing.T) {
	cfg := baseConfig(t, straightNetwork(t, 1000))
	s, err := scheduler.NewScheduler(cfg)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, s.AddVehicle(vehicle.State{
			LaneID: "L1", S: float64(i) * 10, V: 5, Length: 4.5, Driver: driver(),
		}))
	}
	require.NoError(t, s.Step())
	require.NoError(t, s.ForceMode("L1", fsm.ForceMacro))

	for tick := 0; tick < 15; tick++ {
		require.NoError(t, s.Step())
		snap := s.Snapshot()
		for _, l := range snap.Lanes {
			require.GreaterOrEqual(t, l.MeanDensity, 0.0)
			require.LessOrEqual(t, l.MeanDensity, cfg.FD.RhoJam+1e-9)
		}
	}
}
