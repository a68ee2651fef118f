// SPDX-License-Identifier: MIT

package simkernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/idm"
	"github.com/jamfree-go/hybridtraffic/macro"
	"github.com/jamfree-go/hybridtraffic/simkernel"
	"github.com/jamfree-go/hybridtraffic/vehicle"
)

func baseConfig() simkernel.Config {
	return simkernel.Config{
		Network: []geometry.LaneSpec{
			{ID: "L1", RoadID: "R", Polyline: []geometry.Point{{X: 0, Y: 0}, {X: 1000, Y: 0}}, SpeedLimit: 30},
		},
		DT:              0.2,
		CellsPerLane:    10,
		Thresholds:      fsm.Thresholds{EnterMacroDensity: 0.08, LeaveMacroDensity: 0.04, EnterMacroCount: 40, LeaveMacroCount: 10, DwellTicks: 5},
		FundamentalDiag: macro.FundamentalDiagram{Vf: 25, W: 6, RhoJam: 0.2, QMax: 0.5},
		Model:           idm.IDM{},
		DeltaThreshold:  0.1,
		DefaultDriver: vehicle.DriverParams{
			DesiredSpeed: 25, TimeHeadway: 1.5, MinGap: 2, MaxAccel: 1.5,
			ComfortDecel: 2.0, SafetyDecelBound: 4.0, HardDecelBound: 8.0,
			Politeness: 0.3, RightBias: 0.1,
		},
		WorkerCount: 2,
	}
}

func TestNewRejectsInvalidNetwork(t *testing.T) {
	cfg := baseConfig()
	cfg.Network = []geometry.LaneSpec{{ID: "", RoadID: "R", Polyline: []geometry.Point{{X: 0}, {X: 1}}, SpeedLimit: 1}}
	_, err := simkernel.New(cfg)
	require.Error(t, err)
}

func TestStepAndSnapshotRoundTrip(t *testing.T) {
	sim, err := simkernel.New(baseConfig())
	require.NoError(t, err)

	require.NoError(t, sim.AddVehicle(vehicle.State{LaneID: "L1", S: 10, V: 10, Length: 4.5, Driver: baseConfig().DefaultDriver}))
	require.NoError(t, sim.Step())

	snap := sim.Snapshot()
	require.Equal(t, uint64(1), snap.Tick)
	require.Len(t, snap.Vehicles, 1)
	require.Equal(t, "L1", snap.Vehicles[0].LaneID)
}

func TestStopPreventsFurtherSteps(t *testing.T) {
	sim, err := simkernel.New(baseConfig())
	require.NoError(t, err)

	sim.Stop()
	require.Error(t, sim.Step())
}

func TestForceModeRejectsUnknownLane(t *testing.T) {
	sim, err := simkernel.New(baseConfig())
	require.NoError(t, err)

	require.Error(t, sim.ForceMode("nope", fsm.ForceMacro))
}
