// SPDX-License-Identifier: MIT

package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/internal/config"
	"github.com/jamfree-go/hybridtraffic/macro"
)

func lanes(t *testing.T, length float64) []*geometry.Lane {
	t.Helper()
	net, err := geometry.NewNetwork([]geometry.LaneSpec{
		{ID: "L", RoadID: "R", Polyline: []geometry.Point{{X: 0, Y: 0}, {X: length, Y: 0}}, SpeedLimit: 30},
	})
	require.NoError(t, err)

	return net.Lanes()
}

func th() fsm.Thresholds {
	return fsm.Thresholds{EnterMacroDensity: 0.08, LeaveMacroDensity: 0.04, EnterMacroCount: 90, LeaveMacroCount: 20, DwellTicks: 10}
}

func fd() macro.FundamentalDiagram { return macro.FundamentalDiagram{Vf: 30, W: 6, RhoJam: 0.2, QMax: 0.5} }

func TestValidateRejectsNonPositiveDT(t *testing.T) {
	err := config.Validate(0, 10, 1, th(), fd(), lanes(t, 1000))
	require.ErrorIs(t, err, config.ErrNonPositiveDT)
}

func TestValidateRejectsTooFewCells(t *testing.T) {
	err := config.Validate(0.1, 1, 1, th(), fd(), lanes(t, 1000))
	require.ErrorIs(t, err, config.ErrTooFewCells)
}

func TestValidateRejectsNoWorkers(t *testing.T) {
	err := config.Validate(0.1, 10, 0, th(), fd(), lanes(t, 1000))
	require.ErrorIs(t, err, config.ErrNoWorkers)
}

func TestValidateRejectsInconsistentThresholds(t *testing.T) {
	bad := th()
	bad.LeaveMacroDensity = bad.EnterMacroDensity
	err := config.Validate(0.1, 10, 1, bad, fd(), lanes(t, 1000))
	require.ErrorIs(t, err, fsm.ErrInconsistentDensity)
}

func TestValidateRejectsCFLViolation(t *testing.T) {
	// lane length 100 with 10 cells -> dx=10; max speed 30 -> limit dt<=10/30=0.33
	err := config.Validate(1.0, 10, 1, th(), fd(), lanes(t, 100))
	require.ErrorIs(t, err, config.ErrCFLViolation)
}

func TestValidateAcceptsConsistentConfiguration(t *testing.T) {
	err := config.Validate(0.1, 10, 4, th(), fd(), lanes(t, 1000))
	require.NoError(t, err)
}
