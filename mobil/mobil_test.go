// SPDX-License-Identifier: MIT

package mobil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamfree-go/hybridtraffic/mobil"
)

func TestEvaluateUnsafeWhenNewFollowerBrakesHard(t *testing.T) {
	s := mobil.Scenario{
		EgoCurrent: 0, EgoIfChanged: 1,
		NewFollowerCurrent: 0, NewFollowerIfChanged: -5,
		SafetyDecelBound: 3,
	}
	v := mobil.Evaluate(s, 0.1)
	require.False(t, v.Safe)
}

func TestEvaluateBeneficialWhenEgoGainsEnough(t *testing.T) {
	s := mobil.Scenario{
		EgoCurrent: 0, EgoIfChanged: 1,
		NewFollowerCurrent: 0, NewFollowerIfChanged: -0.5,
		OldFollowerCurrent: 0, OldFollowerIfChanged: 0.2,
		Politeness:       0.3,
		SafetyDecelBound: 3,
	}
	v := mobil.Evaluate(s, 0.1)
	require.True(t, v.Safe)
	require.True(t, v.Beneficial)
	require.Greater(t, v.Incentive, 0.0)
}

func TestDecideExactTieGoesRight(t *testing.T) {
	left := mobil.Evaluate(mobil.Scenario{
		Side: mobil.Left, EgoCurrent: 0, EgoIfChanged: 1, SafetyDecelBound: 3,
	}, 0.1)
	right := mobil.Evaluate(mobil.Scenario{
		Side: mobil.Right, EgoCurrent: 0, EgoIfChanged: 1, SafetyDecelBound: 3, RightBias: 0,
	}, 0.1)
	d := mobil.Decide(&left, &right)
	require.True(t, d.Change)
	require.Equal(t, mobil.Right, d.Side) // exact tie: keep-right wins
}

func TestDecideNoChangeWhenNeitherSideQualifies(t *testing.T) {
	left := mobil.Evaluate(mobil.Scenario{EgoCurrent: 0, EgoIfChanged: 0}, 0.1)
	right := mobil.Evaluate(mobil.Scenario{EgoCurrent: 0, EgoIfChanged: 0}, 0.1)
	d := mobil.Decide(&left, &right)
	require.False(t, d.Change)
}

func TestDecideHandlesNilSide(t *testing.T) {
	right := mobil.Evaluate(mobil.Scenario{
		Side: mobil.Right, EgoCurrent: 0, EgoIfChanged: 2, SafetyDecelBound: 3,
	}, 0.1)
	d := mobil.Decide(nil, &right)
	require.True(t, d.Change)
	require.Equal(t, mobil.Right, d.Side)
}
