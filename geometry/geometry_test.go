// SPDX-License-Identifier: MIT

package geometry_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jamfree-go/hybridtraffic/geometry"
)

func straightSpec(id string, length float64) geometry.LaneSpec {
	return geometry.LaneSpec{
		ID:         id,
		RoadID:     "r1",
		Polyline:   []geometry.Point{{X: 0, Y: 0}, {X: length, Y: 0}},
		Width:      3.5,
		SpeedLimit: 30,
	}
}

func TestPositionAtAndHeadingAt(t *testing.T) {
	net, err := geometry.NewNetwork([]geometry.LaneSpec{straightSpec("L1", 1000)})
	require.NoError(t, err)
	lane, ok := net.Lane("L1")
	require.True(t, ok)
	require.InDelta(t, 1000.0, lane.Length(), 1e-9)

	p, err := lane.PositionAt(250)
	require.NoError(t, err)
	require.InDelta(t, 250.0, p.X, 1e-9)
	require.InDelta(t, 0.0, p.Y, 1e-9)

	h, err := lane.HeadingAt(250)
	require.NoError(t, err)
	require.InDelta(t, 0.0, h, 1e-9)

	// Overshoot beyond L is clamped, not an error.
	p, err = lane.PositionAt(1500)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, p.X, 1e-9)
}

func TestPositionAtBentPolyline(t *testing.T) {
	spec := geometry.LaneSpec{
		ID:       "L2",
		RoadID:   "r1",
		Polyline: []geometry.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}},
	}
	net, err := geometry.NewNetwork([]geometry.LaneSpec{spec})
	require.NoError(t, err)
	lane, _ := net.Lane("L2")
	require.InDelta(t, 200.0, lane.Length(), 1e-9)

	p, err := lane.PositionAt(150)
	require.NoError(t, err)
	require.InDelta(t, 100.0, p.X, 1e-9)
	require.InDelta(t, 50.0, p.Y, 1e-9)

	h, err := lane.HeadingAt(150)
	require.NoError(t, err)
	require.InDelta(t, math.Pi/2, h, 1e-9)
}

func TestNewNetworkRejectsDanglingReferences(t *testing.T) {
	spec := straightSpec("L1", 100)
	spec.Successors = []string{"ghost"}
	_, err := geometry.NewNetwork([]geometry.LaneSpec{spec})
	require.ErrorIs(t, err, geometry.ErrDanglingLaneRef)
}

func TestNewNetworkRejectsDuplicateID(t *testing.T) {
	spec := straightSpec("L1", 100)
	_, err := geometry.NewNetwork([]geometry.LaneSpec{spec, spec})
	require.ErrorIs(t, err, geometry.ErrDuplicateLaneID)
}

func TestNewNetworkRejectsZeroLength(t *testing.T) {
	spec := geometry.LaneSpec{ID: "L1", Polyline: []geometry.Point{{X: 0, Y: 0}, {X: 0, Y: 0}}}
	_, err := geometry.NewNetwork([]geometry.LaneSpec{spec})
	require.ErrorIs(t, err, geometry.ErrZeroLength)
}

func TestNewNetworkResolvesAdjacencyAndOrdering(t *testing.T) {
	a := straightSpec("A", 500)
	b := straightSpec("B", 500)
	a.Successors = []string{"B"}
	b.Predecessors = []string{"A"}
	a.RightNeighbor = "B"
	b.LeftNeighbor = "A"

	net, err := geometry.NewNetwork([]geometry.LaneSpec{b, a}) // intentionally out of order
	require.NoError(t, err)

	lanes := net.Lanes()
	require.Len(t, lanes, 2)
	require.Equal(t, "A", lanes[0].ID()) // deterministic ID-ascending order
	require.Equal(t, "B", lanes[1].ID())

	laneA, _ := net.Lane("A")
	laneB, _ := net.Lane("B")
	require.Len(t, laneA.Successors(), 1)
	require.Equal(t, "B", laneA.Successors()[0].ID())
	require.Equal(t, "B", laneA.RightNeighbor().ID())
	require.Equal(t, "A", laneB.LeftNeighbor().ID())

	adj := net.AdjacencyList()
	require.Equal(t, []string{"B"}, adj["A"])
}
