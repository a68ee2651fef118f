// SPDX-License-Identifier: MIT
//
// Package geometry defines the immutable road-network model: lanes, their
// polylines, arc-length parameterization, and lane-to-lane adjacency
// (predecessor/successor, left/right neighbor). Lanes never mutate after
// construction; all other components read through this package's accessors.
package geometry

import "errors"

// Sentinel errors for geometry construction and queries.
var (
	ErrEmptyLaneID      = errors.New("geometry: lane ID is empty")
	ErrTooFewPoints     = errors.New("geometry: polyline needs at least two points")
	ErrZeroLength       = errors.New("geometry: lane length must be positive")
	ErrDuplicateLaneID  = errors.New("geometry: duplicate lane ID")
	ErrLaneNotFound     = errors.New("geometry: lane not found")
	ErrDanglingLaneRef  = errors.New("geometry: lane references a non-existent lane")
	ErrOutOfRange       = errors.New("geometry: arc-length position out of range")
	ErrSelfAdjacency    = errors.New("geometry: lane cannot be adjacent to itself")
)

// Point is a 2-D coordinate in the road network's planar projection.
type Point struct {
	X, Y float64
}

// segment is one piece of a pre-processed polyline: the cumulative arc
// length at its start and end points, and the two endpoints themselves.
type segment struct {
	startLen float64 // cumulative arc length at segment start
	endLen   float64 // cumulative arc length at segment end
	from, to Point
}

// LaneSpec is the construction-time description of a single lane, supplied
// by the collaborator that builds the road network (OSM import, test
// fixture, etc). Adjacency fields reference lanes by ID; the Network
// resolves them into pointers at construction and rejects dangling
// references as a configuration error.
type LaneSpec struct {
	ID            string
	RoadID        string
	Index         int // index within the parent road, left-to-right
	Polyline      []Point
	Width         float64
	SpeedLimit    float64 // v_max, m/s
	Predecessors  []string
	Successors    []string
	LeftNeighbor  string // empty means none
	RightNeighbor string // empty means none
}

// Lane is the immutable geometric and adjacency description of one lane.
// Exactly the read surface named in spec §4.1: length, position/heading at
// an arc-length offset, speed limit, and adjacency pointers.
type Lane struct {
	id         string
	roadID     string
	index      int
	width      float64
	speedLimit float64
	length     float64
	segments   []segment

	predecessors []*Lane
	successors   []*Lane
	left         *Lane
	right        *Lane
}

// ID returns the lane's unique identifier.
func (l *Lane) ID() string { return l.id }

// RoadID returns the identifier of the parent road.
func (l *Lane) RoadID() string { return l.roadID }

// Index returns the lane's index within its parent road.
func (l *Lane) Index() int { return l.index }

// Length returns the lane's cached arc length L.
func (l *Lane) Length() float64 { return l.length }

// Width returns the lane width.
func (l *Lane) Width() float64 { return l.width }

// SpeedLimit returns v_max for this lane.
func (l *Lane) SpeedLimit() float64 { return l.speedLimit }

// Predecessors returns the lanes that feed into this one.
func (l *Lane) Predecessors() []*Lane { return l.predecessors }

// Successors returns the lanes this one feeds into.
func (l *Lane) Successors() []*Lane { return l.successors }

// LeftNeighbor returns the laterally adjacent lane to the left, or nil.
func (l *Lane) LeftNeighbor() *Lane { return l.left }

// RightNeighbor returns the laterally adjacent lane to the right, or nil.
func (l *Lane) RightNeighbor() *Lane { return l.right }

// HasSuccessor reports whether the lane has at least one successor.
func (l *Lane) HasSuccessor() bool { return len(l.successors) > 0 }
