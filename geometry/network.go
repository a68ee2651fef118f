// SPDX-License-Identifier: MIT

package geometry

import (
	"fmt"
	"sort"
)

// Road groups the lanes that belong to one physical road segment, ordered by
// Lane.Index().
type Road struct {
	id    string
	lanes []*Lane
}

// ID returns the road's identifier.
func (r *Road) ID() string { return r.id }

// Lanes returns the road's lanes ordered by index.
func (r *Road) Lanes() []*Lane { return r.lanes }

// Network is the immutable collection of lanes and roads that make up a
// road-network description (§6 construction input). It is built once and
// never mutated; every other component reads through it.
//
// Adjacency consistency (no dangling predecessor/successor/left/right
// references, no lane adjacent to itself) is checked once at construction
// time while resolving each spec's string references into *Lane pointers;
// thereafter every lane's predecessors/successors/left/right are plain
// resolved pointers and AdjacencyList() is a direct read of them.
type Network struct {
	lanes map[string]*Lane
	roads map[string]*Road
	// laneOrder is the deterministic iteration order over lanes (sorted by
	// ID), used by the tick scheduler so that committed state never depends
	// on map iteration order.
	laneOrder []string
}

// Lanes returns all lanes in deterministic (ID-ascending) order.
func (n *Network) Lanes() []*Lane {
	out := make([]*Lane, len(n.laneOrder))
	for i, id := range n.laneOrder {
		out[i] = n.lanes[id]
	}

	return out
}

// Lane looks up a lane by ID.
func (n *Network) Lane(id string) (*Lane, bool) {
	l, ok := n.lanes[id]

	return l, ok
}

// Road looks up a road by ID.
func (n *Network) Road(id string) (*Road, bool) {
	r, ok := n.roads[id]

	return r, ok
}

// AdjacencyList returns, for each lane ID, the IDs of its successor lanes,
// sorted ascending.
func (n *Network) AdjacencyList() map[string][]string {
	out := make(map[string][]string, len(n.laneOrder))
	for _, id := range n.laneOrder {
		lane := n.lanes[id]
		if len(lane.successors) == 0 {
			continue
		}
		ids := make([]string, len(lane.successors))
		for i, succ := range lane.successors {
			ids[i] = succ.id
		}
		sort.Strings(ids)
		out[id] = ids
	}

	return out
}

// NewNetwork validates and constructs a Network from lane specifications.
// Returns a configuration error (per spec §7) if any spec is malformed or
// any adjacency reference is dangling.
func NewNetwork(specs []LaneSpec) (*Network, error) {
	n := &Network{
		lanes: make(map[string]*Lane, len(specs)),
		roads: make(map[string]*Road),
	}

	// Pass 1: construct each lane's geometry in isolation.
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, ErrEmptyLaneID
		}
		if _, dup := n.lanes[spec.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLaneID, spec.ID)
		}
		segs, length, err := buildSegments(spec.Polyline)
		if err != nil {
			return nil, fmt.Errorf("lane %s: %w", spec.ID, err)
		}
		lane := &Lane{
			id:         spec.ID,
			roadID:     spec.RoadID,
			index:      spec.Index,
			width:      spec.Width,
			speedLimit: spec.SpeedLimit,
			length:     length,
			segments:   segs,
		}
		n.lanes[spec.ID] = lane
		n.laneOrder = append(n.laneOrder, spec.ID)
	}
	sort.Strings(n.laneOrder)

	// Pass 2: resolve adjacency references now that every lane exists.
	for _, spec := range specs {
		lane := n.lanes[spec.ID]
		for _, predID := range spec.Predecessors {
			pred, ok := n.lanes[predID]
			if !ok {
				return nil, fmt.Errorf("%w: lane %s predecessor %s", ErrDanglingLaneRef, spec.ID, predID)
			}
			lane.predecessors = append(lane.predecessors, pred)
		}
		for _, succID := range spec.Successors {
			succ, ok := n.lanes[succID]
			if !ok {
				return nil, fmt.Errorf("%w: lane %s successor %s", ErrDanglingLaneRef, spec.ID, succID)
			}
			lane.successors = append(lane.successors, succ)
		}
		if spec.LeftNeighbor != "" {
			if spec.LeftNeighbor == spec.ID {
				return nil, fmt.Errorf("%w: %s", ErrSelfAdjacency, spec.ID)
			}
			left, ok := n.lanes[spec.LeftNeighbor]
			if !ok {
				return nil, fmt.Errorf("%w: lane %s left neighbor %s", ErrDanglingLaneRef, spec.ID, spec.LeftNeighbor)
			}
			lane.left = left
		}
		if spec.RightNeighbor != "" {
			if spec.RightNeighbor == spec.ID {
				return nil, fmt.Errorf("%w: %s", ErrSelfAdjacency, spec.ID)
			}
			right, ok := n.lanes[spec.RightNeighbor]
			if !ok {
				return nil, fmt.Errorf("%w: lane %s right neighbor %s", ErrDanglingLaneRef, spec.ID, spec.RightNeighbor)
			}
			lane.right = right
		}

		road := n.roads[spec.RoadID]
		if road == nil {
			road = &Road{id: spec.RoadID}
			n.roads[spec.RoadID] = road
		}
		road.lanes = append(road.lanes, lane)
	}

	for _, road := range n.roads {
		sort.Slice(road.lanes, func(i, j int) bool { return road.lanes[i].index < road.lanes[j].index })
	}

	return n, nil
}
