// SPDX-License-Identifier: MIT

package geometry

import (
	"math"
	"sort"
)

// buildSegments pre-processes a polyline into cumulative-length segments so
// that PositionAt and HeadingAt are O(log segments) instead of O(segments).
func buildSegments(points []Point) ([]segment, float64, error) {
	if len(points) < 2 {
		return nil, 0, ErrTooFewPoints
	}
	segs := make([]segment, 0, len(points)-1)
	cum := 0.0
	for i := 0; i+1 < len(points); i++ {
		from, to := points[i], points[i+1]
		d := math.Hypot(to.X-from.X, to.Y-from.Y)
		segs = append(segs, segment{startLen: cum, endLen: cum + d, from: from, to: to})
		cum += d
	}
	if cum <= 0 {
		return nil, 0, ErrZeroLength
	}

	return segs, cum, nil
}

// segmentAt returns the index of the segment covering arc length s via
// binary search over cumulative segment-end lengths.
func (l *Lane) segmentAt(s float64) int {
	i := sort.Search(len(l.segments), func(i int) bool {
		return l.segments[i].endLen >= s
	})
	if i >= len(l.segments) {
		i = len(l.segments) - 1
	}

	return i
}

// PositionAt returns the (x, y) coordinate at arc length s along the lane.
// s is clamped to [0, L] to tolerate floating-point overshoot at the lane
// end from integration.
func (l *Lane) PositionAt(s float64) (Point, error) {
	if math.IsNaN(s) {
		return Point{}, ErrOutOfRange
	}
	if s < 0 {
		s = 0
	}
	if s > l.length {
		s = l.length
	}
	seg := l.segments[l.segmentAt(s)]
	span := seg.endLen - seg.startLen
	var t float64
	if span > 0 {
		t = (s - seg.startLen) / span
	}
	return Point{
		X: seg.from.X + t*(seg.to.X-seg.from.X),
		Y: seg.from.Y + t*(seg.to.Y-seg.from.Y),
	}, nil
}

// HeadingAt returns the heading (radians, atan2 convention) of the segment
// covering arc length s.
func (l *Lane) HeadingAt(s float64) (float64, error) {
	if s < 0 {
		s = 0
	}
	if s > l.length {
		s = l.length
	}
	seg := l.segments[l.segmentAt(s)]

	return math.Atan2(seg.to.Y-seg.from.Y, seg.to.X-seg.from.X), nil
}
