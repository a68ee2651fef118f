// SPDX-License-Identifier: MIT
//
// Package spatial implements the per-lane bucketed spatial index from spec
// §4.3: a 1-D index over arc-length position used for leader/follower
// lookups within a lane, and for the hypothetical cross-lane queries MOBIL
// needs to evaluate a lane change. One Index exists per MICRO lane.
//
// Entries are bucketed by floor(s / bucketSize); bucketSize must be chosen
// by the caller to be at least the largest interaction range used by any
// model (typically 100-200m, per spec). Within a bucket, entries are kept
// in a slice sorted by arc-length position so that leader/follower queries
// degrade gracefully to a short linear scan instead of a full-lane scan.
package spatial

import (
	"sort"

	"github.com/jamfree-go/hybridtraffic/vehicle"
)

// Entry is one vehicle's position as tracked by the index. The index is the
// source of truth for ordering queries; it does not own the vehicle's full
// state.
type Entry struct {
	ID vehicle.ID
	S  float64
}

// Index is the bucketed leader/follower index for one lane.
type Index struct {
	bucketSize float64
	laneLength float64
	buckets    map[int][]Entry
	pos        map[vehicle.ID]float64 // cached position, for Remove/UpdateS without a linear scan
}

// NewIndex constructs an empty index for a lane of the given length, with
// the given bucket size (must be > 0).
func NewIndex(laneLength, bucketSize float64) *Index {
	if bucketSize <= 0 {
		bucketSize = laneLength // degenerate single-bucket fallback
	}

	return &Index{
		bucketSize: bucketSize,
		laneLength: laneLength,
		buckets:    make(map[int][]Entry),
		pos:        make(map[vehicle.ID]float64),
	}
}

func (ix *Index) bucketOf(s float64) int {
	return int(s / ix.bucketSize)
}

func insertSorted(bucket []Entry, e Entry) []Entry {
	i := sort.Search(len(bucket), func(i int) bool {
		if bucket[i].S != e.S {
			return bucket[i].S > e.S
		}
		return bucket[i].ID > e.ID
	})
	bucket = append(bucket, Entry{})
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = e

	return bucket
}

func removeFromBucket(bucket []Entry, id vehicle.ID) []Entry {
	for i, e := range bucket {
		if e.ID == id {
			return append(bucket[:i], bucket[i+1:]...)
		}
	}

	return bucket
}

// Insert adds a vehicle to the index at position s. O(log k) in the size of
// its bucket.
func (ix *Index) Insert(id vehicle.ID, s float64) {
	b := ix.bucketOf(s)
	ix.buckets[b] = insertSorted(ix.buckets[b], Entry{ID: id, S: s})
	ix.pos[id] = s
}

// Remove deletes a vehicle from the index.
func (ix *Index) Remove(id vehicle.ID) {
	s, ok := ix.pos[id]
	if !ok {
		return
	}
	b := ix.bucketOf(s)
	ix.buckets[b] = removeFromBucket(ix.buckets[b], id)
	if len(ix.buckets[b]) == 0 {
		delete(ix.buckets, b)
	}
	delete(ix.pos, id)
}

// UpdateS repositions a vehicle already in the index.
func (ix *Index) UpdateS(id vehicle.ID, s float64) {
	ix.Remove(id)
	ix.Insert(id, s)
}

// Len returns the number of vehicles currently indexed.
func (ix *Index) Len() int { return len(ix.pos) }

// maxBucket returns the highest populated bucket index, or -1 if empty.
func (ix *Index) maxBucket() int {
	max := -1
	for b := range ix.buckets {
		if b > max {
			max = b
		}
	}

	return max
}

// LeaderAt returns the nearest entry with S strictly greater than s,
// excluding excludeID (pass an ID that cannot occur, such as the querying
// vehicle's own ID, to avoid self-matches). Ties broken by smallest ID.
func (ix *Index) LeaderAt(s float64, exclude vehicle.ID) (Entry, bool) {
	startBucket := ix.bucketOf(s)
	maxB := ix.maxBucket()
	for b := startBucket; b <= maxB; b++ {
		bucket, ok := ix.buckets[b]
		if !ok {
			continue
		}
		for _, e := range bucket {
			if e.S > s && e.ID != exclude {
				return e, true
			}
		}
	}

	return Entry{}, false
}

// FollowerAt returns the nearest entry with S strictly less than s,
// excluding excludeID. Ties broken by largest ID among equal S (mirrors
// LeaderAt's smallest-ID tiebreak from the opposite direction).
func (ix *Index) FollowerAt(s float64, exclude vehicle.ID) (Entry, bool) {
	startBucket := ix.bucketOf(s)
	for b := startBucket; b >= 0; b-- {
		bucket, ok := ix.buckets[b]
		if !ok {
			continue
		}
		for i := len(bucket) - 1; i >= 0; i-- {
			e := bucket[i]
			if e.S < s && e.ID != exclude {
				return e, true
			}
		}
	}

	return Entry{}, false
}

// Leader returns the vehicle's leader: the nearest vehicle in the same lane
// with a strictly greater S. Returns false if none.
func (ix *Index) Leader(id vehicle.ID) (Entry, bool) {
	s, ok := ix.pos[id]
	if !ok {
		return Entry{}, false
	}

	return ix.LeaderAt(s, id)
}

// Follower returns the vehicle's follower: the nearest vehicle in the same
// lane with a strictly smaller S. Returns false if none.
func (ix *Index) Follower(id vehicle.ID) (Entry, bool) {
	s, ok := ix.pos[id]
	if !ok {
		return Entry{}, false
	}

	return ix.FollowerAt(s, id)
}

// Ordered returns all entries sorted ascending by S (ties by ID), for
// rebuilding a lane's MicroState vehicle-id sequence at commit.
func (ix *Index) Ordered() []Entry {
	out := make([]Entry, 0, len(ix.pos))
	buckets := make([]int, 0, len(ix.buckets))
	for b := range ix.buckets {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)
	for _, b := range buckets {
		out = append(out, ix.buckets[b]...)
	}

	return out
}
