package memory

import (
	"container/list"
	"fmt"
)

// ErrNoEvictableFrame is returned by evict when no frame is currently
// evictable.
var ErrNoEvictableFrame = fmt.Errorf("lru-k replacer: no evictable frame")

// lruKFrameMetadata tracks a single frame's access history and
// evictable flag. history holds up to k logical timestamps, oldest at
// the front.
type lruKFrameMetadata struct {
	history   *list.List
	evictable bool
}

// LruKReplacer selects an evictable frame using the LRU-K policy:
// among evictable frames, the one with the greatest backward
// K-distance (time since its K-th most recent access, infinite if it
// has fewer than K recorded accesses) is chosen; ties among
// infinite-distance frames break by least recent single access.
//
// Timestamps are a monotonic counter internal to the replacer, not
// wall-clock.
type LruKReplacer struct {
	k             int
	maxSize       int
	size          int
	clock         int64
	metadataStore map[int]*lruKFrameMetadata
}

// NewLruKReplacer constructs a replacer tracking up to maxSize frames
// with history depth k.
func NewLruKReplacer(maxSize, k int) *LruKReplacer {
	return &LruKReplacer{
		k:             k,
		maxSize:       maxSize,
		metadataStore: make(map[int]*lruKFrameMetadata, maxSize),
	}
}

// recordAccess appends the current logical timestamp to frameID's
// history, creating bookkeeping for frameID if this is its first
// access. Once history exceeds k entries, the oldest is dropped.
func (r *LruKReplacer) recordAccess(frameID int) {
	r.clock++
	node, ok := r.metadataStore[frameID]
	if !ok {
		node = &lruKFrameMetadata{history: list.New()}
		r.metadataStore[frameID] = node
	}
	node.history.PushBack(r.clock)
	if node.history.Len() > r.k {
		node.history.Remove(node.history.Front())
	}
}

// setEvictable marks frameID evictable or not, adjusting size. Calling
// it on a frame with no recorded access is a no-op: a frame must be
// registered via recordAccess before it can be tracked for eviction.
func (r *LruKReplacer) setEvictable(frameID int, flag bool) {
	node, ok := r.metadataStore[frameID]
	if !ok {
		return
	}
	if node.evictable == flag {
		return
	}
	node.evictable = flag
	if flag {
		r.size++
	} else {
		r.size--
	}
}

// remove drops frameID from bookkeeping entirely. The frame must be
// evictable or untracked.
func (r *LruKReplacer) remove(frameID int) {
	node, ok := r.metadataStore[frameID]
	if !ok {
		return
	}
	if node.evictable {
		r.size--
	}
	delete(r.metadataStore, frameID)
}

// evict chooses a victim among evictable frames and removes it from
// bookkeeping.
func (r *LruKReplacer) evict() (int, error) {
	if r.size == 0 {
		return -1, ErrNoEvictableFrame
	}

	victim := -1
	var victimOldest int64
	var victimIsInfinite bool

	for id, node := range r.metadataStore {
		if !node.evictable {
			continue
		}
		isInfinite := node.history.Len() < r.k
		oldest := node.history.Front().Value.(int64)

		switch {
		case victim == -1:
			victim, victimOldest, victimIsInfinite = id, oldest, isInfinite
		case isInfinite && !victimIsInfinite:
			// an infinite-distance frame always outranks a finite one.
			victim, victimOldest, victimIsInfinite = id, oldest, true
		case isInfinite == victimIsInfinite:
			if oldest < victimOldest || (oldest == victimOldest && id < victim) {
				victim, victimOldest = id, oldest
			}
		}
	}

	r.remove(victim)
	return victim, nil
}
