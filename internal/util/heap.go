package util

import (
	"bytes"
	"container/heap"
)

// Candidate represents a search candidate with distance. VecID breaks
// ties between equal-distance candidates so that which one survives an
// ef-bounded heap eviction is deterministic: smaller VecID wins (§4.1,
// §4.2). It holds the raw bytes of the owning package's VectorId
// (coreid.VectorId, itself a [32]byte) rather than the type directly,
// so util has no dependency on coreid.
type Candidate struct {
	ID       uint32
	Distance float32
	VecID    [32]byte
}

func vecIDLess(a, b [32]byte) bool { return bytes.Compare(a[:], b[:]) < 0 }

// MinHeap implements a min-heap for candidates
type MinHeap struct {
	candidates []*Candidate
	maxSize    int
}

// NewMinHeap creates a new min-heap
func NewMinHeap(maxSize int) *MinHeap {
	return &MinHeap{
		candidates: make([]*Candidate, 0, maxSize),
		maxSize:    maxSize,
	}
}

func (h *MinHeap) Len() int { return len(h.candidates) }

func (h *MinHeap) Less(i, j int) bool {
	if h.candidates[i].Distance != h.candidates[j].Distance {
		return h.candidates[i].Distance < h.candidates[j].Distance
	}
	return vecIDLess(h.candidates[i].VecID, h.candidates[j].VecID)
}

func (h *MinHeap) Swap(i, j int) {
	h.candidates[i], h.candidates[j] = h.candidates[j], h.candidates[i]
}

func (h *MinHeap) Push(x interface{}) {
	h.candidates = append(h.candidates, x.(*Candidate))
}

func (h *MinHeap) Pop() interface{} {
	old := h.candidates
	n := len(old)
	item := old[n-1]
	h.candidates = old[0 : n-1]
	return item
}

// PushCandidate adds a candidate to the heap
func (h *MinHeap) PushCandidate(c *Candidate) {
	heap.Push(h, c)
}

// PopCandidate removes and returns the minimum candidate
func (h *MinHeap) PopCandidate() *Candidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*Candidate)
}

// MaxHeap implements a max-heap for candidates
type MaxHeap struct {
	candidates []*Candidate
	maxSize    int
}

// NewMaxHeap creates a new max-heap
func NewMaxHeap(maxSize int) *MaxHeap {
	return &MaxHeap{
		candidates: make([]*Candidate, 0, maxSize),
		maxSize:    maxSize,
	}
}

func (h *MaxHeap) Len() int { return len(h.candidates) }

func (h *MaxHeap) Less(i, j int) bool {
	if h.candidates[i].Distance != h.candidates[j].Distance {
		return h.candidates[i].Distance > h.candidates[j].Distance // Reverse for max-heap
	}
	// Equal distance: the larger VecID sorts toward the root so it is
	// the one evicted when the heap is trimmed to ef, leaving the
	// smaller VecID to win the tie (§4.1, §4.2).
	return vecIDLess(h.candidates[j].VecID, h.candidates[i].VecID)
}

func (h *MaxHeap) Swap(i, j int) {
	h.candidates[i], h.candidates[j] = h.candidates[j], h.candidates[i]
}

func (h *MaxHeap) Push(x interface{}) {
	h.candidates = append(h.candidates, x.(*Candidate))
}

func (h *MaxHeap) Pop() interface{} {
	old := h.candidates
	n := len(old)
	item := old[n-1]
	h.candidates = old[0 : n-1]
	return item
}

// PushCandidate adds a candidate to the heap
func (h *MaxHeap) PushCandidate(c *Candidate) {
	heap.Push(h, c)
}

// PopCandidate removes and returns the maximum candidate
func (h *MaxHeap) PopCandidate() *Candidate {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*Candidate)
}

// Top returns the maximum candidate without removing it
func (h *MaxHeap) Top() *Candidate {
	if h.Len() == 0 {
		return nil
	}
	return h.candidates[0]
}
