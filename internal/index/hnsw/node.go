package hnsw

import "github.com/xDarkicex/corevdb/internal/coreid"

// Node is one HNSW graph node, stored at a fixed slot in Index.nodes.
// Links[level][i] holds the slot index of the i-th neighbor at that
// layer; cycles are natural since edges reference slots, not pointers.
type Node struct {
	ID       coreid.VectorId
	Vector   []float32 // nil when the embedding has not been loaded yet
	ChunkRef string    // set when Vector is nil and must be lazily fetched
	Level    int
	Links    [][]uint32
	Deleted  bool // tombstone; physically removed only by Vacuum
}

// HasVector reports whether the embedding is resident in memory.
func (n *Node) HasVector() bool {
	return n.Vector != nil
}
