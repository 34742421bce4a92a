package hybrid

// Stats reports per-sub-index active/tombstoned counts for getStats (§4.7).
type Stats struct {
	HNSWActive  int
	HNSWDeleted int
	IVFActive   int
	IVFDeleted  int
}

// Stats computes active and tombstoned counts for both sub-indexes
// without touching any chunk payload (must not block on chunk loads).
func (h *Index) Stats() Stats {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()

	hnswActive := recent.ActiveCount()
	hnswTotal := recent.Size()
	ivfActive := historical.ActiveCount()
	ivfTotal := historical.Size()

	return Stats{
		HNSWActive:  hnswActive,
		HNSWDeleted: hnswTotal - hnswActive,
		IVFActive:   ivfActive,
		IVFDeleted:  ivfTotal - ivfActive,
	}
}

// MemoryUsage estimates resident bytes across both sub-indexes.
func (h *Index) MemoryUsage() int64 {
	h.mu.RLock()
	recent, historical := h.recent, h.historical
	h.mu.RUnlock()
	return recent.MemoryUsage() + historical.MemoryUsage()
}
