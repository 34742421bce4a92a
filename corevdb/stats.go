package corevdb

// GetStats returns a point-in-time snapshot of the session's index
// without touching any chunk payload (§4.7).
func (s *Session) GetStats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkAlive(); err != nil {
		return Stats{}, err
	}

	hs := s.index.Stats()
	return Stats{
		VectorCount:      s.index.ActiveCount(),
		MemoryUsageBytes: s.index.MemoryUsage(),
		IndexType:        indexTypeLabel(s.index.IVFTrained()),
		HNSWActive:       hs.HNSWActive,
		IVFActive:        hs.IVFActive,
		HNSWDeleted:      hs.HNSWDeleted,
		IVFDeleted:       hs.IVFDeleted,
	}, nil
}

func indexTypeLabel(ivfTrained bool) string {
	if ivfTrained {
		return "hybrid"
	}
	return "hnsw-only"
}
