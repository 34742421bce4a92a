package corevdb

import (
	"context"
	"time"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/filter"
)

// AddVectors validates and inserts each input in order, stamping the
// reserved _originalId field and schema-validating before deriving the
// internal VectorId and calling the HybridIndex (§4.7). It stops at the
// first failing input rather than rolling back earlier successes.
func (s *Session) AddVectors(inputs []VectorInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return err
	}

	now := time.Now()
	for _, in := range inputs {
		if len(in.Vector) != s.config.Dimension {
			return coreerr.Newf(coreerr.DimensionMismatch, "vector %q has dimension %d, want %d", in.ID, len(in.Vector), s.config.Dimension).
				WithDetail("id", in.ID)
		}

		meta := withOriginalID(normalizeMetadata(in.Metadata), in.ID)
		if err := validateSchema(s.schema, meta); err != nil {
			return err
		}

		vid := s.hasher.DeriveVectorId(in.ID)
		if _, exists := s.metadata[vid.String()]; exists {
			return coreerr.Newf(coreerr.DuplicateId, "id %q already present", in.ID).WithDetail("id", in.ID)
		}

		if err := s.index.Insert(context.Background(), vid, in.Vector, now, ""); err != nil {
			return err
		}
		s.metadata[vid.String()] = meta
		s.metrics.VectorInserts.Inc()
	}
	return nil
}

// DeleteVector tombstones id. Idempotent on an id that was never
// present is NOT guaranteed; only re-deleting an already-tombstoned id
// is (§4.3's idempotency applies to the sub-index, not to ids the
// session never derived).
func (s *Session) DeleteVector(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return err
	}

	vid := s.hasher.DeriveVectorId(id)
	if err := s.index.Delete(vid); err != nil {
		return err
	}
	delete(s.metadata, vid.String())
	s.metrics.VectorDeletes.Inc()
	return nil
}

// DeleteByMetadata removes every vector whose stored metadata matches
// filterRaw. An empty filter object is rejected rather than treated as
// "match everything", since a single typo could otherwise wipe a
// session's entire vector set (§4.6, §9).
func (s *Session) DeleteByMetadata(filterRaw map[string]interface{}) (DeleteByMetadataResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return DeleteByMetadataResult{}, err
	}

	if len(filterRaw) == 0 {
		return DeleteByMetadataResult{}, coreerr.New(coreerr.InvalidFilter, "deleteByMetadata requires a non-empty filter")
	}
	f, err := filter.ParseObject(filterRaw)
	if err != nil {
		return DeleteByMetadataResult{}, coreerr.Wrap(coreerr.InvalidFilter, err, "invalid filter")
	}
	if err := f.Validate(); err != nil {
		return DeleteByMetadataResult{}, coreerr.Wrap(coreerr.InvalidFilter, err, "invalid filter")
	}

	var candidates []coreid.VectorId
	candidateKeys := make(map[coreid.VectorId]string)
	for key, meta := range s.metadata {
		if !f.Matches(meta) {
			continue
		}
		vid, err := coreid.ParseVectorId(key)
		if err != nil {
			continue
		}
		candidates = append(candidates, vid)
		candidateKeys[vid] = key
	}

	batch := s.index.BatchDelete(candidates)

	var result DeleteByMetadataResult
	for _, vid := range batch.Deleted {
		key := candidateKeys[vid]
		meta := s.metadata[key]
		delete(s.metadata, key)
		s.metrics.VectorDeletes.Inc()
		result.DeletedCount++
		if extID, ok := originalID(meta); ok {
			result.DeletedIDs = append(result.DeletedIDs, extID)
		} else {
			result.DeletedIDs = append(result.DeletedIDs, key)
		}
	}
	return result, nil
}

// UpdateMetadata wholesale-replaces id's stored metadata, preserving
// the reserved _originalId field and re-running schema validation
// against the new value (§4.7).
func (s *Session) UpdateMetadata(id string, metadata interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return err
	}

	vid := s.hasher.DeriveVectorId(id)
	key := vid.String()
	if _, ok := s.metadata[key]; !ok {
		return coreerr.Newf(coreerr.NotFound, "id %q not found", id).WithDetail("id", id)
	}

	meta := withOriginalID(normalizeMetadata(metadata), id)
	if err := validateSchema(s.schema, meta); err != nil {
		return err
	}
	s.metadata[key] = meta
	return nil
}
