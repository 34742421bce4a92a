// Package corevdb implements the Session abstraction (§4.7): a single
// decentralized-vector-database session bound to a user identity,
// owning a HybridIndex, a metadata map, and an optional schema, with
// CRUD, filtered k-NN search, and blob-store-backed save/load.
package corevdb

import (
	"time"

	"github.com/xDarkicex/corevdb/internal/util"
)

// DistanceMetric re-exports the metric enum the sub-indexes use so
// callers never need to import internal packages.
type DistanceMetric = util.DistanceMetric

const (
	L2           = util.L2Distance
	InnerProduct = util.InnerProduct
	CosineMetric = util.CosineDistance
)

// VectorInput is one caller-supplied vector plus its external id and
// metadata, the argument shape for addVectors (§4.7).
type VectorInput struct {
	ID       string
	Vector   []float32
	Metadata interface{}
}

// SearchOptions configures one Search call (§4.7).
type SearchOptions struct {
	Filter         map[string]interface{} // raw JSON-object filter expression, parsed via internal/filter
	Threshold      *float32               // similarity floor; defaults to 0.7 when nil
	IncludeVectors bool
	Ef             int // HNSW candidate width override; 0 = sub-index default
}

// SearchResult is one ranked hit returned to the caller (§4.7).
type SearchResult struct {
	ID       string
	Score    float32 // similarity, 1 = identical, 0 = unrelated
	Vector   []float32
	Metadata interface{}
}

// Stats is the snapshot returned by getStats (§4.7). Never requires a
// chunk fetch to compute.
type Stats struct {
	VectorCount      int
	MemoryUsageBytes int64
	IndexType        string
	HNSWActive       int
	IVFActive        int
	HNSWDeleted      int
	IVFDeleted       int
}

// VacuumResult reports per-sub-index physical removal counts (§4.3/§4.7).
type VacuumResult struct {
	HNSWRemoved  int
	IVFRemoved   int
	TotalRemoved int
}

// MigrateAgedResult reports how many HNSW-resident vectors crossed the
// age threshold and were moved into IVF by one migrate_aged call (§4.3).
type MigrateAgedResult struct {
	Migrated int
	Skipped  int
}

// DeleteByMetadataResult reports the outcome of a deleteByMetadata call (§4.7).
type DeleteByMetadataResult struct {
	DeletedCount int
	DeletedIDs   []string
}

// reserved metadata field names (§3, §9 "Reserved metadata keys").
const (
	fieldOriginalID   = "_originalId"
	fieldUserMetadata = "_userMetadata"
)

// defaultSearchThreshold is §4.7's default similarity floor.
const defaultSearchThreshold = float32(0.7)

// defaultSnapshotTimeout bounds how long a save/load waits on the blob
// store as a whole, independent of the per-attempt 30s cap in §4.5.
const defaultSnapshotTimeout = 5 * time.Minute
