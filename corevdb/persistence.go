package corevdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/xDarkicex/corevdb/internal/chunkio"
	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
	"github.com/xDarkicex/corevdb/internal/index/hnsw"
	"github.com/xDarkicex/corevdb/internal/index/hybrid"
	"github.com/xDarkicex/corevdb/internal/index/ivf"
	"github.com/xDarkicex/corevdb/internal/persist"
)

const hnswBlobName = "hnsw.cbor"
const ivfBlobName = "ivf.cbor"

// SaveToS5 serializes the session's HybridIndex, metadata map, and
// schema into the chunked manifest format (§6.3/§7), uploads every
// artifact through the configured BlobStore, and returns the prefix
// ({session_id}) the save lives under. Chunk ids are renumbered on
// every save: a prior save's chunk-N boundaries are not preserved.
func (s *Session) SaveToS5() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSnapshotTimeout)
	defer cancel()

	key := s.hasher.DeriveEncryptionKey()
	prefix := s.config.SessionID

	allVectors := s.index.AllVectors()
	ids := make([]coreid.VectorId, 0, len(allVectors))
	for id := range allVectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	chunkSize := s.config.ChunkSize
	var chunkMetas []persist.ChunkMetadata
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunkIDs := ids[start:end]

		chunkVectors := make(map[coreid.VectorId][]float32, len(chunkIDs))
		for _, id := range chunkIDs {
			chunkVectors[id] = allVectors[id]
		}

		i := start / chunkSize
		data, err := persist.EncodeChunk(chunkVectors, key, s.config.EncryptAtRest)
		if err != nil {
			return "", err
		}
		path := persist.ChunkPath(prefix, i)
		if err := s.config.Store.Put(ctx, path, data, s.config.EncryptAtRest); err != nil {
			return "", coreerr.Wrap(coreerr.StorageError, err, "failed to upload chunk")
		}

		chunkRef := "chunk-" + strconv.Itoa(i)
		for _, id := range chunkIDs {
			s.index.SetChunkRef(id, chunkRef)
		}

		chunkMetas = append(chunkMetas, persist.ChunkMetadata{
			ChunkID:     chunkRef,
			VectorCount: len(chunkIDs),
			ByteSize:    int64(len(data)),
			IDRange:     [2]string{chunkIDs[0].String(), chunkIDs[len(chunkIDs)-1].String()},
		})
	}

	hnswSnap, ivfSnap, trained := s.index.ExportSnapshots()

	hnswBlob, err := cbor.Marshal(hnswSnap)
	if err != nil {
		return "", coreerr.Wrap(coreerr.StorageError, err, "failed to encode hnsw structure")
	}
	if err := s.config.Store.Put(ctx, persist.JoinPath(prefix, hnswBlobName), hnswBlob, s.config.EncryptAtRest); err != nil {
		return "", coreerr.Wrap(coreerr.StorageError, err, "failed to upload hnsw structure")
	}

	ivfBlob, err := cbor.Marshal(ivfSnap)
	if err != nil {
		return "", coreerr.Wrap(coreerr.StorageError, err, "failed to encode ivf structure")
	}
	if err := s.config.Store.Put(ctx, persist.JoinPath(prefix, ivfBlobName), ivfBlob, s.config.EncryptAtRest); err != nil {
		return "", coreerr.Wrap(coreerr.StorageError, err, "failed to upload ivf structure")
	}

	nodeChunkMap := make(map[string]string, len(hnswSnap.Nodes))
	for _, n := range hnswSnap.Nodes {
		if n.ChunkRef != "" {
			nodeChunkMap[n.ID.String()] = n.ChunkRef
		}
	}
	clusterAssignments := make(map[string][]string, len(ivfSnap.Clusters))
	for i, c := range ivfSnap.Clusters {
		var members []string
		for _, e := range c.Entries {
			if !e.Deleted {
				members = append(members, e.ID.String())
			}
		}
		clusterAssignments[strconv.Itoa(i)] = members
	}

	deletedVectors := make([]string, 0)
	for _, id := range s.index.GetDeletedVectors() {
		deletedVectors = append(deletedVectors, id.String())
	}

	var schemaCopy *persist.Schema
	if s.schema != nil {
		sc := *s.schema
		schemaCopy = &sc
	}

	manifest := &persist.Manifest{
		Version:      persist.CurrentVersion,
		ChunkSize:    chunkSize,
		TotalVectors: len(ids),
		Chunks:       chunkMetas,
		HNSWStructure: persist.HNSWStructure{
			EntryPoint:   strconv.FormatUint(uint64(hnswSnap.EntryPoint), 10),
			MaxLevel:     hnswSnap.MaxLevel,
			NodeChunkMap: nodeChunkMap,
			Blob:         hnswBlobName,
		},
		IVFStructure: persist.IVFStructure{
			Centroids:          centroidsOf(ivfSnap),
			ClusterAssignments: clusterAssignments,
			Trained:            trained,
			Blob:               ivfBlobName,
		},
		DeletedVectors: deletedVectors,
		Schema:         schemaCopy,
		IVFTrained:     trained,
	}

	manifestBytes, err := persist.EncodeManifest(manifest)
	if err != nil {
		return "", err
	}

	if schemaCopy != nil {
		schemaBytes, err := cbor.Marshal(schemaCopy)
		if err == nil {
			_ = s.config.Store.Put(ctx, persist.JoinPath(prefix, persist.PathSchema), schemaBytes, false)
		}
	}

	metaBytes, err := persist.EncodeMetadataMap(s.metadata, key, s.config.EncryptAtRest)
	if err != nil {
		return "", err
	}
	if err := s.config.Store.Put(ctx, persist.JoinPath(prefix, persist.PathMetadataMap), metaBytes, s.config.EncryptAtRest); err != nil {
		return "", coreerr.Wrap(coreerr.StorageError, err, "failed to upload metadata map")
	}

	if err := s.config.Store.Put(ctx, persist.JoinPath(prefix, persist.PathManifest), manifestBytes, false); err != nil {
		return "", coreerr.Wrap(coreerr.StorageError, err, "failed to upload manifest")
	}

	return prefix, nil
}

func centroidsOf(snap *ivf.Snapshot) [][]float32 {
	out := make([][]float32, len(snap.Clusters))
	for i, c := range snap.Clusters {
		out[i] = c.Centroid
	}
	return out
}

// LoadUserVectors rebuilds the session's HybridIndex from a prior
// SaveToS5 output at prefix cid. When lazyLoad is false every chunk is
// hydrated immediately; when true, chunk fetches are routed through
// the session's cache/loader so repeated loads of the same prefix
// avoid redundant blob-store round-trips, but the vectors themselves
// are still attached before LoadUserVectors returns -- the teacher's
// HNSW/IVF search routines compute distances directly against resident
// vectors and have no mid-search hydration hook, so true load-on-first-
// touch would require changing their search algorithms rather than the
// persistence layer.
func (s *Session) LoadUserVectors(cid string, lazyLoad bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSnapshotTimeout)
	defer cancel()

	manifestBytes, err := s.config.Store.Get(ctx, persist.JoinPath(cid, persist.PathManifest))
	if err != nil {
		return coreerr.Wrap(coreerr.StorageError, err, "failed to fetch manifest")
	}
	manifest, err := persist.DecodeManifest(manifestBytes)
	if err != nil {
		return err
	}

	hc := s.config.hybridConfig()
	if n := len(manifest.IVFStructure.Centroids); n > 0 {
		hc.IVF.NClusters = n
	}
	newIndex, err := hybrid.NewHybridIndex(hc)
	if err != nil {
		return err
	}

	hnswBlob, err := s.config.Store.Get(ctx, persist.JoinPath(cid, manifest.HNSWStructure.Blob))
	if err != nil {
		return coreerr.Wrap(coreerr.StorageError, err, "failed to fetch hnsw structure")
	}
	var hnswSnap hnsw.Snapshot
	if err := cbor.Unmarshal(hnswBlob, &hnswSnap); err != nil {
		return coreerr.Wrap(coreerr.IntegrityError, err, "failed to decode hnsw structure")
	}

	ivfBlob, err := s.config.Store.Get(ctx, persist.JoinPath(cid, manifest.IVFStructure.Blob))
	if err != nil {
		return coreerr.Wrap(coreerr.StorageError, err, "failed to fetch ivf structure")
	}
	var ivfSnap ivf.Snapshot
	if err := cbor.Unmarshal(ivfBlob, &ivfSnap); err != nil {
		return coreerr.Wrap(coreerr.IntegrityError, err, "failed to decode ivf structure")
	}

	if err := newIndex.ImportSnapshots(&hnswSnap, &ivfSnap, manifest.IVFTrained); err != nil {
		return err
	}

	key := s.hasher.DeriveEncryptionKey()
	metaBytes, err := s.config.Store.Get(ctx, persist.JoinPath(cid, persist.PathMetadataMap))
	if err != nil {
		return coreerr.Wrap(coreerr.StorageError, err, "failed to fetch metadata map")
	}
	metadata, err := persist.DecodeMetadataMap(metaBytes, key)
	if err != nil {
		return err
	}

	var loader *chunkio.Loader
	if lazyLoad {
		loader = chunkio.NewLoader(s.config.Store, s.cache, key, cid)
	}

	byChunk := make(map[string][]coreid.VectorId)
	for id, ref := range newIndex.PendingVectorLoads() {
		byChunk[ref] = append(byChunk[ref], id)
	}
	for chunkRef, idsInChunk := range byChunk {
		var chunk map[coreid.VectorId][]float32
		if lazyLoad {
			decoded, err := loader.Load(ctx, chunkRef)
			if err != nil {
				return err
			}
			chunk = decoded
		} else {
			path := persist.JoinPath(cid, "chunks/"+chunkRef+".cbor")
			data, err := s.config.Store.Get(ctx, path)
			if err != nil {
				return coreerr.Wrap(coreerr.StorageError, err, "failed to fetch chunk")
			}
			decoded, err := persist.DecodeChunk(data, key)
			if err != nil {
				return err
			}
			chunk = decoded
		}
		for _, id := range idsInChunk {
			vec, ok := chunk[id]
			if !ok {
				return coreerr.Newf(coreerr.IntegrityError, "chunk %s missing vector for id %s", chunkRef, id)
			}
			if err := newIndex.LoadVector(id, vec); err != nil {
				return err
			}
		}
	}

	s.index = newIndex
	s.metadata = metadata
	s.loader = chunkio.NewLoader(s.config.Store, s.cache, key, cid)
	if manifest.Schema != nil {
		schemaCopy := *manifest.Schema
		s.schema = &schemaCopy
	} else {
		s.schema = nil
	}
	return nil
}

// Vacuum physically removes tombstoned entries from both sub-indexes
// (§4.3/§4.7).
func (s *Session) Vacuum() (VacuumResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return VacuumResult{}, err
	}

	result, err := s.index.Vacuum(context.Background())
	if err != nil {
		return VacuumResult{}, err
	}
	return VacuumResult{
		HNSWRemoved:  result.HNSWRemoved,
		IVFRemoved:   result.IVFRemoved,
		TotalRemoved: result.TotalRemoved,
	}, nil
}

// MigrateAged runs one caller-scheduled batch of age-based migration,
// moving every HNSW-resident vector whose age has crossed
// RecentThreshold into IVF (§4.3). A no-op, non-error call when the
// index has not yet trained past HNSWOnly.
func (s *Session) MigrateAged() (MigrateAgedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAlive(); err != nil {
		return MigrateAgedResult{}, err
	}

	result, err := s.index.MigrateAged(context.Background())
	if err != nil {
		return MigrateAgedResult{}, err
	}
	s.metrics.Migrations.Add(float64(result.Migrated))
	return MigrateAgedResult{Migrated: result.Migrated, Skipped: result.Skipped}, nil
}
