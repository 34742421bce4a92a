package persist

import (
	"encoding/json"
	"strconv"

	"github.com/xDarkicex/corevdb/internal/coreerr"
)

// CurrentVersion is the manifest version this implementation writes.
// Readers must reject anything higher (§3, manifest.version).
const CurrentVersion = 3

// DefaultChunkSize is the default vector count per chunk (§3, Chunk).
const DefaultChunkSize = 10000

// ChunkMetadata describes one chunk file without requiring it to be
// fetched or decrypted.
type ChunkMetadata struct {
	ChunkID     string    `json:"chunk_id"`
	VectorCount int       `json:"vector_count"`
	ByteSize    int64     `json:"byte_size"`
	IDRange     [2]string `json:"id_range"`
}

// HNSWStructure is the manifest's structural HNSW section; Nodes are
// CBOR-encoded separately to keep the JSON manifest small and fast to
// parse (§4.4, "fetch manifest first").
type HNSWStructure struct {
	EntryPoint   string            `json:"entry_point"`
	MaxLevel     int               `json:"max_level"`
	NodeChunkMap map[string]string `json:"node_chunk_map"`
	Blob         string            `json:"blob"` // path to the CBOR-encoded hnsw.Snapshot
}

// IVFStructure is the manifest's structural IVF section. Centroids are
// kept inline in the manifest per §3 ("kept in RAM always").
type IVFStructure struct {
	Centroids          [][]float32         `json:"centroids"`
	ClusterAssignments map[string][]string `json:"cluster_assignments"`
	Trained            bool                `json:"ivf_trained"`
	Blob               string              `json:"blob"` // path to the CBOR-encoded ivf.Snapshot
}

// Schema mirrors corevdb's metadata schema (§4.8) in a form the
// persistence layer can serialize without importing the session
// package (which imports persist, not the reverse).
type Schema struct {
	Fields   map[string]FieldType `json:"fields"`
	Required []string             `json:"required"`
}

// FieldType is the declared type of one schema field.
type FieldType struct {
	Kind FieldKind            `json:"kind"`
	Elem *FieldType           `json:"elem,omitempty"` // for Array
	Obj  map[string]FieldType `json:"obj,omitempty"`  // for Object
}

// FieldKind enumerates the primitive schema field kinds from §4.8.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "boolean"
	KindArray  FieldKind = "array"
	KindObject FieldKind = "object"
)

// Manifest is the JSON descriptor of one saved snapshot (§6.3).
type Manifest struct {
	Version        int             `json:"version"`
	ChunkSize      int             `json:"chunk_size"`
	TotalVectors   int             `json:"total_vectors"`
	Chunks         []ChunkMetadata `json:"chunks"`
	HNSWStructure  HNSWStructure   `json:"hnsw_structure"`
	IVFStructure   IVFStructure    `json:"ivf_structure"`
	DeletedVectors []string        `json:"deleted_vectors,omitempty"`
	Schema         *Schema         `json:"schema,omitempty"`
	IVFTrained     bool            `json:"ivf_trained"`
}

// EncodeManifest serializes a Manifest to its canonical JSON form.
func EncodeManifest(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to encode manifest")
	}
	return data, nil
}

// DecodeManifest parses manifest bytes and enforces the version gate
// from §3/§4.4: version > CurrentVersion is always rejected.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to decode manifest")
	}
	if m.Version > CurrentVersion {
		return nil, coreerr.Newf(coreerr.IncompatibleVersion, "manifest version %d exceeds supported version %d", m.Version, CurrentVersion).WithDetail("found", m.Version)
	}
	if m.Version < 3 {
		// v2 manifests carry no tombstone list and default ivf_trained
		// to true per §3.
		m.DeletedVectors = nil
		m.IVFTrained = true
	}
	return &m, nil
}

// Paths used under a save prefix (§6.4).
const (
	PathManifest    = "manifest.json"
	PathSchema      = "schema.json"
	PathMetadataMap = "metadata_map.cbor"
)

// ChunkPath returns the blob-store path for chunk i under prefix.
func ChunkPath(prefix string, i int) string {
	return JoinPath(prefix, "chunks/chunk-"+strconv.Itoa(i)+".cbor")
}
