package persist

import (
	"crypto/rand"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/xDarkicex/corevdb/internal/coreerr"
	"github.com/xDarkicex/corevdb/internal/coreid"
)

// metadataDecMode forces every embedded CBOR map (including per-vector
// metadata objects nested inside the top-level map) to decode as
// map[string]interface{} rather than fxamacker/cbor's default
// map[interface{}]interface{}, so metadata reloaded via LoadUserVectors
// type-asserts the same way freshly-inserted metadata does.
var metadataDecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// ChunkRecord is the deterministic, length-prefixed (via CBOR array
// encoding) mapping from VectorId to embedding that makes up one
// chunk's plaintext payload (§4.4, §6.3).
type ChunkRecord struct {
	IDs        [][]byte    `cbor:"ids"`
	Embeddings [][]float32 `cbor:"embeddings"`
}

// EncodeChunk deterministically serializes vectors (sorted by
// VectorId) into CBOR bytes, then optionally authenticates-and-encrypts
// them with XChaCha20-Poly1305 under key (§4.4).
func EncodeChunk(vectors map[coreid.VectorId][]float32, key [32]byte, encrypt bool) ([]byte, error) {
	ids := make([]coreid.VectorId, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	rec := ChunkRecord{
		IDs:        make([][]byte, len(ids)),
		Embeddings: make([][]float32, len(ids)),
	}
	for i, id := range ids {
		idCopy := id
		rec.IDs[i] = idCopy[:]
		rec.Embeddings[i] = vectors[id]
	}

	plain, err := cbor.Marshal(rec)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to encode chunk record")
	}
	if !encrypt {
		return append([]byte{0}, plain...), nil
	}

	sealed, err := seal(key, plain)
	if err != nil {
		return nil, err
	}
	return append([]byte{1}, sealed...), nil
}

// DecodeChunk reverses EncodeChunk, decrypting first when the payload
// was written with encryption enabled.
func DecodeChunk(data []byte, key [32]byte) (map[coreid.VectorId][]float32, error) {
	if len(data) == 0 {
		return nil, coreerr.New(coreerr.IntegrityError, "empty chunk payload")
	}
	flag, body := data[0], data[1:]

	var plain []byte
	switch flag {
	case 0:
		plain = body
	case 1:
		p, err := open(key, body)
		if err != nil {
			return nil, err
		}
		plain = p
	default:
		return nil, coreerr.Newf(coreerr.IntegrityError, "unknown chunk encoding flag %d", flag)
	}

	var rec ChunkRecord
	if err := cbor.Unmarshal(plain, &rec); err != nil {
		return nil, coreerr.Wrap(coreerr.IntegrityError, err, "failed to decode chunk record")
	}
	if len(rec.IDs) != len(rec.Embeddings) {
		return nil, coreerr.Newf(coreerr.IntegrityError, "chunk has %d ids but %d embeddings", len(rec.IDs), len(rec.Embeddings))
	}

	out := make(map[coreid.VectorId][]float32, len(rec.IDs))
	for i, raw := range rec.IDs {
		if len(raw) != coreid.Size {
			return nil, coreerr.Newf(coreerr.IntegrityError, "chunk id %d has %d bytes, want %d", i, len(raw), coreid.Size)
		}
		var id coreid.VectorId
		copy(id[:], raw)
		out[id] = rec.Embeddings[i]
	}
	return out, nil
}

// EncodeMetadataMap CBOR-encodes and (optionally) encrypts the
// session's VectorId->metadata map for the metadata_map.cbor artifact.
func EncodeMetadataMap(m map[string]interface{}, key [32]byte, encrypt bool) ([]byte, error) {
	plain, err := cbor.Marshal(m)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to encode metadata map")
	}
	if !encrypt {
		return append([]byte{0}, plain...), nil
	}
	sealed, err := seal(key, plain)
	if err != nil {
		return nil, err
	}
	return append([]byte{1}, sealed...), nil
}

// DecodeMetadataMap reverses EncodeMetadataMap.
func DecodeMetadataMap(data []byte, key [32]byte) (map[string]interface{}, error) {
	if len(data) == 0 {
		return map[string]interface{}{}, nil
	}
	flag, body := data[0], data[1:]

	var plain []byte
	switch flag {
	case 0:
		plain = body
	case 1:
		p, err := open(key, body)
		if err != nil {
			return nil, err
		}
		plain = p
	default:
		return nil, coreerr.Newf(coreerr.IntegrityError, "unknown metadata encoding flag %d", flag)
	}

	var m map[string]interface{}
	if err := metadataDecMode.Unmarshal(plain, &m); err != nil {
		return nil, coreerr.Wrap(coreerr.IntegrityError, err, "failed to decode metadata map")
	}
	return m, nil
}

// seal authenticates and encrypts plain with an XChaCha20-Poly1305 AEAD
// under key, prefixing the random nonce to the ciphertext.
func seal(key [32]byte, plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to construct AEAD cipher")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to generate nonce")
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

// open reverses seal.
func open(key [32]byte, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageError, err, "failed to construct AEAD cipher")
	}
	if len(sealed) < aead.NonceSize() {
		return nil, coreerr.New(coreerr.IntegrityError, "sealed payload shorter than nonce")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IntegrityError, err, "failed to decrypt payload")
	}
	return plain, nil
}
