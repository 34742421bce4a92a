// Package coreid derives the internal identifiers and keys the rest of
// the core operates on: the 32-byte VectorId used as the only key inside
// the index, and the per-session encryption key used for chunk and
// metadata-map payloads.
package coreid

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// Size is the fixed byte length of a VectorId.
const Size = 32

// VectorId is the opaque internal identifier for one embedding. It is
// derived by a keyed hash from the caller's external id; the caller's
// original id is never used directly as an index key.
type VectorId [Size]byte

// String renders the id as lowercase hex, matching the manifest's
// "<id_hex>" convention.
func (v VectorId) String() string {
	return hex.EncodeToString(v[:])
}

// Less implements the lexicographic tie-break rule used by both
// sub-indexes when distances are equal.
func (v VectorId) Less(other VectorId) bool {
	for i := range v {
		if v[i] != other[i] {
			return v[i] < other[i]
		}
	}
	return false
}

// ParseVectorId parses a hex string produced by String back into a VectorId.
func ParseVectorId(s string) (VectorId, error) {
	var id VectorId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("coreid: invalid hex id %q: %w", s, err)
	}
	if len(b) != Size {
		return id, fmt.Errorf("coreid: id %q decodes to %d bytes, want %d", s, len(b), Size)
	}
	copy(id[:], b)
	return id, nil
}

// KeyedHasher derives VectorIds and payload encryption keys from a single
// session seed. Both derivations use BLAKE3 keyed mode with distinct
// domain-separation contexts so that the two derived secrets cannot be
// confused or cross-used.
type KeyedHasher struct {
	seed []byte
}

// NewKeyedHasher builds a hasher from the caller-supplied session seed.
// The seed is never logged or included in error messages.
func NewKeyedHasher(seed []byte) (*KeyedHasher, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("coreid: seed must not be empty")
	}
	return &KeyedHasher{seed: append([]byte(nil), seed...)}, nil
}

const vectorIDContext = "xDarkicex/corevdb vector id v1"

// DeriveVectorId derives the internal VectorId for a caller-supplied
// external id.
func (h *KeyedHasher) DeriveVectorId(externalID string) VectorId {
	key := blake3.DeriveKey(vectorIDContext, h.seed)
	hasher := blake3.New(Size, key)
	hasher.Write([]byte(externalID))
	sum := hasher.Sum(nil)
	var id VectorId
	copy(id[:], sum)
	return id
}

const encryptionKeyContext = "xDarkicex/corevdb chunk encryption key v1"

// DeriveEncryptionKey derives the 32-byte key used for chunk and
// metadata-map authenticated encryption (see internal/persist).
func (h *KeyedHasher) DeriveEncryptionKey() [32]byte {
	var key [32]byte
	copy(key[:], blake3.DeriveKey(encryptionKeyContext, h.seed))
	return key
}
