package persist

import (
	"bytes"
	"testing"

	"github.com/xDarkicex/corevdb/internal/coreid"
)

func testVectors() map[coreid.VectorId][]float32 {
	var a, b coreid.VectorId
	a[0], b[0] = 1, 2
	return map[coreid.VectorId][]float32{
		a: {1, 2, 3},
		b: {4, 5, 6},
	}
}

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	for _, encrypt := range []bool{false, true} {
		vectors := testVectors()
		data, err := EncodeChunk(vectors, key, encrypt)
		if err != nil {
			t.Fatalf("encrypt=%v: EncodeChunk: %v", encrypt, err)
		}
		out, err := DecodeChunk(data, key)
		if err != nil {
			t.Fatalf("encrypt=%v: DecodeChunk: %v", encrypt, err)
		}
		if len(out) != len(vectors) {
			t.Fatalf("encrypt=%v: got %d vectors, want %d", encrypt, len(out), len(vectors))
		}
		for id, v := range vectors {
			got, ok := out[id]
			if !ok {
				t.Fatalf("encrypt=%v: id %s missing from decoded chunk", encrypt, id)
			}
			for i := range v {
				if got[i] != v[i] {
					t.Fatalf("encrypt=%v: id %s dim %d: got %v, want %v", encrypt, id, i, got[i], v[i])
				}
			}
		}
	}
}

// TestEncryptionOpacity is the core's testable property 11: encrypted
// chunk bytes must not contain any plaintext embedding byte run.
func TestEncryptionOpacity(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	vectors := map[coreid.VectorId][]float32{}
	var id coreid.VectorId
	id[0] = 9
	vectors[id] = []float32{3.14159, -2.71828, 42.0, 1e10}

	plain, err := EncodeChunk(vectors, key, false)
	if err != nil {
		t.Fatalf("EncodeChunk(plain): %v", err)
	}
	sealed, err := EncodeChunk(vectors, key, true)
	if err != nil {
		t.Fatalf("EncodeChunk(sealed): %v", err)
	}

	// The plaintext CBOR payload (sans its own 1-byte flag) must not
	// appear anywhere inside the sealed payload.
	if bytes.Contains(sealed, plain[1:]) {
		t.Fatal("encrypted chunk contains the full plaintext payload as a substring")
	}

	// A long contiguous run from the plaintext must not survive either.
	if len(plain) > 17 {
		needle := plain[1:17]
		if bytes.Contains(sealed[1:], needle) {
			t.Fatal("encrypted chunk contains a contiguous plaintext byte run")
		}
	}
}

func TestDecodeChunkRejectsTruncatedPayload(t *testing.T) {
	if _, err := DecodeChunk(nil, [32]byte{}); err == nil {
		t.Fatal("expected error decoding empty payload")
	}
}

func TestEncodeDecodeMetadataMapRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	m := map[string]interface{}{
		"aabb": map[string]interface{}{"_originalId": "a", "n": float64(1)},
	}
	data, err := EncodeMetadataMap(m, key, true)
	if err != nil {
		t.Fatalf("EncodeMetadataMap: %v", err)
	}
	out, err := DecodeMetadataMap(data, key)
	if err != nil {
		t.Fatalf("DecodeMetadataMap: %v", err)
	}
	if len(out) != len(m) {
		t.Fatalf("got %d entries, want %d", len(out), len(m))
	}

	// Every per-vector metadata value is itself an object; it must
	// decode back as map[string]interface{}, not the CBOR library's
	// default map[interface{}]interface{}, or every downstream
	// type-asserting reader (originalID, filter path resolution) will
	// silently fail to see it.
	entry, ok := out["aabb"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested metadata object to decode as map[string]interface{}, got %T", out["aabb"])
	}
	if entry["_originalId"] != "a" {
		t.Fatalf("expected _originalId %q to round-trip, got %v", "a", entry["_originalId"])
	}
}
