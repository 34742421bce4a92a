package coreid

import "testing"

func TestDeriveVectorIdDeterministic(t *testing.T) {
	h, err := NewKeyedHasher([]byte("session-seed"))
	if err != nil {
		t.Fatalf("NewKeyedHasher: %v", err)
	}
	a := h.DeriveVectorId("external-1")
	b := h.DeriveVectorId("external-1")
	if a != b {
		t.Fatal("expected deterministic derivation for the same external id")
	}
	c := h.DeriveVectorId("external-2")
	if a == c {
		t.Fatal("expected different external ids to derive different VectorIds")
	}
}

func TestDeriveVectorIdDiffersAcrossSeeds(t *testing.T) {
	h1, _ := NewKeyedHasher([]byte("seed-one"))
	h2, _ := NewKeyedHasher([]byte("seed-two"))
	if h1.DeriveVectorId("x") == h2.DeriveVectorId("x") {
		t.Fatal("expected different session seeds to derive different VectorIds for the same external id")
	}
}

func TestVectorIdStringRoundTrip(t *testing.T) {
	h, _ := NewKeyedHasher([]byte("seed"))
	id := h.DeriveVectorId("x")
	parsed, err := ParseVectorId(id.String())
	if err != nil {
		t.Fatalf("ParseVectorId: %v", err)
	}
	if parsed != id {
		t.Fatal("expected ParseVectorId(id.String()) to round-trip")
	}
}

func TestVectorIdLess(t *testing.T) {
	var a, b VectorId
	a[0], b[0] = 1, 2
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected b not < a")
	}
	if a.Less(a) {
		t.Fatal("expected a not < a")
	}
}

func TestEncryptionKeyDistinctFromVectorIdContext(t *testing.T) {
	h, _ := NewKeyedHasher([]byte("seed"))
	key := h.DeriveEncryptionKey()
	id := h.DeriveVectorId("seed-as-external-id-marker")
	if string(key[:]) == string(id[:]) {
		t.Fatal("encryption key and vector id derivations must use distinct domain separation")
	}
}
