package keyhash

import "testing"

func TestHash64DeterministicForSameKeyer(t *testing.T) {
	k := NewWithKey([16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	a := k.Hash64([]byte("hello"))
	b := k.Hash64([]byte("hello"))
	if a != b {
		t.Fatalf("Hash64 not deterministic: %d != %d", a, b)
	}
}

func TestHash64DiffersAcrossKeyers(t *testing.T) {
	k1 := NewWithKey([16]byte{1})
	k2 := NewWithKey([16]byte{2})
	if k1.Hash64([]byte("x")) == k2.Hash64([]byte("x")) {
		t.Fatal("expected different keyers to (almost certainly) disagree")
	}
}

func TestHash64DistinguishesInputs(t *testing.T) {
	k := New()
	if k.Hash64([]byte("a")) == k.Hash64([]byte("b")) {
		t.Fatal("expected distinct inputs to (almost certainly) hash differently")
	}
}
