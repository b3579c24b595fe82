package dict

import (
	"fmt"
	"testing"

	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/object"
)

func newTestDict() *Dict {
	return New(keyhash.NewWithKey([16]byte{1, 2, 3, 4}))
}

func TestSetGetDelete(t *testing.T) {
	d := newTestDict()
	d.Set([]byte("k"), object.NewRaw([]byte("k"), []byte("v1")))
	v, ok := d.Get([]byte("k"))
	if !ok || string(v.Value) != "v1" {
		t.Fatalf("Get = (%v, %v), want v1", v, ok)
	}
	d.Set([]byte("k"), object.NewRaw([]byte("k"), []byte("v2")))
	v, ok = d.Get([]byte("k"))
	if !ok || string(v.Value) != "v2" {
		t.Fatalf("Get after overwrite = (%v, %v), want v2", v, ok)
	}
	if d.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (overwrite must not duplicate)", d.Size())
	}
	if !d.Delete([]byte("k")) {
		t.Fatal("Delete should report true for present key")
	}
	if _, ok := d.Get([]byte("k")); ok {
		t.Fatal("key should be gone after Delete")
	}
	if d.Delete([]byte("k")) {
		t.Fatal("Delete should report false for absent key")
	}
}

func TestSizeTracksInsertDeleteUnderRehash(t *testing.T) {
	d := newTestDict()
	const n = 500
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		d.Set(k, object.NewRaw(k, []byte("v")))
	}
	if d.Size() != n {
		t.Fatalf("Size() = %d, want %d", d.Size(), n)
	}
	// delete every other key while rehashing may still be draining
	for i := 0; i < n; i += 2 {
		k := []byte(fmt.Sprintf("key-%d", i))
		if !d.Delete(k) {
			t.Fatalf("expected to delete key-%d", i)
		}
	}
	if d.Size() != n/2 {
		t.Fatalf("Size() after deletes = %d, want %d", d.Size(), n/2)
	}
	for i := 1; i < n; i += 2 {
		k := []byte(fmt.Sprintf("key-%d", i))
		if _, ok := d.Get(k); !ok {
			t.Fatalf("expected key-%d to still be present", i)
		}
	}
}

func TestRehashCompletesAndLeavesInvariants(t *testing.T) {
	d := newTestDict()
	const n = 1000
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		d.Set(k, object.NewRaw(k, []byte("v")))
	}
	// drive remaining rehash steps to completion via repeated Get calls
	for i := 0; i < n*4 && d.Rehashing(); i++ {
		d.Get([]byte("key-0"))
	}
	if d.Rehashing() {
		t.Fatal("expected rehash to complete")
	}
	if d.t[1].size != 0 {
		t.Fatal("T[1] should be freed once rehash completes")
	}
	if d.t[0].size < minSize || d.t[0].size&(d.t[0].size-1) != 0 {
		t.Fatalf("T[0] size %d is not a power of two >= %d", d.t[0].size, minSize)
	}
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		if _, ok := d.Get(k); !ok {
			t.Fatalf("expected key-%d reachable in T[0] after rehash", i)
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1023: 1024, 1024: 1024}
	for in, want := range cases {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
