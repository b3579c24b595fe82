package buf

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	b := New()
	dst := b.EnsureWritable(5)
	copy(dst, []byte("hello"))
	b.AdvanceWrite(5)

	if got := b.Readable(); got != 5 {
		t.Fatalf("Readable() = %d, want 5", got)
	}
	if got := string(b.ReadPtr()); got != "hello" {
		t.Fatalf("ReadPtr() = %q, want %q", got, "hello")
	}
	b.AdvanceRead(5)
	if got := b.Readable(); got != 0 {
		t.Fatalf("Readable() after full consume = %d, want 0", got)
	}
}

func TestAdvanceReadBeyondReadablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	b := New()
	b.AdvanceRead(1)
}

func TestExpandGrowsAndPreservesData(t *testing.T) {
	b := New()
	dst := b.EnsureWritable(10)
	copy(dst, []byte("0123456789"))
	b.AdvanceWrite(10)
	b.AdvanceRead(4) // consume "0123", leaving "456789" unread

	b.Expand(200 * 1024) // force past both doubling and linear growth regimes
	if got := string(b.ReadPtr()); got != "456789" {
		t.Fatalf("ReadPtr() after expand = %q, want %q", got, "456789")
	}
	if b.Writable() < 200*1024 {
		t.Fatalf("Writable() = %d, want >= %d", b.Writable(), 200*1024)
	}
}

func TestCompactionReclaimsConsumedPrefix(t *testing.T) {
	b := New()
	dst := b.EnsureWritable(4)
	copy(dst, []byte("abcd"))
	b.AdvanceWrite(4)
	b.AdvanceRead(4)
	if b.Readable() != 0 {
		t.Fatalf("expected fully drained buffer to reset cursors")
	}
	dst2 := b.EnsureWritable(3)
	copy(dst2, []byte("xyz"))
	b.AdvanceWrite(3)
	if got := string(b.ReadPtr()); got != "xyz" {
		t.Fatalf("ReadPtr() = %q, want %q", got, "xyz")
	}
}
