package object

import "testing"

func TestToBytesRaw(t *testing.T) {
	o := NewRaw([]byte("k"), []byte("hello"))
	if got := string(ToBytes(o)); got != "hello" {
		t.Fatalf("ToBytes = %q, want %q", got, "hello")
	}
}

func TestToBytesInt(t *testing.T) {
	o := NewInt([]byte("k"), -42)
	if got := string(ToBytes(o)); got != "-42" {
		t.Fatalf("ToBytes = %q, want %q", got, "-42")
	}
}

func TestToInt64Int(t *testing.T) {
	o := NewInt([]byte("k"), 12345)
	v, ok := ToInt64(o)
	if !ok || v != 12345 {
		t.Fatalf("ToInt64 = (%d, %v), want (12345, true)", v, ok)
	}
}

func TestToInt64RawValid(t *testing.T) {
	o := NewRaw([]byte("k"), []byte("789"))
	v, ok := ToInt64(o)
	if !ok || v != 789 {
		t.Fatalf("ToInt64 = (%d, %v), want (789, true)", v, ok)
	}
}

func TestToInt64RawInvalid(t *testing.T) {
	o := NewRaw([]byte("k"), []byte("not a number"))
	if _, ok := ToInt64(o); ok {
		t.Fatal("expected ok=false for non-numeric raw value")
	}
}

func TestExpired(t *testing.T) {
	o := NewRaw([]byte("k"), []byte("v"))
	if o.Expired(NowMs()) {
		t.Fatal("object with ExpireMs=0 should never expire")
	}
	o.ExpireMs = 100
	if !o.Expired(200) {
		t.Fatal("expected expired at time past deadline")
	}
	if o.Expired(50) {
		t.Fatal("expected not expired before deadline")
	}
}
