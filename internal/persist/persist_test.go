package persist

import (
	"testing"
	"time"

	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/object"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, 2, 2, keyhash.NewWithKey([16]byte{1}), logging.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutThenGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	key := []byte("k")
	obj := object.NewRaw(key, []byte("hello"))
	obj.Version = 1
	if err := s.PutString(key, obj); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	got, ok, err := s.GetString(key)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if !ok {
		t.Fatal("expected key to be present after PutString")
	}
	if string(got.Value) != "hello" {
		t.Fatalf("got.Value = %q, want %q", got.Value, "hello")
	}
}

func TestGetMissingKeyIsAbsent(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.GetString([]byte("nope"))
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if ok {
		t.Fatal("expected missing key to be absent")
	}
}

func TestGetExpiredKeyIsAbsentBeforeSweepRuns(t *testing.T) {
	s := newTestStore(t)
	key := []byte("expiring")
	obj := object.NewRaw(key, []byte("v"))
	obj.Version = 1
	obj.ExpireMs = object.NowMs() - int64(time.Second/time.Millisecond)
	if err := s.PutString(key, obj); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	_, ok, err := s.GetString(key)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if ok {
		t.Fatal("lazily-expired key must read as absent even before the sweep rewrites its meta")
	}
}

func TestDeleteThenGetIsAbsent(t *testing.T) {
	s := newTestStore(t)
	key := []byte("k")
	obj := object.NewRaw(key, []byte("v"))
	obj.Version = 1
	if err := s.PutString(key, obj); err != nil {
		t.Fatalf("PutString: %v", err)
	}
	if err := s.DeleteString(key); err != nil {
		t.Fatalf("DeleteString: %v", err)
	}
	_, ok, err := s.GetString(key)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if ok {
		t.Fatal("expected key to be absent after DeleteString")
	}
}
