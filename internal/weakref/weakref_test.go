package weakref

import (
	"net"
	"testing"

	"github.com/kvshard/kvshard/internal/conn"
)

func TestRegisterLookupUnregister(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	r := New()
	c := conn.New(server)
	r.Register(c)

	got := r.Lookup(c.ID)
	if got != c {
		t.Fatalf("Lookup = %v, want %v", got, c)
	}

	r.Unregister(c)
	if got := r.Lookup(c.ID); got != nil {
		t.Fatalf("Lookup after Unregister = %v, want nil", got)
	}
}

func TestLookupUnknownIDReturnsNil(t *testing.T) {
	r := New()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	other := conn.New(server)
	if got := r.Lookup(other.ID); got != nil {
		t.Fatalf("Lookup of never-registered id = %v, want nil", got)
	}
}
