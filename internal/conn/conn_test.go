package conn

import (
	"io"
	"net"
	"testing"

	"github.com/kvshard/kvshard/internal/resp"
)

func TestWriteFramesThenFlushWritesToSocket(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := New(server)
	c.WriteFrames(resp.SimpleString("OK"))

	done := make(chan error, 1)
	go func() { done <- c.Flush() }()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "+OK\r\n" {
		t.Fatalf("got %q", buf)
	}
	if err := <-done; err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestFlushWithNothingQueuedIsNoop(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := New(server)
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestWriteFramesAfterCloseIsDropped(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := New(server)
	c.Close()
	c.WriteFrames(resp.SimpleString("OK"))
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush after close: %v", err)
	}
}

func TestNewAssignsUniqueID(t *testing.T) {
	server1, client1 := net.Pipe()
	defer server1.Close()
	defer client1.Close()
	server2, client2 := net.Pipe()
	defer server2.Close()
	defer client2.Close()

	c1 := New(server1)
	c2 := New(server2)
	if c1.ID == c2.ID {
		t.Fatal("expected distinct connection ids")
	}
}
