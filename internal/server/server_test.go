package server

import (
	"bufio"
	"net"
	"testing"

	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/router"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r := router.New(2, keyhash.NewWithKey([16]byte{4, 5, 6}), 64, logging.Default())
	r.Start()
	t.Cleanup(r.Stop)

	s, err := New("127.0.0.1:0", r, nil, logging.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go s.Serve()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServePingPong(t *testing.T) {
	s := newTestServer(t)
	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	if _, err := nc.Write([]byte("*1\r\n$4\r\nPING\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := bufio.NewReader(nc)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "+PONG\r\n" {
		t.Fatalf("reply = %q, want +PONG\\r\\n", line)
	}
}

func TestServeSetThenGet(t *testing.T) {
	s := newTestServer(t)
	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	if _, err := nc.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")); err != nil {
		t.Fatalf("write SET: %v", err)
	}
	r := bufio.NewReader(nc)
	if line, _ := r.ReadString('\n'); line != "+OK\r\n" {
		t.Fatalf("SET reply = %q", line)
	}

	if _, err := nc.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")); err != nil {
		t.Fatalf("write GET: %v", err)
	}
	line1, _ := r.ReadString('\n')
	line2, _ := r.ReadString('\n')
	if line1 != "$1\r\n" || line2 != "v\r\n" {
		t.Fatalf("GET reply = %q %q", line1, line2)
	}
}

func TestServeQuitClosesConnection(t *testing.T) {
	s := newTestServer(t)
	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	if _, err := nc.Write([]byte("*1\r\n$4\r\nQUIT\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := bufio.NewReader(nc)
	if line, _ := r.ReadString('\n'); line != "+OK\r\n" {
		t.Fatalf("QUIT reply = %q", line)
	}
	buf := make([]byte, 1)
	if _, err := nc.Read(buf); err == nil {
		t.Fatalf("expected connection closed after QUIT")
	}
}
