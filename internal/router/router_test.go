package router

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/kvshard/kvshard/internal/conn"
	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/object"
	"github.com/kvshard/kvshard/internal/resp"
	"github.com/kvshard/kvshard/internal/weakref"
)

// readRawReply reads one complete RESP reply off r and returns its exact
// wire bytes, recursing into array elements.
func readRawReply(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	switch line[0] {
	case '+', '-', ':':
		return line
	case '$':
		n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
		if err != nil {
			t.Fatalf("bad bulk length %q: %v", line, err)
		}
		if n < 0 {
			return line
		}
		body := make([]byte, n+2)
		if _, err := io.ReadFull(r, body); err != nil {
			t.Fatalf("read bulk body: %v", err)
		}
		return line + string(body)
	case '*':
		n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
		if err != nil {
			t.Fatalf("bad array length %q: %v", line, err)
		}
		out := line
		for i := 0; i < n; i++ {
			out += readRawReply(t, r)
		}
		return out
	default:
		t.Fatalf("unexpected reply prefix %q", line)
		return ""
	}
}

func newTestRouter(t *testing.T, n int) *Router {
	t.Helper()
	r := New(n, keyhash.NewWithKey([16]byte{9, 9, 9}), 64, logging.Default())
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

func TestShardForIsStable(t *testing.T) {
	r := newTestRouter(t, 8)
	key := []byte("stable-key")
	first := r.ShardFor(key)
	for i := 0; i < 100; i++ {
		if r.ShardFor(key) != first {
			t.Fatal("ShardFor must route the same key to the same shard every time")
		}
	}
}

func TestShardForDistributesAcrossShards(t *testing.T) {
	r := newTestRouter(t, 4)
	seen := make(map[*Shard]bool)
	for i := 0; i < 200; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		seen[r.ShardFor(k)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("200 distinct keys landed on only %d shard(s)", len(seen))
	}
}

func TestFanOutAggregatesPerKeyResults(t *testing.T) {
	r := newTestRouter(t, 4)
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, k := range keys {
		shard := r.ShardFor(k)
		shard.Loop.ScheduleWait(func() {
			shard.Dicts[0].Set(k, object.NewRaw(k, []byte("v-"+string(k))))
		})
	}

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	c := conn.New(server)
	conns := weakref.New()
	conns.Register(c)

	r.FanOut(keys, 0, c.ID, conns,
		func(d *dict.Dict, key []byte) interface{} {
			v, ok := d.Get(key)
			if !ok {
				return ""
			}
			return string(v.Value)
		},
		func(results []interface{}) []resp.Frame {
			items := make([][]resp.Frame, len(results))
			for i, res := range results {
				items[i] = resp.Bulk([]byte(res.(string)))
			}
			return resp.Array(items)
		})

	got := readRawReply(t, bufio.NewReader(client))
	want := "*3\r\n$3\r\nv-a\r\n$3\r\nv-b\r\n$3\r\nv-c\r\n"
	if got != want {
		t.Fatalf("FanOut reply = %q, want %q", got, want)
	}
}

func TestFanOutDropsReplyForDisconnectedConnection(t *testing.T) {
	r := newTestRouter(t, 4)
	keys := [][]byte{[]byte("x")}

	server, client := net.Pipe()
	c := conn.New(server)
	conns := weakref.New()
	conns.Register(c)
	conns.Unregister(c) // simulate the connection having closed already
	client.Close()
	server.Close()

	done := make(chan struct{})
	r.FanOut(keys, 0, c.ID, conns,
		func(d *dict.Dict, key []byte) interface{} { return nil },
		func(results []interface{}) []resp.Frame {
			defer close(done)
			return resp.OK()
		})
	<-done // aggregate ran; FanOut must not have tried to write to the closed conn
}
