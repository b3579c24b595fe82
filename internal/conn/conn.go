/*
Copyright (C) 2026  The kvshard Authors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package conn holds per-connection state: the inbound byte buffer and
// resumable parser, the outbound write queue, and which database index
// the connection has SELECTed.
package conn

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/kvshard/kvshard/internal/buf"
	"github.com/kvshard/kvshard/internal/connid"
	"github.com/kvshard/kvshard/internal/resp"
)

// Conn is one client connection's state. In and Parser are only ever
// touched by the connection's own read goroutine; Out is guarded by
// outMu since shard worker completions write replies from other
// goroutines.
type Conn struct {
	ID     uuid.UUID
	Net    net.Conn
	In     *buf.Buffer
	Parser *resp.Parser
	DB     int

	outMu sync.Mutex
	out   net.Buffers

	closing bool
}

// New wraps nc as a fresh connection with a freshly generated id, DB
// index 0, and empty buffers.
func New(nc net.Conn) *Conn {
	return &Conn{
		ID:     connid.New(),
		Net:    nc,
		In:     buf.New(),
		Parser: resp.NewParser(),
	}
}

// WriteFrames queues frames for the next flush. Safe to call from any
// goroutine, including a shard worker completion writing a reply that
// did not originate from this connection's own read loop.
func (c *Conn) WriteFrames(frames []resp.Frame) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.closing {
		return
	}
	c.out = append(c.out, frames...)
}

// Flush writes every queued frame to the socket in one vectored write and
// clears the queue.
func (c *Conn) Flush() error {
	c.outMu.Lock()
	pending := c.out
	c.out = nil
	c.outMu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	_, err := pending.WriteTo(c.Net)
	return err
}

// Close marks the connection as closing (further WriteFrames calls are
// dropped) and closes the underlying socket.
func (c *Conn) Close() error {
	c.outMu.Lock()
	c.closing = true
	c.outMu.Unlock()
	return c.Net.Close()
}
