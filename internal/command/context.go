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

// Package command implements the name-to-handler registry and the
// handlers themselves: every command a connection can send once parsed
// into an argument list.
package command

import (
	"github.com/kvshard/kvshard/internal/conn"
	"github.com/kvshard/kvshard/internal/persist"
	"github.com/kvshard/kvshard/internal/resp"
	"github.com/kvshard/kvshard/internal/router"
	"github.com/kvshard/kvshard/internal/weakref"
)

// Context is everything a handler needs beyond its own arguments: which
// connection issued the command (for its DB index and to mutate it on
// SELECT/QUIT), the router to find owning shards, the weak registry a
// shard-loop completion uses to find this connection again once its work
// is done, and the optional persistence store write-through goes to.
type Context struct {
	Conn    *conn.Conn
	Router  *router.Router
	Conns   *weakref.Registry
	Persist *persist.Store // nil when running memory-only
	Quit    bool           // set by the quit handler; caller closes after replying
}

// reply queues frames on the connection that issued the command without
// flushing. Used by handlers that answer synchronously, on the
// connection's own read goroutine; the read loop flushes once it has
// drained every pipelined request from the current read. Handlers whose
// work runs on a shard loop instead deliver through deliver(), which
// flushes immediately since no read loop iteration is coming to do it
// for them.
func (ctx *Context) reply(frames []resp.Frame) {
	ctx.Conn.WriteFrames(frames)
}
