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

package command

import (
	"github.com/google/uuid"

	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/object"
	"github.com/kvshard/kvshard/internal/resp"
	"github.com/kvshard/kvshard/internal/weakref"
)

// withDict schedules fn against the dictionary key's shard owns, for the
// connection's currently-selected DB index, and returns immediately
// without waiting for it to run: the connection's read goroutine moves on
// to parsing the next pipelined request rather than blocking on this
// key's shard. The DB index is captured now, not inside the closure,
// since a later SELECT on this same connection must not change which
// dictionary an already-queued command lands on. Once fn has run, its
// reply is delivered from the shard loop's own goroutine.
func withDict(ctx *Context, key []byte, fn func(d *dict.Dict) []resp.Frame) {
	shard := ctx.Router.ShardFor(key)
	db := ctx.Conn.DB
	connID := ctx.Conn.ID
	conns := ctx.Conns
	shard.Loop.ScheduleNowait(func() {
		frames := fn(shard.Dicts[db])
		deliver(conns, connID, frames)
	})
}

// deliver writes frames to the connection identified by id and flushes
// them, unless that connection has since disconnected and dropped out of
// conns — a stale id then silently drops the reply instead of writing to
// a connection nothing references anymore.
func deliver(conns *weakref.Registry, id uuid.UUID, frames []resp.Frame) {
	if conns == nil || frames == nil {
		return
	}
	c := conns.Lookup(id)
	if c == nil {
		return
	}
	c.WriteFrames(frames)
	c.Flush()
}

// liveGet returns key's object if present and not expired, lazily
// deleting it in place if it has expired since the last access.
func liveGet(d *dict.Dict, key []byte) (*object.Object, bool) {
	obj, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	if obj.Expired(object.NowMs()) {
		d.Delete(key)
		return nil, false
	}
	return obj, true
}

// checkStringType applies the type-guard rule every handler reading an
// existing object runs first: only a string-typed, raw-or-int-encoded
// object may be read as a string. Returns nil if obj passes.
func checkStringType(obj *object.Object) []resp.Frame {
	if obj.Type != object.TypeString {
		return resp.Error(errWrongType)
	}
	if obj.Encoding != object.EncodingRaw && obj.Encoding != object.EncodingInt {
		return resp.Error(errWrongType)
	}
	return nil
}
