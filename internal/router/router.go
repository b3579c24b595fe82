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

// Package router maps a key to the shard that owns it, stably for the
// life of the process: siphash(key) mod N, using the same keyed hasher
// every dictionary bucket index is derived from.
package router

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/eventloop"
	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/resp"
	"github.com/kvshard/kvshard/internal/weakref"
)

// DBCount is the number of selectable database indices each shard's loop
// owns, mirroring a conventional fixed database-index range.
const DBCount = 16

// Shard is one event loop plus the DBCount dictionaries it exclusively
// owns. Nothing outside Shard.Loop's own goroutine may touch Dicts.
type Shard struct {
	Loop  *eventloop.Loop
	Dicts [DBCount]*dict.Dict
}

// Router owns every shard and the keyed hasher used both to pick a key's
// shard and, inside each shard's dictionaries, its bucket.
type Router struct {
	hasher *keyhash.Keyer
	shards []*Shard
}

// New builds a Router with n shards, each running its own Loop, using
// hasher for both shard selection and (passed through to every
// dictionary) bucket indexing.
func New(n int, hasher *keyhash.Keyer, queueCapacity int, log *logging.Logger) *Router {
	r := &Router{hasher: hasher, shards: make([]*Shard, n)}
	for i := 0; i < n; i++ {
		s := &Shard{Loop: eventloop.New(queueCapacity, log)}
		for db := 0; db < DBCount; db++ {
			s.Dicts[db] = dict.New(hasher)
		}
		r.shards[i] = s
	}
	return r
}

// Start launches every shard's loop.
func (r *Router) Start() {
	for _, s := range r.shards {
		s.Loop.Start()
	}
}

// Stop drains and stops every shard's loop.
func (r *Router) Stop() {
	for _, s := range r.shards {
		s.Loop.Stop()
	}
}

// NumShards returns the shard count the Router was built with.
func (r *Router) NumShards() int { return len(r.shards) }

// ShardFor returns the shard key is routed to.
func (r *Router) ShardFor(key []byte) *Shard {
	idx := r.hasher.Hash64(key) % uint64(len(r.shards))
	return r.shards[idx]
}

// ShardAt returns the i'th shard directly, for operations (FLUSHALL,
// DBSIZE) that must visit every shard rather than route by key.
func (r *Router) ShardAt(i int) *Shard { return r.shards[i] }

// FanOut runs fn once per key on the shard that owns it, without blocking
// the caller: each key's sub-task is scheduled on its owning shard's loop
// and runs concurrently with the others. This is the routing primitive
// multi-key commands (DEL, MGET, MSET, BITOP) use.
//
// Whichever sub-task finishes last collects every result (in the same
// order keys were given) into aggregate, and writes the frames it
// returns to the connection connID names, found through conns — matching
// "the reply is written exactly once, after the last partial completes."
// A connection that has since disconnected is simply absent from conns,
// so the result is silently dropped rather than written to it.
//
// aggregate may return nil to take over delivery itself (BITOP chains a
// further write after the fan-in completes); FanOut then does not
// deliver anything on its own.
func (r *Router) FanOut(keys [][]byte, dbIndex int, connID uuid.UUID, conns *weakref.Registry, fn func(d *dict.Dict, key []byte) interface{}, aggregate func([]interface{}) []resp.Frame) {
	results := make([]interface{}, len(keys))
	remaining := int64(len(keys))
	for i, key := range keys {
		i, key := i, key
		shard := r.ShardFor(key)
		shard.Loop.ScheduleNowait(func() {
			results[i] = fn(shard.Dicts[dbIndex], key)
			if atomic.AddInt64(&remaining, -1) != 0 {
				return
			}
			frames := aggregate(results)
			if frames == nil {
				return
			}
			c := conns.Lookup(connID)
			if c == nil {
				return
			}
			c.WriteFrames(frames)
			c.Flush()
		})
	}
}
