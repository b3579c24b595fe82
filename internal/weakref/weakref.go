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

// Package weakref holds the registry of live connections that worker-
// thread completions consult to find a connection by id without keeping
// a direct pointer that would prevent it from being garbage collected
// once the client disconnects. Completions look the connection up by id
// each time; a missing entry means the connection is already gone and the
// result is silently dropped.
package weakref

import (
	"github.com/google/uuid"

	"github.com/kvshard/kvshard/internal/conn"
	nlrm "github.com/kvshard/nonlockingreadmap"
)

// slot adapts a *conn.Conn to the read-optimized map's KeyGetter
// contract: a stable, comparable key plus a size estimate for
// diagnostics.
type slot struct {
	id uuid.UUID
	c  *conn.Conn
}

func (s slot) GetKey() string    { return s.id.String() }
func (s slot) ComputeSize() uint { return 32 }

// Registry is the process-wide id-to-connection lookup: read-heavy (every
// worker completion looks one up), write-seldom (one insert on accept,
// one removal on close).
type Registry struct {
	m nlrm.NonLockingReadMap[slot, string]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{m: nlrm.New[slot, string]()}
}

// Register adds c under its connection id, making it visible to Lookup
// from any goroutine.
func (r *Registry) Register(c *conn.Conn) {
	r.m.Set(&slot{id: c.ID, c: c})
}

// Unregister removes c's entry. Call this once, when the connection
// closes; any in-flight worker completion that looks it up afterward
// finds nothing and drops its result instead of writing to a closed
// connection.
func (r *Registry) Unregister(c *conn.Conn) {
	r.m.Remove(c.ID.String())
}

// Lookup returns the live connection for id, or nil if it has since
// disconnected.
func (r *Registry) Lookup(id uuid.UUID) *conn.Conn {
	s := r.m.Get(id.String())
	if s == nil {
		return nil
	}
	return s.c
}
