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

// Package dict implements an incrementally-rehashed, open-chaining hash
// table: two sub-tables, lookups that rehash a little as a side effect,
// inserts that always land in the active table.
//
// A Dict is not safe for concurrent use. Each shard's dictionaries belong
// to exactly one event loop; nothing outside that loop ever touches one,
// so there is no lock here to take.
package dict

import (
	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/object"
)

// entry is an intrusive singly-linked chain node. The dictionary owns the
// entry and its object; no key/value bytes are copied when an entry
// migrates between tables during rehash, only the pointer moves.
type entry struct {
	hash uint64
	key  []byte
	val  *object.Object
	next *entry
}

type table struct {
	buckets  []*entry
	size     uint64 // power of two, 0 for an unallocated table
	sizemask uint64
	used     uint64
}

func newTable(size uint64) table {
	return table{buckets: make([]*entry, size), size: size, sizemask: size - 1}
}

// minSize is the smallest table this dictionary ever allocates.
const minSize = 4

// growThreshold is the load factor (used/size) that triggers an expansion:
// the standard rehash-on-0.75 rule.
const growThreshold = 0.75

// Dict is one incrementally-rehashed dictionary, e.g. one of a shard's 16
// per-DB-index tables.
type Dict struct {
	t         [2]table
	rehashidx int64 // -1 when not rehashing, else the next T[1] bucket to migrate
	hasher    *keyhash.Keyer
}

// New returns an empty, unallocated dictionary. The first Insert lazily
// allocates T[0] at minSize.
func New(hasher *keyhash.Keyer) *Dict {
	return &Dict{rehashidx: -1, hasher: hasher}
}

// Hasher returns the keyed hasher this dictionary routes bucket placement
// through, so a caller replacing a dictionary wholesale (e.g. FLUSHDB) can
// build its replacement with the same hasher.
func (d *Dict) Hasher() *keyhash.Keyer { return d.hasher }

func (d *Dict) rehashing() bool { return d.rehashidx != -1 }

func (d *Dict) hashOf(key []byte) uint64 { return d.hasher.Hash64(key) }

// Get looks up key, performing one rehash step as a side effect if a
// rehash is in progress. It does not consider expiry; callers
// that care about TTL semantics check object.Expired themselves, since
// some callers (SET's version bump) want the raw entry.
func (d *Dict) Get(key []byte) (*object.Object, bool) {
	if d.rehashing() {
		d.RehashStep(1)
	}
	h := d.hashOf(key)
	if e := find(&d.t[0], h, key); e != nil {
		return e.val, true
	}
	if d.rehashing() {
		if e := find(&d.t[1], h, key); e != nil {
			return e.val, true
		}
	}
	return nil, false
}

func find(t *table, h uint64, key []byte) *entry {
	if t.size == 0 {
		return nil
	}
	idx := h & t.sizemask
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == h && bytesEqual(e.key, key) {
			return e
		}
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Insert adds a new entry for key/val. It does not check for an existing
// key first — that is the caller's responsibility (look up first, mutate
// in place, or insert). Insert always lands in T[0] and may trigger an
// expansion beforehand.
func (d *Dict) Insert(key []byte, val *object.Object) {
	d.maybeExpand()
	h := d.hashOf(key)
	idx := h & d.t[0].sizemask
	d.t[0].buckets[idx] = &entry{hash: h, key: key, val: val, next: d.t[0].buckets[idx]}
	d.t[0].used++
}

// Set mutates the existing entry for key in place if present, else inserts
// a new one. This is the convenience wrapper command handlers use; Get+
// Insert remain available separately for callers that need the
// lower-level control.
func (d *Dict) Set(key []byte, val *object.Object) {
	h := d.hashOf(key)
	if e := find(&d.t[0], h, key); e != nil {
		e.val = val
		return
	}
	if d.rehashing() {
		if e := find(&d.t[1], h, key); e != nil {
			e.val = val
			return
		}
	}
	d.Insert(key, val)
}

// Delete removes key if present, checking both tables while a rehash is in
// progress, and reports whether it found anything to remove.
func (d *Dict) Delete(key []byte) bool {
	h := d.hashOf(key)
	if deleteFrom(&d.t[0], h, key) {
		return true
	}
	if d.rehashing() && deleteFrom(&d.t[1], h, key) {
		return true
	}
	return false
}

func deleteFrom(t *table, h uint64, key []byte) bool {
	if t.size == 0 {
		return false
	}
	idx := h & t.sizemask
	var prev *entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == h && bytesEqual(e.key, key) {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.used--
			return true
		}
		prev = e
	}
	return false
}

// Size is the total live entry count across both tables.
func (d *Dict) Size() uint64 { return d.t[0].used + d.t[1].used }

// maybeExpand grows the dictionary when it's sufficiently loaded and no
// rehash is already under way.
func (d *Dict) maybeExpand() {
	if d.rehashing() {
		return
	}
	if d.t[0].size == 0 {
		d.t[0] = newTable(minSize)
		return
	}
	if float64(d.t[0].used)/float64(d.t[0].size) <= growThreshold {
		return
	}
	newSize := nextPowerOfTwo(d.t[0].size * 2)
	if newSize < minSize {
		newSize = minSize
	}
	old := d.t[0]
	d.t[1] = old
	d.t[0] = newTable(newSize)
	if old.used > 0 {
		d.rehashidx = 0
	} else {
		// nothing to migrate: finish immediately, freeing T[1]
		d.t[1] = table{}
	}
}

// RehashStep migrates up to n source buckets from T[1] into T[0]. It is a
// no-op if no rehash is in progress. Buckets, not entries, are the unit of
// work, so a single very long chain can't make one step unboundedly
// expensive relative to its neighbors — though it can still be slow in
// absolute terms, an accepted tradeoff for chains that pathological key
// distributions create.
func (d *Dict) RehashStep(n int) {
	if !d.rehashing() {
		return
	}
	for n > 0 && d.rehashidx < int64(d.t[1].size) {
		bucket := d.t[1].buckets[d.rehashidx]
		for bucket != nil {
			next := bucket.next
			idx := bucket.hash & d.t[0].sizemask
			bucket.next = d.t[0].buckets[idx]
			d.t[0].buckets[idx] = bucket
			d.t[0].used++
			d.t[1].used--
			bucket = next
		}
		d.t[1].buckets[d.rehashidx] = nil
		d.rehashidx++
		n--
	}
	if d.rehashidx >= int64(d.t[1].size) {
		d.rehashidx = -1
		d.t[1] = table{}
	}
}

// Rehashing reports whether a rehash is currently in progress, exposed for
// tests and diagnostics (e.g. an INFO-style command reporting dict state).
func (d *Dict) Rehashing() bool { return d.rehashing() }

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
