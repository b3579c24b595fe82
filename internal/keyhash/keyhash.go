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

// Package keyhash wraps SipHash-2-4 with a process-wide 128-bit key, used
// both to route keys to shards (internal/router) and to index dictionary
// buckets (internal/dict). Both layers use the same 64-bit output for a
// given key: the router takes it mod the shard count, a dictionary masks
// its low bits to pick a bucket.
package keyhash

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/dchest/siphash"
)

// Keyer holds the 128-bit SipHash key. The zero value is not usable; build
// one with New or NewWithKey.
type Keyer struct {
	k0, k1 uint64
}

// New returns a Keyer seeded from crypto/rand: a key chosen randomly at
// process start. A fresh key each run means bucket and shard placement are
// not predictable across restarts, which is the point: a single fixed key
// would let a client hash-flood the dictionary by precomputing colliding
// keys offline.
func New() *Keyer {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic("keyhash: failed to seed from crypto/rand: " + err.Error())
	}
	return NewWithKey(seed)
}

// NewWithKey builds a Keyer from an explicit 128-bit key. Used by tests and
// by any future deployment that wants a stable key across restarts (at the
// cost of the anti-flooding property New provides).
func NewWithKey(key [16]byte) *Keyer {
	return &Keyer{
		k0: binary.LittleEndian.Uint64(key[0:8]),
		k1: binary.LittleEndian.Uint64(key[8:16]),
	}
}

// Hash64 returns the SipHash-2-4 of data under this Keyer's key.
func (k *Keyer) Hash64(data []byte) uint64 {
	return siphash.Hash(k.k0, k.k1, data)
}
