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

// Package buf implements a growable byte region with independent read and
// write cursors, decoupling how much a connection has read off the wire
// from how much the RESP parser has consumed so far.
package buf

const (
	initialCapacity = 4 * 1024
	doublingCap     = 64 * 1024
	growStep        = 64 * 1024
)

// Buffer is a single contiguous byte region with a read cursor and a write
// cursor. Bytes in [0, readIdx) have been consumed by the parser and are
// reclaimed when AdvanceRead fully drains the buffer or Expand compacts
// it; bytes in
// [readIdx, writeIdx) are readable; bytes in [writeIdx, len(data)) are free
// space a network read can land in.
type Buffer struct {
	data     []byte
	readIdx  int
	writeIdx int
}

// New returns an empty Buffer with a small initial backing array.
func New() *Buffer {
	return &Buffer{data: make([]byte, initialCapacity)}
}

// Readable returns the number of unconsumed bytes.
func (b *Buffer) Readable() int { return b.writeIdx - b.readIdx }

// Writable returns the number of free bytes at the tail of the backing array.
func (b *Buffer) Writable() int { return len(b.data) - b.writeIdx }

// ReadPtr returns the unconsumed bytes without copying.
func (b *Buffer) ReadPtr() []byte { return b.data[b.readIdx:b.writeIdx] }

// AdvanceRead marks n bytes as consumed. It panics if n exceeds Readable,
// since that indicates a parser bug, not a recoverable protocol condition.
func (b *Buffer) AdvanceRead(n int) {
	if n > b.Readable() {
		panic("buf: AdvanceRead beyond readable region")
	}
	b.readIdx += n
	if b.readIdx == b.writeIdx {
		// fully drained: reclaim the whole array for the next request
		b.readIdx = 0
		b.writeIdx = 0
	}
}

// WritePtr returns the free space at the tail, for a network read to fill.
// Callers must follow a fill with AdvanceWrite.
func (b *Buffer) WritePtr() []byte { return b.data[b.writeIdx:] }

// AdvanceWrite marks n freshly written bytes as readable.
func (b *Buffer) AdvanceWrite(n int) {
	if n > b.Writable() {
		panic("buf: AdvanceWrite beyond writable region")
	}
	b.writeIdx += n
}

// Expand grows the backing array so that Writable() >= atLeast, compacting
// the unconsumed region to the front first. Growth doubles capacity up to
// 64 KiB, then proceeds in 64 KiB increments.
func (b *Buffer) Expand(atLeast int) {
	if b.Writable() >= atLeast {
		return
	}
	// compact first: slide the unconsumed region to offset 0
	readable := b.Readable()
	if b.readIdx > 0 {
		copy(b.data, b.data[b.readIdx:b.writeIdx])
		b.readIdx = 0
		b.writeIdx = readable
	}
	if b.Writable() >= atLeast {
		return
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = initialCapacity
	}
	for newCap-b.writeIdx < atLeast {
		if newCap < doublingCap {
			newCap *= 2
		} else {
			newCap += growStep
		}
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.writeIdx])
	b.data = grown
}

// EnsureWritable grows the buffer (if needed) so at least n bytes are
// writable, then returns the writable slice. Convenience wrapper around
// Expand+WritePtr for read-from-socket call sites.
func (b *Buffer) EnsureWritable(n int) []byte {
	b.Expand(n)
	return b.WritePtr()
}
