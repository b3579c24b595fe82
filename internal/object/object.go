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

// Package object implements a tagged value model: typed, versioned,
// optionally-expiring objects held in a shard's dictionary. Only the
// string type (raw bytes or 8-byte int encoding) is implemented; list/
// hash/set/zset are reserved tags that the command layer rejects with
// WRONGTYPE.
package object

import (
	"encoding/binary"
	"strconv"
	"time"
)

// Type tags the kind of value a key holds. Only TypeString is implemented;
// the others are reserved so a future command set can grow into them
// without renumbering.
type Type uint8

const (
	TypeNone Type = iota
	TypeString
	TypeList
	TypeHash
	TypeSet
	TypeZSet
)

// Encoding tags how a string-typed value's bytes are interpreted.
type Encoding uint8

const (
	EncodingRaw Encoding = iota // arbitrary bytes, including bitmaps
	EncodingInt                 // exactly 8 bytes, little-endian signed int64
)

// MaxRawValueBytes bounds a raw-encoded value: a bitmap offset must stay
// below 2^32 bits, so the backing byte index stays below 2^32/8 = 512 MiB.
const MaxRawValueBytes = 512 * 1024 * 1024

// Object is one value in a dictionary. Key is a back-pointer to the owning
// byte string so callers that only have an *Object can still log or persist
// the key without threading it through separately.
type Object struct {
	Type     Type
	Encoding Encoding
	Version  uint16
	ExpireMs int64 // 0 = no expiry, else absolute epoch-milliseconds deadline
	Key      []byte
	Value    []byte
}

// NewRaw builds a string object with raw byte encoding.
func NewRaw(key, value []byte) *Object {
	return &Object{Type: TypeString, Encoding: EncodingRaw, Key: key, Value: append([]byte(nil), value...)}
}

// NewInt builds a string object with 8-byte little-endian int encoding.
func NewInt(key []byte, v int64) *Object {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return &Object{Type: TypeString, Encoding: EncodingInt, Key: key, Value: buf}
}

// Expired reports whether now (epoch-ms) is past this object's deadline.
// An object with ExpireMs == 0 never expires.
func (o *Object) Expired(nowMs int64) bool {
	return o.ExpireMs > 0 && nowMs >= o.ExpireMs
}

// NowMs is the single place that converts wall-clock time to the
// epoch-millisecond unit expiry deadlines and the persistence layer's meta
// records are expressed in.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// ToBytes renders o's value as its external byte form: int-encoded values
// render as decimal ASCII, raw-encoded values are returned as-is.
func ToBytes(o *Object) []byte {
	if o.Encoding == EncodingInt {
		v := int64(binary.LittleEndian.Uint64(o.Value))
		return []byte(strconv.FormatInt(v, 10))
	}
	return o.Value
}

// ToInt64 interprets o's value as an integer: int-encoded values decode
// their 8 bytes directly; raw-encoded values are parsed as decimal ASCII.
// ok is false if a raw value does not parse cleanly as an integer.
func ToInt64(o *Object) (v int64, ok bool) {
	if o.Encoding == EncodingInt {
		return int64(binary.LittleEndian.Uint64(o.Value)), true
	}
	n, err := strconv.ParseInt(string(o.Value), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
