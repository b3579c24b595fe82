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

package persist

import (
	"github.com/pierrec/lz4/v4"
)

// compressThreshold is the raw value size above which a data row is
// stored lz4-compressed instead of verbatim. Framed with a one-byte
// marker so the meta record layout (fixed at 12 bytes, matching the
// wire's documented meta record) carries no knowledge of compression.
const compressThreshold = 4096

const (
	markerRaw       byte = 0
	markerCompressed byte = 1
)

func frameData(value []byte) []byte {
	if len(value) < compressThreshold {
		out := make([]byte, 1+len(value))
		out[0] = markerRaw
		copy(out[1:], value)
		return out
	}
	bound := lz4.CompressBlockBound(len(value))
	compressed := make([]byte, bound)
	var c lz4.Compressor
	n, err := c.CompressBlock(value, compressed)
	if err != nil || n == 0 || n >= len(value) {
		out := make([]byte, 1+len(value))
		out[0] = markerRaw
		copy(out[1:], value)
		return out
	}
	out := make([]byte, 1+4+n)
	out[0] = markerCompressed
	out[1] = byte(len(value))
	out[2] = byte(len(value) >> 8)
	out[3] = byte(len(value) >> 16)
	out[4] = byte(len(value) >> 24)
	copy(out[5:], compressed[:n])
	return out
}

func unframeData(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, nil
	}
	marker := framed[0]
	body := framed[1:]
	if marker == markerRaw {
		return append([]byte(nil), body...), nil
	}
	origLen := int(body[0]) | int(body[1])<<8 | int(body[2])<<16 | int(body[3])<<24
	out := make([]byte, origLen)
	n, err := lz4.UncompressBlock(body[4:], out)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
