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
	"strconv"
	"strings"

	"github.com/kvshard/kvshard/internal/bitops"
	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/object"
	"github.com/kvshard/kvshard/internal/resp"
)

func cmdSetBit(ctx *Context, args [][]byte) {
	key := args[1]
	offset, ok := parseInt64(args[2])
	if !ok || offset < 0 || uint64(offset) >= bitops.MaxOffsetBits {
		ctx.reply(resp.Error(errBitOffset))
		return
	}
	bit, ok := parseInt64(args[3])
	if !ok || (bit != 0 && bit != 1) {
		ctx.reply(resp.Error(errBitOffset))
		return
	}
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		var base []byte
		var version uint16
		var expireMs int64
		if ok {
			if errFrame := checkStringType(obj); errFrame != nil {
				return errFrame
			}
			base = object.ToBytes(obj)
			version = obj.Version + 1
			expireMs = obj.ExpireMs
		}
		newBuf, prev := bitops.SetBit(base, uint64(offset), int(bit))
		n := &object.Object{Type: object.TypeString, Encoding: object.EncodingRaw, Version: version, ExpireMs: expireMs, Key: key, Value: newBuf}
		d.Set(key, n)
		persistAsync(ctx, key, n)
		return resp.Integer(int64(prev))
	})
}

func cmdGetBit(ctx *Context, args [][]byte) {
	key := args[1]
	offset, ok := parseInt64(args[2])
	if !ok || offset < 0 || uint64(offset) >= bitops.MaxOffsetBits {
		ctx.reply(resp.Error(errBitOffset))
		return
	}
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.Integer(0)
		}
		if errFrame := checkStringType(obj); errFrame != nil {
			return errFrame
		}
		return resp.Integer(int64(bitops.GetBit(object.ToBytes(obj), uint64(offset))))
	})
}

func cmdBitCount(ctx *Context, args [][]byte) {
	key := args[1]
	hasRange := len(args) == 4
	if len(args) != 2 && len(args) != 4 {
		ctx.reply(resp.Error(errSyntax))
		return
	}
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.Integer(0)
		}
		if errFrame := checkStringType(obj); errFrame != nil {
			return errFrame
		}
		buf := object.ToBytes(obj)
		start, end := 0, len(buf)-1
		if hasRange {
			s, ok1 := parseInt64(args[2])
			e, ok2 := parseInt64(args[3])
			if !ok1 || !ok2 {
				return resp.Error(errNotInteger)
			}
			start, end = normalizeRange(int(s), int(e), len(buf))
		}
		if start > end || len(buf) == 0 {
			return resp.Integer(0)
		}
		return resp.Integer(bitops.Count(buf[start : end+1]))
	})
}

func normalizeRange(start, end, length int) (int, int) {
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if start > length-1 {
		start = length - 1
	}
	if end > length-1 {
		end = length - 1
	}
	return start, end
}

func cmdBitOp(ctx *Context, args [][]byte) {
	opName := strings.ToUpper(string(args[1]))
	dst := args[2]
	srcKeys := args[3:]
	var op bitops.Op
	switch opName {
	case "AND":
		op = bitops.OpAnd
	case "OR":
		op = bitops.OpOr
	case "XOR":
		op = bitops.OpXor
	case "NOT":
		op = bitops.OpNot
		if len(srcKeys) != 1 {
			ctx.reply(resp.Error(errSyntax))
			return
		}
	default:
		ctx.reply(resp.Error(errSyntax))
		return
	}

	db := ctx.Conn.DB
	connID := ctx.Conn.ID
	conns := ctx.Conns
	router := ctx.Router

	// The fan-in over the source keys and the write of the destination
	// key run on two different shards' loops; aggregate returns nil to
	// tell FanOut not to deliver on its own, since the real reply isn't
	// ready until the destination write below also completes.
	router.FanOut(srcKeys, db, connID, conns,
		func(d *dict.Dict, key []byte) interface{} {
			obj, ok := liveGet(d, key)
			if !ok || checkStringType(obj) != nil {
				return []byte(nil)
			}
			return object.ToBytes(obj)
		},
		func(results []interface{}) []resp.Frame {
			operands := make([][]byte, len(results))
			for i, r := range results {
				operands[i] = r.([]byte)
			}
			out := bitops.Apply(op, operands)

			dstShard := router.ShardFor(dst)
			dstShard.Loop.ScheduleNowait(func() {
				d := dstShard.Dicts[db]
				if len(out) > 0 {
					var version uint16
					if prev, ok := d.Get(dst); ok {
						version = prev.Version + 1
					}
					n := &object.Object{Type: object.TypeString, Encoding: object.EncodingRaw, Version: version, Key: dst, Value: out}
					d.Set(dst, n)
					persistAsync(ctx, dst, n)
				}
				deliver(conns, connID, resp.Integer(int64(len(out))))
			})
			return nil
		})
}

func cmdBitPos(ctx *Context, args [][]byte) {
	key := args[1]
	bit, ok := parseInt64(args[2])
	if !ok || (bit != 0 && bit != 1) {
		ctx.reply(resp.Error(errSyntax))
		return
	}
	endGiven := len(args) >= 5
	var startArg, endArg int64 = 0, -1
	var err error
	if len(args) >= 4 {
		startArg, err = strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil {
			ctx.reply(resp.Error(errNotInteger))
			return
		}
	}
	if len(args) >= 5 {
		endArg, err = strconv.ParseInt(string(args[4]), 10, 64)
		if err != nil {
			ctx.reply(resp.Error(errNotInteger))
			return
		}
	}
	if len(args) > 5 {
		ctx.reply(resp.Error(errSyntax))
		return
	}

	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			if bit == 0 {
				return resp.Integer(0)
			}
			return resp.Integer(-1)
		}
		if errFrame := checkStringType(obj); errFrame != nil {
			return errFrame
		}
		buf := object.ToBytes(obj)
		start, end := normalizeRange(int(startArg), int(endArg), len(buf))
		if len(buf) == 0 || start > end {
			if bit == 0 {
				return resp.Integer(int64(len(buf) * 8))
			}
			return resp.Integer(-1)
		}
		region := buf[start : end+1]
		pos := findBit(region, int(bit))
		if pos == -1 {
			if bit == 0 && !endGiven {
				return resp.Integer(int64(len(buf) * 8))
			}
			return resp.Integer(-1)
		}
		return resp.Integer(int64(start*8 + pos))
	})
}

// findBit scans region MSB-first for the first byte-relative bit equal to
// want, returning its 0-based position within region, or -1 if none.
func findBit(region []byte, want int) int {
	for i, b := range region {
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			v := int((b >> uint(7-bitIdx)) & 1)
			if v == want {
				return i*8 + bitIdx
			}
		}
	}
	return -1
}
