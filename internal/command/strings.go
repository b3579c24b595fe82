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
	"math"
	"strconv"

	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/object"
	"github.com/kvshard/kvshard/internal/resp"
)

func persistAsync(ctx *Context, key []byte, obj *object.Object) {
	if ctx.Persist == nil {
		return
	}
	go func() {
		_ = ctx.Persist.PutString(key, obj)
	}()
}

func persistDeleteAsync(ctx *Context, key []byte) {
	if ctx.Persist == nil {
		return
	}
	go func() {
		_ = ctx.Persist.DeleteString(key)
	}()
}

func cmdGet(ctx *Context, args [][]byte) {
	key := args[1]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.NilBulk()
		}
		if errFrame := checkStringType(obj); errFrame != nil {
			return errFrame
		}
		return resp.Bulk(object.ToBytes(obj))
	})
}

func cmdSet(ctx *Context, args [][]byte) {
	key, val := args[1], args[2]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj := object.NewRaw(key, val)
		if prev, ok := d.Get(key); ok {
			obj.Version = prev.Version + 1
		}
		d.Set(key, obj)
		persistAsync(ctx, key, obj)
		return resp.OK()
	})
}

func cmdAppend(ctx *Context, args [][]byte) {
	key, add := args[1], args[2]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			n := object.NewRaw(key, add)
			d.Set(key, n)
			persistAsync(ctx, key, n)
			return resp.Integer(int64(len(add)))
		}
		if errFrame := checkStringType(obj); errFrame != nil {
			return errFrame
		}
		base := object.ToBytes(obj)
		merged := make([]byte, 0, len(base)+len(add))
		merged = append(merged, base...)
		merged = append(merged, add...)
		n := &object.Object{Type: object.TypeString, Encoding: object.EncodingRaw, Version: obj.Version + 1, ExpireMs: obj.ExpireMs, Key: key, Value: merged}
		d.Set(key, n)
		persistAsync(ctx, key, n)
		return resp.Integer(int64(len(merged)))
	})
}

func cmdGetSet(ctx *Context, args [][]byte) {
	key, val := args[1], args[2]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		var prevFrame []resp.Frame
		prevObj, ok := liveGet(d, key)
		if !ok {
			prevFrame = resp.NilBulk()
		} else if errFrame := checkStringType(prevObj); errFrame != nil {
			return errFrame
		} else {
			prevFrame = resp.Bulk(object.ToBytes(prevObj))
		}
		n := object.NewRaw(key, val)
		if ok {
			n.Version = prevObj.Version + 1
		}
		d.Set(key, n)
		persistAsync(ctx, key, n)
		return prevFrame
	})
}

func cmdStrlen(ctx *Context, args [][]byte) {
	key := args[1]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.Integer(0)
		}
		if errFrame := checkStringType(obj); errFrame != nil {
			return errFrame
		}
		return resp.Integer(int64(len(object.ToBytes(obj))))
	})
}

func cmdMGet(ctx *Context, args [][]byte) {
	keys := args[1:]
	ctx.Router.FanOut(keys, ctx.Conn.DB, ctx.Conn.ID, ctx.Conns,
		func(d *dict.Dict, key []byte) interface{} {
			obj, ok := liveGet(d, key)
			if !ok || checkStringType(obj) != nil {
				return nil
			}
			return object.ToBytes(obj)
		},
		func(results []interface{}) []resp.Frame {
			items := make([][]resp.Frame, len(results))
			for i, r := range results {
				if r == nil {
					items[i] = resp.NilBulk()
				} else {
					items[i] = resp.Bulk(r.([]byte))
				}
			}
			return resp.Array(items)
		})
}

func cmdMSet(ctx *Context, args [][]byte) {
	pairs := args[1:]
	if len(pairs)%2 != 0 {
		ctx.reply(resp.Error(errMsetArgs))
		return
	}
	keys := make([][]byte, 0, len(pairs)/2)
	vals := make(map[string][]byte, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, v := pairs[i], pairs[i+1]
		keys = append(keys, k)
		vals[string(k)] = v
	}
	ctx.Router.FanOut(keys, ctx.Conn.DB, ctx.Conn.ID, ctx.Conns,
		func(d *dict.Dict, key []byte) interface{} {
			val := vals[string(key)]
			obj := object.NewRaw(key, val)
			if prev, ok := d.Get(key); ok {
				obj.Version = prev.Version + 1
			}
			d.Set(key, obj)
			persistAsync(ctx, key, obj)
			return nil
		},
		func(results []interface{}) []resp.Frame {
			return resp.OK()
		})
}

func cmdDel(ctx *Context, args [][]byte) {
	keys := args[1:]
	ctx.Router.FanOut(keys, ctx.Conn.DB, ctx.Conn.ID, ctx.Conns,
		func(d *dict.Dict, key []byte) interface{} {
			_, existed := liveGet(d, key)
			if existed {
				d.Delete(key)
				persistDeleteAsync(ctx, key)
			}
			return existed
		},
		func(results []interface{}) []resp.Frame {
			var n int64
			for _, r := range results {
				if r.(bool) {
					n++
				}
			}
			return resp.Integer(n)
		})
}

func cmdExists(ctx *Context, args [][]byte) {
	keys := args[1:]
	ctx.Router.FanOut(keys, ctx.Conn.DB, ctx.Conn.ID, ctx.Conns,
		func(d *dict.Dict, key []byte) interface{} {
			_, ok := liveGet(d, key)
			return ok
		},
		func(results []interface{}) []resp.Frame {
			var n int64
			for _, r := range results {
				if r.(bool) {
					n++
				}
			}
			return resp.Integer(n)
		})
}

func cmdType(ctx *Context, args [][]byte) {
	key := args[1]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.SimpleString("none")
		}
		switch obj.Type {
		case object.TypeString:
			return resp.SimpleString("string")
		case object.TypeList:
			return resp.SimpleString("list")
		case object.TypeHash:
			return resp.SimpleString("hash")
		case object.TypeSet:
			return resp.SimpleString("set")
		case object.TypeZSet:
			return resp.SimpleString("zset")
		default:
			return resp.SimpleString("none")
		}
	})
}

func parseInt64(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func cmdIncr(ctx *Context, args [][]byte) {
	incrBy(ctx, args[1], 1)
}

func cmdIncrBy(ctx *Context, args [][]byte) {
	delta, ok := parseInt64(args[2])
	if !ok {
		ctx.reply(resp.Error(errNotInteger))
		return
	}
	incrBy(ctx, args[1], delta)
}

func cmdDecr(ctx *Context, args [][]byte) {
	incrBy(ctx, args[1], -1)
}

func cmdDecrBy(ctx *Context, args [][]byte) {
	delta, ok := parseInt64(args[2])
	if !ok {
		ctx.reply(resp.Error(errNotInteger))
		return
	}
	incrBy(ctx, args[1], -delta)
}

func incrBy(ctx *Context, key []byte, delta int64) {
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		var cur int64
		var version uint16
		var expireMs int64
		if ok {
			if errFrame := checkStringType(obj); errFrame != nil {
				return errFrame
			}
			v, parsed := object.ToInt64(obj)
			if !parsed {
				return resp.Error(errNotInteger)
			}
			cur = v
			version = obj.Version + 1
			expireMs = obj.ExpireMs
		}
		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			return resp.Error(errOverflow)
		}
		next := cur + delta
		n := object.NewInt(key, next)
		n.Version = version
		n.ExpireMs = expireMs
		d.Set(key, n)
		persistAsync(ctx, key, n)
		return resp.Integer(next)
	})
}
