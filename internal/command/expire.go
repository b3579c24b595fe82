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
	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/object"
	"github.com/kvshard/kvshard/internal/resp"
)

func cmdExpire(ctx *Context, args [][]byte) {
	seconds, ok := parseInt64(args[2])
	if !ok {
		ctx.reply(resp.Error(errNotInteger))
		return
	}
	setExpire(ctx, args[1], seconds*1000)
}

func cmdPExpire(ctx *Context, args [][]byte) {
	ms, ok := parseInt64(args[2])
	if !ok {
		ctx.reply(resp.Error(errNotInteger))
		return
	}
	setExpire(ctx, args[1], ms)
}

func setExpire(ctx *Context, key []byte, deltaMs int64) {
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.Integer(0)
		}
		obj.ExpireMs = object.NowMs() + deltaMs
		obj.Version++
		persistAsync(ctx, key, obj)
		return resp.Integer(1)
	})
}

func cmdTTL(ctx *Context, args [][]byte) {
	key := args[1]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.Integer(-2)
		}
		if obj.ExpireMs == 0 {
			return resp.Integer(-1)
		}
		remaining := obj.ExpireMs - object.NowMs()
		if remaining < 0 {
			remaining = 0
		}
		return resp.Integer(remaining / 1000)
	})
}

func cmdPTTL(ctx *Context, args [][]byte) {
	key := args[1]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok {
			return resp.Integer(-2)
		}
		if obj.ExpireMs == 0 {
			return resp.Integer(-1)
		}
		remaining := obj.ExpireMs - object.NowMs()
		if remaining < 0 {
			remaining = 0
		}
		return resp.Integer(remaining)
	})
}

func cmdPersist(ctx *Context, args [][]byte) {
	key := args[1]
	withDict(ctx, key, func(d *dict.Dict) []resp.Frame {
		obj, ok := liveGet(d, key)
		if !ok || obj.ExpireMs == 0 {
			return resp.Integer(0)
		}
		obj.ExpireMs = 0
		obj.Version++
		persistAsync(ctx, key, obj)
		return resp.Integer(1)
	})
}
