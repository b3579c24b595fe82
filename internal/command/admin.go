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

	"github.com/kvshard/kvshard/internal/dict"
	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/resp"
	"github.com/kvshard/kvshard/internal/router"
)

func cmdPing(ctx *Context, args [][]byte) {
	if len(args) > 2 {
		ctx.reply(errWrongArity("ping"))
		return
	}
	if len(args) == 2 {
		ctx.reply(resp.Bulk(args[1]))
		return
	}
	ctx.reply(resp.SimpleString("PONG"))
}

func cmdQuit(ctx *Context, args [][]byte) {
	ctx.Quit = true
	ctx.reply(resp.OK())
}

func cmdSelect(ctx *Context, args [][]byte) {
	n, err := strconv.Atoi(string(args[1]))
	if err != nil {
		ctx.reply(resp.Error(errDBIndexNotInt))
		return
	}
	if n < 0 || n >= router.DBCount {
		ctx.reply(resp.Error(errDBIndexRange))
		return
	}
	ctx.Conn.DB = n
	ctx.reply(resp.OK())
}

func cmdFlushDB(ctx *Context, args [][]byte) {
	db := ctx.Conn.DB
	for i := 0; i < ctx.Router.NumShards(); i++ {
		shard := ctx.Router.ShardAt(i)
		shard.Loop.ScheduleWait(func() {
			shard.Dicts[db] = dict.New(hasherOf(shard))
		})
	}
	ctx.reply(resp.OK())
}

func cmdFlushAll(ctx *Context, args [][]byte) {
	for i := 0; i < ctx.Router.NumShards(); i++ {
		shard := ctx.Router.ShardAt(i)
		shard.Loop.ScheduleWait(func() {
			h := hasherOf(shard)
			for db := range shard.Dicts {
				shard.Dicts[db] = dict.New(h)
			}
		})
	}
	ctx.reply(resp.OK())
}

// hasherOf recovers the keyed hasher a shard's dictionaries already use,
// so FLUSHDB/FLUSHALL's replacement dictionaries keep hashing the same
// way as the ones they replace.
func hasherOf(shard *router.Shard) *keyhash.Keyer {
	for _, d := range shard.Dicts {
		if d != nil {
			return d.Hasher()
		}
	}
	return keyhash.New()
}

func cmdDBSize(ctx *Context, args [][]byte) {
	db := ctx.Conn.DB
	var total uint64
	for i := 0; i < ctx.Router.NumShards(); i++ {
		shard := ctx.Router.ShardAt(i)
		shard.Loop.ScheduleWait(func() {
			total += shard.Dicts[db].Size()
		})
	}
	ctx.reply(resp.Integer(int64(total)))
}

func cmdInfo(ctx *Context, args [][]byte) {
	ctx.reply(resp.Bulk([]byte("# Server\r\nshards:" + strconv.Itoa(ctx.Router.NumShards()) + "\r\n")))
}

func cmdCommand(ctx *Context, args [][]byte) {
	if len(args) == 2 && strings.EqualFold(string(args[1]), "count") {
		ctx.reply(resp.Integer(int64(len(Names()))))
		return
	}
	names := Names()
	items := make([][]resp.Frame, len(names))
	for i, n := range names {
		items[i] = resp.Bulk([]byte(n))
	}
	ctx.reply(resp.Array(items))
}
