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
	"strings"
)

// Handler executes one command. args[0] is the command name as sent;
// args[1:] are its arguments. A handler that only needs connection or
// router state replies synchronously through ctx.reply; one that touches
// a shard's dictionary schedules its work there and replies once that
// completes, from the shard loop's own goroutine.
type Handler func(ctx *Context, args [][]byte)

// spec describes one command table entry. A positive Arity requires an
// exact argument count (including the command name); a negative Arity
// requires at least |Arity|.
type spec struct {
	name    string
	arity   int
	handler Handler
}

var table = map[string]spec{}

func register(name string, arity int, h Handler) {
	table[name] = spec{name: name, arity: arity, handler: h}
}

func init() {
	register("ping", -1, cmdPing)
	register("quit", 1, cmdQuit)
	register("select", 2, cmdSelect)
	register("flushdb", 1, cmdFlushDB)
	register("flushall", 1, cmdFlushAll)
	register("dbsize", 1, cmdDBSize)
	register("info", -1, cmdInfo)
	register("command", -1, cmdCommand)

	register("get", 2, cmdGet)
	register("set", 3, cmdSet)
	register("append", 3, cmdAppend)
	register("getset", 3, cmdGetSet)
	register("mget", -2, cmdMGet)
	register("mset", -3, cmdMSet)
	register("strlen", 2, cmdStrlen)
	register("del", -2, cmdDel)
	register("exists", -2, cmdExists)
	register("type", 2, cmdType)

	register("incr", 2, cmdIncr)
	register("incrby", 3, cmdIncrBy)
	register("decr", 2, cmdDecr)
	register("decrby", 3, cmdDecrBy)

	register("setbit", 4, cmdSetBit)
	register("getbit", 3, cmdGetBit)
	register("bitcount", -2, cmdBitCount)
	register("bitop", -4, cmdBitOp)
	register("bitpos", -3, cmdBitPos)

	register("expire", 3, cmdExpire)
	register("pexpire", 3, cmdPExpire)
	register("ttl", 2, cmdTTL)
	register("pttl", 2, cmdPTTL)
	register("persist", 2, cmdPersist)
}

// Dispatch looks up args[0] (case-insensitively) and runs its handler,
// after checking arity. Unknown command and arity-mismatch replies never
// reach a handler; Dispatch writes them itself, synchronously, through
// ctx.reply.
func Dispatch(ctx *Context, args [][]byte) {
	name := strings.ToLower(string(args[0]))
	sp, ok := table[name]
	if !ok {
		ctx.reply(errUnknownCommand(name))
		return
	}
	if sp.arity >= 0 {
		if len(args) != sp.arity {
			ctx.reply(errWrongArity(name))
			return
		}
	} else if len(args) < -sp.arity {
		ctx.reply(errWrongArity(name))
		return
	}
	sp.handler(ctx, args)
}

// Names returns every registered command name, for the COMMAND COUNT /
// COMMAND family.
func Names() []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	return names
}
