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

import "github.com/kvshard/kvshard/internal/resp"

const (
	errWrongType        = "WRONGTYPE Operation against a key holding the wrong kind of value"
	errNotInteger       = "ERR value is not an integer or out of range"
	errBitOffset        = "bit offset is not an integer or out of range"
	errSyntax           = "ERR syntax error"
	errDBIndexRange     = "ERR DB index is out of range"
	errDBIndexNotInt    = "ERR invalid DB index"
	errMsetArgs         = "ERR wrong number of arguments for MSET"
	errOverflow         = "ERR value is not an integer or out of range"
)

func errUnknownCommand(name string) []resp.Frame {
	return resp.Error("ERR unknown command '" + name + "'")
}

func errWrongArity(name string) []resp.Frame {
	return resp.Error("ERR wrong number of arguments for '" + name + "' command")
}
