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

// Package server accepts client connections and drives each one's
// read-parse-dispatch-reply cycle. Every connection gets its own
// goroutine doing blocking reads; the actual key/value work happens on
// a shard's event loop, reached through Dispatch.
package server

import (
	"net"

	"github.com/dc0d/onexit"

	"github.com/kvshard/kvshard/internal/command"
	"github.com/kvshard/kvshard/internal/conn"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/persist"
	"github.com/kvshard/kvshard/internal/resp"
	"github.com/kvshard/kvshard/internal/router"
	"github.com/kvshard/kvshard/internal/weakref"
)

// Server owns the listener and the shared state every connection's
// command dispatch needs: the shard router and, optionally, a
// persistence store.
type Server struct {
	ln      net.Listener
	router  *router.Router
	persist *persist.Store
	conns   *weakref.Registry
	log     *logging.Logger
}

// New binds addr and returns a Server ready for Serve. persist may be
// nil, in which case writes are memory-only.
func New(addr string, r *router.Router, p *persist.Store, log *logging.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, router: r, persist: p, conns: weakref.New(), log: log}
	onexit.Register(func() { s.ln.Close() })
	return s, nil
}

// Addr returns the listener's bound address, useful when addr was given
// as ":0" for an ephemeral test port.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve blocks accepting connections until the listener closes, spawning
// one goroutine per connection. It returns nil when the listener is
// closed deliberately (e.g. via Close during shutdown).
func (s *Server) Serve() error {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && !ne.Temporary() {
				return nil
			}
			s.log.Warnf("accept: %v", err)
			continue
		}
		go s.handle(nc)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) handle(nc net.Conn) {
	c := conn.New(nc)
	s.conns.Register(c)
	defer func() {
		s.conns.Unregister(c)
		c.Close()
	}()

	ctx := &command.Context{Conn: c, Router: s.router, Persist: s.persist, Conns: s.conns}

	for {
		n, err := nc.Read(c.In.EnsureWritable(4096))
		if err != nil {
			return
		}
		c.In.AdvanceWrite(n)

		for {
			outcome, args, errMsg := c.Parser.Parse(c.In)
			switch outcome {
			case resp.NeedMore:
				goto nextRead
			case resp.ProtoError:
				c.WriteFrames(resp.Error("ERR " + errMsg))
				c.Flush()
				return
			case resp.Ready:
				if len(args) == 0 {
					continue
				}
				command.Dispatch(ctx, args)
				if ctx.Quit {
					c.Flush()
					return
				}
			}
		}
	nextRead:
		if err := c.Flush(); err != nil {
			return
		}
	}
}
