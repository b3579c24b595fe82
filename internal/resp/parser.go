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

package resp

import (
	"errors"
	"strconv"

	"github.com/kvshard/kvshard/internal/buf"
)

// Outcome is what a single Parse call produced.
type Outcome int

const (
	// NeedMore means the buffer doesn't yet hold a complete request;
	// the caller should read more bytes off the socket and call Parse
	// again. No bytes were consumed from buf beyond what was already a
	// complete, parsed prefix of a multi-bulk request.
	NeedMore Outcome = iota
	// Ready means args holds one complete, parsed request.
	Ready
	// ProtoError means the stream is malformed; a protocol error always
	// closes the connection. The parser will return ProtoError on every
	// subsequent call until a new Parser is created.
	ProtoError
)

type state int

const (
	stateIdle state = iota
	stateReadingArgCount
	stateReadingBulkHeader
	stateReadingBulkBody
	stateReadingInlineLine
	stateError
)

const (
	maxMultibulkArgs = 65536
	maxBulkLen       = 1048576
	maxInlineLine    = 64 * 1024
)

// Parser is an incremental, resumable parser for one connection's request
// stream: multi-bulk (the normal client protocol) and inline (used by
// simple tools like `nc` and health checks). It holds no reference to any
// particular Buffer; the same Parser is fed successive Buffer snapshots as
// more bytes arrive, so partial requests survive across reads.
type Parser struct {
	st           state
	declaredArgs int
	args         [][]byte
	curArgLen    int // -1 until a bulk header has been read for the current arg
}

// NewParser returns a Parser ready to read the first byte of a new
// connection's stream.
func NewParser() *Parser {
	return &Parser{st: stateIdle, curArgLen: -1}
}

// Parse consumes as much of b's readable region as forms complete request
// syntax and reports the outcome. On Ready, args is the request's argument
// list (for PING this is []{"PING"}) and the parser resets itself to parse
// the next request. On ProtoError, errMsg describes the problem in a form
// suitable for direct use in the connection's closing error reply.
func (p *Parser) Parse(b *buf.Buffer) (outcome Outcome, args [][]byte, errMsg string) {
	for {
		switch p.st {
		case stateIdle:
			data := b.ReadPtr()
			if len(data) == 0 {
				return NeedMore, nil, ""
			}
			if data[0] == '*' {
				p.st = stateReadingArgCount
			} else {
				p.st = stateReadingInlineLine
			}

		case stateReadingArgCount:
			line, ok, err := readLine(b)
			if err != nil {
				return p.fail(err.Error())
			}
			if !ok {
				return NeedMore, nil, ""
			}
			n, err := parseCountLine(line, '*')
			if err != nil {
				return p.fail(err.Error())
			}
			if n < 1 || n > maxMultibulkArgs {
				return p.fail("Protocol error: invalid multibulk length")
			}
			p.declaredArgs = n
			p.args = make([][]byte, 0, n)
			p.curArgLen = -1
			p.st = stateReadingBulkHeader

		case stateReadingBulkHeader:
			if len(p.args) == p.declaredArgs {
				result := p.args
				p.reset()
				return Ready, result, ""
			}
			line, ok, err := readLine(b)
			if err != nil {
				return p.fail(err.Error())
			}
			if !ok {
				return NeedMore, nil, ""
			}
			if len(line) == 0 || line[0] != '$' {
				return p.fail("Protocol error: expected '$', got something else")
			}
			m, err := parseCountLine(line, '$')
			if err != nil {
				return p.fail(err.Error())
			}
			if m < 0 || m > maxBulkLen {
				return p.fail("Protocol error: invalid bulk length")
			}
			p.curArgLen = m
			p.st = stateReadingBulkBody

		case stateReadingBulkBody:
			need := p.curArgLen + 2
			if b.Readable() < need {
				return NeedMore, nil, ""
			}
			data := b.ReadPtr()
			if data[p.curArgLen] != '\r' || data[p.curArgLen+1] != '\n' {
				return p.fail("Protocol error: expected CRLF after bulk data")
			}
			body := make([]byte, p.curArgLen)
			copy(body, data[:p.curArgLen])
			b.AdvanceRead(need)
			p.args = append(p.args, body)
			p.curArgLen = -1
			p.st = stateReadingBulkHeader

		case stateReadingInlineLine:
			line, ok, err := readLine(b)
			if err != nil {
				return p.fail(err.Error())
			}
			if !ok {
				return NeedMore, nil, ""
			}
			parsed, err := splitInline(line)
			if err != nil {
				return p.fail("Protocol error: " + err.Error())
			}
			p.reset()
			if len(parsed) == 0 {
				// blank inline line: nothing to dispatch, go around for the next one
				p.st = stateIdle
				continue
			}
			return Ready, parsed, ""

		case stateError:
			return ProtoError, nil, "Protocol error: connection already failed"
		}
	}
}

func (p *Parser) reset() {
	p.st = stateIdle
	p.declaredArgs = 0
	p.args = nil
	p.curArgLen = -1
}

func (p *Parser) fail(msg string) (Outcome, [][]byte, string) {
	p.st = stateError
	return ProtoError, nil, msg
}

// readLine extracts one CRLF-terminated line from b, excluding the CRLF,
// advancing b's read cursor past it. ok is false if no full line is
// available yet. An unterminated line longer than maxInlineLine is a
// protocol error rather than an unbounded NeedMore wait, so a client can't
// stall the parser forever by trickling bytes with no CRLF.
func readLine(b *buf.Buffer) (line []byte, ok bool, err error) {
	data := b.ReadPtr()
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			line = make([]byte, i)
			copy(line, data[:i])
			b.AdvanceRead(i + 2)
			return line, true, nil
		}
	}
	if len(data) > maxInlineLine {
		return nil, false, errors.New("Protocol error: too big inline request")
	}
	return nil, false, nil
}

// parseCountLine parses a line like "*123" or "$45", checking the leading
// sigil and decimal digits.
func parseCountLine(line []byte, sigil byte) (int, error) {
	if len(line) < 2 || line[0] != sigil {
		return 0, errors.New("Protocol error: invalid length line")
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return 0, errors.New("Protocol error: invalid multibulk length")
	}
	return n, nil
}
