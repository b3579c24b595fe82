package resp

import (
	"testing"

	"github.com/kvshard/kvshard/internal/buf"
)

func feed(t *testing.T, b *buf.Buffer, data string) {
	t.Helper()
	dst := b.EnsureWritable(len(data))
	copy(dst, data)
	b.AdvanceWrite(len(data))
}

func TestParseMultibulkAllAtOnce(t *testing.T) {
	b := buf.New()
	feed(t, b, "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n")
	p := NewParser()
	outcome, args, _ := p.Parse(b)
	if outcome != Ready {
		t.Fatalf("outcome = %v, want Ready", outcome)
	}
	want := []string{"GET", "k"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if string(args[i]) != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestParseMultibulkByteByByte(t *testing.T) {
	data := "*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"
	b := buf.New()
	p := NewParser()
	var args [][]byte
	for i := 0; i < len(data); i++ {
		feed(t, b, string(data[i]))
		outcome, a, _ := p.Parse(b)
		if outcome == Ready {
			args = a
			break
		}
		if outcome == ProtoError {
			t.Fatalf("unexpected protocol error mid-stream at byte %d", i)
		}
	}
	if len(args) != 2 || string(args[0]) != "GET" || string(args[1]) != "k" {
		t.Fatalf("args = %v", args)
	}
}

func TestParsePipelinedRequests(t *testing.T) {
	b := buf.New()
	feed(t, b, "*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n")
	p := NewParser()
	for i := 0; i < 2; i++ {
		outcome, args, _ := p.Parse(b)
		if outcome != Ready {
			t.Fatalf("request %d: outcome = %v, want Ready", i, outcome)
		}
		if len(args) != 1 || string(args[0]) != "PING" {
			t.Fatalf("request %d: args = %v", i, args)
		}
	}
	outcome, _, _ := p.Parse(b)
	if outcome != NeedMore {
		t.Fatalf("outcome after draining both requests = %v, want NeedMore", outcome)
	}
}

func TestParseInvalidMultibulkCountIsProtoError(t *testing.T) {
	b := buf.New()
	feed(t, b, "*0\r\n")
	p := NewParser()
	outcome, _, msg := p.Parse(b)
	if outcome != ProtoError {
		t.Fatalf("outcome = %v, want ProtoError", outcome)
	}
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
	// parser must stay failed on subsequent calls
	outcome, _, _ = p.Parse(b)
	if outcome != ProtoError {
		t.Fatalf("outcome after failure = %v, want ProtoError", outcome)
	}
}

func TestParseOversizedBulkIsProtoError(t *testing.T) {
	b := buf.New()
	feed(t, b, "*1\r\n$99999999\r\n")
	p := NewParser()
	outcome, _, _ := p.Parse(b)
	if outcome != ProtoError {
		t.Fatalf("outcome = %v, want ProtoError", outcome)
	}
}

func TestParseMissingBulkCRLFIsProtoError(t *testing.T) {
	b := buf.New()
	feed(t, b, "*1\r\n$3\r\nabcXX")
	p := NewParser()
	outcome, _, _ := p.Parse(b)
	if outcome != ProtoError {
		t.Fatalf("outcome = %v, want ProtoError", outcome)
	}
}

func TestParseInlineSimple(t *testing.T) {
	b := buf.New()
	feed(t, b, "PING\r\n")
	p := NewParser()
	outcome, args, _ := p.Parse(b)
	if outcome != Ready || len(args) != 1 || string(args[0]) != "PING" {
		t.Fatalf("outcome=%v args=%v", outcome, args)
	}
}

func TestParseInlineQuoted(t *testing.T) {
	b := buf.New()
	feed(t, b, `SET k "hello\x20world\n"`+"\r\n")
	p := NewParser()
	outcome, args, _ := p.Parse(b)
	if outcome != Ready {
		t.Fatalf("outcome = %v", outcome)
	}
	if len(args) != 3 {
		t.Fatalf("args = %v", args)
	}
	if string(args[2]) != "hello world\n" {
		t.Fatalf("args[2] = %q, want %q", args[2], "hello world\n")
	}
}

func TestParseInlineSingleQuoted(t *testing.T) {
	b := buf.New()
	feed(t, b, `SET k 'it''s \'ok\''`+"\r\n")
	p := NewParser()
	outcome, args, _ := p.Parse(b)
	if outcome != Ready {
		t.Fatalf("outcome = %v, args=%v", outcome, args)
	}
}

func TestParseInlineUnbalancedQuoteIsProtoError(t *testing.T) {
	b := buf.New()
	feed(t, b, `SET k "unterminated`+"\r\n")
	p := NewParser()
	outcome, _, _ := p.Parse(b)
	if outcome != ProtoError {
		t.Fatalf("outcome = %v, want ProtoError", outcome)
	}
}

func TestRoundTripWriterThenParser(t *testing.T) {
	frames := Array([][]Frame{Bulk([]byte("SET")), Bulk([]byte("k")), Bulk([]byte("v"))})
	b := buf.New()
	var total int
	for _, f := range frames {
		total += len(f)
	}
	dst := b.EnsureWritable(total)
	off := 0
	for _, f := range frames {
		off += copy(dst[off:], f)
	}
	b.AdvanceWrite(total)

	p := NewParser()
	outcome, args, _ := p.Parse(b)
	if outcome != Ready {
		t.Fatalf("outcome = %v", outcome)
	}
	want := []string{"SET", "k", "v"}
	for i := range want {
		if string(args[i]) != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}
