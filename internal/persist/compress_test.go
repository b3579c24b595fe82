package persist

import (
	"bytes"
	"strings"
	"testing"
)

func TestFrameUnframeSmallValueRoundTrip(t *testing.T) {
	v := []byte("short value")
	framed := frameData(v)
	if framed[0] != markerRaw {
		t.Fatalf("marker = %d, want markerRaw for a value under the threshold", framed[0])
	}
	got, err := unframeData(framed)
	if err != nil {
		t.Fatalf("unframeData: %v", err)
	}
	if !bytes.Equal(got, v) {
		t.Fatalf("got %q, want %q", got, v)
	}
}

func TestFrameUnframeLargeValueRoundTrip(t *testing.T) {
	v := []byte(strings.Repeat("abcdefgh", compressThreshold))
	framed := frameData(v)
	if framed[0] != markerCompressed {
		t.Fatal("expected a large, highly compressible value to be stored compressed")
	}
	got, err := unframeData(framed)
	if err != nil {
		t.Fatalf("unframeData: %v", err)
	}
	if !bytes.Equal(got, v) {
		t.Fatal("decompressed value does not match original")
	}
}

func TestFrameEmptyValue(t *testing.T) {
	framed := frameData(nil)
	got, err := unframeData(framed)
	if err != nil {
		t.Fatalf("unframeData: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}
