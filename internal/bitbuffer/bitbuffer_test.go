package bitbuffer

import (
	"errors"
	"testing"

	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

func TestWriteUnsignedAlignedFastPath(t *testing.T) {
	w := NewWriteBuffer()
	if err := w.WriteUnsigned(0x1234, 16); err != nil {
		t.Fatalf("WriteUnsigned: %v", err)
	}
	b, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(b) != 2 || b[0] != 0x12 || b[1] != 0x34 {
		t.Errorf("got % x, want 12 34", b)
	}
}

func TestWriteUnsignedSubByte(t *testing.T) {
	w := NewWriteBuffer()
	// 5 bits then 3 bits spanning a single byte: 0b10110_101 == 0xB5.
	if err := w.WriteUnsigned(0b10110, 5); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUnsigned(0b101, 3); err != nil {
		t.Fatal(err)
	}
	b, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 1 || b[0] != 0xB5 {
		t.Errorf("got % x, want b5", b)
	}
}

func TestWriteUnsignedRejectsOverflow(t *testing.T) {
	w := NewWriteBuffer()
	if err := w.WriteUnsigned(256, 8); !errors.Is(err, iamferr.OutOfRange) {
		t.Errorf("expected OutOfRange, got %v", err)
	}
}

func TestBytesRejectsUnalignedFlush(t *testing.T) {
	w := NewWriteBuffer()
	_ = w.WriteUnsigned(1, 1)
	if _, err := w.Bytes(); !errors.Is(err, iamferr.FailedPrecondition) {
		t.Errorf("expected FailedPrecondition, got %v", err)
	}
}

func TestUleb128RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16384, 1 << 31, 0xFFFFFFFF}
	for _, v := range values {
		w := NewWriteBuffer()
		if err := w.WriteUleb128(v, DefaultLebGenerator); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		b, _ := w.Bytes()
		r := NewReadBuffer(b, DefaultCapacityBits)
		got, err := r.ReadUleb128()
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestUleb128FixedWidthNeverShorterThanMinimal(t *testing.T) {
	w := NewWriteBuffer()
	gen := LebGenerator{Mode: LebFixedSize, FixedSize: 4}
	if err := w.WriteUleb128(1, gen); err != nil {
		t.Fatal(err)
	}
	b, _ := w.Bytes()
	if len(b) != 4 {
		t.Fatalf("expected 4-byte fixed encoding, got %d bytes", len(b))
	}
	r := NewReadBuffer(b, DefaultCapacityBits)
	got, err := r.ReadUleb128()
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}

func TestUleb128FixedTooSmallErrors(t *testing.T) {
	w := NewWriteBuffer()
	gen := LebGenerator{Mode: LebFixedSize, FixedSize: 1}
	if err := w.WriteUleb128(200, gen); !errors.Is(err, iamferr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestReadUleb128OverlongEighthByteContinuation(t *testing.T) {
	// 8 bytes, every one with the continuation bit set.
	b := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}
	r := NewReadBuffer(b, DefaultCapacityBits)
	if _, err := r.ReadUleb128(); !errors.Is(err, iamferr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestIso14496ExpandedRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 1000000}
	for _, v := range values {
		w := NewWriteBuffer()
		if err := w.WriteIso14496Expanded(v); err != nil {
			t.Fatal(err)
		}
		b, _ := w.Bytes()
		r := NewReadBuffer(b, DefaultCapacityBits)
		got, err := r.ReadIso14496Expanded(1 << 31)
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	w := NewWriteBuffer()
	if err := w.WriteString("hello"); err != nil {
		t.Fatal(err)
	}
	b, _ := w.Bytes()
	if len(b) != 6 {
		t.Fatalf("expected 6 bytes (5 + NUL), got %d", len(b))
	}
	r := NewReadBuffer(b, DefaultCapacityBits)
	s, err := r.ReadString()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Errorf("got %q, want hello", s)
	}
}

func TestStringTooLongErrors(t *testing.T) {
	w := NewWriteBuffer()
	long := make([]byte, 128)
	for i := range long {
		long[i] = 'a'
	}
	if err := w.WriteString(string(long)); !errors.Is(err, iamferr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestWriteSizePrefixedBackPatchesLength(t *testing.T) {
	w := NewWriteBuffer()
	err := w.WriteSizePrefixed(DefaultLebGenerator, func(nested *WriteBuffer) error {
		return nested.WriteBytes([]byte{1, 2, 3})
	})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := w.Bytes()
	if len(b) != 4 || b[0] != 3 || b[1] != 1 || b[2] != 2 || b[3] != 3 {
		t.Errorf("got % x, want 03 01 02 03", b)
	}
}

func TestReadBufferLoadsAcrossSmallCapacity(t *testing.T) {
	// Capacity smaller than the full source forces multiple loads.
	src := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	r := NewReadBuffer(src, 16) // 2-byte window
	for _, want := range src {
		got, err := r.ReadUint8(8)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("got %x, want %x", got, want)
		}
	}
	if r.IsDataAvailable() {
		t.Error("expected no data available after consuming source")
	}
}

func TestReadBufferFillToCapacityStopsAtSourceEnd(t *testing.T) {
	src := []byte{0x01, 0x02, 0x03}
	r := NewReadBuffer(src, 64) // capacity larger than source
	if err := r.LoadBits(8, true); err != nil {
		t.Fatal(err)
	}
	if r.winBits != 24 {
		t.Errorf("expected window filled with all 3 available bytes, got %d bits", r.winBits)
	}
}

func TestReadUnsignedResourceExhausted(t *testing.T) {
	r := NewReadBuffer([]byte{0xFF}, DefaultCapacityBits)
	if _, err := r.ReadUnsigned(16); !errors.Is(err, iamferr.ResourceExhausted) {
		t.Errorf("expected ResourceExhausted, got %v", err)
	}
}
