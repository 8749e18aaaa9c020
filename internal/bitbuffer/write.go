// Package bitbuffer implements the bit-level read and write primitives the
// rest of the encoder builds on: unsigned fields of 1-64 bits, ULEB128 and
// ISO/IEC 14496-1 expandable integers, NUL-terminated strings, and the
// size-prefixed nested-write pattern every OBU uses to back-patch its
// obu_size field in a single forward pass.
package bitbuffer

import "github.com/iamf-tools/iamf-go/internal/iamferr"

// LebMode selects how WriteBuffer.WriteUleb128 chooses a ULEB128's byte
// width: the shortest form that round-trips the value, or a fixed width
// regardless of value (still legal per the ULEB128 grammar, just larger
// than necessary).
type LebMode int

const (
	LebMinimal LebMode = iota
	LebFixedSize
)

// LebGenerator is a configuration object for ULEB128 width, mirroring the
// C++ implementation's LebGenerator strategy: minimal by default, or a
// fixed width from 1 to 8 bytes.
type LebGenerator struct {
	Mode      LebMode
	FixedSize int // only consulted when Mode == LebFixedSize; 1..8
}

// DefaultLebGenerator emits the shortest legal ULEB128 encoding.
var DefaultLebGenerator = LebGenerator{Mode: LebMinimal}

func minimalUleb128Size(value uint32) int {
	n := 1
	v := value >> 7
	for v > 0 {
		n++
		v >>= 7
	}
	return n
}

func (g LebGenerator) size(value uint32) (int, error) {
	minimal := minimalUleb128Size(value)
	if g.Mode == LebMinimal {
		return minimal, nil
	}
	if g.FixedSize < minimal || g.FixedSize < 1 || g.FixedSize > 8 {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "fixed leb size %d cannot hold value %d", g.FixedSize, value)
	}
	return g.FixedSize, nil
}

// WriteBuffer is a growable byte buffer with a bit cursor. Writes below a
// full byte accumulate into a pending partial byte; whenever the cursor is
// byte-aligned and the request is a whole number of bytes, WriteUnsigned
// and WriteBytes take an aligned fast path that appends directly instead
// of shifting bit by bit.
type WriteBuffer struct {
	data        []byte
	pending     byte
	pendingBits int // 0..7, bits already placed into pending, MSB first
}

// NewWriteBuffer returns an empty write buffer.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{}
}

// Aligned reports whether the cursor currently sits on a byte boundary.
func (w *WriteBuffer) Aligned() bool { return w.pendingBits == 0 }

// BitsWritten returns the total number of bits written so far.
func (w *WriteBuffer) BitsWritten() int {
	return len(w.data)*8 + w.pendingBits
}

// Bytes returns the buffer's contents. The cursor must be byte-aligned;
// every OBU payload is constructed to guarantee this before it is flushed.
func (w *WriteBuffer) Bytes() ([]byte, error) {
	if !w.Aligned() {
		return nil, iamferr.Wrap(iamferr.FailedPrecondition, "write buffer flushed mid-byte")
	}
	return w.data, nil
}

// WriteUnsigned writes the low numBits bits of value, most-significant bit
// first. numBits must be in [0, 64] and value must fit in numBits bits.
func (w *WriteBuffer) WriteUnsigned(value uint64, numBits int) error {
	if numBits < 0 || numBits > 64 {
		return iamferr.Wrapf(iamferr.OutOfRange, "write width %d out of range", numBits)
	}
	if numBits < 64 && value>>uint(numBits) != 0 {
		return iamferr.Wrapf(iamferr.OutOfRange, "value %d does not fit in %d bits", value, numBits)
	}
	if numBits == 0 {
		return nil
	}
	if w.Aligned() && numBits%8 == 0 {
		nBytes := numBits / 8
		for i := nBytes - 1; i >= 0; i-- {
			w.data = append(w.data, byte(value>>uint(8*i)))
		}
		return nil
	}
	for i := numBits - 1; i >= 0; i-- {
		bit := byte((value >> uint(i)) & 1)
		w.pending = w.pending<<1 | bit
		w.pendingBits++
		if w.pendingBits == 8 {
			w.data = append(w.data, w.pending)
			w.pending = 0
			w.pendingBits = 0
		}
	}
	return nil
}

// WriteSigned16 writes a two's-complement 16-bit signed value.
func (w *WriteBuffer) WriteSigned16(value int16) error {
	return w.WriteUnsigned(uint64(uint16(value)), 16)
}

// WriteUleb128 writes value as an unsigned LEB128 integer using gen's
// width policy.
func (w *WriteBuffer) WriteUleb128(value uint32, gen LebGenerator) error {
	size, err := gen.size(value)
	if err != nil {
		return err
	}
	v := value
	for i := 0; i < size; i++ {
		b := byte(v & 0x7f)
		v >>= 7
		if i < size-1 {
			b |= 0x80
		}
		if err := w.WriteUnsigned(uint64(b), 8); err != nil {
			return err
		}
	}
	return nil
}

func iso14496GroupCount(value uint32) int {
	n := 1
	v := value >> 7
	for v > 0 {
		n++
		v >>= 7
	}
	return n
}

// WriteIso14496Expanded writes value using the MPEG-4 (ISO/IEC 14496-1)
// expandable-length convention: the same continuation-bit shape as
// ULEB128, but groups are big-endian (most-significant group first).
func (w *WriteBuffer) WriteIso14496Expanded(value uint32) error {
	groups := iso14496GroupCount(value)
	for i := groups - 1; i >= 0; i-- {
		b := byte((value >> uint(i*7)) & 0x7f)
		if i != 0 {
			b |= 0x80
		}
		if err := w.WriteUnsigned(uint64(b), 8); err != nil {
			return err
		}
	}
	return nil
}

// WriteBytes appends raw bytes, taking the aligned fast path when possible.
func (w *WriteBuffer) WriteBytes(b []byte) error {
	if w.Aligned() {
		w.data = append(w.data, b...)
		return nil
	}
	for _, v := range b {
		if err := w.WriteUnsigned(uint64(v), 8); err != nil {
			return err
		}
	}
	return nil
}

// WriteString writes s followed by a NUL terminator. s plus its terminator
// must fit in 128 bytes.
func (w *WriteBuffer) WriteString(s string) error {
	b := []byte(s)
	if len(b) > 127 {
		return iamferr.Wrapf(iamferr.InvalidArgument, "string %q exceeds 127 bytes before NUL", s)
	}
	if err := w.WriteBytes(b); err != nil {
		return err
	}
	return w.WriteUnsigned(0, 8)
}

// WriteSizePrefixed runs fn against a fresh scratch buffer, then writes the
// scratch buffer's length as a ULEB128 (per gen) followed by its bytes into
// w. This is the nested-write / back-patch pattern every OBU uses to
// obtain a bit-exact obu_size: one forward serialization pass, no seeking.
func (w *WriteBuffer) WriteSizePrefixed(gen LebGenerator, fn func(*WriteBuffer) error) error {
	nested := NewWriteBuffer()
	if err := fn(nested); err != nil {
		return err
	}
	payload, err := nested.Bytes()
	if err != nil {
		return err
	}
	if err := w.WriteUleb128(uint32(len(payload)), gen); err != nil {
		return err
	}
	return w.WriteBytes(payload)
}
