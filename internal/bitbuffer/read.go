package bitbuffer

import "github.com/iamf-tools/iamf-go/internal/iamferr"

// DefaultCapacityBits is the default size of ReadBuffer's internal bit
// window. It must be a multiple of 8; loadable source bytes are pulled in
// whole-byte chunks.
const DefaultCapacityBits = 4096

// ReadBuffer reads bit-aligned fields out of a fixed source byte slice.
// It keeps an internal window of loaded-but-unread bits bounded by a
// capacity; load fetches more bytes from the source as the window is
// drained, discarding bits that have already been consumed so the window
// never grows without bound. Reading always proceeds strictly left to
// right, most-significant bit first within each source byte.
type ReadBuffer struct {
	source   []byte
	srcBit   int // bits already pulled from source into window
	capacity int // bits

	window  []byte // loaded bytes, MSB-first bit order
	winBit  int    // index of next unread bit within window, in bits
	winBits int    // total valid bits loaded into window
}

// NewReadBuffer wraps source with a window of capacityBits (rounded down
// to the nearest multiple of 8, minimum 8).
func NewReadBuffer(source []byte, capacityBits int) *ReadBuffer {
	if capacityBits < 8 {
		capacityBits = 8
	}
	capacityBits -= capacityBits % 8
	return &ReadBuffer{source: source, capacity: capacityBits}
}

// load ensures at least n unread bits are available in the window,
// compacting already-consumed bits first. When fillToCapacity is set it
// additionally tops the window up to capacity when the source has enough
// remaining bits; if the source has fewer bits than capacity but more than
// n, only what is available is loaded.
func (r *ReadBuffer) load(n int, fillToCapacity bool) error {
	consumedBytes := r.winBit / 8
	if consumedBytes > 0 {
		r.window = r.window[consumedBytes:]
		r.winBit -= consumedBytes * 8
		r.winBits -= consumedBytes * 8
	}

	available := r.winBits - r.winBit
	target := n
	if fillToCapacity {
		target = r.capacity
	}
	if available >= target {
		if available < n {
			return iamferr.Wrap(iamferr.ResourceExhausted, "bit buffer source exhausted")
		}
		return nil
	}

	remainingSourceBits := len(r.source)*8 - r.srcBit
	wantBits := target - available
	if wantBits > remainingSourceBits {
		wantBits = remainingSourceBits
	}
	roomBits := r.capacity - available
	if wantBits > roomBits {
		wantBits = roomBits
	}
	if wantBits > 0 {
		wantBytes := (wantBits + 7) / 8
		srcByte := r.srcBit / 8
		end := srcByte + wantBytes
		if end > len(r.source) {
			end = len(r.source)
		}
		r.window = append(r.window, r.source[srcByte:end]...)
		gained := (end - srcByte) * 8
		r.srcBit += gained
		r.winBits += gained
	}

	if r.winBits-r.winBit < n {
		return iamferr.Wrap(iamferr.ResourceExhausted, "bit buffer source exhausted")
	}
	return nil
}

// LoadBits ensures n bits are available, per load's semantics.
func (r *ReadBuffer) LoadBits(n int, fillToCapacity bool) error {
	return r.load(n, fillToCapacity)
}

// ReadUnsigned reads numBits bits (0..64), most-significant bit first.
func (r *ReadBuffer) ReadUnsigned(numBits int) (uint64, error) {
	if numBits < 0 || numBits > 64 {
		return 0, iamferr.Wrapf(iamferr.OutOfRange, "read width %d out of range", numBits)
	}
	if numBits == 0 {
		return 0, nil
	}
	if err := r.load(numBits, false); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < numBits; i++ {
		byteIdx := r.winBit / 8
		bitIdx := 7 - r.winBit%8
		bit := (r.window[byteIdx] >> uint(bitIdx)) & 1
		v = v<<1 | uint64(bit)
		r.winBit++
	}
	return v, nil
}

// readWidth reads numBits into a value whose declared width is widthBits,
// failing with OutOfRange if numBits exceeds it (spec's "num_bits <=
// width(output)").
func (r *ReadBuffer) readWidth(numBits, widthBits int) (uint64, error) {
	if numBits > widthBits {
		return 0, iamferr.Wrapf(iamferr.OutOfRange, "read width %d exceeds output width %d", numBits, widthBits)
	}
	return r.ReadUnsigned(numBits)
}

func (r *ReadBuffer) ReadUint8(numBits int) (uint8, error) {
	v, err := r.readWidth(numBits, 8)
	return uint8(v), err
}

func (r *ReadBuffer) ReadUint16(numBits int) (uint16, error) {
	v, err := r.readWidth(numBits, 16)
	return uint16(v), err
}

func (r *ReadBuffer) ReadUint32(numBits int) (uint32, error) {
	v, err := r.readWidth(numBits, 32)
	return uint32(v), err
}

func (r *ReadBuffer) ReadUint64(numBits int) (uint64, error) {
	return r.readWidth(numBits, 64)
}

// ReadSigned16 reads a two's-complement 16-bit signed value.
func (r *ReadBuffer) ReadSigned16() (int16, error) {
	v, err := r.ReadUint16(16)
	return int16(v), err
}

const maxUleb128Value = (uint64(1) << 32) - 1

// ReadUleb128 reads an unsigned LEB128 integer, failing if after 8 bytes
// the continuation bit is still set or the accumulated value exceeds
// 2^32-1.
func (r *ReadBuffer) ReadUleb128() (uint32, error) {
	var value uint64
	for i := 0; i < 8; i++ {
		b, err := r.ReadUnsigned(8)
		if err != nil {
			return 0, err
		}
		value |= (b & 0x7f) << uint(7*i)
		if value > maxUleb128Value {
			return 0, iamferr.Wrap(iamferr.InvalidArgument, "uleb128 value exceeds 2^32-1")
		}
		if b&0x80 == 0 {
			return uint32(value), nil
		}
	}
	return 0, iamferr.Wrap(iamferr.InvalidArgument, "uleb128 continuation bit set on 8th byte")
}

// ReadIso14496Expanded reads an MPEG-4 expandable-length integer, failing
// if the accumulated value exceeds max.
func (r *ReadBuffer) ReadIso14496Expanded(max uint32) (uint32, error) {
	var value uint32
	for i := 0; i < 8; i++ {
		cont, err := r.ReadUnsigned(1)
		if err != nil {
			return 0, err
		}
		group, err := r.ReadUnsigned(7)
		if err != nil {
			return 0, err
		}
		value = value<<7 | uint32(group)
		if value > max {
			return 0, iamferr.Wrapf(iamferr.InvalidArgument, "iso14496-1 expanded value exceeds max %d", max)
		}
		if cont == 0 {
			return value, nil
		}
	}
	return 0, iamferr.Wrap(iamferr.InvalidArgument, "iso14496-1 expanded field never terminated")
}

// ReadString reads bytes up to and including a NUL terminator, returning
// the string without it. It fails if no NUL appears within 128 bytes.
func (r *ReadBuffer) ReadString() (string, error) {
	var b []byte
	for i := 0; i < 128; i++ {
		v, err := r.ReadUint8(8)
		if err != nil {
			return "", err
		}
		if v == 0 {
			return string(b), nil
		}
		b = append(b, v)
	}
	return "", iamferr.Wrap(iamferr.InvalidArgument, "string exceeds 128 bytes without NUL terminator")
}

// ReadUint8Span fills out entirely from the source.
func (r *ReadBuffer) ReadUint8Span(out []byte) error {
	for i := range out {
		v, err := r.ReadUint8(8)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// IsDataAvailable reports whether any unread bits remain, either in the
// window or still unloaded in the source.
func (r *ReadBuffer) IsDataAvailable() bool {
	return (r.winBits-r.winBit) > 0 || r.srcBit < len(r.source)*8
}
