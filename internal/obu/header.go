package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// Header is the 1-byte tag plus size prefix every OBU carries on the
// wire: obu_type (5 bits), obu_redundant_copy, obu_trimming_status_flag,
// obu_extension_flag, followed by the ULEB128 payload size and, when the
// corresponding flags are set, trim counters and/or an extension blob.
//
// Trim counters and extension bytes are present on the wire only when
// their flag is set (spec.md §4.2): a Header with TrimmingStatusFlag
// clear never emits NumSamplesToTrimAtStart/End, even when the in-memory
// struct carries nonzero values for them.
type Header struct {
	Type                ObuType
	RedundantCopy        bool
	TrimmingStatusFlag   bool
	ExtensionFlag        bool

	NumSamplesToTrimAtStart uint32
	NumSamplesToTrimAtEnd   uint32

	ExtensionBytes []byte
}

// writeTag writes the single-byte type/flags tag.
func (h Header) writeTag(w *bitbuffer.WriteBuffer) error {
	if h.Type > 31 {
		return iamferr.Wrapf(iamferr.OutOfRange, "obu_type %d does not fit in 5 bits", h.Type)
	}
	if err := w.WriteUnsigned(uint64(h.Type), 5); err != nil {
		return err
	}
	if err := w.WriteUnsigned(boolBit(h.RedundantCopy), 1); err != nil {
		return err
	}
	if err := w.WriteUnsigned(boolBit(h.TrimmingStatusFlag), 1); err != nil {
		return err
	}
	return w.WriteUnsigned(boolBit(h.ExtensionFlag), 1)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// writeTrimAndExtension writes the optional trim counters and extension
// blob into the payload body (inside the size-prefixed nested buffer, so
// they count toward obu_size).
func (h Header) writeTrimAndExtension(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	if h.TrimmingStatusFlag {
		if err := w.WriteUleb128(h.NumSamplesToTrimAtStart, gen); err != nil {
			return err
		}
		if err := w.WriteUleb128(h.NumSamplesToTrimAtEnd, gen); err != nil {
			return err
		}
	}
	if h.ExtensionFlag {
		if err := w.WriteUleb128(uint32(len(h.ExtensionBytes)), gen); err != nil {
			return err
		}
		if err := w.WriteBytes(h.ExtensionBytes); err != nil {
			return err
		}
	}
	return nil
}

// WriteOBU writes a complete OBU: tag, ULEB128 size (back-patched via the
// nested-write pattern), then whatever writeBody emits into the nested
// buffer ahead of the caller's own payload fields. writeBody is invoked
// with the nested buffer so trim/extension fields land first, matching
// the wire order header-derived fields then type-specific payload.
func (h Header) WriteOBU(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator, writeBody func(*bitbuffer.WriteBuffer) error) error {
	if err := h.writeTag(w); err != nil {
		return err
	}
	return w.WriteSizePrefixed(gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := h.writeTrimAndExtension(nested, gen); err != nil {
			return err
		}
		if writeBody == nil {
			return nil
		}
		return writeBody(nested)
	})
}

// ReadHeader reads the tag byte and the ULEB128 size, returning the
// decoded header (sans trim/extension, which live in the payload and are
// read by ReadTrimAndExtension once the payload sub-reader is set up) and
// the payload size in bytes.
func ReadHeader(r *bitbuffer.ReadBuffer) (Header, uint32, error) {
	var h Header
	t, err := r.ReadUint8(5)
	if err != nil {
		return h, 0, err
	}
	h.Type = ObuType(t)
	redundant, err := r.ReadUint8(1)
	if err != nil {
		return h, 0, err
	}
	h.RedundantCopy = redundant != 0
	trimming, err := r.ReadUint8(1)
	if err != nil {
		return h, 0, err
	}
	h.TrimmingStatusFlag = trimming != 0
	extension, err := r.ReadUint8(1)
	if err != nil {
		return h, 0, err
	}
	h.ExtensionFlag = extension != 0

	size, err := r.ReadUleb128()
	if err != nil {
		return h, 0, err
	}
	return h, size, nil
}

// ReadOBU reads one complete OBU's tag, size, and body off r, returning
// the header and a fresh ReadBuffer scoped to exactly the payload bytes
// (with trim/extension fields, if any, already consumed) so that
// type-specific parsers can read the remaining type-specific fields
// without tracking the payload boundary themselves.
func ReadOBU(r *bitbuffer.ReadBuffer) (Header, *bitbuffer.ReadBuffer, error) {
	h, size, err := ReadHeader(r)
	if err != nil {
		return h, nil, err
	}
	payload := make([]byte, size)
	if err := r.ReadUint8Span(payload); err != nil {
		return h, nil, err
	}
	sub := bitbuffer.NewReadBuffer(payload, len(payload)*8+8)
	if err := h.ReadTrimAndExtension(sub); err != nil {
		return h, nil, err
	}
	return h, sub, nil
}

// ReadTrimAndExtension reads the optional trim counters and extension
// blob from the payload reader, populating h in place.
func (h *Header) ReadTrimAndExtension(r *bitbuffer.ReadBuffer) error {
	if h.TrimmingStatusFlag {
		start, err := r.ReadUleb128()
		if err != nil {
			return err
		}
		end, err := r.ReadUleb128()
		if err != nil {
			return err
		}
		h.NumSamplesToTrimAtStart = start
		h.NumSamplesToTrimAtEnd = end
	}
	if h.ExtensionFlag {
		size, err := r.ReadUleb128()
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		if err := r.ReadUint8Span(buf); err != nil {
			return err
		}
		h.ExtensionBytes = buf
	}
	return nil
}
