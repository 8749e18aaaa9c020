package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
)

// AudioFrame carries one substream's encoded payload for one temporal
// unit. When SubstreamID is below NumAudioFrameIDVariants the encoder
// prefers the implicit-id OBU type (ObuAudioFrameID0+SubstreamID) to save a
// ULEB128 field on the wire; otherwise it falls back to the generic
// ObuAudioFrame type with an explicit substream id, matching the source's
// substream-id-compaction behavior (spec.md §3).
type AudioFrame struct {
	Header       Header
	SubstreamID  uint32
	EncodedPayload []byte
}

// ValidateAndWrite writes this OBU choosing the implicit-id variant when
// available. preferImplicit lets callers force the generic explicit-id
// form (e.g. for round-trip tests that want a stable shape).
func (f AudioFrame) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator, preferImplicit bool) error {
	h := f.Header
	writeExplicitID := true
	if preferImplicit {
		if variant, ok := AudioFrameIDVariant(f.SubstreamID); ok {
			h.Type = variant
			writeExplicitID = false
		} else {
			h.Type = ObuAudioFrame
		}
	} else {
		h.Type = ObuAudioFrame
	}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if writeExplicitID {
			if err := nested.WriteUleb128(f.SubstreamID, gen); err != nil {
				return err
			}
		}
		return nested.WriteBytes(f.EncodedPayload)
	})
}

// ReadAudioFramePayload parses an AudioFrame payload already carved out by
// ReadOBU. h.Type determines whether the substream id is implicit (derived
// from the OBU type) or must be read explicitly.
func ReadAudioFramePayload(r *bitbuffer.ReadBuffer, h Header) (AudioFrame, error) {
	f := AudioFrame{Header: h}
	if substreamID, ok := IsAudioFrameIDVariant(h.Type); ok {
		f.SubstreamID = substreamID
	} else {
		id, err := r.ReadUleb128()
		if err != nil {
			return f, err
		}
		f.SubstreamID = id
	}
	payload := make([]byte, 0, 256)
	for r.IsDataAvailable() {
		b, err := r.ReadUint8(8)
		if err != nil {
			break
		}
		payload = append(payload, b)
	}
	f.EncodedPayload = payload
	return f, nil
}
