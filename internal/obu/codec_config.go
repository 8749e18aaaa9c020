package obu

import "github.com/iamf-tools/iamf-go/internal/bitbuffer"

// CodecConfig declares one codec's frame shape and decoder configuration.
// AudioElements reference it by CodecConfigID; a MixPresentation's audio
// elements must all resolve to CodecConfigs whose NumSamplesPerFrame agree
// (spec.md §3).
type CodecConfig struct {
	CodecConfigID    uint32
	CodecID          CodecID
	NumSamplesPerFrame uint32
	AudioRollDistance int16
	DecoderConfig     DecoderConfig
}

func (c CodecConfig) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	h := Header{Type: ObuCodecConfig}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := nested.WriteUleb128(c.CodecConfigID, gen); err != nil {
			return err
		}
		if err := nested.WriteBytes(c.CodecID[:]); err != nil {
			return err
		}
		if err := nested.WriteUleb128(c.NumSamplesPerFrame, gen); err != nil {
			return err
		}
		if err := nested.WriteSigned16(c.AudioRollDistance); err != nil {
			return err
		}
		return writeDecoderConfig(nested, gen, c.CodecID, c.DecoderConfig)
	})
}

func ReadCodecConfigPayload(r *bitbuffer.ReadBuffer) (CodecConfig, error) {
	var c CodecConfig
	id, err := r.ReadUleb128()
	if err != nil {
		return c, err
	}
	c.CodecConfigID = id
	var codecID CodecID
	if err := r.ReadUint8Span(codecID[:]); err != nil {
		return c, err
	}
	c.CodecID = codecID
	frame, err := r.ReadUleb128()
	if err != nil {
		return c, err
	}
	c.NumSamplesPerFrame = frame
	roll, err := r.ReadSigned16()
	if err != nil {
		return c, err
	}
	c.AudioRollDistance = roll
	cfg, err := readDecoderConfig(r, c.CodecID)
	if err != nil {
		return c, err
	}
	c.DecoderConfig = cfg
	return c, nil
}
