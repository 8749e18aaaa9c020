package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// DecoderConfig is the codec-specific payload nested inside a CodecConfig
// OBU. Exactly one of the typed fields is populated, selected by the
// enclosing CodecConfig's CodecID.
type DecoderConfig struct {
	LPCM *LPCMDecoderConfig
	Opus *OpusDecoderConfig
	AAC  *AACDecoderConfig
	FLAC *FLACDecoderConfig
}

type LPCMSampleFormat uint8

const (
	LPCMLittleEndianInt LPCMSampleFormat = iota
	LPCMBigEndianInt
)

type LPCMDecoderConfig struct {
	SampleFormat LPCMSampleFormat
	SampleSize   uint8 // bits per sample
	SampleRate   uint32
}

func (c LPCMDecoderConfig) write(w *bitbuffer.WriteBuffer) error {
	if err := w.WriteUnsigned(uint64(c.SampleFormat), 8); err != nil {
		return err
	}
	if err := w.WriteUnsigned(uint64(c.SampleSize), 8); err != nil {
		return err
	}
	return w.WriteUnsigned(uint64(c.SampleRate), 32)
}

func readLPCMDecoderConfig(r *bitbuffer.ReadBuffer) (LPCMDecoderConfig, error) {
	var c LPCMDecoderConfig
	fmtv, err := r.ReadUint8(8)
	if err != nil {
		return c, err
	}
	c.SampleFormat = LPCMSampleFormat(fmtv)
	size, err := r.ReadUint8(8)
	if err != nil {
		return c, err
	}
	c.SampleSize = size
	rate, err := r.ReadUint32(32)
	if err != nil {
		return c, err
	}
	c.SampleRate = rate
	return c, nil
}

// OpusDecoderConfig mirrors the fields of an Ogg Opus ID header that the
// IAMF decoder config retains (channel mapping lives on the AudioElement,
// not here).
type OpusDecoderConfig struct {
	Version          uint8
	PreSkip          uint16
	InputSampleRate  uint32
}

func (c OpusDecoderConfig) write(w *bitbuffer.WriteBuffer) error {
	if err := w.WriteUnsigned(uint64(c.Version), 8); err != nil {
		return err
	}
	if err := w.WriteUnsigned(uint64(c.PreSkip), 16); err != nil {
		return err
	}
	return w.WriteUnsigned(uint64(c.InputSampleRate), 32)
}

func readOpusDecoderConfig(r *bitbuffer.ReadBuffer) (OpusDecoderConfig, error) {
	var c OpusDecoderConfig
	version, err := r.ReadUint8(8)
	if err != nil {
		return c, err
	}
	c.Version = version
	preSkip, err := r.ReadUint16(16)
	if err != nil {
		return c, err
	}
	c.PreSkip = preSkip
	rate, err := r.ReadUint32(32)
	if err != nil {
		return c, err
	}
	c.InputSampleRate = rate
	return c, nil
}

// AACDecoderConfig carries a raw MPEG-4 AudioSpecificConfig, built by the
// AudioCodec collaborator (internal/codec.BuildAudioSpecificConfig).
type AACDecoderConfig struct {
	AudioSpecificConfig []byte
}

func (c AACDecoderConfig) write(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	if err := w.WriteUleb128(uint32(len(c.AudioSpecificConfig)), gen); err != nil {
		return err
	}
	return w.WriteBytes(c.AudioSpecificConfig)
}

func readAACDecoderConfig(r *bitbuffer.ReadBuffer) (AACDecoderConfig, error) {
	var c AACDecoderConfig
	size, err := r.ReadUleb128()
	if err != nil {
		return c, err
	}
	buf := make([]byte, size)
	if err := r.ReadUint8Span(buf); err != nil {
		return c, err
	}
	c.AudioSpecificConfig = buf
	return c, nil
}

// FLACDecoderConfig carries FLAC's 34-byte METADATA_BLOCK_STREAMINFO.
type FLACDecoderConfig struct {
	StreamInfo [34]byte
}

func (c FLACDecoderConfig) write(w *bitbuffer.WriteBuffer) error {
	return w.WriteBytes(c.StreamInfo[:])
}

func readFLACDecoderConfig(r *bitbuffer.ReadBuffer) (FLACDecoderConfig, error) {
	var c FLACDecoderConfig
	if err := r.ReadUint8Span(c.StreamInfo[:]); err != nil {
		return c, err
	}
	return c, nil
}

func writeDecoderConfig(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator, codecID CodecID, cfg DecoderConfig) error {
	switch codecID {
	case CodecIDLPCM:
		if cfg.LPCM == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "codec_id lpcm requires an LPCM decoder config")
		}
		return cfg.LPCM.write(w)
	case CodecIDOpus:
		if cfg.Opus == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "codec_id opus requires an Opus decoder config")
		}
		return cfg.Opus.write(w)
	case CodecIDAAC:
		if cfg.AAC == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "codec_id aac requires an AAC decoder config")
		}
		return cfg.AAC.write(w, gen)
	case CodecIDFLAC:
		if cfg.FLAC == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "codec_id flac requires a FLAC decoder config")
		}
		return cfg.FLAC.write(w)
	default:
		return iamferr.Wrapf(iamferr.InvalidArgument, "unsupported codec_id %q", codecID)
	}
}

func readDecoderConfig(r *bitbuffer.ReadBuffer, codecID CodecID) (DecoderConfig, error) {
	var cfg DecoderConfig
	switch codecID {
	case CodecIDLPCM:
		c, err := readLPCMDecoderConfig(r)
		cfg.LPCM = &c
		return cfg, err
	case CodecIDOpus:
		c, err := readOpusDecoderConfig(r)
		cfg.Opus = &c
		return cfg, err
	case CodecIDAAC:
		c, err := readAACDecoderConfig(r)
		cfg.AAC = &c
		return cfg, err
	case CodecIDFLAC:
		c, err := readFLACDecoderConfig(r)
		cfg.FLAC = &c
		return cfg, err
	default:
		return cfg, iamferr.Wrapf(iamferr.InvalidArgument, "unsupported codec_id %q", codecID)
	}
}
