// Package codec is the AudioCodec collaborator boundary: it builds the
// DecoderConfig descriptors the core OBU model carries and frames raw PCM
// into each codec's bitstream, but the actual perceptual encoding for
// Opus/AAC/FLAC is delegated to the caller-supplied EncodeFunc —
// those codecs are an external collaborator, out of the core's scope
// except at this interface boundary.
package codec

import (
	"encoding/binary"

	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
)

// AudioCodec frames one CodecConfig's worth of PCM samples into its wire
// payload and exposes the DecoderConfig descriptor to embed in the
// CodecConfig OBU.
type AudioCodec interface {
	CodecID() obu.CodecID
	DecoderConfig() obu.DecoderConfig
	// EncodeFrame encodes one frame of interleaved PCM samples (one
	// int32 per sample regardless of bit depth) into the codec's wire
	// payload.
	EncodeFrame(pcm []int32, numChannels int) ([]byte, error)
}

// LPCM implements AudioCodec directly: IAMF's "lpcm" codec_id is PCM
// packed at a fixed sample size and endianness, no external encoder
// needed.
type LPCM struct {
	SampleFormat obu.LPCMSampleFormat
	SampleSize   uint8 // bits per sample: 8, 16, 24, or 32
	SampleRate   uint32
}

func (l LPCM) CodecID() obu.CodecID { return obu.CodecIDLPCM }

func (l LPCM) DecoderConfig() obu.DecoderConfig {
	return obu.DecoderConfig{LPCM: &obu.LPCMDecoderConfig{
		SampleFormat: l.SampleFormat,
		SampleSize:   l.SampleSize,
		SampleRate:   l.SampleRate,
	}}
}

func (l LPCM) EncodeFrame(pcm []int32, numChannels int) ([]byte, error) {
	if l.SampleSize%8 != 0 || l.SampleSize == 0 || l.SampleSize > 32 {
		return nil, iamferr.Wrapf(iamferr.InvalidArgument, "lpcm sample size %d is not a supported byte-aligned width", l.SampleSize)
	}
	bytesPerSample := int(l.SampleSize) / 8
	out := make([]byte, len(pcm)*bytesPerSample)
	for i, s := range pcm {
		packLPCMSample(out[i*bytesPerSample:(i+1)*bytesPerSample], s, l.SampleFormat)
	}
	return out, nil
}

func packLPCMSample(dst []byte, sample int32, format obu.LPCMSampleFormat) {
	n := len(dst)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(sample))
	switch format {
	case obu.LPCMLittleEndianInt:
		copy(dst, buf[:n])
	case obu.LPCMBigEndianInt:
		for i := 0; i < n; i++ {
			dst[i] = buf[n-1-i]
		}
	}
}

// EncodeFunc is an externally supplied encoder: it compresses one frame of
// interleaved PCM into the target codec's bitstream.
type EncodeFunc func(pcm []int32, numChannels int) ([]byte, error)

// Opus adapts an external Opus encoder to the AudioCodec interface,
// carrying the Ogg Opus ID-header fields IAMF's OpusDecoderConfig mirrors.
type Opus struct {
	Version         uint8
	PreSkip         uint16
	InputSampleRate uint32
	Encode          EncodeFunc
}

func (o Opus) CodecID() obu.CodecID { return obu.CodecIDOpus }

func (o Opus) DecoderConfig() obu.DecoderConfig {
	return obu.DecoderConfig{Opus: &obu.OpusDecoderConfig{
		Version:         o.Version,
		PreSkip:         o.PreSkip,
		InputSampleRate: o.InputSampleRate,
	}}
}

func (o Opus) EncodeFrame(pcm []int32, numChannels int) ([]byte, error) {
	if o.Encode == nil {
		return nil, iamferr.Wrap(iamferr.FailedPrecondition, "opus codec has no encoder attached")
	}
	return o.Encode(pcm, numChannels)
}

// AAC adapts an external AAC-LC encoder to the AudioCodec interface. The
// AudioSpecificConfig bytes are built once (see BuildAudioSpecificConfig)
// and carried verbatim in the CodecConfig's DecoderConfig.
type AAC struct {
	AudioSpecificConfig []byte
	Encode              EncodeFunc
}

func (a AAC) CodecID() obu.CodecID { return obu.CodecIDAAC }

func (a AAC) DecoderConfig() obu.DecoderConfig {
	return obu.DecoderConfig{AAC: &obu.AACDecoderConfig{AudioSpecificConfig: a.AudioSpecificConfig}}
}

func (a AAC) EncodeFrame(pcm []int32, numChannels int) ([]byte, error) {
	if a.Encode == nil {
		return nil, iamferr.Wrap(iamferr.FailedPrecondition, "aac codec has no encoder attached")
	}
	return a.Encode(pcm, numChannels)
}

// FLAC adapts an external FLAC encoder to the AudioCodec interface.
type FLAC struct {
	StreamInfo [34]byte
	Encode     EncodeFunc
}

func (f FLAC) CodecID() obu.CodecID { return obu.CodecIDFLAC }

func (f FLAC) DecoderConfig() obu.DecoderConfig {
	return obu.DecoderConfig{FLAC: &obu.FLACDecoderConfig{StreamInfo: f.StreamInfo}}
}

func (f FLAC) EncodeFrame(pcm []int32, numChannels int) ([]byte, error) {
	if f.Encode == nil {
		return nil, iamferr.Wrap(iamferr.FailedPrecondition, "flac codec has no encoder attached")
	}
	return f.Encode(pcm, numChannels)
}
