package codec

import (
	"github.com/deepch/vdk/codec/aacparser"

	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// BuildAudioSpecificConfig constructs the raw MPEG-4 AudioSpecificConfig
// bytes an AAC CodecConfig's DecoderConfig carries: a 5-bit AAC-LC object
// type, 4-bit sample rate index, 4-bit channel config, and a 3-bit
// GASpecificConfig trailer (ISO/IEC 14496-3).
func BuildAudioSpecificConfig(sampleRate int, numChannels int) ([]byte, error) {
	if numChannels < 1 || numChannels > 7 {
		return nil, iamferr.Wrapf(iamferr.InvalidArgument, "aac does not support %d channels in a single AudioSpecificConfig", numChannels)
	}
	const objectTypeAACLC = 2
	srIndex := sampleRateIndex(sampleRate)

	bits := uint32(objectTypeAACLC)<<11 | uint32(srIndex)<<7 | uint32(numChannels)<<3
	return []byte{byte(bits >> 8), byte(bits)}, nil
}

// ParseAudioSpecificConfig validates and summarizes a raw AAC
// AudioSpecificConfig using vdk's aacparser, the same entry point the
// source uses to hydrate a codec context from stored config bytes
// (pkg/raw.go's aacparser.NewCodecDataFromMPEG4AudioConfigBytes).
func ParseAudioSpecificConfig(asc []byte) (sampleRate int, numChannels int, err error) {
	data, err := aacparser.NewCodecDataFromMPEG4AudioConfigBytes(asc)
	if err != nil {
		return 0, 0, iamferr.Wrapf(iamferr.InvalidArgument, "parse AudioSpecificConfig: %v", err)
	}
	return data.SampleRate(), data.ChannelLayout().Count(), nil
}

var aacSampleRates = []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

func sampleRateIndex(rate int) int {
	for i, r := range aacSampleRates {
		if r == rate {
			return i
		}
	}
	return 15 // "explicit sample rate" escape value
}
