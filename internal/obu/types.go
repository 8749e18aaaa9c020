// Package obu implements the IAMF OBU model: a closed set of tagged
// variants (descriptor and data OBUs), each with a bit-exact
// ValidateAndWrite / Read...Payload pair, dispatched by ObuType the same
// way the teacher's mp4 box package dispatches on a 4-byte box type.
package obu

import "fmt"

// ObuType is the 5-bit OBU type tag carried in every ObuHeader.
type ObuType uint8

const (
	ObuCodecConfig       ObuType = 0
	ObuAudioElement      ObuType = 1
	ObuMixPresentation   ObuType = 2
	ObuParameterBlock    ObuType = 3
	ObuTemporalDelimiter ObuType = 4
	ObuAudioFrame        ObuType = 5 // generic variant, explicit substream id on the wire

	// ObuAudioFrameID0 is the first of 18 implicit-substream-id variants
	// (ObuAudioFrameID0 .. ObuAudioFrameID0+17); the substream id is the
	// OBU type itself minus ObuAudioFrameID0.
	ObuAudioFrameID0 ObuType = 6

	ObuReserved24 ObuType = 24
	ObuReserved25 ObuType = 25

	ObuIASequenceHeader ObuType = 31
)

// NumAudioFrameIDVariants is the count of implicit-substream-id AudioFrame
// OBU types (spec.md §3: "Variants 1..17 encode the substream id
// implicitly in the OBU type", i.e. 18 variants including id 0).
const NumAudioFrameIDVariants = 18

// IsAudioFrameIDVariant reports whether t is one of the 18 implicit
// AudioFrame variants, and if so returns the substream id it encodes.
func IsAudioFrameIDVariant(t ObuType) (substreamID uint32, ok bool) {
	if t < ObuAudioFrameID0 || t >= ObuAudioFrameID0+NumAudioFrameIDVariants {
		return 0, false
	}
	return uint32(t - ObuAudioFrameID0), true
}

// AudioFrameIDVariant returns the OBU type encoding substreamID implicitly,
// and whether one exists for that id (ids 0..17 only).
func AudioFrameIDVariant(substreamID uint32) (ObuType, bool) {
	if substreamID >= NumAudioFrameIDVariants {
		return 0, false
	}
	return ObuAudioFrameID0 + ObuType(substreamID), true
}

func (t ObuType) String() string {
	switch t {
	case ObuCodecConfig:
		return "codec_config"
	case ObuAudioElement:
		return "audio_element"
	case ObuMixPresentation:
		return "mix_presentation"
	case ObuParameterBlock:
		return "parameter_block"
	case ObuTemporalDelimiter:
		return "temporal_delimiter"
	case ObuAudioFrame:
		return "audio_frame"
	case ObuIASequenceHeader:
		return "ia_sequence_header"
	}
	if sub, ok := IsAudioFrameIDVariant(t); ok {
		return fmt.Sprintf("audio_frame_id_%d", sub)
	}
	return fmt.Sprintf("obu_type_%d", t)
}

// Profile is the IaSequenceHeader's primary/additional profile.
type Profile uint8

const (
	ProfileSimple Profile = iota
	ProfileBase
	ProfileBaseEnhanced
)

func (p Profile) String() string {
	switch p {
	case ProfileSimple:
		return "simple"
	case ProfileBase:
		return "base"
	case ProfileBaseEnhanced:
		return "base_enhanced"
	default:
		return fmt.Sprintf("profile_%d", uint8(p))
	}
}

// Profile structural ceilings, following original_source's actual
// per-profile bounds rather than an unspecified placeholder (SPEC_FULL.md
// §13.4): Simple admits exactly one audio element and up to 2 channels per
// mix presentation sub-mix; Base admits up to 2 audio elements and 28
// channels; BaseEnhanced removes both ceilings.
const (
	baseMaxAudioElements  = 2
	baseMaxChannels       = 28
	simpleMaxAudioElement = 1
	simpleMaxChannels     = 2
)

// CodecID is the FourCC codec identifier carried in CodecConfig.
type CodecID [4]byte

var (
	CodecIDLPCM = CodecID{'i', 'p', 'c', 'm'}
	CodecIDOpus = CodecID{'O', 'p', 'u', 's'}
	CodecIDAAC  = CodecID{'m', 'p', '4', 'a'}
	CodecIDFLAC = CodecID{'f', 'L', 'a', 'C'}
)

func (c CodecID) String() string { return string(c[:]) }

// AudioElementType distinguishes channel-based from scene-based elements.
type AudioElementType uint8

const (
	AudioElementChannelBased AudioElementType = 0
	AudioElementSceneBased   AudioElementType = 1
)

// ParamDefinitionType distinguishes the three parameter-definition
// subtypes plus the family of values an encoder doesn't recognize.
type ParamDefinitionType uint8

const (
	ParamDefinitionDemixing  ParamDefinitionType = 0
	ParamDefinitionReconGain ParamDefinitionType = 1
	ParamDefinitionMixGain   ParamDefinitionType = 2
)

// MixGainAnimationType tags a mix-gain parameter subblock's animation
// shape.
type MixGainAnimationType uint8

const (
	MixGainAnimationStep MixGainAnimationType = iota
	MixGainAnimationLinear
	MixGainAnimationBezier
)

// DmixpMode is the demixing parameter's named mode, looked up through a
// static bidirectional table (dmixpModeTable) rather than cast directly,
// per the Design Notes' guidance on proto-to-internal enum maps.
type DmixpMode uint8

const (
	DmixpMode1 DmixpMode = iota + 1
	DmixpMode2
	DmixpMode3
)

// InsertionHook selects where an ArbitraryObu is spliced into the stream.
type InsertionHook uint8

const (
	HookAfterIaSequenceHeader InsertionHook = iota
	HookAfterCodecConfigs
	HookAfterAudioElements
	HookAfterMixPresentations
	HookAfterDescriptors
	HookBeforeParameterBlocksAtTick
	HookAfterParameterBlocksAtTick
	HookAfterAudioFramesAtTick
)

// IsTickBound reports whether h carries an insertion_tick and belongs
// inside a temporal unit rather than the descriptor prologue.
func (h InsertionHook) IsTickBound() bool {
	switch h {
	case HookBeforeParameterBlocksAtTick, HookAfterParameterBlocksAtTick, HookAfterAudioFramesAtTick:
		return true
	default:
		return false
	}
}
