// Package config ingests the user-supplied metadata descriptor: a YAML
// document mirroring the teacher's own config.yaml conventions
// (github.com/go-audio/wav's sibling, gopkg.in/yaml.v3, yaml-tagged Go
// struct trees) but fixed to the bit-exact key list this encoder needs
// rather than the teacher's generic reflection-driven plugin config.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
)

// UserMetadata is the top-level descriptor record: one IA sequence
// header, any number of codec configs, audio elements, mix
// presentations, audio-frame-ingestion directives, parameter-block
// directives, and arbitrary-OBU insertion directives.
type UserMetadata struct {
	IaSequenceHeader   IaSequenceHeaderMetadata    `yaml:"ia_sequence_header_metadata"`
	CodecConfigs       []CodecConfigMetadata       `yaml:"codec_config_metadata"`
	AudioElements      []AudioElementMetadata      `yaml:"audio_element_metadata"`
	MixPresentations   []MixPresentationMetadata   `yaml:"mix_presentation_metadata"`
	AudioFrames        []AudioFrameMetadata        `yaml:"audio_frame_metadata"`
	ParameterBlocks    []ParameterBlockMetadata    `yaml:"parameter_block_metadata"`
	ArbitraryObus      []ArbitraryObuMetadata      `yaml:"arbitrary_obu_metadata"`
}

type IaSequenceHeaderMetadata struct {
	PrimaryProfile    string `yaml:"primary_profile"`
	AdditionalProfile string `yaml:"additional_profile"`
}

type CodecConfigMetadata struct {
	CodecConfigID uint32            `yaml:"codec_config_id"`
	CodecConfig   CodecConfigBody   `yaml:"codec_config"`
}

type CodecConfigBody struct {
	CodecID            string `yaml:"codec_id"`
	NumSamplesPerFrame uint32 `yaml:"num_samples_per_frame"`
	AudioRollDistance  int16  `yaml:"audio_roll_distance"`

	// Exactly one of the following is populated, selected by CodecID.
	DecoderConfigLPCM *DecoderConfigLPCM `yaml:"decoder_config_lpcm,omitempty"`
	DecoderConfigOpus *DecoderConfigOpus `yaml:"decoder_config_opus,omitempty"`
	DecoderConfigAAC  *DecoderConfigAAC  `yaml:"decoder_config_aac,omitempty"`
	DecoderConfigFLAC *DecoderConfigFLAC `yaml:"decoder_config_flac,omitempty"`
}

type DecoderConfigLPCM struct {
	SampleFormat string `yaml:"sample_format"` // "big_endian" | "little_endian"
	SampleSize   uint8  `yaml:"sample_size"`
	SampleRate   uint32 `yaml:"sample_rate"`
}

type DecoderConfigOpus struct {
	Version         uint8  `yaml:"version"`
	PreSkip         uint16 `yaml:"pre_skip"`
	InputSampleRate uint32 `yaml:"input_sample_rate"`
}

type DecoderConfigAAC struct {
	// AudioSpecificConfigHex is the hex-encoded raw AudioSpecificConfig;
	// typically built by internal/codec.BuildAudioSpecificConfig rather
	// than authored by hand, but accepted verbatim when supplied.
	AudioSpecificConfigHex string `yaml:"audio_specific_config_hex"`
}

type DecoderConfigFLAC struct {
	StreamInfoHex string `yaml:"stream_info_hex"`
}

type AudioElementMetadata struct {
	AudioElementID    uint32                  `yaml:"audio_element_id"`
	AudioElementType  string                  `yaml:"audio_element_type"` // "channel_based" | "scene_based"
	CodecConfigID     uint32                  `yaml:"codec_config_id"`
	AudioSubstreamIDs []uint32                `yaml:"audio_substream_ids"`

	ChannelLayoutConfig *ChannelLayoutConfig  `yaml:"channel_layout_config,omitempty"`
	SceneBasedConfig    *SceneBasedConfig     `yaml:"scene_based_config,omitempty"`

	Params []ParamDefinitionMetadata `yaml:"audio_element_params"`
}

type ChannelLayoutConfig struct {
	Layers []ChannelLayerMetadata `yaml:"layers"`
}

type ChannelLayerMetadata struct {
	LoudspeakerLayout     uint8 `yaml:"loudspeaker_layout"`
	ReconGainIsPresent    bool  `yaml:"recon_gain_is_present"`
	SubstreamCount        uint8 `yaml:"substream_count"`
	CoupledSubstreamCount uint8 `yaml:"coupled_substream_count"`
}

type SceneBasedConfig struct {
	Mode                  string  `yaml:"ambisonics_mode"` // "mono" | "projection"
	OutputChannelCount    uint8   `yaml:"output_channel_count"`
	SubstreamCount        uint8   `yaml:"substream_count"`
	ChannelMapping        []uint8 `yaml:"channel_mapping"`
	CoupledSubstreamCount uint8   `yaml:"coupled_substream_count"`
	DemixingMatrix        []int16 `yaml:"demixing_matrix"`
}

// ParamDefinitionMetadata is the YAML shape for a single param definition,
// shared between audio_element_params and the mix-gain fields nested
// inside mix_presentation_metadata.
type ParamDefinitionMetadata struct {
	ParameterID              uint32   `yaml:"parameter_id"`
	ParameterRate            uint32   `yaml:"parameter_rate"`
	ParamDefinitionMode      bool     `yaml:"param_definition_mode"`
	Duration                 uint32   `yaml:"duration"`
	ConstantSubblockDuration uint32   `yaml:"constant_subblock_duration"`
	SubblockDurations        []uint32 `yaml:"subblock_durations"`

	Type string `yaml:"param_definition_type"` // "demixing" | "recon_gain" | "mix_gain"

	DefaultDmixpMode int16 `yaml:"default_dmixp_mode"` // 1..3
	AudioElementID   uint32 `yaml:"audio_element_id"`  // recon_gain only
	DefaultMixGain   int16 `yaml:"default_mix_gain"`
}

type MixPresentationMetadata struct {
	MixPresentationID                 uint32              `yaml:"mix_presentation_id"`
	AnnotationLabels                  []string            `yaml:"annotation_labels"`
	LocalizedPresentationAnnotations  []string            `yaml:"localized_presentation_annotations"`
	SubMixes                          []SubMixMetadata    `yaml:"sub_mixes"`
}

type SubMixMetadata struct {
	Elements      []SubMixElementMetadata `yaml:"audio_elements"`
	OutputMixGain ParamDefinitionMetadata `yaml:"output_mix_gain"`
	Layouts       []LoudnessLayoutMetadata `yaml:"layouts"`
}

type SubMixElementMetadata struct {
	AudioElementID              uint32                  `yaml:"audio_element_id"`
	LocalizedElementAnnotations []string                `yaml:"localized_element_annotations"`
	RenderingConfig             RenderingConfigMetadata `yaml:"rendering_config"`
	ElementMixGain              ParamDefinitionMetadata `yaml:"element_mix_gain"`
}

type RenderingConfigMetadata struct {
	HeadphonesRenderingMode string `yaml:"headphones_rendering_mode"` // "stereo"|"binaural"
	ExtensionBytesHex       string `yaml:"extension_bytes_hex,omitempty"`
}

type LoudnessLayoutMetadata struct {
	LoudspeakerLayout  uint8 `yaml:"loudspeaker_layout"`
	IntegratedLoudness int16 `yaml:"integrated_loudness"`
	DigitalPeak        int16 `yaml:"digital_peak"`
	TruePeakPresent    bool  `yaml:"true_peak_present"`
	TruePeak           int16 `yaml:"true_peak"`
}

// AudioFrameMetadata drives the CLI's WAV ingestion: which file supplies
// which audio element's samples, in what channel-label order, and how
// much of the encoded stream to trim at either end.
type AudioFrameMetadata struct {
	AudioElementID      uint32   `yaml:"audio_element_id"`
	WavFile             string   `yaml:"wav_file"`
	ChannelIDs          []uint32 `yaml:"channel_ids"`
	ChannelLabels       []string `yaml:"channel_labels"`
	SamplesToTrimAtStart uint32  `yaml:"samples_to_trim_at_start"`
	SamplesToTrimAtEnd   uint32  `yaml:"samples_to_trim_at_end"`
}

type ParameterBlockMetadata struct {
	ParameterID              uint32   `yaml:"parameter_id"`
	Tick                     int64    `yaml:"tick"`
	Duration                 uint32   `yaml:"duration"`
	NumSubblocks             uint32   `yaml:"num_subblocks"`
	ConstantSubblockDuration uint32   `yaml:"constant_subblock_duration"`
	Subblocks                []SubblockMetadata `yaml:"subblocks"`
}

type SubblockMetadata struct {
	MixGainAnimationType string `yaml:"mix_gain_animation_type,omitempty"` // "step"|"linear"|"bezier"
	StartValue           int16  `yaml:"start_value,omitempty"`
	EndValue              int16 `yaml:"end_value,omitempty"`
	ControlValue          int16 `yaml:"control_value,omitempty"`
	ControlRelativeTime   uint8 `yaml:"control_relative_time,omitempty"`

	DmixpMode int16 `yaml:"dmixp_mode,omitempty"`

	// ReconGainLayers has one entry per layer with recon_gain_is_present
	// on the referenced audio element, in layer order.
	ReconGainLayers []ReconGainLayerMetadata `yaml:"recon_gain_layers,omitempty"`
}

type ReconGainLayerMetadata struct {
	ReconGainFlag uint8   `yaml:"recon_gain_flag"`
	ReconGain     []uint8 `yaml:"recon_gain"`
}

type ArbitraryObuMetadata struct {
	InsertionHook          string `yaml:"insertion_hook"`
	InsertionTick          int64  `yaml:"insertion_tick"`
	PayloadHex             string `yaml:"payload_hex"`
	InvalidateTemporalUnit bool   `yaml:"invalidate_temporal_unit"`
}

// Load reads and parses a user-metadata descriptor file.
func Load(path string) (*UserMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, iamferr.Wrap(iamferr.InvalidArgument, "read metadata file: "+err.Error())
	}
	var m UserMetadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, iamferr.Wrap(iamferr.InvalidArgument, "parse metadata yaml: "+err.Error())
	}
	return &m, nil
}

var profileTable = map[string]obu.Profile{
	"SIMPLE":        obu.ProfileSimple,
	"BASE":          obu.ProfileBase,
	"BASE_ENHANCED": obu.ProfileBaseEnhanced,
}

func parseProfile(s string) (obu.Profile, error) {
	p, ok := profileTable[s]
	if !ok {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "unknown profile %q", s)
	}
	return p, nil
}

// ToIaSequenceHeader converts the parsed metadata into its obu form.
func (m IaSequenceHeaderMetadata) ToIaSequenceHeader() (obu.IaSequenceHeader, error) {
	primary, err := parseProfile(m.PrimaryProfile)
	if err != nil {
		return obu.IaSequenceHeader{}, err
	}
	additional, err := parseProfile(m.AdditionalProfile)
	if err != nil {
		return obu.IaSequenceHeader{}, err
	}
	return obu.IaSequenceHeader{PrimaryProfile: primary, AdditionalProfile: additional}, nil
}
