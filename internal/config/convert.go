package config

import (
	"encoding/hex"

	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
)

var codecIDTable = map[string]obu.CodecID{
	"ipcm": obu.CodecIDLPCM,
	"Opus": obu.CodecIDOpus,
	"mp4a": obu.CodecIDAAC,
	"fLaC": obu.CodecIDFLAC,
}

func parseCodecID(s string) (obu.CodecID, error) {
	id, ok := codecIDTable[s]
	if !ok {
		return obu.CodecID{}, iamferr.Wrapf(iamferr.InvalidArgument, "unknown codec_id %q", s)
	}
	return id, nil
}

type headphonesRenderingModeLookup map[string]obu.HeadphonesRenderingMode

func (t headphonesRenderingModeLookup) parse(s string) (obu.HeadphonesRenderingMode, error) {
	if s == "" {
		return obu.HeadphonesRenderingModeStereo, nil
	}
	mode, ok := t[s]
	if !ok {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "unknown headphones_rendering_mode %q", s)
	}
	return mode, nil
}

var headphonesRenderingModeTable = headphonesRenderingModeLookup{
	"stereo":   obu.HeadphonesRenderingModeStereo,
	"binaural": obu.HeadphonesRenderingModeBinaural,
}

func parseHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, iamferr.Wrapf(iamferr.InvalidArgument, "%s is not valid hex: %v", field, err)
	}
	return b, nil
}

// ToCodecConfig converts one codec_config_metadata entry.
func (m CodecConfigMetadata) ToCodecConfig() (obu.CodecConfig, error) {
	codecID, err := parseCodecID(m.CodecConfig.CodecID)
	if err != nil {
		return obu.CodecConfig{}, err
	}
	c := obu.CodecConfig{
		CodecConfigID:      m.CodecConfigID,
		CodecID:            codecID,
		NumSamplesPerFrame: m.CodecConfig.NumSamplesPerFrame,
		AudioRollDistance:  m.CodecConfig.AudioRollDistance,
	}
	switch codecID {
	case obu.CodecIDLPCM:
		if m.CodecConfig.DecoderConfigLPCM == nil {
			return c, iamferr.Wrap(iamferr.InvalidArgument, "codec_id ipcm requires decoder_config_lpcm")
		}
		var format obu.LPCMSampleFormat
		switch m.CodecConfig.DecoderConfigLPCM.SampleFormat {
		case "little_endian":
			format = obu.LPCMLittleEndianInt
		case "big_endian":
			format = obu.LPCMBigEndianInt
		default:
			return c, iamferr.Wrapf(iamferr.InvalidArgument, "unknown lpcm sample_format %q", m.CodecConfig.DecoderConfigLPCM.SampleFormat)
		}
		c.DecoderConfig.LPCM = &obu.LPCMDecoderConfig{
			SampleFormat: format,
			SampleSize:   m.CodecConfig.DecoderConfigLPCM.SampleSize,
			SampleRate:   m.CodecConfig.DecoderConfigLPCM.SampleRate,
		}
	case obu.CodecIDOpus:
		if m.CodecConfig.DecoderConfigOpus == nil {
			return c, iamferr.Wrap(iamferr.InvalidArgument, "codec_id Opus requires decoder_config_opus")
		}
		c.DecoderConfig.Opus = &obu.OpusDecoderConfig{
			Version:         m.CodecConfig.DecoderConfigOpus.Version,
			PreSkip:         m.CodecConfig.DecoderConfigOpus.PreSkip,
			InputSampleRate: m.CodecConfig.DecoderConfigOpus.InputSampleRate,
		}
	case obu.CodecIDAAC:
		if m.CodecConfig.DecoderConfigAAC == nil {
			return c, iamferr.Wrap(iamferr.InvalidArgument, "codec_id mp4a requires decoder_config_aac")
		}
		asc, err := parseHex("audio_specific_config_hex", m.CodecConfig.DecoderConfigAAC.AudioSpecificConfigHex)
		if err != nil {
			return c, err
		}
		c.DecoderConfig.AAC = &obu.AACDecoderConfig{AudioSpecificConfig: asc}
	case obu.CodecIDFLAC:
		if m.CodecConfig.DecoderConfigFLAC == nil {
			return c, iamferr.Wrap(iamferr.InvalidArgument, "codec_id fLaC requires decoder_config_flac")
		}
		si, err := parseHex("stream_info_hex", m.CodecConfig.DecoderConfigFLAC.StreamInfoHex)
		if err != nil {
			return c, err
		}
		if len(si) != 34 {
			return c, iamferr.Wrapf(iamferr.InvalidArgument, "stream_info_hex decodes to %d bytes, want 34", len(si))
		}
		var arr [34]byte
		copy(arr[:], si)
		c.DecoderConfig.FLAC = &obu.FLACDecoderConfig{StreamInfo: arr}
	}
	return c, nil
}

var paramDefinitionTypeTable = map[string]obu.ParamDefinitionType{
	"demixing":   obu.ParamDefinitionDemixing,
	"recon_gain": obu.ParamDefinitionReconGain,
	"mix_gain":   obu.ParamDefinitionMixGain,
}

// ToParamDefinition converts one audio_element_params/mix_gain entry.
func (m ParamDefinitionMetadata) ToParamDefinition() (obu.ParamDefinition, error) {
	typ, ok := paramDefinitionTypeTable[m.Type]
	if !ok {
		return obu.ParamDefinition{}, iamferr.Wrapf(iamferr.InvalidArgument, "unknown param_definition_type %q", m.Type)
	}
	p := obu.ParamDefinition{
		ParameterID:              m.ParameterID,
		ParameterRate:            m.ParameterRate,
		ParamDefinitionMode:      m.ParamDefinitionMode,
		Duration:                 m.Duration,
		ConstantSubblockDuration: m.ConstantSubblockDuration,
		SubblockDurations:        m.SubblockDurations,
		Type:                     typ,
	}
	switch typ {
	case obu.ParamDefinitionDemixing:
		p.Demixing = &obu.DemixingParamDefinition{DefaultDmixpMode: obu.DmixpMode(m.DefaultDmixpMode)}
	case obu.ParamDefinitionReconGain:
		p.ReconGain = &obu.ReconGainParamDefinition{AudioElementID: m.AudioElementID}
	case obu.ParamDefinitionMixGain:
		p.MixGain = &obu.MixGainParamDefinition{DefaultMixGain: m.DefaultMixGain}
	}
	return p, nil
}

// ToAudioElement converts one audio_element_metadata entry.
func (m AudioElementMetadata) ToAudioElement() (obu.AudioElement, error) {
	a := obu.AudioElement{
		AudioElementID:    m.AudioElementID,
		CodecConfigID:     m.CodecConfigID,
		AudioSubstreamIDs: m.AudioSubstreamIDs,
	}
	switch m.AudioElementType {
	case "channel_based":
		a.Type = obu.AudioElementChannelBased
		if m.ChannelLayoutConfig == nil {
			return a, iamferr.Wrap(iamferr.InvalidArgument, "channel_based audio element requires channel_layout_config")
		}
		layers := make([]obu.ChannelLayer, len(m.ChannelLayoutConfig.Layers))
		for i, l := range m.ChannelLayoutConfig.Layers {
			layers[i] = obu.ChannelLayer{
				LoudspeakerLayout:     l.LoudspeakerLayout,
				ReconGainIsPresent:    l.ReconGainIsPresent,
				SubstreamCount:        l.SubstreamCount,
				CoupledSubstreamCount: l.CoupledSubstreamCount,
			}
		}
		a.ChannelConfig = &obu.ChannelBasedConfig{Layers: layers}
	case "scene_based":
		a.Type = obu.AudioElementSceneBased
		if m.SceneBasedConfig == nil {
			return a, iamferr.Wrap(iamferr.InvalidArgument, "scene_based audio element requires scene_based_config")
		}
		var mode obu.AmbisonicsMode
		switch m.SceneBasedConfig.Mode {
		case "mono":
			mode = obu.AmbisonicsModeMono
		case "projection":
			mode = obu.AmbisonicsModeProjection
		default:
			return a, iamferr.Wrapf(iamferr.InvalidArgument, "unknown ambisonics_mode %q", m.SceneBasedConfig.Mode)
		}
		a.SceneConfig = &obu.SceneBasedConfig{
			Mode:                  mode,
			OutputChannelCount:    m.SceneBasedConfig.OutputChannelCount,
			SubstreamCount:        m.SceneBasedConfig.SubstreamCount,
			ChannelMapping:        m.SceneBasedConfig.ChannelMapping,
			CoupledSubstreamCount: m.SceneBasedConfig.CoupledSubstreamCount,
			DemixingMatrix:        m.SceneBasedConfig.DemixingMatrix,
		}
	default:
		return a, iamferr.Wrapf(iamferr.InvalidArgument, "unknown audio_element_type %q", m.AudioElementType)
	}
	for _, pm := range m.Params {
		pd, err := pm.ToParamDefinition()
		if err != nil {
			return a, err
		}
		a.ParamDefinitions = append(a.ParamDefinitions, pd)
	}
	return a, nil
}

// ToMixPresentation converts one mix_presentation_metadata entry.
func (m MixPresentationMetadata) ToMixPresentation() (obu.MixPresentation, error) {
	mp := obu.MixPresentation{
		MixPresentationID:                m.MixPresentationID,
		AnnotationLabels:                 m.AnnotationLabels,
		LocalizedPresentationAnnotations: m.LocalizedPresentationAnnotations,
	}
	for _, sm := range m.SubMixes {
		s := obu.SubMix{}
		for _, e := range sm.Elements {
			if len(e.LocalizedElementAnnotations) != len(m.AnnotationLabels) {
				return mp, iamferr.Wrapf(iamferr.InvalidArgument, "audio_element %d has %d localized_element_annotations, want count_label %d", e.AudioElementID, len(e.LocalizedElementAnnotations), len(m.AnnotationLabels))
			}
			gain, err := e.ElementMixGain.ToParamDefinition()
			if err != nil {
				return mp, err
			}
			renderingMode, err := headphonesRenderingModeTable.parse(e.RenderingConfig.HeadphonesRenderingMode)
			if err != nil {
				return mp, err
			}
			ext, err := parseHex("extension_bytes_hex", e.RenderingConfig.ExtensionBytesHex)
			if err != nil {
				return mp, err
			}
			s.Elements = append(s.Elements, obu.MixPresentationElement{
				AudioElementID:              e.AudioElementID,
				LocalizedElementAnnotations: e.LocalizedElementAnnotations,
				RenderingConfig: obu.RenderingConfig{
					HeadphonesRenderingMode: renderingMode,
					ExtensionBytes:          ext,
				},
				ElementMixGain: gain,
			})
		}
		outGain, err := sm.OutputMixGain.ToParamDefinition()
		if err != nil {
			return mp, err
		}
		s.OutputMixGain = outGain
		for _, l := range sm.Layouts {
			s.Layouts = append(s.Layouts, obu.LoudnessLayout{
				LoudspeakerLayout:  l.LoudspeakerLayout,
				IntegratedLoudness: l.IntegratedLoudness,
				DigitalPeak:        l.DigitalPeak,
				TruePeakPresent:    l.TruePeakPresent,
				TruePeak:           l.TruePeak,
			})
		}
		mp.SubMixes = append(mp.SubMixes, s)
	}
	return mp, nil
}

var insertionHookTable = map[string]obu.InsertionHook{
	"after_ia_sequence_header":   obu.HookAfterIaSequenceHeader,
	"after_codec_configs":        obu.HookAfterCodecConfigs,
	"after_audio_elements":       obu.HookAfterAudioElements,
	"after_mix_presentations":    obu.HookAfterMixPresentations,
	"after_descriptors":         obu.HookAfterDescriptors,
	"before_parameter_blocks_at_tick": obu.HookBeforeParameterBlocksAtTick,
	"after_parameter_blocks_at_tick":  obu.HookAfterParameterBlocksAtTick,
	"after_audio_frames_at_tick":      obu.HookAfterAudioFramesAtTick,
}

// ToArbitraryObu converts one arbitrary_obu_metadata entry.
func (m ArbitraryObuMetadata) ToArbitraryObu() (obu.ArbitraryObu, error) {
	hook, ok := insertionHookTable[m.InsertionHook]
	if !ok {
		return obu.ArbitraryObu{}, iamferr.Wrapf(iamferr.InvalidArgument, "unknown insertion_hook %q", m.InsertionHook)
	}
	payload, err := parseHex("payload_hex", m.PayloadHex)
	if err != nil {
		return obu.ArbitraryObu{}, err
	}
	return obu.ArbitraryObu{
		Hook:                   hook,
		InsertionTick:          m.InsertionTick,
		InvalidateTemporalUnit: m.InvalidateTemporalUnit,
		Payload:                payload,
	}, nil
}

var mixGainAnimationTypeTable = map[string]obu.MixGainAnimationType{
	"step":   obu.MixGainAnimationStep,
	"linear": obu.MixGainAnimationLinear,
	"bezier": obu.MixGainAnimationBezier,
}

// ToParameterBlock converts one parameter_block_metadata entry. The
// caller resolves the referenced ParamDefinition (internal/param) and
// passes its type as defType, together with the recon-gain layer count;
// every subblock is converted according to defType.
func (m ParameterBlockMetadata) ToParameterBlock(defType obu.ParamDefinitionType, numReconGainLayers int) (obu.ParameterBlock, error) {
	if m.NumSubblocks != 0 && int(m.NumSubblocks) != len(m.Subblocks) {
		return obu.ParameterBlock{}, iamferr.Wrapf(iamferr.InvalidArgument,
			"num_subblocks %d disagrees with %d supplied subblocks", m.NumSubblocks, len(m.Subblocks))
	}
	p := obu.ParameterBlock{
		ParameterID:              m.ParameterID,
		Duration:                 m.Duration,
		ConstantSubblockDuration: m.ConstantSubblockDuration,
	}
	for _, sb := range m.Subblocks {
		switch defType {
		case obu.ParamDefinitionMixGain:
			animType, ok := mixGainAnimationTypeTable[sb.MixGainAnimationType]
			if !ok {
				return p, iamferr.Wrapf(iamferr.InvalidArgument, "unknown mix_gain_animation_type %q", sb.MixGainAnimationType)
			}
			p.Subblocks = append(p.Subblocks, obu.ParameterSubblock{MixGain: &obu.MixGainAnimation{
				Type:                           animType,
				StepStartPointValue:            sb.StartValue,
				LinearStartPointValue:          sb.StartValue,
				LinearEndPointValue:            sb.EndValue,
				BezierStartPointValue:          sb.StartValue,
				BezierEndPointValue:            sb.EndValue,
				BezierControlPointValue:        sb.ControlValue,
				BezierControlPointRelativeTime: sb.ControlRelativeTime,
			}})
		case obu.ParamDefinitionDemixing:
			p.Subblocks = append(p.Subblocks, obu.ParameterSubblock{
				Demixing: &obu.DemixingSubblock{DmixpMode: obu.DmixpMode(sb.DmixpMode)},
			})
		case obu.ParamDefinitionReconGain:
			if len(sb.ReconGainLayers) != numReconGainLayers {
				return p, iamferr.Wrapf(iamferr.InvalidArgument, "recon-gain subblock has %d layers, want %d", len(sb.ReconGainLayers), numReconGainLayers)
			}
			layers := make([]obu.ReconGainLayer, len(sb.ReconGainLayers))
			for i, l := range sb.ReconGainLayers {
				layers[i] = obu.ReconGainLayer{ReconGainFlag: l.ReconGainFlag, ReconGain: l.ReconGain}
			}
			p.Subblocks = append(p.Subblocks, obu.ParameterSubblock{ReconGain: &obu.ReconGainSubblock{Layers: layers}})
		default:
			return p, iamferr.Wrapf(iamferr.InvalidArgument, "unknown param_definition_type %d", defType)
		}
	}
	return p, nil
}
