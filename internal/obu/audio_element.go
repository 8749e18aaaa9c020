package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// ChannelLayer is one layer of a scalable channel layout.
type ChannelLayer struct {
	LoudspeakerLayout     uint8 // 4 bits
	ReconGainIsPresent    bool
	SubstreamCount        uint8
	CoupledSubstreamCount uint8
}

// ChannelBasedConfig is a scalable channel layout: an ordered list of
// layers, each optionally carrying recon-gain parameters.
type ChannelBasedConfig struct {
	Layers []ChannelLayer
}

func (c ChannelBasedConfig) write(w *bitbuffer.WriteBuffer) error {
	if len(c.Layers) > 7 {
		return iamferr.Wrapf(iamferr.InvalidArgument, "channel config has %d layers, max 7", len(c.Layers))
	}
	if err := w.WriteUnsigned(uint64(len(c.Layers)), 3); err != nil {
		return err
	}
	if err := w.WriteUnsigned(0, 5); err != nil { // reserved
		return err
	}
	for _, l := range c.Layers {
		if err := w.WriteUnsigned(uint64(l.LoudspeakerLayout), 4); err != nil {
			return err
		}
		if err := w.WriteUnsigned(boolBit(l.ReconGainIsPresent), 1); err != nil {
			return err
		}
		if err := w.WriteUnsigned(0, 3); err != nil { // reserved
			return err
		}
		if err := w.WriteUnsigned(uint64(l.SubstreamCount), 8); err != nil {
			return err
		}
		if err := w.WriteUnsigned(uint64(l.CoupledSubstreamCount), 8); err != nil {
			return err
		}
	}
	return nil
}

func readChannelBasedConfig(r *bitbuffer.ReadBuffer) (ChannelBasedConfig, error) {
	var c ChannelBasedConfig
	numLayers, err := r.ReadUint8(3)
	if err != nil {
		return c, err
	}
	if _, err := r.ReadUint8(5); err != nil { // reserved
		return c, err
	}
	c.Layers = make([]ChannelLayer, numLayers)
	for i := range c.Layers {
		layout, err := r.ReadUint8(4)
		if err != nil {
			return c, err
		}
		present, err := r.ReadUint8(1)
		if err != nil {
			return c, err
		}
		if _, err := r.ReadUint8(3); err != nil { // reserved
			return c, err
		}
		substreams, err := r.ReadUint8(8)
		if err != nil {
			return c, err
		}
		coupled, err := r.ReadUint8(8)
		if err != nil {
			return c, err
		}
		c.Layers[i] = ChannelLayer{
			LoudspeakerLayout:     layout,
			ReconGainIsPresent:    present != 0,
			SubstreamCount:        substreams,
			CoupledSubstreamCount: coupled,
		}
	}
	return c, nil
}

// AmbisonicsMode selects between the mono and projection ambisonics
// config shapes.
type AmbisonicsMode uint8

const (
	AmbisonicsModeMono AmbisonicsMode = iota
	AmbisonicsModeProjection
)

// SceneBasedConfig is an ambisonics config, either a direct per-channel
// substream mapping (Mono) or a demixing-matrix projection (Projection).
type SceneBasedConfig struct {
	Mode AmbisonicsMode

	// Mono
	OutputChannelCount uint8
	SubstreamCount     uint8
	ChannelMapping     []uint8

	// Projection
	CoupledSubstreamCount uint8
	DemixingMatrix        []int16
}

func (c SceneBasedConfig) write(w *bitbuffer.WriteBuffer) error {
	if err := w.WriteUnsigned(uint64(c.Mode), 8); err != nil {
		return err
	}
	if err := w.WriteUnsigned(uint64(c.OutputChannelCount), 8); err != nil {
		return err
	}
	if err := w.WriteUnsigned(uint64(c.SubstreamCount), 8); err != nil {
		return err
	}
	switch c.Mode {
	case AmbisonicsModeMono:
		if len(c.ChannelMapping) != int(c.OutputChannelCount) {
			return iamferr.Wrap(iamferr.InvalidArgument, "ambisonics mono channel_mapping length must equal output_channel_count")
		}
		for _, m := range c.ChannelMapping {
			if err := w.WriteUnsigned(uint64(m), 8); err != nil {
				return err
			}
		}
	case AmbisonicsModeProjection:
		if err := w.WriteUnsigned(uint64(c.CoupledSubstreamCount), 8); err != nil {
			return err
		}
		for _, v := range c.DemixingMatrix {
			if err := w.WriteSigned16(v); err != nil {
				return err
			}
		}
	default:
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown ambisonics mode %d", c.Mode)
	}
	return nil
}

func readSceneBasedConfig(r *bitbuffer.ReadBuffer) (SceneBasedConfig, error) {
	var c SceneBasedConfig
	mode, err := r.ReadUint8(8)
	if err != nil {
		return c, err
	}
	c.Mode = AmbisonicsMode(mode)
	outCh, err := r.ReadUint8(8)
	if err != nil {
		return c, err
	}
	c.OutputChannelCount = outCh
	sub, err := r.ReadUint8(8)
	if err != nil {
		return c, err
	}
	c.SubstreamCount = sub
	switch c.Mode {
	case AmbisonicsModeMono:
		c.ChannelMapping = make([]uint8, outCh)
		for i := range c.ChannelMapping {
			v, err := r.ReadUint8(8)
			if err != nil {
				return c, err
			}
			c.ChannelMapping[i] = v
		}
	case AmbisonicsModeProjection:
		coupled, err := r.ReadUint8(8)
		if err != nil {
			return c, err
		}
		c.CoupledSubstreamCount = coupled
		n := int(sub) + int(coupled)
		c.DemixingMatrix = make([]int16, n*int(outCh))
		for i := range c.DemixingMatrix {
			v, err := r.ReadSigned16()
			if err != nil {
				return c, err
			}
			c.DemixingMatrix[i] = v
		}
	default:
		return c, iamferr.Wrapf(iamferr.InvalidArgument, "unknown ambisonics mode %d", c.Mode)
	}
	return c, nil
}

// AudioElement declares one substream group and its layout.
type AudioElement struct {
	AudioElementID    uint32
	Type              AudioElementType
	CodecConfigID     uint32
	AudioSubstreamIDs []uint32

	ChannelConfig *ChannelBasedConfig // present iff Type == AudioElementChannelBased
	SceneConfig   *SceneBasedConfig   // present iff Type == AudioElementSceneBased

	// ParamDefinitions is demixing/recon-gain only; mix-gain here is a
	// hard error (spec.md §3), and an entry of unrecognized type is
	// skipped by ReadAudioElementPayload (reported through its callback,
	// never added here), so every entry here is demixing or recon-gain.
	ParamDefinitions []ParamDefinition
}

func (a AudioElement) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	for _, pd := range a.ParamDefinitions {
		if pd.Type == ParamDefinitionMixGain {
			return iamferr.Wrap(iamferr.InvalidArgument, "mix-gain param definitions are forbidden inside an AudioElement")
		}
	}
	h := Header{Type: ObuAudioElement}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := nested.WriteUleb128(a.AudioElementID, gen); err != nil {
			return err
		}
		if err := nested.WriteUnsigned(uint64(a.Type), 3); err != nil {
			return err
		}
		if err := nested.WriteUnsigned(0, 5); err != nil { // reserved
			return err
		}
		if err := nested.WriteUleb128(a.CodecConfigID, gen); err != nil {
			return err
		}
		if err := nested.WriteUleb128(uint32(len(a.AudioSubstreamIDs)), gen); err != nil {
			return err
		}
		for _, id := range a.AudioSubstreamIDs {
			if err := nested.WriteUleb128(id, gen); err != nil {
				return err
			}
		}
		switch a.Type {
		case AudioElementChannelBased:
			if a.ChannelConfig == nil {
				return iamferr.Wrap(iamferr.InvalidArgument, "channel-based audio element missing channel config")
			}
			if err := a.ChannelConfig.write(nested); err != nil {
				return err
			}
		case AudioElementSceneBased:
			if a.SceneConfig == nil {
				return iamferr.Wrap(iamferr.InvalidArgument, "scene-based audio element missing scene config")
			}
			if err := a.SceneConfig.write(nested); err != nil {
				return err
			}
		default:
			return iamferr.Wrapf(iamferr.InvalidArgument, "unknown audio_element_type %d", a.Type)
		}
		if err := nested.WriteUleb128(uint32(len(a.ParamDefinitions)), gen); err != nil {
			return err
		}
		for _, pd := range a.ParamDefinitions {
			if err := nested.WriteUnsigned(uint64(pd.Type), 8); err != nil {
				return err
			}
			if err := pd.write(nested, gen); err != nil {
				return err
			}
		}
		return nil
	})
}

func ReadAudioElementPayload(r *bitbuffer.ReadBuffer, onUnknownParamDefinition func(paramType uint8)) (AudioElement, error) {
	var a AudioElement
	id, err := r.ReadUleb128()
	if err != nil {
		return a, err
	}
	a.AudioElementID = id
	typ, err := r.ReadUint8(3)
	if err != nil {
		return a, err
	}
	a.Type = AudioElementType(typ)
	if _, err := r.ReadUint8(5); err != nil { // reserved
		return a, err
	}
	codecConfigID, err := r.ReadUleb128()
	if err != nil {
		return a, err
	}
	a.CodecConfigID = codecConfigID
	numSubstreams, err := r.ReadUleb128()
	if err != nil {
		return a, err
	}
	a.AudioSubstreamIDs = make([]uint32, numSubstreams)
	for i := range a.AudioSubstreamIDs {
		v, err := r.ReadUleb128()
		if err != nil {
			return a, err
		}
		a.AudioSubstreamIDs[i] = v
	}
	switch a.Type {
	case AudioElementChannelBased:
		cfg, err := readChannelBasedConfig(r)
		if err != nil {
			return a, err
		}
		a.ChannelConfig = &cfg
	case AudioElementSceneBased:
		cfg, err := readSceneBasedConfig(r)
		if err != nil {
			return a, err
		}
		a.SceneConfig = &cfg
	default:
		return a, iamferr.Wrapf(iamferr.InvalidArgument, "unknown audio_element_type %d", a.Type)
	}
	numParams, err := r.ReadUleb128()
	if err != nil {
		return a, err
	}
	for i := uint32(0); i < numParams; i++ {
		wireType, err := r.ReadUint8(8)
		if err != nil {
			return a, err
		}
		switch ParamDefinitionType(wireType) {
		case ParamDefinitionDemixing, ParamDefinitionReconGain:
			pd, err := ReadParamDefinition(r, ParamDefinitionType(wireType))
			if err != nil {
				return a, err
			}
			a.ParamDefinitions = append(a.ParamDefinitions, pd)
		case ParamDefinitionMixGain:
			return a, iamferr.Wrap(iamferr.InvalidArgument, "mix-gain param definitions are forbidden inside an AudioElement")
		default:
			// Unknown param_definition_type inside an AudioElement is a
			// warning-level skip, not an error: resync past the common
			// param_definition header and move on to the next entry.
			if _, err := readParamDefinitionCommon(r); err != nil {
				return a, err
			}
			if onUnknownParamDefinition != nil {
				onUnknownParamDefinition(wireType)
			}
		}
	}
	return a, nil
}
