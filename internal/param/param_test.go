package param

import (
	"testing"

	"github.com/iamf-tools/iamf-go/internal/obu"
)

func channelElement(id uint32, reconGainLayers []bool, paramID uint32) obu.AudioElement {
	layers := make([]obu.ChannelLayer, len(reconGainLayers))
	for i, present := range reconGainLayers {
		layers[i] = obu.ChannelLayer{LoudspeakerLayout: uint8(i), ReconGainIsPresent: present, SubstreamCount: 1}
	}
	return obu.AudioElement{
		AudioElementID: id,
		Type:           obu.AudioElementChannelBased,
		ChannelConfig:  &obu.ChannelBasedConfig{Layers: layers},
		ParamDefinitions: []obu.ParamDefinition{
			{
				ParameterID:              paramID,
				ConstantSubblockDuration: 1024,
				Duration:                 1024,
				Type:                     obu.ParamDefinitionReconGain,
				ReconGain:                &obu.ReconGainParamDefinition{AudioElementID: id},
			},
		},
	}
}

func TestNewMapResolvesReconGainLayerCount(t *testing.T) {
	e := channelElement(1, []bool{false, true, true}, 100)
	m, err := NewMap([]obu.AudioElement{e}, nil)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	meta, ok := m.Metadata(100)
	if !ok {
		t.Fatal("expected parameter_id 100 to resolve")
	}
	if meta.ReconGainLayers != 2 {
		t.Errorf("got %d recon gain layers, want 2", meta.ReconGainLayers)
	}
}

func TestNewMapRejectsDanglingReconGainReference(t *testing.T) {
	def := obu.ParamDefinition{
		ParameterID: 200,
		Type:        obu.ParamDefinitionReconGain,
		ReconGain:   &obu.ReconGainParamDefinition{AudioElementID: 999},
	}
	e := obu.AudioElement{
		AudioElementID:   1,
		Type:             obu.AudioElementChannelBased,
		ChannelConfig:    &obu.ChannelBasedConfig{},
		ParamDefinitions: []obu.ParamDefinition{def},
	}
	if _, err := NewMap([]obu.AudioElement{e}, nil); err == nil {
		t.Fatal("expected a dangling recon-gain audio_element_id reference to be rejected")
	}
}

func TestNewMapRejectsNonEquivalentRedefinition(t *testing.T) {
	e1 := channelElement(1, []bool{true}, 300)
	e2 := channelElement(2, []bool{true}, 300)
	// Same parameter_id, different ReconGain.AudioElementID: not
	// equivalent.
	if _, err := NewMap([]obu.AudioElement{e1, e2}, nil); err == nil {
		t.Fatal("expected non-equivalent redefinitions of the same parameter_id to be rejected")
	}
}

func TestNewMapAcceptsEquivalentRedefinition(t *testing.T) {
	e1 := channelElement(1, []bool{true}, 300)
	e2 := channelElement(1, []bool{true}, 300)
	if _, err := NewMap([]obu.AudioElement{e1, e2}, nil); err != nil {
		t.Fatalf("equivalent redefinitions of the same parameter_id should be accepted: %v", err)
	}
}

func TestNewMapResolvesMixGainFromMixPresentations(t *testing.T) {
	e := channelElement(1, nil, 100)
	mix := obu.MixPresentation{
		MixPresentationID: 1,
		SubMixes: []obu.SubMix{
			{
				Elements: []obu.MixPresentationElement{
					{AudioElementID: 1, ElementMixGain: obu.ParamDefinition{
						ParameterID: 400, Type: obu.ParamDefinitionMixGain,
						MixGain: &obu.MixGainParamDefinition{DefaultMixGain: 0},
					}},
				},
				OutputMixGain: obu.ParamDefinition{
					ParameterID: 401, Type: obu.ParamDefinitionMixGain,
					MixGain: &obu.MixGainParamDefinition{DefaultMixGain: -50},
				},
			},
		},
	}
	m, err := NewMap([]obu.AudioElement{e}, []obu.MixPresentation{mix})
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	if _, ok := m.Metadata(400); !ok {
		t.Error("expected element mix gain parameter_id 400 to resolve")
	}
	if _, ok := m.Metadata(401); !ok {
		t.Error("expected output mix gain parameter_id 401 to resolve")
	}
}

func TestLookupUnknownParameterID(t *testing.T) {
	m, err := NewMap(nil, nil)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	if _, _, err := m.Lookup(999); err == nil {
		t.Fatal("expected lookup of an unknown parameter_id to fail")
	}
}
