// Package param implements the parameter engine: it builds the
// cross-reference table every parameter_id resolves through, checks the
// equivalence invariant on repeated definitions, and resolves recon-gain
// parameters against the scalable channel layout of the AudioElement they
// describe.
package param

import (
	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
)

// PerIDMetadata is everything the rest of the encoder needs to know about
// one parameter_id: its canonical definition and, for recon-gain
// parameters, the AudioElement layout it describes.
type PerIDMetadata struct {
	Definition obu.ParamDefinition

	// ReconGainLayers is populated only when Definition.Type is
	// ParamDefinitionReconGain: one entry per layer of the referenced
	// AudioElement's scalable channel layout that has
	// ReconGainIsPresent set, in layer order. A ParameterBlock
	// referencing this parameter_id must carry exactly this many recon
	// gain layers per subblock.
	ReconGainLayers int
}

// Map is the resolved parameter_id -> PerIDMetadata table for one IA
// Sequence. It is built once from the descriptor OBUs and consulted by the
// assembler and sequencer while emitting or parsing ParameterBlocks.
type Map struct {
	byID map[uint32]PerIDMetadata
}

// NewMap builds a Map from every param_definition reachable from the given
// AudioElements and MixPresentations, failing if two occurrences of the
// same parameter_id are not equivalent (spec.md §3) or if a recon-gain
// definition's AudioElementID does not resolve to a known channel-based
// AudioElement.
func NewMap(elements []obu.AudioElement, mixes []obu.MixPresentation) (*Map, error) {
	m := &Map{byID: make(map[uint32]PerIDMetadata)}

	elementsByID := make(map[uint32]obu.AudioElement, len(elements))
	for _, e := range elements {
		elementsByID[e.AudioElementID] = e
	}

	addDefinition := func(def obu.ParamDefinition) error {
		existing, ok := m.byID[def.ParameterID]
		if ok {
			if !existing.Definition.Equivalent(def) {
				return iamferr.Wrapf(iamferr.InvalidArgument, "parameter_id %d has two non-equivalent definitions", def.ParameterID)
			}
			return nil
		}
		meta := PerIDMetadata{Definition: def}
		if def.Type == obu.ParamDefinitionReconGain {
			if def.ReconGain == nil {
				return iamferr.Wrapf(iamferr.InvalidArgument, "parameter_id %d is recon-gain typed with no recon-gain payload", def.ParameterID)
			}
			layers, err := reconGainLayerCount(elementsByID, def.ReconGain.AudioElementID)
			if err != nil {
				return err
			}
			meta.ReconGainLayers = layers
		}
		m.byID[def.ParameterID] = meta
		return nil
	}

	for _, e := range elements {
		for _, def := range e.ParamDefinitions {
			if err := addDefinition(def); err != nil {
				return nil, err
			}
		}
	}
	for _, mix := range mixes {
		for _, sm := range mix.SubMixes {
			for _, el := range sm.Elements {
				if err := addDefinition(el.ElementMixGain); err != nil {
					return nil, err
				}
			}
			if err := addDefinition(sm.OutputMixGain); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func reconGainLayerCount(elementsByID map[uint32]obu.AudioElement, audioElementID uint32) (int, error) {
	ae, ok := elementsByID[audioElementID]
	if !ok {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "recon gain param definition references unknown audio_element_id %d", audioElementID)
	}
	if ae.ChannelConfig == nil {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "recon gain param definition references audio_element_id %d, which is not channel-based", audioElementID)
	}
	n := 0
	for _, l := range ae.ChannelConfig.Layers {
		if l.ReconGainIsPresent {
			n++
		}
	}
	return n, nil
}

// Lookup returns the metadata for parameterID, suitable for passing
// straight into obu.ReadParameterBlockPayload's resolve callback.
func (m *Map) Lookup(parameterID uint32) (obu.ParamDefinition, int, error) {
	meta, ok := m.byID[parameterID]
	if !ok {
		return obu.ParamDefinition{}, 0, iamferr.Wrapf(iamferr.InvalidArgument, "unknown parameter_id %d", parameterID)
	}
	return meta.Definition, meta.ReconGainLayers, nil
}

// Metadata returns the full PerIDMetadata for parameterID.
func (m *Map) Metadata(parameterID uint32) (PerIDMetadata, bool) {
	meta, ok := m.byID[parameterID]
	return meta, ok
}
