package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// DemixingSubblock carries one subblock's dmixp_mode (the same shape as a
// DemixingParamDefinition's default, repeated per subblock).
type DemixingSubblock struct {
	DmixpMode DmixpMode
}

// ReconGainSubblock carries one subblock's per-layer recon-gain values. The
// number of layers and which of them carry recon gain at all is fixed by
// the referenced AudioElement's channel config (recon_gain_is_present_flag
// per layer, resolved by internal/param), not by anything in the subblock
// itself.
type ReconGainSubblock struct {
	// Layers has one entry per layer with recon_gain_is_present_flag set
	// on the referenced AudioElement, in layer order.
	Layers []ReconGainLayer
}

type ReconGainLayer struct {
	// ReconGainFlag is a bitmask selecting which of up to 8 channels in
	// this layer carry an explicit recon gain byte.
	ReconGainFlag uint8
	// ReconGain holds one byte per set bit in ReconGainFlag, low bit
	// first.
	ReconGain []uint8
}

func (s ReconGainSubblock) write(w *bitbuffer.WriteBuffer) error {
	for _, l := range s.Layers {
		wantBytes := popcount8(l.ReconGainFlag)
		if len(l.ReconGain) != wantBytes {
			return iamferr.Wrapf(iamferr.InvalidArgument, "recon_gain_flag %08b expects %d bytes, got %d", l.ReconGainFlag, wantBytes, len(l.ReconGain))
		}
		if err := w.WriteUnsigned(uint64(l.ReconGainFlag), 8); err != nil {
			return err
		}
		if err := w.WriteBytes(l.ReconGain); err != nil {
			return err
		}
	}
	return nil
}

func readReconGainSubblock(r *bitbuffer.ReadBuffer, numLayers int) (ReconGainSubblock, error) {
	var s ReconGainSubblock
	s.Layers = make([]ReconGainLayer, numLayers)
	for i := range s.Layers {
		flag, err := r.ReadUint8(8)
		if err != nil {
			return s, err
		}
		n := popcount8(flag)
		gain := make([]uint8, n)
		if err := r.ReadUint8Span(gain); err != nil {
			return s, err
		}
		s.Layers[i] = ReconGainLayer{ReconGainFlag: flag, ReconGain: gain}
	}
	return s, nil
}

func popcount8(b uint8) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

// ParameterSubblock is one subblock of a ParameterBlock's schedule. Exactly
// one of the typed fields is populated, matching the referenced
// ParamDefinition's Type.
type ParameterSubblock struct {
	MixGain   *MixGainAnimation
	Demixing  *DemixingSubblock
	ReconGain *ReconGainSubblock
}

func (s ParameterSubblock) write(w *bitbuffer.WriteBuffer, typ ParamDefinitionType) error {
	switch typ {
	case ParamDefinitionMixGain:
		if s.MixGain == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "mix-gain subblock missing animation payload")
		}
		return s.MixGain.write(w)
	case ParamDefinitionDemixing:
		if s.Demixing == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "demixing subblock missing payload")
		}
		return writeDmixpMode(w, s.Demixing.DmixpMode)
	case ParamDefinitionReconGain:
		if s.ReconGain == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "recon-gain subblock missing payload")
		}
		return s.ReconGain.write(w)
	default:
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown param_definition_type %d", typ)
	}
}

// ParameterBlock is one temporal unit's worth of parameter updates for a
// single parameter_id. The subblock schedule (count and per-subblock
// duration) is taken from the referenced ParamDefinition unless that
// definition's ParamDefinitionMode is set, in which case the schedule
// travels with the block itself.
type ParameterBlock struct {
	ParameterID uint32

	Duration                 uint32
	ConstantSubblockDuration uint32
	SubblockDurations        []uint32

	Subblocks []ParameterSubblock
}

// ValidateAndWrite writes this block against def, the already-resolved
// ParamDefinition for ParameterID (see internal/param). The schedule
// fields are only emitted on the wire when def.ParamDefinitionMode is set;
// otherwise the reader is expected to reuse def's own schedule.
func (p ParameterBlock) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator, def ParamDefinition, numReconGainLayers int) error {
	if def.ParameterID != p.ParameterID {
		return iamferr.Wrapf(iamferr.InvalidArgument, "parameter block references parameter_id %d but was resolved against %d", p.ParameterID, def.ParameterID)
	}
	subblockCount := len(def.SubblockDurations)
	if def.ConstantSubblockDuration != 0 {
		if def.Duration%def.ConstantSubblockDuration != 0 {
			return iamferr.Wrap(iamferr.InvalidArgument, "duration is not a whole multiple of constant_subblock_duration")
		}
		subblockCount = int(def.Duration / def.ConstantSubblockDuration)
	}
	if def.ParamDefinitionMode {
		subblockCount = len(p.SubblockDurations)
	}
	if len(p.Subblocks) != subblockCount {
		return iamferr.Wrapf(iamferr.InvalidArgument, "expected %d subblocks, got %d", subblockCount, len(p.Subblocks))
	}

	h := Header{Type: ObuParameterBlock}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := nested.WriteUleb128(p.ParameterID, gen); err != nil {
			return err
		}
		if def.ParamDefinitionMode {
			if err := nested.WriteUleb128(p.Duration, gen); err != nil {
				return err
			}
			if err := nested.WriteUleb128(p.ConstantSubblockDuration, gen); err != nil {
				return err
			}
			if p.ConstantSubblockDuration == 0 {
				if err := nested.WriteUleb128(uint32(len(p.SubblockDurations)), gen); err != nil {
					return err
				}
				for _, d := range p.SubblockDurations {
					if err := nested.WriteUleb128(d, gen); err != nil {
						return err
					}
				}
			}
		}
		for _, sb := range p.Subblocks {
			if def.Type == ParamDefinitionReconGain {
				if sb.ReconGain == nil || len(sb.ReconGain.Layers) != numReconGainLayers {
					return iamferr.Wrapf(iamferr.InvalidArgument, "recon-gain subblock must carry exactly %d layers", numReconGainLayers)
				}
			}
			if err := sb.write(nested, def.Type); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadParameterBlockPayload parses a ParameterBlock payload against def,
// the already-resolved ParamDefinition for the parameter_id read off the
// wire. numReconGainLayers is ignored unless def.Type is
// ParamDefinitionReconGain.
func ReadParameterBlockPayload(r *bitbuffer.ReadBuffer, resolve func(parameterID uint32) (ParamDefinition, int, error)) (ParameterBlock, error) {
	var p ParameterBlock
	id, err := r.ReadUleb128()
	if err != nil {
		return p, err
	}
	p.ParameterID = id
	def, numReconGainLayers, err := resolve(id)
	if err != nil {
		return p, err
	}

	subblockCount := len(def.SubblockDurations)
	if def.ConstantSubblockDuration != 0 {
		subblockCount = int(def.Duration / def.ConstantSubblockDuration)
	}

	if def.ParamDefinitionMode {
		duration, err := r.ReadUleb128()
		if err != nil {
			return p, err
		}
		p.Duration = duration
		constDur, err := r.ReadUleb128()
		if err != nil {
			return p, err
		}
		p.ConstantSubblockDuration = constDur
		if constDur == 0 {
			n, err := r.ReadUleb128()
			if err != nil {
				return p, err
			}
			p.SubblockDurations = make([]uint32, n)
			for i := range p.SubblockDurations {
				d, err := r.ReadUleb128()
				if err != nil {
					return p, err
				}
				p.SubblockDurations[i] = d
			}
			subblockCount = int(n)
		} else {
			subblockCount = int(duration / constDur)
		}
	} else {
		p.Duration = def.Duration
		p.ConstantSubblockDuration = def.ConstantSubblockDuration
		p.SubblockDurations = def.SubblockDurations
	}

	p.Subblocks = make([]ParameterSubblock, subblockCount)
	for i := range p.Subblocks {
		switch def.Type {
		case ParamDefinitionMixGain:
			a, err := readMixGainAnimation(r)
			if err != nil {
				return p, err
			}
			p.Subblocks[i] = ParameterSubblock{MixGain: &a}
		case ParamDefinitionDemixing:
			mode, err := readDmixpMode(r)
			if err != nil {
				return p, err
			}
			p.Subblocks[i] = ParameterSubblock{Demixing: &DemixingSubblock{DmixpMode: mode}}
		case ParamDefinitionReconGain:
			rg, err := readReconGainSubblock(r, numReconGainLayers)
			if err != nil {
				return p, err
			}
			p.Subblocks[i] = ParameterSubblock{ReconGain: &rg}
		default:
			return p, iamferr.Wrapf(iamferr.InvalidArgument, "unknown param_definition_type %d", def.Type)
		}
	}
	return p, nil
}
