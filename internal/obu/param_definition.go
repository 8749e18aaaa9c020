package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// dmixpModeTable is the static, process-lifetime bidirectional lookup
// between the wire's 5-bit dmixp_mode and the named DmixpMode enum,
// built once per the Design Notes' guidance on proto-to-internal enum
// maps rather than cast directly between the wire value and the enum.
var dmixpModeTable = map[DmixpMode]uint8{
	DmixpMode1: 1,
	DmixpMode2: 2,
	DmixpMode3: 3,
}

var dmixpModeTableInverse = invertDmixpModeTable()

func invertDmixpModeTable() map[uint8]DmixpMode {
	inv := make(map[uint8]DmixpMode, len(dmixpModeTable))
	for mode, wire := range dmixpModeTable {
		inv[wire] = mode
	}
	return inv
}

func writeDmixpMode(w *bitbuffer.WriteBuffer, mode DmixpMode) error {
	wire, ok := dmixpModeTable[mode]
	if !ok {
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown dmixp_mode %d", mode)
	}
	if err := w.WriteUnsigned(uint64(wire), 5); err != nil {
		return err
	}
	return w.WriteUnsigned(0, 3) // reserved
}

func readDmixpMode(r *bitbuffer.ReadBuffer) (DmixpMode, error) {
	wire, err := r.ReadUint8(5)
	if err != nil {
		return 0, err
	}
	if _, err := r.ReadUint8(3); err != nil { // reserved
		return 0, err
	}
	mode, ok := dmixpModeTableInverse[wire]
	if !ok {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "unknown wire dmixp_mode %d", wire)
	}
	return mode, nil
}

// ParamDefinition is the shared header every parameter-definition subtype
// embeds: rate, mode, duration, and subblock schedule.
type ParamDefinition struct {
	ParameterID             uint32
	ParameterRate           uint32
	ParamDefinitionMode     bool
	Duration                uint32
	ConstantSubblockDuration uint32
	// SubblockDurations is consulted only when ConstantSubblockDuration
	// == 0; its length is num_subblocks.
	SubblockDurations []uint32

	Type      ParamDefinitionType
	Demixing  *DemixingParamDefinition
	ReconGain *ReconGainParamDefinition
	MixGain   *MixGainParamDefinition
}

type DemixingParamDefinition struct {
	DefaultDmixpMode DmixpMode
}

type ReconGainParamDefinition struct {
	AudioElementID uint32
}

type MixGainParamDefinition struct {
	DefaultMixGain int16
}

// Equivalent reports whether two ParamDefinitions referenced under the
// same parameter_id would serialize to identical bytes (spec.md §3's
// equivalence invariant), without requiring a serialize round trip.
func (p ParamDefinition) Equivalent(other ParamDefinition) bool {
	a := bitbuffer.NewWriteBuffer()
	if err := p.write(a, bitbuffer.DefaultLebGenerator); err != nil {
		return false
	}
	b := bitbuffer.NewWriteBuffer()
	if err := other.write(b, bitbuffer.DefaultLebGenerator); err != nil {
		return false
	}
	ab, _ := a.Bytes()
	bb, _ := b.Bytes()
	return string(ab) == string(bb)
}

func (p ParamDefinition) write(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	if err := w.WriteUleb128(p.ParameterID, gen); err != nil {
		return err
	}
	if err := w.WriteUleb128(p.ParameterRate, gen); err != nil {
		return err
	}
	if err := w.WriteUnsigned(boolBit(p.ParamDefinitionMode), 1); err != nil {
		return err
	}
	if err := w.WriteUnsigned(0, 7); err != nil { // reserved
		return err
	}
	if err := w.WriteUleb128(p.Duration, gen); err != nil {
		return err
	}
	if err := w.WriteUleb128(p.ConstantSubblockDuration, gen); err != nil {
		return err
	}
	if p.ConstantSubblockDuration == 0 {
		if err := w.WriteUleb128(uint32(len(p.SubblockDurations)), gen); err != nil {
			return err
		}
		for _, d := range p.SubblockDurations {
			if err := w.WriteUleb128(d, gen); err != nil {
				return err
			}
		}
	}
	switch p.Type {
	case ParamDefinitionDemixing:
		if p.Demixing == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "demixing param definition missing payload")
		}
		return writeDmixpMode(w, p.Demixing.DefaultDmixpMode)
	case ParamDefinitionReconGain:
		if p.ReconGain == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "recon gain param definition missing payload")
		}
		return w.WriteUleb128(p.ReconGain.AudioElementID, gen)
	case ParamDefinitionMixGain:
		if p.MixGain == nil {
			return iamferr.Wrap(iamferr.InvalidArgument, "mix gain param definition missing payload")
		}
		return w.WriteSigned16(p.MixGain.DefaultMixGain)
	default:
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown param_definition_type %d", p.Type)
	}
}

// readParamDefinitionCommon reads the fields shared by every
// param_definition_type, known or not: rate, mode, duration, and
// subblock schedule. Split out from ReadParamDefinition so a caller that
// encounters an unrecognized type can still resynchronize past this much
// of the entry before giving up on its type-specific tail.
func readParamDefinitionCommon(r *bitbuffer.ReadBuffer) (ParamDefinition, error) {
	var p ParamDefinition
	id, err := r.ReadUleb128()
	if err != nil {
		return p, err
	}
	p.ParameterID = id
	rate, err := r.ReadUleb128()
	if err != nil {
		return p, err
	}
	p.ParameterRate = rate
	mode, err := r.ReadUint8(1)
	if err != nil {
		return p, err
	}
	p.ParamDefinitionMode = mode != 0
	if _, err := r.ReadUint8(7); err != nil { // reserved
		return p, err
	}
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
	}
	return p, nil
}

// ReadParamDefinition reads a ParamDefinition of the given type and
// returns InvalidArgument for an unrecognized paramType. Skipping unknown
// types and rejecting mix-gain inside an AudioElement are done by
// ReadAudioElementPayload, not here.
func ReadParamDefinition(r *bitbuffer.ReadBuffer, paramType ParamDefinitionType) (ParamDefinition, error) {
	p, err := readParamDefinitionCommon(r)
	if err != nil {
		return p, err
	}
	p.Type = paramType
	switch paramType {
	case ParamDefinitionDemixing:
		mode, err := readDmixpMode(r)
		if err != nil {
			return p, err
		}
		p.Demixing = &DemixingParamDefinition{DefaultDmixpMode: mode}
	case ParamDefinitionReconGain:
		aeID, err := r.ReadUleb128()
		if err != nil {
			return p, err
		}
		p.ReconGain = &ReconGainParamDefinition{AudioElementID: aeID}
	case ParamDefinitionMixGain:
		gain, err := r.ReadSigned16()
		if err != nil {
			return p, err
		}
		p.MixGain = &MixGainParamDefinition{DefaultMixGain: gain}
	default:
		return p, iamferr.Wrapf(iamferr.InvalidArgument, "unknown param_definition_type %d", paramType)
	}
	return p, nil
}
