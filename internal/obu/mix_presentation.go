package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// MixGainAnimation is the tagged animation payload of a mix-gain subblock,
// shared between ParamDefinition defaults and ParameterBlock subblocks.
type MixGainAnimation struct {
	Type MixGainAnimationType

	StepStartPointValue int16

	LinearStartPointValue int16
	LinearEndPointValue   int16

	BezierStartPointValue   int16
	BezierEndPointValue     int16
	BezierControlPointValue int16
	BezierControlPointRelativeTime uint8
}

func (a MixGainAnimation) write(w *bitbuffer.WriteBuffer) error {
	if err := w.WriteUnsigned(uint64(a.Type), 8); err != nil {
		return err
	}
	switch a.Type {
	case MixGainAnimationStep:
		return w.WriteSigned16(a.StepStartPointValue)
	case MixGainAnimationLinear:
		if err := w.WriteSigned16(a.LinearStartPointValue); err != nil {
			return err
		}
		return w.WriteSigned16(a.LinearEndPointValue)
	case MixGainAnimationBezier:
		if err := w.WriteSigned16(a.BezierStartPointValue); err != nil {
			return err
		}
		if err := w.WriteSigned16(a.BezierEndPointValue); err != nil {
			return err
		}
		if err := w.WriteSigned16(a.BezierControlPointValue); err != nil {
			return err
		}
		return w.WriteUnsigned(uint64(a.BezierControlPointRelativeTime), 8)
	default:
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown mix_gain_animation_type %d", a.Type)
	}
}

func readMixGainAnimation(r *bitbuffer.ReadBuffer) (MixGainAnimation, error) {
	var a MixGainAnimation
	t, err := r.ReadUint8(8)
	if err != nil {
		return a, err
	}
	a.Type = MixGainAnimationType(t)
	switch a.Type {
	case MixGainAnimationStep:
		v, err := r.ReadSigned16()
		if err != nil {
			return a, err
		}
		a.StepStartPointValue = v
	case MixGainAnimationLinear:
		s, err := r.ReadSigned16()
		if err != nil {
			return a, err
		}
		e, err := r.ReadSigned16()
		if err != nil {
			return a, err
		}
		a.LinearStartPointValue, a.LinearEndPointValue = s, e
	case MixGainAnimationBezier:
		s, err := r.ReadSigned16()
		if err != nil {
			return a, err
		}
		e, err := r.ReadSigned16()
		if err != nil {
			return a, err
		}
		c, err := r.ReadSigned16()
		if err != nil {
			return a, err
		}
		rt, err := r.ReadUint8(8)
		if err != nil {
			return a, err
		}
		a.BezierStartPointValue, a.BezierEndPointValue, a.BezierControlPointValue, a.BezierControlPointRelativeTime = s, e, c, rt
	default:
		return a, iamferr.Wrapf(iamferr.InvalidArgument, "unknown mix_gain_animation_type %d", a.Type)
	}
	return a, nil
}

// LoudnessLayout pairs a target loudspeaker layout with its measured
// loudness for one sub-mix.
type LoudnessLayout struct {
	LoudspeakerLayout uint8 // 4 bits
	IntegratedLoudness int16
	DigitalPeak        int16
	// TruePeak is present only when TruePeakPresent, matching the
	// source's info_type bitmask; omitted here as zero when absent.
	TruePeakPresent bool
	TruePeak        int16
}

func (l LoudnessLayout) write(w *bitbuffer.WriteBuffer) error {
	if err := w.WriteUnsigned(uint64(l.LoudspeakerLayout), 4); err != nil {
		return err
	}
	if err := w.WriteUnsigned(0, 4); err != nil { // reserved
		return err
	}
	if err := w.WriteUnsigned(boolBit(l.TruePeakPresent), 8); err != nil {
		return err
	}
	if err := w.WriteSigned16(l.IntegratedLoudness); err != nil {
		return err
	}
	if err := w.WriteSigned16(l.DigitalPeak); err != nil {
		return err
	}
	if l.TruePeakPresent {
		return w.WriteSigned16(l.TruePeak)
	}
	return nil
}

func readLoudnessLayout(r *bitbuffer.ReadBuffer) (LoudnessLayout, error) {
	var l LoudnessLayout
	layout, err := r.ReadUint8(4)
	if err != nil {
		return l, err
	}
	l.LoudspeakerLayout = layout
	if _, err := r.ReadUint8(4); err != nil { // reserved
		return l, err
	}
	present, err := r.ReadUint8(8)
	if err != nil {
		return l, err
	}
	l.TruePeakPresent = present != 0
	integrated, err := r.ReadSigned16()
	if err != nil {
		return l, err
	}
	l.IntegratedLoudness = integrated
	peak, err := r.ReadSigned16()
	if err != nil {
		return l, err
	}
	l.DigitalPeak = peak
	if l.TruePeakPresent {
		tp, err := r.ReadSigned16()
		if err != nil {
			return l, err
		}
		l.TruePeak = tp
	}
	return l, nil
}

// HeadphonesRenderingMode selects how a sub-mix element renders to
// headphones, independent of its loudspeaker layout.
type HeadphonesRenderingMode uint8

const (
	HeadphonesRenderingModeStereo HeadphonesRenderingMode = iota
	HeadphonesRenderingModeBinaural
)

// RenderingConfig carries the per-element rendering hints that ride
// alongside a MixPresentationElement, independent of its loudness
// measurement and mix gain.
type RenderingConfig struct {
	HeadphonesRenderingMode HeadphonesRenderingMode // 2 bits
	ExtensionBytes          []byte
}

func (c RenderingConfig) write(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	if err := w.WriteUnsigned(uint64(c.HeadphonesRenderingMode), 2); err != nil {
		return err
	}
	if err := w.WriteUnsigned(0, 6); err != nil { // reserved
		return err
	}
	if err := w.WriteUleb128(uint32(len(c.ExtensionBytes)), gen); err != nil {
		return err
	}
	return w.WriteBytes(c.ExtensionBytes)
}

func readRenderingConfig(r *bitbuffer.ReadBuffer) (RenderingConfig, error) {
	var c RenderingConfig
	mode, err := r.ReadUint8(2)
	if err != nil {
		return c, err
	}
	c.HeadphonesRenderingMode = HeadphonesRenderingMode(mode)
	if _, err := r.ReadUint8(6); err != nil { // reserved
		return c, err
	}
	size, err := r.ReadUleb128()
	if err != nil {
		return c, err
	}
	ext := make([]byte, size)
	for i := range ext {
		b, err := r.ReadUint8(8)
		if err != nil {
			return c, err
		}
		ext[i] = b
	}
	c.ExtensionBytes = ext
	return c, nil
}

// MixPresentationElement binds one referenced AudioElement into a sub-mix
// along with its localized annotations, rendering hints, and element-level
// mix-gain parameter definition.
type MixPresentationElement struct {
	AudioElementID             uint32
	LocalizedElementAnnotations []string // length == the presentation's count_label
	RenderingConfig            RenderingConfig
	ElementMixGain             ParamDefinition // Type must be ParamDefinitionMixGain
}

func (e MixPresentationElement) write(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator, countLabel int) error {
	if e.ElementMixGain.Type != ParamDefinitionMixGain {
		return iamferr.Wrap(iamferr.InvalidArgument, "element_mix_gain must be a mix-gain param definition")
	}
	if len(e.LocalizedElementAnnotations) != countLabel {
		return iamferr.Wrapf(iamferr.InvalidArgument, "audio_element %d has %d localized_element_annotations, want count_label %d", e.AudioElementID, len(e.LocalizedElementAnnotations), countLabel)
	}
	if err := w.WriteUleb128(e.AudioElementID, gen); err != nil {
		return err
	}
	for _, ann := range e.LocalizedElementAnnotations {
		if err := w.WriteString(ann); err != nil {
			return err
		}
	}
	if err := e.RenderingConfig.write(w, gen); err != nil {
		return err
	}
	return e.ElementMixGain.write(w, gen)
}

func readMixPresentationElement(r *bitbuffer.ReadBuffer, countLabel int) (MixPresentationElement, error) {
	var e MixPresentationElement
	id, err := r.ReadUleb128()
	if err != nil {
		return e, err
	}
	e.AudioElementID = id
	e.LocalizedElementAnnotations = make([]string, countLabel)
	for i := range e.LocalizedElementAnnotations {
		s, err := r.ReadString()
		if err != nil {
			return e, err
		}
		e.LocalizedElementAnnotations[i] = s
	}
	rc, err := readRenderingConfig(r)
	if err != nil {
		return e, err
	}
	e.RenderingConfig = rc
	pd, err := ReadParamDefinition(r, ParamDefinitionMixGain)
	if err != nil {
		return e, err
	}
	e.ElementMixGain = pd
	return e, nil
}

// SubMix is one renderable mix within a MixPresentation: a set of bound
// audio elements, the sub-mix's own output mix-gain, and one loudness
// measurement per target layout.
type SubMix struct {
	Elements      []MixPresentationElement
	OutputMixGain ParamDefinition // Type must be ParamDefinitionMixGain
	Layouts       []LoudnessLayout
}

func (s SubMix) write(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator, countLabel int) error {
	if s.OutputMixGain.Type != ParamDefinitionMixGain {
		return iamferr.Wrap(iamferr.InvalidArgument, "output_mix_gain must be a mix-gain param definition")
	}
	if err := w.WriteUleb128(uint32(len(s.Elements)), gen); err != nil {
		return err
	}
	for _, e := range s.Elements {
		if err := e.write(w, gen, countLabel); err != nil {
			return err
		}
	}
	if err := s.OutputMixGain.write(w, gen); err != nil {
		return err
	}
	if err := w.WriteUleb128(uint32(len(s.Layouts)), gen); err != nil {
		return err
	}
	for _, l := range s.Layouts {
		if err := l.write(w); err != nil {
			return err
		}
	}
	return nil
}

func readSubMix(r *bitbuffer.ReadBuffer, countLabel int) (SubMix, error) {
	var s SubMix
	numElements, err := r.ReadUleb128()
	if err != nil {
		return s, err
	}
	s.Elements = make([]MixPresentationElement, numElements)
	for i := range s.Elements {
		e, err := readMixPresentationElement(r, countLabel)
		if err != nil {
			return s, err
		}
		s.Elements[i] = e
	}
	gain, err := ReadParamDefinition(r, ParamDefinitionMixGain)
	if err != nil {
		return s, err
	}
	s.OutputMixGain = gain
	numLayouts, err := r.ReadUleb128()
	if err != nil {
		return s, err
	}
	s.Layouts = make([]LoudnessLayout, numLayouts)
	for i := range s.Layouts {
		l, err := readLoudnessLayout(r)
		if err != nil {
			return s, err
		}
		s.Layouts[i] = l
	}
	return s, nil
}

// MixPresentation names a renderable presentation: a set of annotation
// labels (one per language, count driven by count_label) and one or more
// sub-mixes.
type MixPresentation struct {
	MixPresentationID  uint32
	AnnotationLabels   []string // length == count_label
	LocalizedPresentationAnnotations []string // same length as AnnotationLabels
	SubMixes           []SubMix
}

func (m MixPresentation) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	if len(m.LocalizedPresentationAnnotations) != len(m.AnnotationLabels) {
		return iamferr.Wrap(iamferr.InvalidArgument, "localized presentation annotations must match annotation label count")
	}
	h := Header{Type: ObuMixPresentation}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := nested.WriteUleb128(m.MixPresentationID, gen); err != nil {
			return err
		}
		if err := nested.WriteUleb128(uint32(len(m.AnnotationLabels)), gen); err != nil {
			return err
		}
		for _, label := range m.AnnotationLabels {
			if err := nested.WriteString(label); err != nil {
				return err
			}
		}
		for _, ann := range m.LocalizedPresentationAnnotations {
			if err := nested.WriteString(ann); err != nil {
				return err
			}
		}
		if err := nested.WriteUleb128(uint32(len(m.SubMixes)), gen); err != nil {
			return err
		}
		for _, s := range m.SubMixes {
			if err := s.write(nested, gen, len(m.AnnotationLabels)); err != nil {
				return err
			}
		}
		return nil
	})
}

func ReadMixPresentationPayload(r *bitbuffer.ReadBuffer) (MixPresentation, error) {
	var m MixPresentation
	id, err := r.ReadUleb128()
	if err != nil {
		return m, err
	}
	m.MixPresentationID = id
	countLabel, err := r.ReadUleb128()
	if err != nil {
		return m, err
	}
	m.AnnotationLabels = make([]string, countLabel)
	for i := range m.AnnotationLabels {
		s, err := r.ReadString()
		if err != nil {
			return m, err
		}
		m.AnnotationLabels[i] = s
	}
	m.LocalizedPresentationAnnotations = make([]string, countLabel)
	for i := range m.LocalizedPresentationAnnotations {
		s, err := r.ReadString()
		if err != nil {
			return m, err
		}
		m.LocalizedPresentationAnnotations[i] = s
	}
	numSubMixes, err := r.ReadUleb128()
	if err != nil {
		return m, err
	}
	m.SubMixes = make([]SubMix, numSubMixes)
	for i := range m.SubMixes {
		s, err := readSubMix(r, int(countLabel))
		if err != nil {
			return m, err
		}
		m.SubMixes[i] = s
	}
	return m, nil
}
