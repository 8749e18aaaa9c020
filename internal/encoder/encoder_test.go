package encoder

import (
	"testing"

	"github.com/iamf-tools/iamf-go/internal/codec"
	"github.com/iamf-tools/iamf-go/internal/loudness"
	"github.com/iamf-tools/iamf-go/internal/obu"
	"github.com/iamf-tools/iamf-go/internal/render"
)

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	e := New(obu.IaSequenceHeader{PrimaryProfile: obu.ProfileSimple})
	if err := e.AddCodecConfig(obu.CodecConfig{
		CodecConfigID:      1,
		CodecID:            obu.CodecIDLPCM,
		NumSamplesPerFrame: 8,
		DecoderConfig: obu.DecoderConfig{
			LPCM: &obu.LPCMDecoderConfig{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000},
		},
	}); err != nil {
		t.Fatalf("AddCodecConfig: %v", err)
	}
	if err := e.RegisterCodec(1, codec.LPCM{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000}); err != nil {
		t.Fatalf("RegisterCodec: %v", err)
	}
	if err := e.AddAudioElement(obu.AudioElement{
		AudioElementID:    1,
		Type:              obu.AudioElementChannelBased,
		CodecConfigID:     1,
		AudioSubstreamIDs: []uint32{0},
		ChannelConfig:     &obu.ChannelBasedConfig{Layers: []obu.ChannelLayer{{LoudspeakerLayout: 2, SubstreamCount: 1}}},
	}); err != nil {
		t.Fatalf("AddAudioElement: %v", err)
	}
	if err := e.AddMixPresentation(obu.MixPresentation{
		MixPresentationID: 1,
		SubMixes: []obu.SubMix{{
			Elements: []obu.MixPresentationElement{{AudioElementID: 1, ElementMixGain: obu.ParamDefinition{
				ParameterID: 10, Type: obu.ParamDefinitionMixGain, MixGain: &obu.MixGainParamDefinition{},
			}}},
			OutputMixGain: obu.ParamDefinition{ParameterID: 11, Type: obu.ParamDefinitionMixGain, MixGain: &obu.MixGainParamDefinition{}},
			Layouts:       []obu.LoudnessLayout{{LoudspeakerLayout: 2, IntegratedLoudness: -2300}},
		}},
	}); err != nil {
		t.Fatalf("AddMixPresentation: %v", err)
	}
	return e
}

func samples(n int) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = int32(i + 1)
	}
	return s
}

func TestEncoderRejectsOutOfStateCalls(t *testing.T) {
	e := New(obu.IaSequenceHeader{})
	if err := e.AddSamples(1, obu.ChannelLabelMono, []int32{1}); err == nil {
		t.Error("expected AddSamples to fail before FinalizeDescriptors")
	}
	if err := e.AddAudioElement(obu.AudioElement{AudioElementID: 1}); err == nil {
		t.Error("expected AddAudioElement with an unknown codec_config_id to fail")
	}
}

type recordingRenderer struct {
	lastInputs []render.Input
	lastLayout uint8
}

func (r *recordingRenderer) Render(inputs []render.Input, targetLayout uint8) ([]int32, error) {
	r.lastInputs = inputs
	r.lastLayout = targetLayout
	return inputs[0].Samples, nil
}

func TestEncoderRendersEachTemporalUnitThroughTheRegisteredRenderer(t *testing.T) {
	e := newTestEncoder(t)
	rec := &recordingRenderer{}
	e.SetRenderer(rec)
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}
	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(8)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if _, err := e.OutputTemporalUnit(); err != nil {
		t.Fatalf("OutputTemporalUnit: %v", err)
	}
	if len(rec.lastInputs) != 1 || rec.lastInputs[0].AudioElementID != 1 {
		t.Fatalf("got %+v, want exactly one rendered input bound to audio element 1", rec.lastInputs)
	}
	if rec.lastLayout != 2 {
		t.Errorf("got target layout %d, want 2 (the test mix presentation's only layout)", rec.lastLayout)
	}
}

type fakeLoudnessCalculator struct{ calls int }

func (f *fakeLoudnessCalculator) Measure(samples []int32, numChannels int) (loudness.Measurement, error) {
	f.calls++
	return loudness.Measurement{IntegratedLoudness: int16(-100 * f.calls)}, nil
}

func TestEncoderMeasuresLoudnessPerTemporalUnitWhenAFactoryIsRegistered(t *testing.T) {
	e := newTestEncoder(t)
	var calc *fakeLoudnessCalculator
	e.SetLoudnessCalculatorFactory(func() loudness.Calculator {
		calc = &fakeLoudnessCalculator{}
		return calc
	})
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}
	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(8)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if _, err := e.OutputTemporalUnit(); err != nil {
		t.Fatalf("OutputTemporalUnit: %v", err)
	}
	m, ok := e.MeasuredLoudness(1, 0, 0)
	if !ok {
		t.Fatal("expected a loudness measurement after a full temporal unit")
	}
	if m.IntegratedLoudness != -100 {
		t.Errorf("got %+v, want the fake calculator's first measurement", m)
	}
	if calc == nil || calc.calls != 1 {
		t.Errorf("expected the loudness calculator to be invoked exactly once, got %+v", calc)
	}
}

func TestEncoderStateMachineHappyPath(t *testing.T) {
	e := newTestEncoder(t)
	if e.State() != CollectingDescriptors {
		t.Fatalf("got state %v, want collecting_descriptors", e.State())
	}
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}
	if e.State() != GeneratingDataObus {
		t.Fatalf("got state %v, want generating_data_obus", e.State())
	}
	if !e.GeneratingDataObus() {
		t.Error("expected GeneratingDataObus to be true before any samples are added")
	}

	if err := e.AddCodecConfig(obu.CodecConfig{}); err == nil {
		t.Error("expected AddCodecConfig after FinalizeDescriptors to fail")
	}

	// Two full frames (frame size 8) of mono samples.
	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(16)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if err := e.FinalizeAddSamples(); err != nil {
		t.Fatalf("FinalizeAddSamples: %v", err)
	}
	if err := e.AddSamples(1, obu.ChannelLabelMono, []int32{1}); err == nil {
		t.Error("expected AddSamples after FinalizeAddSamples to fail")
	}

	descriptors, err := e.GetDescriptorObus()
	if err != nil {
		t.Fatalf("GetDescriptorObus: %v", err)
	}
	if len(descriptors) == 0 {
		t.Error("expected non-empty descriptor bytes")
	}

	var units [][]byte
	for {
		u, err := e.OutputTemporalUnit()
		if err == ErrNoMoreTemporalUnits {
			break
		}
		if err != nil {
			t.Fatalf("OutputTemporalUnit: %v", err)
		}
		units = append(units, u)
	}
	if len(units) != 2 {
		t.Fatalf("got %d temporal units, want 2", len(units))
	}
	if e.State() != Finalized {
		t.Fatalf("got state %v, want finalized", e.State())
	}
	if e.GeneratingDataObus() {
		t.Error("expected GeneratingDataObus to be false once every unit has drained")
	}
}

func TestOutputTemporalUnitStreamsBeforeFinalize(t *testing.T) {
	e := newTestEncoder(t)
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}

	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(4)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if _, err := e.OutputTemporalUnit(); err != ErrTemporalUnitNotReady {
		t.Fatalf("got %v, want ErrTemporalUnitNotReady before a full frame is buffered", err)
	}

	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(4)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	unit, err := e.OutputTemporalUnit()
	if err != nil {
		t.Fatalf("OutputTemporalUnit: %v", err)
	}
	if len(unit) == 0 {
		t.Error("expected a non-empty temporal unit once a full frame was buffered")
	}
	if !e.GeneratingDataObus() {
		t.Error("expected GeneratingDataObus to remain true before FinalizeAddSamples")
	}
}

func TestParamMetadataAndCodecConfigForAfterFinalize(t *testing.T) {
	e := newTestEncoder(t)
	if _, ok := e.ParamMetadata(10); ok {
		t.Error("expected ParamMetadata to be unavailable before FinalizeDescriptors")
	}
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}
	meta, ok := e.ParamMetadata(10)
	if !ok || meta.Definition.Type != obu.ParamDefinitionMixGain {
		t.Errorf("got %+v, %v", meta, ok)
	}
	if _, ok := e.ParamMetadata(999); ok {
		t.Error("expected an unknown parameter_id to be absent")
	}
	cfg, ok := e.CodecConfigFor(1)
	if !ok || cfg.CodecID != obu.CodecIDLPCM {
		t.Errorf("got %+v, %v", cfg, ok)
	}
	if _, ok := e.CodecConfigFor(999); ok {
		t.Error("expected an unknown codec_config_id to be absent")
	}
}

func TestOutputTemporalUnitRejectsFullyTrimmedFrame(t *testing.T) {
	e := newTestEncoder(t)
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}
	e.SetTrim(1, 8, 0) // trim_start == frame size: nothing left to encode
	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(8)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if err := e.FinalizeAddSamples(); err != nil {
		t.Fatalf("FinalizeAddSamples: %v", err)
	}
	if _, err := e.OutputTemporalUnit(); err == nil {
		t.Fatal("expected a fully trimmed frame to be rejected")
	}
}

func TestOutputTemporalUnitRejectsTrimExceedingFrameSize(t *testing.T) {
	e := newTestEncoder(t)
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}
	e.SetTrim(1, 100, 0)
	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(8)); err != nil {
		t.Fatalf("AddSamples: %v", err)
	}
	if err := e.FinalizeAddSamples(); err != nil {
		t.Fatalf("FinalizeAddSamples: %v", err)
	}
	if _, err := e.OutputTemporalUnit(); err == nil {
		t.Fatal("expected trim counters exceeding the frame size to be rejected")
	}
}

func TestOutputTemporalUnitRejectsRepeatedTrimAtEndOnSameSubstream(t *testing.T) {
	// Two audio elements that (by misconfiguration) both address substream
	// id 0 and both end up emitting a padded, trim_end > 0 final frame on
	// the same OutputTemporalUnit call: the second one must be rejected,
	// since a substream may carry samples_to_trim_at_end > 0 on at most one
	// AudioFrame.
	e := New(obu.IaSequenceHeader{PrimaryProfile: obu.ProfileSimple})
	if err := e.AddCodecConfig(obu.CodecConfig{
		CodecConfigID:      1,
		CodecID:            obu.CodecIDLPCM,
		NumSamplesPerFrame: 8,
		DecoderConfig: obu.DecoderConfig{
			LPCM: &obu.LPCMDecoderConfig{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000},
		},
	}); err != nil {
		t.Fatalf("AddCodecConfig: %v", err)
	}
	if err := e.RegisterCodec(1, codec.LPCM{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000}); err != nil {
		t.Fatalf("RegisterCodec: %v", err)
	}
	for _, id := range []uint32{1, 2} {
		if err := e.AddAudioElement(obu.AudioElement{
			AudioElementID:    id,
			Type:              obu.AudioElementChannelBased,
			CodecConfigID:     1,
			AudioSubstreamIDs: []uint32{0},
			ChannelConfig:     &obu.ChannelBasedConfig{Layers: []obu.ChannelLayer{{LoudspeakerLayout: 2, SubstreamCount: 1}}},
		}); err != nil {
			t.Fatalf("AddAudioElement %d: %v", id, err)
		}
	}
	if err := e.FinalizeDescriptors(); err != nil {
		t.Fatalf("FinalizeDescriptors: %v", err)
	}

	e.SetTrim(1, 0, 1)
	e.SetTrim(2, 0, 1)
	if err := e.AddSamples(1, obu.ChannelLabelMono, samples(4)); err != nil {
		t.Fatalf("AddSamples(1): %v", err)
	}
	if err := e.AddSamples(2, obu.ChannelLabelMono, samples(4)); err != nil {
		t.Fatalf("AddSamples(2): %v", err)
	}
	if err := e.FinalizeAddSamples(); err != nil {
		t.Fatalf("FinalizeAddSamples: %v", err)
	}
	if _, err := e.OutputTemporalUnit(); err == nil {
		t.Fatal("expected a second frame with samples_to_trim_at_end > 0 on the same substream to be rejected")
	}
}

func TestFinalizeDescriptorsRejectsDanglingParameterReference(t *testing.T) {
	e := New(obu.IaSequenceHeader{PrimaryProfile: obu.ProfileBaseEnhanced})
	if err := e.AddCodecConfig(obu.CodecConfig{
		CodecConfigID: 1, CodecID: obu.CodecIDLPCM, NumSamplesPerFrame: 1024,
		DecoderConfig: obu.DecoderConfig{LPCM: &obu.LPCMDecoderConfig{}},
	}); err != nil {
		t.Fatalf("AddCodecConfig: %v", err)
	}
	if err := e.AddAudioElement(obu.AudioElement{
		AudioElementID: 1, Type: obu.AudioElementChannelBased, CodecConfigID: 1,
		ChannelConfig: &obu.ChannelBasedConfig{},
		ParamDefinitions: []obu.ParamDefinition{{
			ParameterID: 5, Type: obu.ParamDefinitionReconGain,
			ReconGain: &obu.ReconGainParamDefinition{AudioElementID: 999},
		}},
	}); err != nil {
		t.Fatalf("AddAudioElement: %v", err)
	}
	if err := e.FinalizeDescriptors(); err == nil {
		t.Fatal("expected a dangling recon-gain audio_element_id reference to fail FinalizeDescriptors")
	}
}
