package sequencer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iamf-tools/iamf-go/internal/assembler"
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/obu"
	"github.com/iamf-tools/iamf-go/internal/param"
)

func simpleSequencer(t *testing.T) *Sequencer {
	t.Helper()
	codecConfig := obu.CodecConfig{
		CodecConfigID:      1,
		CodecID:            obu.CodecIDLPCM,
		NumSamplesPerFrame: 1024,
		DecoderConfig: obu.DecoderConfig{
			LPCM: &obu.LPCMDecoderConfig{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000},
		},
	}
	element := obu.AudioElement{
		AudioElementID:    1,
		Type:              obu.AudioElementChannelBased,
		CodecConfigID:     1,
		AudioSubstreamIDs: []uint32{0},
		ChannelConfig: &obu.ChannelBasedConfig{
			Layers: []obu.ChannelLayer{{LoudspeakerLayout: 2, SubstreamCount: 1}},
		},
	}
	mix := obu.MixPresentation{
		MixPresentationID: 1,
		SubMixes: []obu.SubMix{
			{
				Elements: []obu.MixPresentationElement{
					{AudioElementID: 1, ElementMixGain: obu.ParamDefinition{
						ParameterID: 10, Type: obu.ParamDefinitionMixGain,
						MixGain: &obu.MixGainParamDefinition{DefaultMixGain: 0},
					}},
				},
				OutputMixGain: obu.ParamDefinition{
					ParameterID: 11, Type: obu.ParamDefinitionMixGain,
					MixGain: &obu.MixGainParamDefinition{DefaultMixGain: 0},
				},
				Layouts: []obu.LoudnessLayout{{LoudspeakerLayout: 2, IntegratedLoudness: -2300, DigitalPeak: -100}},
			},
		},
	}
	params, err := param.NewMap([]obu.AudioElement{element}, []obu.MixPresentation{mix})
	if err != nil {
		t.Fatalf("param.NewMap: %v", err)
	}

	asm := assembler.New()
	asm.AddAudioFrame(0, 1, obu.AudioFrame{SubstreamID: 0, EncodedPayload: []byte{1, 2, 3, 4}})
	asm.AddAudioFrame(1024, 1, obu.AudioFrame{SubstreamID: 0, EncodedPayload: []byte{5, 6, 7, 8}})

	return &Sequencer{
		Gen:                   bitbuffer.DefaultLebGenerator,
		IaSequenceHeader:      obu.IaSequenceHeader{PrimaryProfile: obu.ProfileSimple},
		CodecConfigs:          []obu.CodecConfig{codecConfig},
		AudioElements:         []obu.AudioElement{element},
		MixPresentations:      []obu.MixPresentation{mix},
		EmitTemporalDelimiter: true,
		Params:                params,
		Assembler:             asm,
	}
}

func TestWriteAllProducesDescriptorsThenTemporalUnits(t *testing.T) {
	s := simpleSequencer(t)
	b, err := s.WriteToMemory()
	if err != nil {
		t.Fatalf("WriteToMemory: %v", err)
	}
	r := bitbuffer.NewReadBuffer(b, len(b)*8+64)

	h, sub, err := obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (sequence header): %v", err)
	}
	if h.Type != obu.ObuIASequenceHeader {
		t.Fatalf("first OBU is %v, want ia_sequence_header", h.Type)
	}
	if _, err := obu.ReadIaSequenceHeaderPayload(sub); err != nil {
		t.Fatalf("ReadIaSequenceHeaderPayload: %v", err)
	}

	h, _, err = obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (codec config): %v", err)
	}
	if h.Type != obu.ObuCodecConfig {
		t.Fatalf("second OBU is %v, want codec_config", h.Type)
	}

	h, _, err = obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (audio element): %v", err)
	}
	if h.Type != obu.ObuAudioElement {
		t.Fatalf("third OBU is %v, want audio_element", h.Type)
	}

	h, _, err = obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (mix presentation): %v", err)
	}
	if h.Type != obu.ObuMixPresentation {
		t.Fatalf("fourth OBU is %v, want mix_presentation", h.Type)
	}

	h, _, err = obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (temporal delimiter 1): %v", err)
	}
	if h.Type != obu.ObuTemporalDelimiter {
		t.Fatalf("fifth OBU is %v, want temporal_delimiter", h.Type)
	}

	h, _, err = obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (first audio frame): %v", err)
	}
	if wantType, _ := obu.AudioFrameIDVariant(0); h.Type != wantType {
		t.Fatalf("sixth OBU is %v, want implicit audio frame id 0", h.Type)
	}

	h, _, err = obu.ReadOBU(r)
	if err != nil {
		t.Fatalf("ReadOBU (temporal delimiter 2): %v", err)
	}
	if h.Type != obu.ObuTemporalDelimiter {
		t.Fatalf("seventh OBU is %v, want temporal_delimiter", h.Type)
	}
}

func TestWriteAllRejectsDisagreeingFrameLengths(t *testing.T) {
	s := simpleSequencer(t)
	s.CodecConfigs = append(s.CodecConfigs, obu.CodecConfig{
		CodecConfigID:      2,
		CodecID:            obu.CodecIDLPCM,
		NumSamplesPerFrame: 480,
		DecoderConfig: obu.DecoderConfig{
			LPCM: &obu.LPCMDecoderConfig{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000},
		},
	})
	if _, err := s.WriteToMemory(); err == nil {
		t.Fatal("expected disagreeing num_samples_per_frame across codec configs to be rejected")
	}
}

// TestWriteAllAcceptsTwoIndependentSingleElementPresentationsUnderSimple
// checks that profile coverage is judged per mix presentation's own
// sub-mixes, not aggregated across every audio element in the descriptor
// set: two separate presentations, each binding exactly one of the two
// audio elements, are each individually Simple-legal even though the
// descriptor set as a whole holds two audio elements.
func TestWriteAllAcceptsTwoIndependentSingleElementPresentationsUnderSimple(t *testing.T) {
	s := simpleSequencer(t)
	secondElement := obu.AudioElement{
		AudioElementID:    2,
		Type:              obu.AudioElementChannelBased,
		CodecConfigID:     1,
		AudioSubstreamIDs: []uint32{1},
		ChannelConfig: &obu.ChannelBasedConfig{
			Layers: []obu.ChannelLayer{{LoudspeakerLayout: 2, SubstreamCount: 1}},
		},
	}
	secondMix := obu.MixPresentation{
		MixPresentationID: 2,
		SubMixes: []obu.SubMix{
			{
				Elements: []obu.MixPresentationElement{
					{AudioElementID: 2, ElementMixGain: obu.ParamDefinition{
						ParameterID: 20, Type: obu.ParamDefinitionMixGain,
						MixGain: &obu.MixGainParamDefinition{DefaultMixGain: 0},
					}},
				},
				OutputMixGain: obu.ParamDefinition{
					ParameterID: 21, Type: obu.ParamDefinitionMixGain,
					MixGain: &obu.MixGainParamDefinition{DefaultMixGain: 0},
				},
				Layouts: []obu.LoudnessLayout{{LoudspeakerLayout: 2, IntegratedLoudness: -2300, DigitalPeak: -100}},
			},
		},
	}
	s.AudioElements = append(s.AudioElements, secondElement)
	s.MixPresentations = append(s.MixPresentations, secondMix)
	params, err := param.NewMap(s.AudioElements, s.MixPresentations)
	if err != nil {
		t.Fatalf("param.NewMap: %v", err)
	}
	s.Params = params

	if _, err := s.WriteToMemory(); err != nil {
		t.Fatalf("WriteToMemory: %v, want two independently Simple-legal presentations to be accepted", err)
	}
}

// trimmedFrameSequencer builds a Sequencer around a single audio element
// whose codec config frames 8 samples at a time, for exercising
// WriteTemporalUnit's untrimmed-sample accounting.
func trimmedFrameSequencer(t *testing.T) (*Sequencer, *assembler.TemporalUnit) {
	t.Helper()
	codecConfig := obu.CodecConfig{
		CodecConfigID:      1,
		CodecID:            obu.CodecIDLPCM,
		NumSamplesPerFrame: 8,
		DecoderConfig: obu.DecoderConfig{
			LPCM: &obu.LPCMDecoderConfig{SampleFormat: obu.LPCMLittleEndianInt, SampleSize: 16, SampleRate: 48000},
		},
	}
	element := obu.AudioElement{
		AudioElementID:    1,
		Type:              obu.AudioElementChannelBased,
		CodecConfigID:     1,
		AudioSubstreamIDs: []uint32{0},
		ChannelConfig: &obu.ChannelBasedConfig{
			Layers: []obu.ChannelLayer{{LoudspeakerLayout: 2, SubstreamCount: 1}},
		},
	}
	asm := assembler.New()
	s := &Sequencer{
		Gen:              bitbuffer.DefaultLebGenerator,
		IaSequenceHeader: obu.IaSequenceHeader{PrimaryProfile: obu.ProfileSimple},
		CodecConfigs:     []obu.CodecConfig{codecConfig},
		AudioElements:    []obu.AudioElement{element},
		Assembler:        asm,
	}
	frame := obu.AudioFrame{
		SubstreamID: 0,
		Header: obu.Header{
			TrimmingStatusFlag:      true,
			NumSamplesToTrimAtStart: 1,
			NumSamplesToTrimAtEnd:   2,
		},
		EncodedPayload: []byte{1, 2},
	}
	asm.AddAudioFrame(0, 1, frame)
	u, _ := asm.TakeUnit(0)
	return s, u
}

func TestWriteTemporalUnitAccumulatesUntrimmedSamplesAcrossCalls(t *testing.T) {
	s, u := trimmedFrameSequencer(t)

	total, err := s.WriteTemporalUnit(bitbuffer.NewWriteBuffer(), u)
	if err != nil {
		t.Fatalf("WriteTemporalUnit (1st call): %v", err)
	}
	if total != 5 {
		t.Fatalf("got %d untrimmed samples after the 1st call, want 5", total)
	}
	if got := s.TotalUntrimmedSamples(); got != 5 {
		t.Fatalf("TotalUntrimmedSamples() = %d, want 5", got)
	}

	total, err = s.WriteTemporalUnit(bitbuffer.NewWriteBuffer(), u)
	if err != nil {
		t.Fatalf("WriteTemporalUnit (2nd call): %v", err)
	}
	if total != 10 {
		t.Fatalf("got %d untrimmed samples after the 2nd call, want 10", total)
	}
	if got := s.TotalUntrimmedSamples(); got != 10 {
		t.Fatalf("TotalUntrimmedSamples() = %d, want 10", got)
	}
}

func TestWriteTemporalUnitRejectsInvalidatedUnit(t *testing.T) {
	s, u := trimmedFrameSequencer(t)
	u.AfterAudioFrames = append(u.AfterAudioFrames, obu.ArbitraryObu{
		Hook:                   obu.HookAfterAudioFramesAtTick,
		InsertionTick:          0,
		InvalidateTemporalUnit: true,
		Payload:                []byte{0xAB},
	})

	if _, err := s.WriteTemporalUnit(bitbuffer.NewWriteBuffer(), u); err == nil {
		t.Fatal("expected an invalidated temporal unit to be rejected")
	}
	if s.TotalUntrimmedSamples() != 0 {
		t.Errorf("got TotalUntrimmedSamples() = %d, want 0 after a rejected unit", s.TotalUntrimmedSamples())
	}
}

func TestWriteToFileRemovesPartialFileWhenAUnitIsInvalidated(t *testing.T) {
	s, u := trimmedFrameSequencer(t)
	s.EmitTemporalDelimiter = true
	mix := obu.MixPresentation{
		MixPresentationID: 1,
		SubMixes: []obu.SubMix{{
			Elements: []obu.MixPresentationElement{{AudioElementID: 1, ElementMixGain: obu.ParamDefinition{
				ParameterID: 10, Type: obu.ParamDefinitionMixGain, MixGain: &obu.MixGainParamDefinition{},
			}}},
			OutputMixGain: obu.ParamDefinition{ParameterID: 11, Type: obu.ParamDefinitionMixGain, MixGain: &obu.MixGainParamDefinition{}},
			Layouts:       []obu.LoudnessLayout{{LoudspeakerLayout: 2, IntegratedLoudness: -2300}},
		}},
	}
	params, err := param.NewMap(s.AudioElements, []obu.MixPresentation{mix})
	if err != nil {
		t.Fatalf("param.NewMap: %v", err)
	}
	s.MixPresentations = []obu.MixPresentation{mix}
	s.Params = params

	u.AfterAudioFrames = append(u.AfterAudioFrames, obu.ArbitraryObu{
		Hook:                   obu.HookAfterAudioFramesAtTick,
		InsertionTick:          0,
		InvalidateTemporalUnit: true,
		Payload:                []byte{0xAB},
	})
	s.Assembler.AddAudioFrame(0, 1, u.AudioFrames[0].Frame) // put the invalidated unit back for WriteAll to reach
	s.Assembler.AddTickBoundArbitraryObu(u.AfterAudioFrames[0])

	dir := t.TempDir()
	path := filepath.Join(dir, "out.iamf")
	if err := s.WriteToFile(path); err == nil {
		t.Fatal("expected WriteToFile to fail when a temporal unit is invalidated")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("expected no file to be left behind when a mid-stream unit is invalidated")
	}
}

func TestWriteToFileLeavesNoFileOnFailure(t *testing.T) {
	// A parameter block referencing an unresolvable parameter_id forces
	// WriteAll to fail while serializing into memory, before
	// WriteToFile ever creates the destination file.
	s := simpleSequencer(t)
	s.Assembler.AddParameterBlock(0, obu.ParameterBlock{ParameterID: 999})

	dir := t.TempDir()
	path := filepath.Join(dir, "out.iamf")
	if err := s.WriteToFile(path); err == nil {
		t.Fatal("expected WriteToFile to fail")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("expected no file to be left behind on failure")
	}
}
