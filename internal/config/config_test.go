package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iamf-tools/iamf-go/internal/obu"
)

const sampleYAML = `
ia_sequence_header_metadata:
  primary_profile: SIMPLE
  additional_profile: SIMPLE
codec_config_metadata:
  - codec_config_id: 1
    codec_config:
      codec_id: ipcm
      num_samples_per_frame: 1024
      audio_roll_distance: 0
      decoder_config_lpcm:
        sample_format: little_endian
        sample_size: 16
        sample_rate: 48000
audio_element_metadata:
  - audio_element_id: 1
    audio_element_type: channel_based
    codec_config_id: 1
    audio_substream_ids: [0]
    channel_layout_config:
      layers:
        - loudspeaker_layout: 0
          recon_gain_is_present: false
          substream_count: 1
          coupled_substream_count: 0
mix_presentation_metadata:
  - mix_presentation_id: 1
    annotation_labels: ["en"]
    localized_presentation_annotations: ["Mix"]
    sub_mixes:
      - audio_elements:
          - audio_element_id: 1
            localized_element_annotations: ["Mix"]
            rendering_config:
              headphones_rendering_mode: stereo
            element_mix_gain:
              parameter_id: 100
              parameter_rate: 48000
              param_definition_mode: false
              duration: 1024
              constant_subblock_duration: 1024
              param_definition_type: mix_gain
              default_mix_gain: 0
        output_mix_gain:
          parameter_id: 101
          parameter_rate: 48000
          param_definition_mode: false
          duration: 1024
          constant_subblock_duration: 1024
          param_definition_type: mix_gain
          default_mix_gain: 0
        layouts:
          - loudspeaker_layout: 0
            integrated_loudness: -2300
            digital_peak: -100
            true_peak_present: false
arbitrary_obu_metadata:
  - insertion_hook: after_descriptors
    payload_hex: "deadbeef"
`

func TestLoadParsesSampleDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.IaSequenceHeader.PrimaryProfile != "SIMPLE" {
		t.Errorf("got %+v", m.IaSequenceHeader)
	}
	if len(m.CodecConfigs) != 1 || len(m.AudioElements) != 1 || len(m.MixPresentations) != 1 {
		t.Fatalf("got %+v", m)
	}

	header, err := m.IaSequenceHeader.ToIaSequenceHeader()
	if err != nil {
		t.Fatalf("ToIaSequenceHeader: %v", err)
	}
	if header.PrimaryProfile != obu.ProfileSimple {
		t.Errorf("got %v", header.PrimaryProfile)
	}

	cc, err := m.CodecConfigs[0].ToCodecConfig()
	if err != nil {
		t.Fatalf("ToCodecConfig: %v", err)
	}
	if cc.CodecID != obu.CodecIDLPCM || cc.DecoderConfig.LPCM == nil || cc.DecoderConfig.LPCM.SampleRate != 48000 {
		t.Errorf("got %+v", cc)
	}

	ae, err := m.AudioElements[0].ToAudioElement()
	if err != nil {
		t.Fatalf("ToAudioElement: %v", err)
	}
	if ae.Type != obu.AudioElementChannelBased || ae.ChannelConfig == nil || len(ae.ChannelConfig.Layers) != 1 {
		t.Errorf("got %+v", ae)
	}

	mp, err := m.MixPresentations[0].ToMixPresentation()
	if err != nil {
		t.Fatalf("ToMixPresentation: %v", err)
	}
	if len(mp.SubMixes) != 1 || len(mp.SubMixes[0].Elements) != 1 || len(mp.SubMixes[0].Layouts) != 1 {
		t.Errorf("got %+v", mp)
	}

	arb, err := m.ArbitraryObus[0].ToArbitraryObu()
	if err != nil {
		t.Fatalf("ToArbitraryObu: %v", err)
	}
	if arb.Hook != obu.HookAfterDescriptors || len(arb.Payload) != 4 {
		t.Errorf("got %+v", arb)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected a missing file to be rejected")
	}
}

func TestToCodecConfigRejectsUnknownCodecID(t *testing.T) {
	m := CodecConfigMetadata{CodecConfig: CodecConfigBody{CodecID: "bogus"}}
	if _, err := m.ToCodecConfig(); err == nil {
		t.Fatal("expected an unknown codec_id to be rejected")
	}
}

func TestToParameterBlockValidatesSubblockCount(t *testing.T) {
	m := ParameterBlockMetadata{NumSubblocks: 2, Subblocks: []SubblockMetadata{{MixGainAnimationType: "step"}}}
	if _, err := m.ToParameterBlock(obu.ParamDefinitionMixGain, 0); err == nil {
		t.Fatal("expected a num_subblocks mismatch to be rejected")
	}
}

func TestToParameterBlockConvertsMixGainStep(t *testing.T) {
	m := ParameterBlockMetadata{
		ParameterID: 1,
		Subblocks:   []SubblockMetadata{{MixGainAnimationType: "step", StartValue: 256}},
	}
	pb, err := m.ToParameterBlock(obu.ParamDefinitionMixGain, 0)
	if err != nil {
		t.Fatalf("ToParameterBlock: %v", err)
	}
	if len(pb.Subblocks) != 1 || pb.Subblocks[0].MixGain == nil || pb.Subblocks[0].MixGain.StepStartPointValue != 256 {
		t.Errorf("got %+v", pb)
	}
}

func TestToParameterBlockValidatesReconGainLayerCount(t *testing.T) {
	m := ParameterBlockMetadata{
		Subblocks: []SubblockMetadata{{ReconGainLayers: []ReconGainLayerMetadata{{ReconGainFlag: 0}}}},
	}
	if _, err := m.ToParameterBlock(obu.ParamDefinitionReconGain, 2); err == nil {
		t.Fatal("expected a recon-gain layer count mismatch to be rejected")
	}
}
