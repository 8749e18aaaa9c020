// Command iamfenc drives the encoder façade end to end: it reads a
// user-metadata descriptor and a directory of per-audio-element WAV
// files and writes a conformant IAMF bitstream. Flag shape follows the
// teacher's own main.go (flag.String, no flag-parsing library).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/iamf-tools/iamf-go/internal/codec"
	"github.com/iamf-tools/iamf-go/internal/config"
	"github.com/iamf-tools/iamf-go/internal/diag"
	"github.com/iamf-tools/iamf-go/internal/encoder"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
	"github.com/iamf-tools/iamf-go/internal/wav"
)

func main() {
	metadataPath := flag.String("metadata", "", "path to the user-metadata YAML descriptor")
	wavDir := flag.String("wav-dir", "", "directory of per-audio-element .wav files")
	outPath := flag.String("out", "out.iamf", "output IAMF bitstream path")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	temporalDelimiters := flag.Bool("temporal-delimiters", true, "prefix each temporal unit with an (empty) TemporalDelimiter OBU")
	flag.Parse()

	logger := slog.New(diag.NewConsoleHandler(os.Stderr, &slog.HandlerOptions{Level: diag.ParseLevel(*logLevel)}))
	slog.SetDefault(logger)

	if err := run(*metadataPath, *wavDir, *outPath, *temporalDelimiters); err != nil {
		logger.Error("encode failed", "error", err)
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("iamfenc: %v", err))
		os.Exit(1)
	}
}

func run(metadataPath, wavDir, outPath string, temporalDelimiters bool) error {
	if metadataPath == "" {
		return iamferr.Wrap(iamferr.InvalidArgument, "-metadata is required")
	}
	if wavDir == "" {
		return iamferr.Wrap(iamferr.InvalidArgument, "-wav-dir is required")
	}

	meta, err := config.Load(metadataPath)
	if err != nil {
		return err
	}

	header, err := meta.IaSequenceHeader.ToIaSequenceHeader()
	if err != nil {
		return err
	}
	enc := encoder.New(header)
	enc.EmitTemporalDelimiters = temporalDelimiters

	for _, ccm := range meta.CodecConfigs {
		cc, err := ccm.ToCodecConfig()
		if err != nil {
			return err
		}
		if err := enc.AddCodecConfig(cc); err != nil {
			return err
		}
		ac, err := codecFromConfig(cc)
		if err != nil {
			return err
		}
		if err := enc.RegisterCodec(cc.CodecConfigID, ac); err != nil {
			return err
		}
	}

	for _, aem := range meta.AudioElements {
		ae, err := aem.ToAudioElement()
		if err != nil {
			return err
		}
		if err := enc.AddAudioElement(ae); err != nil {
			return err
		}
	}

	for _, mpm := range meta.MixPresentations {
		mp, err := mpm.ToMixPresentation()
		if err != nil {
			return err
		}
		if err := enc.AddMixPresentation(mp); err != nil {
			return err
		}
	}

	for _, am := range meta.ArbitraryObus {
		a, err := am.ToArbitraryObu()
		if err != nil {
			return err
		}
		if a.Hook.IsTickBound() {
			continue // added after FinalizeDescriptors, once ticks exist
		}
		if err := enc.AddDescriptorArbitraryObu(a); err != nil {
			return err
		}
	}

	if err := enc.FinalizeDescriptors(); err != nil {
		return err
	}
	slog.Info("descriptors finalized", "codec_configs", len(meta.CodecConfigs), "audio_elements", len(meta.AudioElements))

	for _, afm := range meta.AudioFrames {
		if err := ingestAudioFrameMetadata(enc, wavDir, afm); err != nil {
			return err
		}
	}

	for _, pbm := range meta.ParameterBlocks {
		if err := addParameterBlock(enc, pbm); err != nil {
			return err
		}
	}

	for _, am := range meta.ArbitraryObus {
		a, err := am.ToArbitraryObu()
		if err != nil {
			return err
		}
		if !a.Hook.IsTickBound() {
			continue
		}
		if err := enc.AddTickBoundArbitraryObu(a); err != nil {
			return err
		}
	}

	if err := enc.FinalizeAddSamples(); err != nil {
		return err
	}

	return writeBitstream(enc, outPath)
}

func codecFromConfig(cc obu.CodecConfig) (codec.AudioCodec, error) {
	switch cc.CodecID {
	case obu.CodecIDLPCM:
		if cc.DecoderConfig.LPCM == nil {
			return nil, iamferr.Wrap(iamferr.InvalidArgument, "lpcm codec config missing decoder config")
		}
		return codec.LPCM{
			SampleFormat: cc.DecoderConfig.LPCM.SampleFormat,
			SampleSize:   cc.DecoderConfig.LPCM.SampleSize,
			SampleRate:   cc.DecoderConfig.LPCM.SampleRate,
		}, nil
	case obu.CodecIDOpus:
		if cc.DecoderConfig.Opus == nil {
			return nil, iamferr.Wrap(iamferr.InvalidArgument, "opus codec config missing decoder config")
		}
		return codec.Opus{
			Version:         cc.DecoderConfig.Opus.Version,
			PreSkip:         cc.DecoderConfig.Opus.PreSkip,
			InputSampleRate: cc.DecoderConfig.Opus.InputSampleRate,
		}, nil
	case obu.CodecIDAAC:
		if cc.DecoderConfig.AAC == nil {
			return nil, iamferr.Wrap(iamferr.InvalidArgument, "aac codec config missing decoder config")
		}
		if _, _, err := codec.ParseAudioSpecificConfig(cc.DecoderConfig.AAC.AudioSpecificConfig); err != nil {
			return nil, iamferr.Wrapf(iamferr.InvalidArgument, "aac codec config has an invalid audio_specific_config: %v", err)
		}
		return codec.AAC{AudioSpecificConfig: cc.DecoderConfig.AAC.AudioSpecificConfig}, nil
	case obu.CodecIDFLAC:
		if cc.DecoderConfig.FLAC == nil {
			return nil, iamferr.Wrap(iamferr.InvalidArgument, "flac codec config missing decoder config")
		}
		return codec.FLAC{StreamInfo: cc.DecoderConfig.FLAC.StreamInfo}, nil
	default:
		return nil, iamferr.Wrapf(iamferr.InvalidArgument, "unsupported codec_id %q", cc.CodecID)
	}
}

var channelLabelTable = map[string]obu.ChannelLabel{
	"mono": obu.ChannelLabelMono,
	"l2":   obu.ChannelLabelL2,
	"r2":   obu.ChannelLabelR2,
	"l3":   obu.ChannelLabelL3,
	"r3":   obu.ChannelLabelR3,
	"c":    obu.ChannelLabelC,
	"lfe":  obu.ChannelLabelLFE,
	"ls5":  obu.ChannelLabelLs5,
	"rs5":  obu.ChannelLabelRs5,
	"ltf4": obu.ChannelLabelLtf4,
	"rtf4": obu.ChannelLabelRtf4,
	"ltb4": obu.ChannelLabelLtb4,
	"rtb4": obu.ChannelLabelRtb4,
	"lrs7": obu.ChannelLabelLrs7,
	"rrs7": obu.ChannelLabelRrs7,
}

// ingestAudioFrameMetadata reads one audio element's WAV file and hands
// each of its channels' full raw PCM to the encoder, labeled, letting the
// façade itself chunk, trim, and encode frames as temporal units are
// drained (internal/encoder.Encoder.OutputTemporalUnit runs the codec
// collaborator, not this CLI).
func ingestAudioFrameMetadata(enc *encoder.Encoder, wavDir string, afm config.AudioFrameMetadata) error {
	labels := make([]obu.ChannelLabel, len(afm.ChannelLabels))
	for i, s := range afm.ChannelLabels {
		l, ok := channelLabelTable[s]
		if !ok {
			return iamferr.Wrapf(iamferr.InvalidArgument, "unknown channel label %q", s)
		}
		labels[i] = l
	}

	_, channels, err := wav.ReadFile(filepath.Join(wavDir, afm.WavFile), labels)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return iamferr.Wrap(iamferr.InvalidArgument, "wav file has no channels")
	}

	enc.SetTrim(afm.AudioElementID, afm.SamplesToTrimAtStart, afm.SamplesToTrimAtEnd)
	for _, ch := range channels {
		if err := enc.AddSamples(afm.AudioElementID, ch.Label, ch.Samples); err != nil {
			return err
		}
	}
	return nil
}

func addParameterBlock(enc *encoder.Encoder, pbm config.ParameterBlockMetadata) error {
	meta, ok := enc.ParamMetadata(pbm.ParameterID)
	if !ok {
		return iamferr.Wrapf(iamferr.InvalidArgument, "parameter_block_metadata references unknown parameter_id %d", pbm.ParameterID)
	}
	block, err := pbm.ToParameterBlock(meta.Definition.Type, meta.ReconGainLayers)
	if err != nil {
		return err
	}
	return enc.AddParameterBlockMetadata(pbm.Tick, block)
}

func writeBitstream(enc *encoder.Encoder, outPath string) error {
	descriptors, err := enc.GetDescriptorObus()
	if err != nil {
		return err
	}
	var body []byte
	for {
		u, err := enc.OutputTemporalUnit()
		if err == encoder.ErrNoMoreTemporalUnits {
			break
		}
		if err != nil {
			return err
		}
		body = append(body, u...)
	}

	out := append(append([]byte(nil), descriptors...), body...)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return iamferr.Wrap(iamferr.Unknown, "write output file: "+err.Error())
	}
	slog.Info("wrote iamf bitstream", "path", outPath, "bytes", len(out))
	return nil
}
