// Package sequencer assembles descriptor and temporal-unit OBUs into a
// single IA Sequence bitstream, enforcing the strict prologue and
// per-temporal-unit ordering the format requires.
package sequencer

import (
	"os"

	"github.com/iamf-tools/iamf-go/internal/assembler"
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
	"github.com/iamf-tools/iamf-go/internal/param"
)

// Sequencer holds the finished descriptor set and accumulated temporal
// units for one IA Sequence, and knows how to serialize them in order.
type Sequencer struct {
	Gen bitbuffer.LebGenerator

	IaSequenceHeader obu.IaSequenceHeader
	CodecConfigs     []obu.CodecConfig
	AudioElements    []obu.AudioElement
	MixPresentations []obu.MixPresentation

	// DescriptorArbitraryObus holds non-tick-bound arbitrary OBUs keyed
	// by their insertion hook; HookBeforeParameterBlocksAtTick and its
	// tick-bound siblings never appear here (they live on the
	// Assembler's TemporalUnits instead).
	DescriptorArbitraryObus map[obu.InsertionHook][]obu.ArbitraryObu

	// EmitTemporalDelimiter controls whether WriteTemporalUnit prefixes
	// each unit with an (empty) TemporalDelimiter OBU. The delimiter is
	// optional on the wire (spec.md §6); defaults to false on the zero
	// value, so callers building a Sequencer by hand opt in explicitly,
	// while Encoder.New turns it on to match historical behavior.
	EmitTemporalDelimiter bool

	Params    *param.Map
	Assembler *assembler.Assembler

	codecConfigByID  map[uint32]obu.CodecConfig
	audioElementByID map[uint32]obu.AudioElement

	totalUntrimmedSamples uint64
}

func (s *Sequencer) ensureIndex() {
	if s.codecConfigByID == nil {
		s.codecConfigByID = make(map[uint32]obu.CodecConfig, len(s.CodecConfigs))
		for _, c := range s.CodecConfigs {
			s.codecConfigByID[c.CodecConfigID] = c
		}
	}
	if s.audioElementByID == nil {
		s.audioElementByID = make(map[uint32]obu.AudioElement, len(s.AudioElements))
		for _, e := range s.AudioElements {
			s.audioElementByID[e.AudioElementID] = e
		}
	}
}

// TotalUntrimmedSamples returns the running total of untrimmed samples
// accumulated across every WriteTemporalUnit call so far.
func (s *Sequencer) TotalUntrimmedSamples() uint64 { return s.totalUntrimmedSamples }

func (s *Sequencer) descriptorHook(w *bitbuffer.WriteBuffer, hook obu.InsertionHook) error {
	for _, a := range s.DescriptorArbitraryObus[hook] {
		if err := a.ValidateAndWrite(w, s.Gen); err != nil {
			return err
		}
	}
	return nil
}

// validate checks the cross-descriptor invariants that can only be
// verified once every descriptor OBU is known: profile structural
// coverage, checked independently for each mix presentation's own
// sub-mixes, and agreement on num_samples_per_frame across every
// CodecConfig, referenced or not (temporal units are shared across all
// substreams, so they cannot disagree on frame length).
func (s *Sequencer) validate() error {
	s.ensureIndex()
	for _, mp := range s.MixPresentations {
		for _, sm := range mp.SubMixes {
			numChannels := 0
			for _, elem := range sm.Elements {
				ae, ok := s.audioElementByID[elem.AudioElementID]
				if !ok {
					return iamferr.Wrapf(iamferr.InvalidArgument, "mix_presentation %d references unknown audio_element %d", mp.MixPresentationID, elem.AudioElementID)
				}
				if ae.ChannelConfig == nil {
					continue
				}
				for _, l := range ae.ChannelConfig.Layers {
					numChannels += int(l.SubstreamCount) + int(l.CoupledSubstreamCount)
				}
			}
			if err := obu.ValidateProfileCoverage(s.IaSequenceHeader.PrimaryProfile, len(sm.Elements), numChannels); err != nil {
				return iamferr.Wrapf(iamferr.InvalidArgument, "mix_presentation %d: %v", mp.MixPresentationID, err)
			}
		}
	}

	if len(s.CodecConfigs) > 0 {
		want := s.CodecConfigs[0].NumSamplesPerFrame
		for _, c := range s.CodecConfigs[1:] {
			if c.NumSamplesPerFrame != want {
				return iamferr.Wrapf(iamferr.InvalidArgument, "codec_config %d has num_samples_per_frame %d, want %d to agree with the others", c.CodecConfigID, c.NumSamplesPerFrame, want)
			}
		}
	}
	return nil
}

// WriteDescriptors writes the mandatory descriptor prologue in its fixed
// order: IA Sequence Header, Codec Configs, Audio Elements, Mix
// Presentations, each optionally followed by the arbitrary OBUs hooked
// immediately after it.
func (s *Sequencer) WriteDescriptors(w *bitbuffer.WriteBuffer) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := s.IaSequenceHeader.ValidateAndWrite(w, s.Gen); err != nil {
		return err
	}
	if err := s.descriptorHook(w, obu.HookAfterIaSequenceHeader); err != nil {
		return err
	}
	for _, c := range s.CodecConfigs {
		if err := c.ValidateAndWrite(w, s.Gen); err != nil {
			return err
		}
	}
	if err := s.descriptorHook(w, obu.HookAfterCodecConfigs); err != nil {
		return err
	}
	for _, a := range s.AudioElements {
		if err := a.ValidateAndWrite(w, s.Gen); err != nil {
			return err
		}
	}
	if err := s.descriptorHook(w, obu.HookAfterAudioElements); err != nil {
		return err
	}
	for _, m := range s.MixPresentations {
		if err := m.ValidateAndWrite(w, s.Gen); err != nil {
			return err
		}
	}
	if err := s.descriptorHook(w, obu.HookAfterMixPresentations); err != nil {
		return err
	}
	return s.descriptorHook(w, obu.HookAfterDescriptors)
}

// frameSizeFor resolves the num_samples_per_frame a given audio element's
// frames carry, via its CodecConfigID. validate already enforces every
// CodecConfig agrees on this value, but a unit can be written directly
// (e.g. by a test) without validate ever running, so this still checks.
func (s *Sequencer) frameSizeFor(audioElementID uint32) (uint32, error) {
	s.ensureIndex()
	ae, ok := s.audioElementByID[audioElementID]
	if !ok {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "audio frame references unknown audio_element_id %d", audioElementID)
	}
	cfg, ok := s.codecConfigByID[ae.CodecConfigID]
	if !ok {
		return 0, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d references unknown codec_config_id %d", audioElementID, ae.CodecConfigID)
	}
	return cfg.NumSamplesPerFrame, nil
}

// WriteTemporalUnit writes one temporal unit: an optional TemporalDelimiter
// OBU followed by its arbitrary-OBU / parameter-block / audio-frame payload
// in strict order. It returns the running total of untrimmed samples
// (num_samples_per_frame - trim_start - trim_end, summed across every
// AudioFrame written so far by this Sequencer, not just this call) so
// repeated calls on the same unit accumulate rather than reset.
//
// A unit carrying an arbitrary OBU with InvalidateTemporalUnit set is
// never written: the call fails instead, so Sequencer.WriteToFile, which
// serializes the whole sequence in memory first, creates no file at all.
func (s *Sequencer) WriteTemporalUnit(w *bitbuffer.WriteBuffer, u *assembler.TemporalUnit) (uint64, error) {
	if u.Invalidated() {
		return s.totalUntrimmedSamples, iamferr.Wrapf(iamferr.InvalidArgument, "temporal unit at tick %d invalidated by an arbitrary OBU", u.Tick)
	}
	if s.EmitTemporalDelimiter {
		if err := (obu.TemporalDelimiter{}).ValidateAndWrite(w, s.Gen); err != nil {
			return s.totalUntrimmedSamples, err
		}
	}
	for _, a := range u.BeforeParameterBlocks {
		if err := a.ValidateAndWrite(w, s.Gen); err != nil {
			return s.totalUntrimmedSamples, err
		}
	}
	for _, entry := range u.ParameterBlocks {
		def, numReconGainLayers, err := s.Params.Lookup(entry.Block.ParameterID)
		if err != nil {
			return s.totalUntrimmedSamples, err
		}
		if err := entry.Block.ValidateAndWrite(w, s.Gen, def, numReconGainLayers); err != nil {
			return s.totalUntrimmedSamples, err
		}
	}
	for _, a := range u.AfterParameterBlocks {
		if err := a.ValidateAndWrite(w, s.Gen); err != nil {
			return s.totalUntrimmedSamples, err
		}
	}
	var delta uint64
	for _, entry := range u.AudioFrames {
		if err := entry.Frame.ValidateAndWrite(w, s.Gen, true); err != nil {
			return s.totalUntrimmedSamples, err
		}
		frameSize, err := s.frameSizeFor(entry.AudioElementID)
		if err != nil {
			return s.totalUntrimmedSamples, err
		}
		trimmed := uint64(entry.Frame.Header.NumSamplesToTrimAtStart) + uint64(entry.Frame.Header.NumSamplesToTrimAtEnd)
		if trimmed <= uint64(frameSize) {
			delta += uint64(frameSize) - trimmed
		}
	}
	for _, a := range u.AfterAudioFrames {
		if err := a.ValidateAndWrite(w, s.Gen); err != nil {
			return s.totalUntrimmedSamples, err
		}
	}
	s.totalUntrimmedSamples += delta
	return s.totalUntrimmedSamples, nil
}

// WriteAll writes the full descriptor prologue followed by every
// accumulated temporal unit in ascending tick order.
func (s *Sequencer) WriteAll(w *bitbuffer.WriteBuffer) error {
	if err := s.WriteDescriptors(w); err != nil {
		return err
	}
	for _, u := range s.Assembler.Sequence() {
		if _, err := s.WriteTemporalUnit(w, u); err != nil {
			return err
		}
	}
	return nil
}

// WriteToMemory serializes the whole IA Sequence and returns it as a byte
// slice.
func (s *Sequencer) WriteToMemory() ([]byte, error) {
	w := bitbuffer.NewWriteBuffer()
	if err := s.WriteAll(w); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// WriteToFile serializes the whole IA Sequence in memory and only then
// creates path and writes it. If serialization fails, no file is created;
// if writing or closing the file fails, the file is removed rather than
// left behind with truncated contents.
func (s *Sequencer) WriteToFile(path string) (err error) {
	b, err := s.WriteToMemory()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return iamferr.Wrapf(iamferr.Unknown, "create %s: %v", path, err)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	if _, err = f.Write(b); err != nil {
		return iamferr.Wrapf(iamferr.Unknown, "write %s: %v", path, err)
	}
	return nil
}
