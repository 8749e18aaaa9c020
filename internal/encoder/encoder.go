// Package encoder implements the encoder façade: the single entry point
// library callers drive through a strict CollectingDescriptors ->
// GeneratingDataObus -> Finalized state machine. Descriptor OBUs and codec
// registrations are accumulated first; then callers feed raw per-channel
// PCM through AddSamples and drain finished temporal units one at a time
// through OutputTemporalUnit, which runs the registered AudioCodec
// collaborator itself rather than asking the caller to pre-encode frames.
package encoder

import (
	"sync"

	"github.com/iamf-tools/iamf-go/internal/assembler"
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/codec"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/loudness"
	"github.com/iamf-tools/iamf-go/internal/obu"
	"github.com/iamf-tools/iamf-go/internal/param"
	"github.com/iamf-tools/iamf-go/internal/render"
	"github.com/iamf-tools/iamf-go/internal/sequencer"
)

// State is the encoder façade's lifecycle stage. Descriptor OBUs may only
// be added in CollectingDescriptors; samples and parameter metadata only in
// GeneratingDataObus. OutputTemporalUnit moves to Finalized only when it
// returns ErrNoMoreTemporalUnits, after every unit has been drained; once
// Finalized, every call, OutputTemporalUnit included, fails with
// FailedPrecondition.
type State int

const (
	CollectingDescriptors State = iota
	GeneratingDataObus
	Finalized
)

func (s State) String() string {
	switch s {
	case CollectingDescriptors:
		return "collecting_descriptors"
	case GeneratingDataObus:
		return "generating_data_obus"
	case Finalized:
		return "finalized"
	default:
		return "unknown_state"
	}
}

// channelAccumulator buffers one audio element's not-yet-framed raw PCM,
// keyed by channel label, plus the label order established by the
// caller's first AddSamples calls for that element (IAMF has no canonical
// loudspeaker-layout-to-label table to derive this order from, so the
// façade takes the order samples actually arrive in).
type channelAccumulator struct {
	order   []obu.ChannelLabel
	samples map[obu.ChannelLabel][]int32
}

func newChannelAccumulator() *channelAccumulator {
	return &channelAccumulator{samples: make(map[obu.ChannelLabel][]int32)}
}

func (c *channelAccumulator) add(label obu.ChannelLabel, samples []int32) {
	if _, seen := c.samples[label]; !seen {
		c.order = append(c.order, label)
	}
	c.samples[label] = append(c.samples[label], samples...)
}

// available returns the number of samples buffered for every channel, or
// -1 if channels are unevenly filled (a caller bug: every label must be
// fed at the same rate).
func (c *channelAccumulator) available() int {
	n := -1
	for _, label := range c.order {
		ln := len(c.samples[label])
		if n == -1 {
			n = ln
		} else if ln != n {
			return -1
		}
	}
	return n
}

func (c *channelAccumulator) take(n int) map[obu.ChannelLabel][]int32 {
	out := make(map[obu.ChannelLabel][]int32, len(c.order))
	for _, label := range c.order {
		buf := c.samples[label]
		out[label] = buf[:n]
		c.samples[label] = buf[n:]
	}
	return out
}

// Encoder is the stateful façade over the descriptor/parameter/assembler
// machinery: library callers add descriptors and codecs, finalize the
// descriptor prologue, add raw samples and parameter metadata, then drain
// temporal units as they become ready.
type Encoder struct {
	Gen bitbuffer.LebGenerator

	// EmitTemporalDelimiters controls whether each drained temporal unit
	// is prefixed with an (empty) TemporalDelimiter OBU. Optional on the
	// wire (spec.md §6); New defaults this to true to match the
	// historical always-on behavior.
	EmitTemporalDelimiters bool

	state State

	iaSequenceHeader        obu.IaSequenceHeader
	codecConfigs            []obu.CodecConfig
	codecConfigByID         map[uint32]obu.CodecConfig
	audioElements           []obu.AudioElement
	audioElementByID        map[uint32]obu.AudioElement
	mixPresentations        []obu.MixPresentation
	descriptorArbitraryObus map[obu.InsertionHook][]obu.ArbitraryObu

	codecs map[uint32]codec.AudioCodec // keyed by codec_config_id

	trimAtStart map[uint32]uint32 // keyed by audio_element_id
	trimAtEnd   map[uint32]uint32

	params    *param.Map
	assembler *assembler.Assembler
	seq       *sequencer.Sequencer

	frameSize         uint32
	tick              int64
	finalizeRequested bool

	accumulators  map[uint32]*channelAccumulator // keyed by audio_element_id
	startTrimDone map[uint32]bool                // audio_element_id -> first frame already carried its trim_start
	trimEndUsed   map[uint32]bool                // substream_id -> a frame on it already carried trim_end > 0

	// renderMu guards every call into renderer and loudnessFactory's
	// calculators, matching spec.md §5: the renderer is the only
	// collaborator the core allows to be internally parallel, and the
	// core itself invokes it synchronously under a mutex that protects
	// its output accumulator.
	renderMu            sync.Mutex
	renderer            render.Renderer
	loudnessFactory      func() loudness.Calculator
	loudnessCalculators  map[loudnessKey]loudness.Calculator
	measuredLoudness     map[loudnessKey]loudness.Measurement
}

// loudnessKey identifies one mix presentation sub-mix's target layout, the
// granularity loudness is measured and reported at.
type loudnessKey struct {
	mixPresentationID uint32
	subMixIndex       int
	layoutIndex       int
}

// New starts a fresh Encoder in CollectingDescriptors state, seeded with
// the mandatory IA Sequence Header.
func New(header obu.IaSequenceHeader) *Encoder {
	return &Encoder{
		Gen:                     bitbuffer.DefaultLebGenerator,
		EmitTemporalDelimiters:  true,
		state:                   CollectingDescriptors,
		iaSequenceHeader:        header,
		codecConfigByID:         make(map[uint32]obu.CodecConfig),
		descriptorArbitraryObus: make(map[obu.InsertionHook][]obu.ArbitraryObu),
		assembler:               assembler.New(),
		codecs:                  make(map[uint32]codec.AudioCodec),
		trimAtStart:             make(map[uint32]uint32),
		trimAtEnd:               make(map[uint32]uint32),
		accumulators:            make(map[uint32]*channelAccumulator),
		startTrimDone:           make(map[uint32]bool),
		trimEndUsed:             make(map[uint32]bool),
		renderer:                render.PassthroughRenderer{},
		loudnessCalculators:     make(map[loudnessKey]loudness.Calculator),
		measuredLoudness:        make(map[loudnessKey]loudness.Measurement),
	}
}

// SetRenderer overrides the default PassthroughRenderer with a real
// channel down-mix/ambisonics/binaural implementation. Must be called
// before any temporal unit is drained.
func (e *Encoder) SetRenderer(r render.Renderer) { e.renderer = r }

// SetLoudnessCalculatorFactory registers a constructor for the
// LoudnessCalculator collaborator; the encoder keeps one instance per
// mix-presentation sub-mix layout so running measurements (ITU-R BS.1770
// gating, true-peak oversampling) accumulate correctly across temporal
// units. Loudness is not measured at all when no factory is registered.
func (e *Encoder) SetLoudnessCalculatorFactory(f func() loudness.Calculator) {
	e.loudnessFactory = f
}

// MeasuredLoudness returns the loudness measured so far for one mix
// presentation's sub-mix layout, if a LoudnessCalculatorFactory is
// registered and at least one temporal unit covering that sub-mix has
// been produced.
func (e *Encoder) MeasuredLoudness(mixPresentationID uint32, subMixIndex, layoutIndex int) (loudness.Measurement, bool) {
	m, ok := e.measuredLoudness[loudnessKey{mixPresentationID, subMixIndex, layoutIndex}]
	return m, ok
}

func (e *Encoder) requireState(want State) error {
	if e.state != want {
		return iamferr.Wrapf(iamferr.FailedPrecondition, "encoder is in state %v, expected %v", e.state, want)
	}
	return nil
}

// AddCodecConfig registers a CodecConfig descriptor.
func (e *Encoder) AddCodecConfig(c obu.CodecConfig) error {
	if err := e.requireState(CollectingDescriptors); err != nil {
		return err
	}
	if _, exists := e.codecConfigByID[c.CodecConfigID]; exists {
		return iamferr.Wrapf(iamferr.InvalidArgument, "duplicate codec_config_id %d", c.CodecConfigID)
	}
	e.codecConfigs = append(e.codecConfigs, c)
	e.codecConfigByID[c.CodecConfigID] = c
	return nil
}

// RegisterCodec attaches the AudioCodec collaborator that encodes raw PCM
// for codecConfigID's substreams. The encoder keeps one codec per
// codec_config_id, not one per substream: every substream of every audio
// element that references codecConfigID is encoded through this single
// AudioCodec.
func (e *Encoder) RegisterCodec(codecConfigID uint32, c codec.AudioCodec) error {
	if _, ok := e.codecConfigByID[codecConfigID]; !ok {
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown codec_config_id %d", codecConfigID)
	}
	e.codecs[codecConfigID] = c
	return nil
}

// AddAudioElement registers an AudioElement descriptor.
func (e *Encoder) AddAudioElement(a obu.AudioElement) error {
	if err := e.requireState(CollectingDescriptors); err != nil {
		return err
	}
	if _, ok := e.codecConfigByID[a.CodecConfigID]; !ok {
		return iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d references unknown codec_config_id %d", a.AudioElementID, a.CodecConfigID)
	}
	e.audioElements = append(e.audioElements, a)
	return nil
}

// AddMixPresentation registers a MixPresentation descriptor.
func (e *Encoder) AddMixPresentation(m obu.MixPresentation) error {
	if err := e.requireState(CollectingDescriptors); err != nil {
		return err
	}
	e.mixPresentations = append(e.mixPresentations, m)
	return nil
}

// AddDescriptorArbitraryObu registers an arbitrary OBU hooked into the
// descriptor prologue. Tick-bound hooks belong to temporal units instead
// (see AddTickBoundArbitraryObu) and are rejected here.
func (e *Encoder) AddDescriptorArbitraryObu(a obu.ArbitraryObu) error {
	if err := e.requireState(CollectingDescriptors); err != nil {
		return err
	}
	if a.Hook.IsTickBound() {
		return iamferr.Wrapf(iamferr.InvalidArgument, "hook %d is tick-bound, use AddTickBoundArbitraryObu once generating data OBUs", a.Hook)
	}
	e.descriptorArbitraryObus[a.Hook] = append(e.descriptorArbitraryObus[a.Hook], a)
	return nil
}

// SetTrim records how many samples to trim from the very first and very
// last frame this audio element ever emits. Unlike per-call sample data,
// this is session-wide metadata (spec.md §6's audio_frame_metadata), so it
// is set once up front rather than threaded through every AddSamples call.
func (e *Encoder) SetTrim(audioElementID uint32, atStart, atEnd uint32) {
	e.trimAtStart[audioElementID] = atStart
	e.trimAtEnd[audioElementID] = atEnd
}

// FinalizeDescriptors closes out the descriptor prologue, builds the
// parameter cross-reference map, and transitions the encoder into
// GeneratingDataObus. No further descriptor OBUs may be added afterward.
func (e *Encoder) FinalizeDescriptors() error {
	if err := e.requireState(CollectingDescriptors); err != nil {
		return err
	}
	params, err := param.NewMap(e.audioElements, e.mixPresentations)
	if err != nil {
		return err
	}
	e.params = params
	e.audioElementByID = make(map[uint32]obu.AudioElement, len(e.audioElements))
	for _, a := range e.audioElements {
		e.audioElementByID[a.AudioElementID] = a
	}
	e.seq = &sequencer.Sequencer{
		Gen:                     e.Gen,
		IaSequenceHeader:        e.iaSequenceHeader,
		CodecConfigs:            e.codecConfigs,
		AudioElements:           e.audioElements,
		MixPresentations:        e.mixPresentations,
		DescriptorArbitraryObus: e.descriptorArbitraryObus,
		EmitTemporalDelimiter:   e.EmitTemporalDelimiters,
		Params:                  e.params,
		Assembler:               e.assembler,
	}
	if len(e.codecConfigs) > 0 {
		e.frameSize = e.codecConfigs[0].NumSamplesPerFrame
	}
	e.state = GeneratingDataObus
	return nil
}

// AddSamples accumulates raw interleaved-free, single-channel PCM for one
// audio element's channel label. Samples for a given (audioElementID,
// label) pair queue up until OutputTemporalUnit has enough to frame and
// encode, mirroring spec.md §4.6's add_samples(audio_element_id,
// channel_label, samples).
func (e *Encoder) AddSamples(audioElementID uint32, label obu.ChannelLabel, samples []int32) error {
	if err := e.requireState(GeneratingDataObus); err != nil {
		return err
	}
	if e.finalizeRequested {
		return iamferr.Wrap(iamferr.FailedPrecondition, "AddSamples called after FinalizeAddSamples")
	}
	if _, ok := e.audioElementByID[audioElementID]; !ok {
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown audio_element_id %d", audioElementID)
	}
	acc, ok := e.accumulators[audioElementID]
	if !ok {
		acc = newChannelAccumulator()
		e.accumulators[audioElementID] = acc
	}
	acc.add(label, samples)
	return nil
}

// AddParameterBlockMetadata places a ParameterBlock into the temporal unit
// at tick.
func (e *Encoder) AddParameterBlockMetadata(tick int64, block obu.ParameterBlock) error {
	if err := e.requireState(GeneratingDataObus); err != nil {
		return err
	}
	if _, _, err := e.params.Lookup(block.ParameterID); err != nil {
		return err
	}
	e.assembler.AddParameterBlock(tick, block)
	return nil
}

// AddTickBoundArbitraryObu routes a tick-bound arbitrary OBU into whatever
// temporal unit its insertion tick names, creating that unit's bucket first
// if nothing has reached it yet so the OBU is never silently dropped just
// because it arrived ahead of the corresponding audio frame or parameter
// block.
func (e *Encoder) AddTickBoundArbitraryObu(a obu.ArbitraryObu) error {
	if err := e.requireState(GeneratingDataObus); err != nil {
		return err
	}
	if !a.Hook.IsTickBound() {
		return iamferr.Wrapf(iamferr.InvalidArgument, "hook %d is not tick-bound, use AddDescriptorArbitraryObu before finalizing descriptors", a.Hook)
	}
	e.assembler.EnsureUnit(a.InsertionTick)
	e.assembler.AddTickBoundArbitraryObu(a)
	return nil
}

// ParamMetadata exposes the resolved parameter-engine entry for
// parameterID, valid once FinalizeDescriptors has run. Callers building a
// ParameterBlock from user metadata (cmd/iamfenc) need this to learn a
// parameter_id's definition type and, for recon gain, its layer count
// before shaping the block's subblocks.
func (e *Encoder) ParamMetadata(parameterID uint32) (param.PerIDMetadata, bool) {
	if e.params == nil {
		return param.PerIDMetadata{}, false
	}
	return e.params.Metadata(parameterID)
}

// CodecConfigFor exposes a registered codec config by id, valid once it
// has been added via AddCodecConfig.
func (e *Encoder) CodecConfigFor(codecConfigID uint32) (obu.CodecConfig, bool) {
	cfg, ok := e.codecConfigByID[codecConfigID]
	return cfg, ok
}

// FinalizeAddSamples signals that no further samples, parameter metadata,
// or arbitrary OBUs will arrive. OutputTemporalUnit may still be called
// afterward to drain whatever remains buffered, including a final short
// frame padded and trimmed at the end.
func (e *Encoder) FinalizeAddSamples() error {
	if err := e.requireState(GeneratingDataObus); err != nil {
		return err
	}
	e.finalizeRequested = true
	return nil
}

// State reports the encoder's current lifecycle stage.
func (e *Encoder) State() State { return e.state }

// GeneratingDataObus reports whether the façade still has data-OBU work
// left: true while samples may still arrive, or while samples already
// buffered have not all been framed and drained yet. It only becomes false
// once FinalizeAddSamples has been called and the very last temporal unit
// has been produced.
func (e *Encoder) GeneratingDataObus() bool {
	if e.state == CollectingDescriptors {
		return false
	}
	if e.state == Finalized {
		return false
	}
	if !e.finalizeRequested {
		return true
	}
	for _, acc := range e.accumulators {
		if acc.available() != 0 {
			return true
		}
	}
	return false
}

// UntrimmedSamples returns the running total of untrimmed samples written
// so far, delegating to the Sequencer that actually tracks it per
// spec.md §4.5.
func (e *Encoder) UntrimmedSamples() uint64 {
	if e.seq == nil {
		return 0
	}
	return e.seq.TotalUntrimmedSamples()
}

// GetDescriptorObus serializes the descriptor prologue. Valid once
// FinalizeDescriptors has run; returns the same bytes on every call.
func (e *Encoder) GetDescriptorObus() ([]byte, error) {
	if e.seq == nil {
		return nil, iamferr.Wrap(iamferr.FailedPrecondition, "descriptors have not been finalized yet")
	}
	w := bitbuffer.NewWriteBuffer()
	if err := e.seq.WriteDescriptors(w); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// ErrNoMoreTemporalUnits is returned by OutputTemporalUnit once every
// buffered sample has been framed, encoded, and drained and
// FinalizeAddSamples has been called.
var ErrNoMoreTemporalUnits = iamferr.Wrap(iamferr.FailedPrecondition, "no more temporal units to output")

// ErrTemporalUnitNotReady is returned by OutputTemporalUnit when no audio
// element has a full frame buffered yet and the caller has not finalized
// (so a short trailing frame cannot be assumed). Callers should add more
// samples and try again.
var ErrTemporalUnitNotReady = iamferr.Wrap(iamferr.FailedPrecondition, "no temporal unit is ready yet")

// substreamChannelCounts returns, in AudioSubstreamIDs order, how many
// channels each of an audio element's substreams carries: coupled
// substreams (spec.md's coupled_substream_count) carry 2, the rest carry 1.
func substreamChannelCounts(a obu.AudioElement) ([]int, error) {
	switch a.Type {
	case obu.AudioElementChannelBased:
		if a.ChannelConfig == nil {
			return nil, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d is channel-based with no channel config", a.AudioElementID)
		}
		var counts []int
		for _, l := range a.ChannelConfig.Layers {
			if l.CoupledSubstreamCount > l.SubstreamCount {
				return nil, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d has a layer with coupled_substream_count > substream_count", a.AudioElementID)
			}
			for i := uint8(0); i < l.CoupledSubstreamCount; i++ {
				counts = append(counts, 2)
			}
			for i := l.CoupledSubstreamCount; i < l.SubstreamCount; i++ {
				counts = append(counts, 1)
			}
		}
		return counts, nil
	case obu.AudioElementSceneBased:
		if a.SceneConfig == nil {
			return nil, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d is scene-based with no scene config", a.AudioElementID)
		}
		var counts []int
		for i := uint8(0); i < a.SceneConfig.CoupledSubstreamCount; i++ {
			counts = append(counts, 2)
		}
		for i := uint8(0); i < a.SceneConfig.SubstreamCount; i++ {
			counts = append(counts, 1)
		}
		return counts, nil
	default:
		return nil, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d has unknown type %d", a.AudioElementID, a.Type)
	}
}

// encodeReadyFrames frames and encodes one temporal unit's worth of
// samples for every audio element that has enough buffered, at the
// encoder's current tick. It reports whether at least one AudioFrame was
// produced.
func (e *Encoder) encodeReadyFrames() (bool, error) {
	if e.frameSize == 0 {
		return false, nil
	}
	produced := false
	frameInputs := make(map[uint32]render.Input)
	for _, ae := range e.audioElements {
		acc, ok := e.accumulators[ae.AudioElementID]
		if !ok {
			continue
		}
		available := acc.available()
		if available <= 0 {
			continue
		}
		var n int
		var padding uint32
		if available >= int(e.frameSize) {
			n = int(e.frameSize)
		} else if e.finalizeRequested {
			n = available
			padding = e.frameSize - uint32(n)
		} else {
			continue // not enough for a full frame yet, and not finalizing
		}

		counts, err := substreamChannelCounts(ae)
		if err != nil {
			return produced, err
		}
		if len(counts) != len(ae.AudioSubstreamIDs) {
			return produced, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d declares %d substream ids but its layout implies %d", ae.AudioElementID, len(ae.AudioSubstreamIDs), len(counts))
		}
		wantChannels := 0
		for _, c := range counts {
			wantChannels += c
		}
		if len(acc.order) != wantChannels {
			return produced, iamferr.Wrapf(iamferr.InvalidArgument, "audio element %d has samples for %d channels, want %d", ae.AudioElementID, len(acc.order), wantChannels)
		}

		ac, ok := e.codecs[ae.CodecConfigID]
		if !ok {
			return produced, iamferr.Wrapf(iamferr.InvalidArgument, "no codec registered for codec_config_id %d", ae.CodecConfigID)
		}

		chunk := acc.take(n)
		if padding > 0 {
			for _, label := range acc.order {
				chunk[label] = append(chunk[label], make([]int32, padding)...)
			}
		}

		allChannels := make([]int32, 0, int(e.frameSize)*len(acc.order))
		for i := 0; i < int(e.frameSize); i++ {
			for _, label := range acc.order {
				allChannels = append(allChannels, chunk[label][i])
			}
		}
		frameInputs[ae.AudioElementID] = render.Input{
			AudioElementID: ae.AudioElementID,
			Labels:         acc.order,
			Samples:        allChannels,
		}

		labelIdx := 0
		for substreamIdx, numCh := range counts {
			substreamID := ae.AudioSubstreamIDs[substreamIdx]
			interleaved := make([]int32, 0, int(e.frameSize)*numCh)
			for i := 0; i < int(e.frameSize); i++ {
				for c := 0; c < numCh; c++ {
					label := acc.order[labelIdx+c]
					interleaved = append(interleaved, chunk[label][i])
				}
			}
			labelIdx += numCh

			payload, err := ac.EncodeFrame(interleaved, numCh)
			if err != nil {
				return produced, err
			}

			var trimStart, trimEnd uint32
			if !e.startTrimDone[ae.AudioElementID] {
				trimStart = e.trimAtStart[ae.AudioElementID]
			}
			if e.finalizeRequested && available <= int(e.frameSize) {
				trimEnd = e.trimAtEnd[ae.AudioElementID] + padding
			}
			trimmed := uint64(trimStart) + uint64(trimEnd)
			if trimmed > uint64(e.frameSize) {
				return produced, iamferr.Wrapf(iamferr.InvalidArgument, "trim counters %d exceed frame size %d on substream %d", trimmed, e.frameSize, substreamID)
			}
			if trimmed == uint64(e.frameSize) && e.frameSize > 0 {
				return produced, iamferr.Wrapf(iamferr.InvalidArgument, "substream %d's frame is fully trimmed, leaving no audio", substreamID)
			}
			if trimEnd > 0 {
				if e.trimEndUsed[substreamID] {
					return produced, iamferr.Wrapf(iamferr.InvalidArgument, "substream %d already has a frame with samples_to_trim_at_end > 0", substreamID)
				}
				e.trimEndUsed[substreamID] = true
			}

			h := obu.Header{}
			if trimStart != 0 || trimEnd != 0 {
				h.TrimmingStatusFlag = true
				h.NumSamplesToTrimAtStart = trimStart
				h.NumSamplesToTrimAtEnd = trimEnd
			}
			frame := obu.AudioFrame{Header: h, SubstreamID: substreamID, EncodedPayload: payload}
			e.assembler.AddAudioFrame(e.tick, ae.AudioElementID, frame)
			produced = true
		}
		e.startTrimDone[ae.AudioElementID] = true
	}
	if produced {
		if err := e.renderAndMeasure(frameInputs); err != nil {
			return produced, err
		}
	}
	return produced, nil
}

// renderAndMeasure renders this tick's bound audio elements down to every
// mix presentation sub-mix's target layouts and, when a loudness
// calculator factory is registered, feeds the rendered PCM through that
// layout's running Calculator. Both collaborators are invoked
// synchronously under renderMu, matching spec.md §5's single-mutex
// rendering model.
func (e *Encoder) renderAndMeasure(frameInputs map[uint32]render.Input) error {
	if e.renderer == nil || len(frameInputs) == 0 {
		return nil
	}
	e.renderMu.Lock()
	defer e.renderMu.Unlock()

	for _, mp := range e.mixPresentations {
		for subMixIdx, sm := range mp.SubMixes {
			var inputs []render.Input
			for _, elem := range sm.Elements {
				in, ok := frameInputs[elem.AudioElementID]
				if !ok {
					continue
				}
				inputs = append(inputs, in)
			}
			if len(inputs) == 0 {
				continue
			}
			for layoutIdx, layout := range sm.Layouts {
				rendered, err := e.renderer.Render(inputs, layout.LoudspeakerLayout)
				if err != nil {
					return iamferr.Wrapf(iamferr.Unknown, "rendering mix_presentation %d sub_mix %d layout %d: %v", mp.MixPresentationID, subMixIdx, layoutIdx, err)
				}
				if e.loudnessFactory == nil || e.frameSize == 0 {
					continue
				}
				key := loudnessKey{mp.MixPresentationID, subMixIdx, layoutIdx}
				calc, ok := e.loudnessCalculators[key]
				if !ok {
					calc = e.loudnessFactory()
					e.loudnessCalculators[key] = calc
				}
				numChannels := len(rendered) / int(e.frameSize)
				m, err := calc.Measure(rendered, numChannels)
				if err != nil {
					return iamferr.Wrapf(iamferr.Unknown, "measuring loudness for mix_presentation %d sub_mix %d layout %d: %v", mp.MixPresentationID, subMixIdx, layoutIdx, err)
				}
				e.measuredLoudness[key] = m
			}
		}
	}
	return nil
}

func (e *Encoder) hasBufferedSamples() bool {
	for _, acc := range e.accumulators {
		if acc.available() != 0 {
			return true
		}
	}
	return false
}

// OutputTemporalUnit frames and encodes whatever audio elements have
// enough buffered samples at the encoder's current tick, serializes the
// resulting temporal unit, and advances to the next tick. It is callable
// throughout GeneratingDataObus, not only after FinalizeAddSamples, so a
// caller can drain temporal units as they become ready instead of
// buffering an entire session (spec.md §4.6).
func (e *Encoder) OutputTemporalUnit() ([]byte, error) {
	if err := e.requireState(GeneratingDataObus); err != nil {
		return nil, err
	}
	produced, err := e.encodeReadyFrames()
	if err != nil {
		return nil, err
	}

	u, ok := e.assembler.TakeUnit(e.tick)
	if !ok || (!produced && len(u.ParameterBlocks) == 0 && len(u.BeforeParameterBlocks) == 0 && len(u.AfterParameterBlocks) == 0 && len(u.AfterAudioFrames) == 0) {
		if e.finalizeRequested && !e.hasBufferedSamples() {
			e.state = Finalized
			return nil, ErrNoMoreTemporalUnits
		}
		return nil, ErrTemporalUnitNotReady
	}

	w := bitbuffer.NewWriteBuffer()
	if _, err := e.seq.WriteTemporalUnit(w, u); err != nil {
		return nil, err
	}
	e.tick += int64(e.frameSize)
	return w.Bytes()
}
