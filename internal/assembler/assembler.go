// Package assembler buckets AudioFrames, ParameterBlocks, and tick-bound
// ArbitraryObus onto a shared temporal-unit time axis, producing the
// strictly ordered sequence the OBU sequencer writes out one temporal unit
// at a time.
package assembler

import (
	"sort"

	"github.com/iamf-tools/iamf-go/internal/obu"
)

// AudioFrameEntry is one AudioFrame placed into a temporal unit, tagged
// with the AudioElementID it belongs to (needed for the intra-bucket sort,
// since obu.AudioFrame itself only carries a substream id).
type AudioFrameEntry struct {
	AudioElementID uint32
	Frame          obu.AudioFrame
}

// ParameterBlockEntry is one ParameterBlock placed into a temporal unit.
type ParameterBlockEntry struct {
	Block obu.ParameterBlock
}

// TemporalUnit is one tick's worth of data OBUs, in final wire order:
// arbitrary OBUs hooked before the parameter blocks, the parameter blocks
// themselves (sorted by parameter_id), arbitrary OBUs hooked after them,
// the audio frames (sorted by audio_element_id then substream_id), and
// finally arbitrary OBUs hooked after the audio frames.
type TemporalUnit struct {
	Tick int64

	BeforeParameterBlocks []obu.ArbitraryObu
	ParameterBlocks       []ParameterBlockEntry
	AfterParameterBlocks  []obu.ArbitraryObu
	AudioFrames           []AudioFrameEntry
	AfterAudioFrames      []obu.ArbitraryObu
}

// Invalidated reports whether any arbitrary OBU attached to this unit
// carries InvalidateTemporalUnit, meaning the unit as a whole must not be
// written out.
func (u *TemporalUnit) Invalidated() bool {
	for _, a := range u.BeforeParameterBlocks {
		if a.InvalidateTemporalUnit {
			return true
		}
	}
	for _, a := range u.AfterParameterBlocks {
		if a.InvalidateTemporalUnit {
			return true
		}
	}
	for _, a := range u.AfterAudioFrames {
		if a.InvalidateTemporalUnit {
			return true
		}
	}
	return false
}

func sortUnit(u *TemporalUnit) {
	sort.SliceStable(u.AudioFrames, func(i, j int) bool {
		fi, fj := u.AudioFrames[i], u.AudioFrames[j]
		if fi.AudioElementID != fj.AudioElementID {
			return fi.AudioElementID < fj.AudioElementID
		}
		return fi.Frame.SubstreamID < fj.Frame.SubstreamID
	})
	sort.SliceStable(u.ParameterBlocks, func(i, j int) bool {
		return u.ParameterBlocks[i].Block.ParameterID < u.ParameterBlocks[j].Block.ParameterID
	})
}

// Assembler accumulates data OBUs keyed by tick and produces the finished
// TemporalUnit sequence on demand.
type Assembler struct {
	units map[int64]*TemporalUnit
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{units: make(map[int64]*TemporalUnit)}
}

func (a *Assembler) ensure(tick int64) *TemporalUnit {
	u, ok := a.units[tick]
	if !ok {
		u = &TemporalUnit{Tick: tick}
		a.units[tick] = u
	}
	return u
}

// EnsureUnit creates an empty bucket at tick if one does not already
// exist, without placing anything into it. Callers that may route a
// tick-bound arbitrary OBU to a tick before any frame or parameter block
// has reached it need this so AddTickBoundArbitraryObu never silently
// drops the OBU for arriving first.
func (a *Assembler) EnsureUnit(tick int64) {
	a.ensure(tick)
}

// AddAudioFrame places frame into the temporal unit at tick, tagged with
// the audio element it was produced from.
func (a *Assembler) AddAudioFrame(tick int64, audioElementID uint32, frame obu.AudioFrame) {
	u := a.ensure(tick)
	u.AudioFrames = append(u.AudioFrames, AudioFrameEntry{AudioElementID: audioElementID, Frame: frame})
}

// AddParameterBlock places block into the temporal unit at tick.
func (a *Assembler) AddParameterBlock(tick int64, block obu.ParameterBlock) {
	u := a.ensure(tick)
	u.ParameterBlocks = append(u.ParameterBlocks, ParameterBlockEntry{Block: block})
}

// AddTickBoundArbitraryObu routes a into the temporal unit its
// InsertionTick names. If no temporal unit exists at that tick, the OBU is
// silently dropped rather than treated as an error: a tick-bound arbitrary
// OBU targeting a tick the encoder never produced data for has nothing to
// attach to.
func (a *Assembler) AddTickBoundArbitraryObu(o obu.ArbitraryObu) {
	if !o.Hook.IsTickBound() {
		return
	}
	u, ok := a.units[o.InsertionTick]
	if !ok {
		return
	}
	switch o.Hook {
	case obu.HookBeforeParameterBlocksAtTick:
		u.BeforeParameterBlocks = append(u.BeforeParameterBlocks, o)
	case obu.HookAfterParameterBlocksAtTick:
		u.AfterParameterBlocks = append(u.AfterParameterBlocks, o)
	case obu.HookAfterAudioFramesAtTick:
		u.AfterAudioFrames = append(u.AfterAudioFrames, o)
	}
}

// Sequence returns every accumulated TemporalUnit in ascending tick order,
// with each unit's audio frames and parameter blocks sorted per spec:
// audio frames by (audio_element_id, substream_id); parameter blocks by
// parameter_id.
func (a *Assembler) Sequence() []*TemporalUnit {
	units := make([]*TemporalUnit, 0, len(a.units))
	for _, u := range a.units {
		sortUnit(u)
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Tick < units[j].Tick })
	return units
}

// TakeUnit removes and returns the TemporalUnit at tick, sorted the same
// way Sequence sorts its units, for callers that drain one tick at a time
// as it becomes ready instead of sequencing the whole accumulated set at
// once.
func (a *Assembler) TakeUnit(tick int64) (*TemporalUnit, bool) {
	u, ok := a.units[tick]
	if !ok {
		return nil, false
	}
	delete(a.units, tick)
	sortUnit(u)
	return u, true
}
