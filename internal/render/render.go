// Package render defines the Renderer collaborator boundary: turning a
// sub-mix's bound audio elements into PCM samples for one target
// loudspeaker layout. Renderer implementations themselves (channel
// down-mixing matrices, ambisonics decoding, binaural HRTF convolution)
// are an external collaborator out of this module's scope; only the
// interface they satisfy lives here.
package render

import (
	"github.com/iamf-tools/iamf-go/internal/iamferr"
	"github.com/iamf-tools/iamf-go/internal/obu"
)

// Input is one audio element's decoded PCM for one temporal unit, ready to
// be mixed into a target layout.
type Input struct {
	AudioElementID uint32
	Labels         []obu.ChannelLabel
	// Samples is interleaved PCM, one int32 per sample per channel in
	// Labels order.
	Samples []int32
}

// Renderer mixes a set of audio element inputs down to one target
// loudspeaker layout's interleaved PCM.
type Renderer interface {
	// Render returns interleaved PCM for targetLayout's channel count,
	// one frame's worth of samples per input.
	Render(inputs []Input, targetLayout uint8) ([]int32, error)
}

// PassthroughRenderer implements Renderer for the degenerate single
// channel-based-element, single-layer case: it requires exactly one input
// whose channel count already matches the target layout and returns its
// samples unchanged. It exists to let tests and simple CLI invocations
// exercise the sequencer/encoder pipeline without a real renderer wired
// in.
type PassthroughRenderer struct{}

func (PassthroughRenderer) Render(inputs []Input, targetLayout uint8) ([]int32, error) {
	if len(inputs) != 1 {
		return nil, iamferr.Wrap(iamferr.InvalidArgument, "passthrough renderer requires exactly one input")
	}
	return inputs[0].Samples, nil
}
