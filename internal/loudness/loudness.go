// Package loudness defines the LoudnessCalculator collaborator boundary:
// measuring integrated loudness, digital peak, and true peak for a
// rendered mix so the encoder can populate a MixPresentation sub-mix's
// LoudnessLayout. The calculator itself (ITU-R BS.1770 gating, true-peak
// oversampling) is an external collaborator out of this module's scope;
// only the interface it satisfies lives here.
package loudness

import "github.com/iamf-tools/iamf-go/internal/obu"

// Measurement is one layout's loudness result, in the same fixed-point
// units LoudnessLayout carries on the wire (hundredths of an LKFS/dBTP).
type Measurement struct {
	IntegratedLoudness int16
	DigitalPeak        int16
	TruePeak           int16
	TruePeakPresent    bool
}

// Calculator measures interleaved PCM rendered for one target loudspeaker
// layout.
type Calculator interface {
	Measure(samples []int32, numChannels int) (Measurement, error)
}

// ToLoudnessLayout converts a Measurement into the wire-level
// obu.LoudnessLayout for the given target layout.
func ToLoudnessLayout(layout uint8, m Measurement) obu.LoudnessLayout {
	return obu.LoudnessLayout{
		LoudspeakerLayout:  layout,
		IntegratedLoudness: m.IntegratedLoudness,
		DigitalPeak:        m.DigitalPeak,
		TruePeakPresent:    m.TruePeakPresent,
		TruePeak:           m.TruePeak,
	}
}
