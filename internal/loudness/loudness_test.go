package loudness

import "testing"

type fixedCalculator struct {
	m   Measurement
	err error
}

func (f fixedCalculator) Measure(samples []int32, numChannels int) (Measurement, error) {
	return f.m, f.err
}

func TestToLoudnessLayoutCarriesFields(t *testing.T) {
	var c Calculator = fixedCalculator{m: Measurement{
		IntegratedLoudness: -2310,
		DigitalPeak:        -100,
		TruePeak:           -50,
		TruePeakPresent:    true,
	}}
	m, err := c.Measure([]int32{1, 2, 3, 4}, 2)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	got := ToLoudnessLayout(0, m)
	if got.LoudspeakerLayout != 0 || got.IntegratedLoudness != -2310 || got.DigitalPeak != -100 {
		t.Errorf("got %+v", got)
	}
	if !got.TruePeakPresent || got.TruePeak != -50 {
		t.Errorf("expected true peak to be carried through, got %+v", got)
	}
}

func TestToLoudnessLayoutOmitsTruePeakWhenAbsent(t *testing.T) {
	got := ToLoudnessLayout(2, Measurement{IntegratedLoudness: -1800})
	if got.TruePeakPresent {
		t.Errorf("expected true peak absent, got %+v", got)
	}
}
