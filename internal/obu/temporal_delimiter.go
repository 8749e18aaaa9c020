package obu

import "github.com/iamf-tools/iamf-go/internal/bitbuffer"

// TemporalDelimiter marks the start of a temporal unit. It carries no
// payload; its presence alone is the signal.
type TemporalDelimiter struct{}

func (TemporalDelimiter) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	h := Header{Type: ObuTemporalDelimiter}
	return h.WriteOBU(w, gen, nil)
}

// ReadTemporalDelimiterPayload has nothing to parse; it exists for
// symmetry with the other OBU payload readers so the sequencer's dispatch
// table can treat every OBU type uniformly.
func ReadTemporalDelimiterPayload(r *bitbuffer.ReadBuffer) (TemporalDelimiter, error) {
	return TemporalDelimiter{}, nil
}
