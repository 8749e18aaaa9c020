package obu

import (
	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

// ArbitraryObu carries an opaque payload spliced into the stream at a
// caller-chosen InsertionHook. Tick-bound hooks carry an InsertionTick
// identifying which temporal unit they belong to; descriptor-prologue
// hooks leave it at zero and ignored.
type ArbitraryObu struct {
	Hook                  InsertionHook
	InsertionTick         int64
	InvalidateTemporalUnit bool
	Payload               []byte
}

func (a ArbitraryObu) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	h := Header{Type: ObuReserved25}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := nested.WriteUnsigned(uint64(a.Hook), 8); err != nil {
			return err
		}
		if a.Hook.IsTickBound() {
			if err := nested.WriteUnsigned(uint64(a.InsertionTick), 64); err != nil {
				return err
			}
			if err := nested.WriteUnsigned(boolBit(a.InvalidateTemporalUnit), 8); err != nil {
				return err
			}
		} else if a.InvalidateTemporalUnit {
			return iamferr.Wrap(iamferr.InvalidArgument, "invalidate_temporal_unit is only meaningful on a tick-bound insertion hook")
		}
		return nested.WriteBytes(a.Payload)
	})
}

func ReadArbitraryObuPayload(r *bitbuffer.ReadBuffer) (ArbitraryObu, error) {
	var a ArbitraryObu
	hook, err := r.ReadUint8(8)
	if err != nil {
		return a, err
	}
	a.Hook = InsertionHook(hook)
	if a.Hook.IsTickBound() {
		tick, err := r.ReadUint64(64)
		if err != nil {
			return a, err
		}
		a.InsertionTick = int64(tick)
		inval, err := r.ReadUint8(8)
		if err != nil {
			return a, err
		}
		a.InvalidateTemporalUnit = inval != 0
	}
	payload := make([]byte, 0, 64)
	for r.IsDataAvailable() {
		b, err := r.ReadUint8(8)
		if err != nil {
			break
		}
		payload = append(payload, b)
	}
	a.Payload = payload
	return a, nil
}
