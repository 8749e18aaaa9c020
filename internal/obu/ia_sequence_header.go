package obu

import (
	"bytes"

	"github.com/iamf-tools/iamf-go/internal/bitbuffer"
	"github.com/iamf-tools/iamf-go/internal/iamferr"
)

var iaSequenceHeaderMagic = [4]byte{'i', 'a', 'm', 'f'}

// IaSequenceHeader is the mandatory first OBU of every IA Sequence.
type IaSequenceHeader struct {
	PrimaryProfile   Profile
	AdditionalProfile Profile
}

// ValidateAndWrite writes this OBU's header and payload into w.
func (s IaSequenceHeader) ValidateAndWrite(w *bitbuffer.WriteBuffer, gen bitbuffer.LebGenerator) error {
	h := Header{Type: ObuIASequenceHeader}
	return h.WriteOBU(w, gen, func(nested *bitbuffer.WriteBuffer) error {
		if err := nested.WriteBytes(iaSequenceHeaderMagic[:]); err != nil {
			return err
		}
		if err := nested.WriteUnsigned(uint64(s.PrimaryProfile), 8); err != nil {
			return err
		}
		return nested.WriteUnsigned(uint64(s.AdditionalProfile), 8)
	})
}

// ReadIaSequenceHeaderPayload parses the payload from a ReadBuffer scoped
// to this OBU's body (see ReadOBU).
func ReadIaSequenceHeaderPayload(r *bitbuffer.ReadBuffer) (IaSequenceHeader, error) {
	var s IaSequenceHeader
	magic := make([]byte, 4)
	if err := r.ReadUint8Span(magic); err != nil {
		return s, err
	}
	if !bytes.Equal(magic, iaSequenceHeaderMagic[:]) {
		return s, iamferr.Wrapf(iamferr.InvalidArgument, "ia sequence header magic mismatch: %q", magic)
	}
	primary, err := r.ReadUint8(8)
	if err != nil {
		return s, err
	}
	additional, err := r.ReadUint8(8)
	if err != nil {
		return s, err
	}
	s.PrimaryProfile = Profile(primary)
	s.AdditionalProfile = Profile(additional)
	return s, nil
}
