package obu

import "fmt"

// ChannelLabel names one output channel of a rendered layout, the closed
// vocabulary the renderer and loudness calculator collaborators key their
// per-channel processing on (SPEC_FULL.md §6.2).
type ChannelLabel uint8

const (
	ChannelLabelUnknown ChannelLabel = iota

	ChannelLabelMono

	ChannelLabelL2
	ChannelLabelR2

	ChannelLabelL3
	ChannelLabelR3
	ChannelLabelC

	ChannelLabelLFE

	ChannelLabelLs5
	ChannelLabelRs5

	ChannelLabelLtf4
	ChannelLabelRtf4
	ChannelLabelLtb4
	ChannelLabelRtb4

	ChannelLabelLrs7
	ChannelLabelRrs7

	// ChannelLabelAmbisonicsACN0 is the first of a contiguous run of
	// ambisonic ACN channel labels; ChannelLabelAmbisonicsACN(n) returns
	// the label for ACN index n.
	ChannelLabelAmbisonicsACN0
)

const maxAmbisonicsACN = 224 // supports up to 14th-order ambisonics, (14+1)^2 - 1

// ChannelLabelAmbisonicsACN returns the closed-enum label for ambisonic
// channel acn (0-based ACN index).
func ChannelLabelAmbisonicsACN(acn int) ChannelLabel {
	if acn < 0 || acn > maxAmbisonicsACN {
		return ChannelLabelUnknown
	}
	return ChannelLabelAmbisonicsACN0 + ChannelLabel(acn)
}

// AmbisonicsACNIndex returns the ACN index l names, and whether l is an
// ambisonics label at all.
func (l ChannelLabel) AmbisonicsACNIndex() (int, bool) {
	if l < ChannelLabelAmbisonicsACN0 {
		return 0, false
	}
	return int(l - ChannelLabelAmbisonicsACN0), true
}

func (l ChannelLabel) String() string {
	switch l {
	case ChannelLabelUnknown:
		return "unknown"
	case ChannelLabelMono:
		return "mono"
	case ChannelLabelL2:
		return "L2"
	case ChannelLabelR2:
		return "R2"
	case ChannelLabelL3:
		return "L3"
	case ChannelLabelR3:
		return "R3"
	case ChannelLabelC:
		return "C"
	case ChannelLabelLFE:
		return "LFE"
	case ChannelLabelLs5:
		return "Ls5"
	case ChannelLabelRs5:
		return "Rs5"
	case ChannelLabelLtf4:
		return "Ltf4"
	case ChannelLabelRtf4:
		return "Rtf4"
	case ChannelLabelLtb4:
		return "Ltb4"
	case ChannelLabelRtb4:
		return "Rtb4"
	case ChannelLabelLrs7:
		return "Lrs7"
	case ChannelLabelRrs7:
		return "Rrs7"
	default:
		if acn, ok := l.AmbisonicsACNIndex(); ok {
			return fmt.Sprintf("A%d", acn)
		}
		return fmt.Sprintf("channel_label_%d", uint8(l))
	}
}
