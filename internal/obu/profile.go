package obu

import "github.com/iamf-tools/iamf-go/internal/iamferr"

// ValidateProfileCoverage checks that numAudioElements and numChannels (the
// channel count summed across a mix presentation's bound audio elements)
// fall within the structural ceilings the primary profile allows
// (SPEC_FULL.md §13.4). BaseEnhanced has no ceiling.
func ValidateProfileCoverage(primary Profile, numAudioElements, numChannels int) error {
	switch primary {
	case ProfileSimple:
		if numAudioElements > simpleMaxAudioElement {
			return iamferr.Wrapf(iamferr.InvalidArgument, "simple profile allows at most %d audio element, got %d", simpleMaxAudioElement, numAudioElements)
		}
		if numChannels > simpleMaxChannels {
			return iamferr.Wrapf(iamferr.InvalidArgument, "simple profile allows at most %d channels, got %d", simpleMaxChannels, numChannels)
		}
	case ProfileBase:
		if numAudioElements > baseMaxAudioElements {
			return iamferr.Wrapf(iamferr.InvalidArgument, "base profile allows at most %d audio elements, got %d", baseMaxAudioElements, numAudioElements)
		}
		if numChannels > baseMaxChannels {
			return iamferr.Wrapf(iamferr.InvalidArgument, "base profile allows at most %d channels, got %d", baseMaxChannels, numChannels)
		}
	case ProfileBaseEnhanced:
		// no ceiling
	default:
		return iamferr.Wrapf(iamferr.InvalidArgument, "unknown profile %d", primary)
	}
	return nil
}
