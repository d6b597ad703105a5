package device

// FeatureSet is a bitset of capability flags plus the layout mask,
// which must carry exactly one of FeatAnsi/FeatIso.
type FeatureSet uint32

const (
	FeatBind FeatureSet = 1 << iota
	FeatNotify
	FeatAdjRate
	FeatAnsi
	FeatIso
	FeatMouseAccel
)

// FeatLMask covers both layout bits so callers can clear the pair
// before setting one.
const FeatLMask = FeatAnsi | FeatIso

// Has reports whether all of the given flags are present.
func (f FeatureSet) Has(flags FeatureSet) bool {
	return f&flags == flags
}

// SetLayout clears both layout bits and sets exactly one, preserving
// the "exactly one of ANSI/ISO" invariant.
func (f FeatureSet) SetLayout(ansi bool) FeatureSet {
	f &^= FeatLMask
	if ansi {
		return f | FeatAnsi
	}
	return f | FeatIso
}
