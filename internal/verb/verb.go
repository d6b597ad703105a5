// Package verb holds the command vocabulary: the
// fixed, ordered set of protocol verbs, their arity kind, their gate
// class, and the feature flags they require. It has no dependency on
// the device or command packages so both vtable and command can import
// it without a cycle: vtable needs Verb for its lookup-table keys,
// command needs it for the tokenizer and dispatcher.
package verb

// Verb identifies one recognized command-line token.
type Verb int

// None is the implicit "no command matched" verb.
const (
	None Verb = iota

	Delay
	Mode
	Switch
	Layout
	Accel
	ScrollSpeed
	NotifyOn
	NotifyOff
	FPS
	Dither

	HWLoad
	HWSave
	FWUpdate
	PollRate

	Active
	Idle

	Erase
	EraseProfile
	Name
	ProfileName
	ID
	ProfileID

	RGB
	HWAnim
	IOff
	Ion
	IAuto

	Bind
	Unbind
	Rebind
	Macro

	DPI
	DPISel
	Lift
	Snap

	Notify
	INotify
	Get

	Reset
)

// Kind classifies how a verb consumes its argument.
type Kind int

const (
	// KindAction verbs take no argument; recognizing the verb itself
	// triggers dispatch.
	KindAction Kind = iota
	// KindArg verbs consume the next word as a parsed argument.
	KindArg
	// KindWholeWord verbs consume the next word verbatim.
	KindWholeWord
	// KindColonSplit verbs split their argument word at the first ':'.
	KindColonSplit
)

// strings_ is the stable wire-level verb vocabulary in the same
// order as the Verb constants. Index 0 corresponds to Delay
// (the first real verb after the implicit None).
var strings_ = [...]string{
	"delay", "mode", "switch", "layout", "accel", "scrollspeed",
	"notifyon", "notifyoff", "fps", "dither",
	"hwload", "hwsave", "fwupdate", "pollrate",
	"active", "idle",
	"erase", "eraseprofile", "name", "profilename", "id", "profileid",
	"rgb", "hwanim", "ioff", "ion", "iauto",
	"bind", "unbind", "rebind", "macro",
	"dpi", "dpisel", "lift", "snap",
	"notify", "inotify", "get",
	"reset",
}

var byString map[string]Verb

func init() {
	byString = make(map[string]Verb, len(strings_))
	for i, s := range strings_ {
		byString[s] = Verb(i + 1) // +1 to skip None
	}
}

// Lookup resolves a bare word to its verb, or None if it isn't one.
func Lookup(word string) Verb {
	if v, ok := byString[word]; ok {
		return v
	}
	return None
}

// String renders a verb back to its wire-level token, or "" for None
// or an out-of-range value.
func (v Verb) String() string {
	i := int(v) - 1
	if i < 0 || i >= len(strings_) {
		return ""
	}
	return strings_[i]
}

// kinds maps every verb to its arity kind. Verbs not listed as
// KindAction/KindWholeWord/KindColonSplit default to KindArg, which
// covers most of the vocabulary.
var kinds = map[Verb]Kind{
	Switch:       KindAction,
	HWLoad:       KindAction,
	HWSave:       KindAction,
	Active:       KindAction,
	Idle:         KindAction,
	Erase:        KindAction,
	EraseProfile: KindAction,

	Reset:   KindWholeWord,
	Get:     KindWholeWord,
	Name:    KindWholeWord,
	ProfileName: KindWholeWord,
	ID:      KindWholeWord,
	ProfileID: KindWholeWord,
	DPISel:  KindWholeWord,
	Lift:    KindWholeWord,
	Snap:    KindWholeWord,
	Delay:   KindWholeWord,
	FWUpdate: KindWholeWord,
	PollRate: KindWholeWord,
	IOff:  KindWholeWord,
	Ion:   KindWholeWord,
	IAuto: KindWholeWord,
	INotify: KindWholeWord,
	Layout: KindWholeWord,
	Accel:  KindWholeWord,

	RGB:    KindColonSplit,
	Macro:  KindColonSplit,
	Bind:   KindColonSplit,
	Unbind: KindColonSplit,
	Rebind: KindColonSplit,
	DPI:    KindColonSplit,
	HWAnim: KindColonSplit,
}

// KindOf returns v's arity kind.
func KindOf(v Verb) Kind {
	if k, ok := kinds[v]; ok {
		return k
	}
	return KindArg
}

// IsAction reports whether recognizing v alone triggers dispatch,
// i.e. it never consumes a following word as its argument.
func IsAction(v Verb) bool { return KindOf(v) == KindAction }

// Feature names the single capability flag gating a verb (see
// featureReqs and RequiredFeature). Verbs absent from featureReqs have
// no capability requirement. Expressed in terms of small constants
// rather than importing internal/device, keeping this package free of
// dependencies — internal/command translates these into
// device.FeatureSet checks.
type Feature int

const (
	FeatureNone Feature = iota
	FeatureBind
	FeatureNotify
	FeatureAdjRate
)

var featureReqs = map[Verb]Feature{
	Bind:   FeatureBind,
	Unbind: FeatureBind,
	Rebind: FeatureBind,
	Macro:  FeatureBind,
	Delay:  FeatureBind,

	Notify: FeatureNotify,

	PollRate: FeatureAdjRate,
}

// RequiredFeature returns the capability flag v requires, or
// FeatureNone if it requires none.
func RequiredFeature(v Verb) Feature {
	if f, ok := featureReqs[v]; ok {
		return f
	}
	return FeatureNone
}

// alwaysAvailable is the set of verbs admitted regardless of the
// device's active/idle lifecycle state, checked before the activation gate.
var alwaysAvailable = map[Verb]bool{
	NotifyOn: true, NotifyOff: true, Get: true,
	Layout: true, Accel: true, ScrollSpeed: true,
	Mode: true, FPS: true, Dither: true, Delay: true, Reset: true,
}

// IsAlwaysAvailable reports whether v bypasses the active/idle gate.
func IsAlwaysAvailable(v Verb) bool { return alwaysAvailable[v] }

// fwUpdateOnly is the set of verbs admitted even while a device needs
// a firmware update.
var fwUpdateOnly = map[Verb]bool{
	FWUpdate: true, NotifyOn: true, NotifyOff: true, Reset: true,
}

// IsFWUpdateOnly reports whether v is one of the few verbs that may
// still run while the device is bricked.
func IsFWUpdateOnly(v Verb) bool { return fwUpdateOnly[v] }
