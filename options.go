package ses

import "github.com/prometheus/common/log"

// EIIOEMode controls promotion of EIIOE=0 in Additional Element Status
// descriptors to EIIOE=1.
type EIIOEMode int

const (
	// EIIOEOff honours the EIIOE field as reported.
	EIIOEOff EIIOEMode = iota
	// EIIOEAuto promotes when the first descriptor has EIIOE=0 and an
	// element index of 1, which only makes sense when overall elements
	// are counted.
	EIIOEAuto
	// EIIOEForce treats every EIIOE=0 descriptor as EIIOE=1.
	EIIOEForce
)

func (m EIIOEMode) String() string {
	switch m {
	case EIIOEAuto:
		return "auto"
	case EIIOEForce:
		return "force"
	}
	return "off"
}

// ParseEIIOEMode parses "off", "auto" or "force".
func ParseEIIOEMode(s string) (EIIOEMode, bool) {
	switch s {
	case "", "off":
		return EIIOEOff, true
	case "auto":
		return EIIOEAuto, true
	case "force":
		return EIIOEForce, true
	}
	return EIIOEOff, false
}

// JoinHeuristics gates the workarounds for enclosures whose Additional
// Element Status page does not follow the standard.
type JoinHeuristics struct {
	// BrokenEI re-matches element indexes against the AES-only index space
	// once an index lands on an element type that has no AES descriptor.
	BrokenEI bool
	// Areca fakes element indexes for SAS descriptors that report index 0
	// for every device slot.
	Areca bool
}

// DefaultJoinHeuristics enables every heuristic.
var DefaultJoinHeuristics = JoinHeuristics{BrokenEI: true, Areca: true}

// Options holds the engine configuration.
type Options struct {
	// Filter suppresses zero flag fields at level 1; level 2 also skips
	// elements that are not installed or unsupported in join output.
	Filter int

	// Hex prints element status bytes and fetched field values in hex.
	Hex bool

	// Byte1 is written to byte 1 of every control page.
	Byte1 byte

	// MaskIgnore deposits control values without the element type mask.
	MaskIgnore bool

	// Warn enables extra checks, such as rejecting reserved values.
	Warn bool

	// EIIOE selects EIIOE promotion for the join.
	EIIOE EIIOEMode

	// Heuristics gates the join workarounds.
	Heuristics JoinHeuristics

	// Logger receives warnings and debug output.
	Logger log.Logger

	// MaxPageLen is the size of each page buffer.
	MaxPageLen int
}

// DefaultMaxPageLen is the largest allocation length RECEIVE DIAGNOSTIC
// RESULTS can carry.
const DefaultMaxPageLen = 65532

func defaultOptions() Options {
	return Options{
		Heuristics: DefaultJoinHeuristics,
		Logger:     log.Base(),
		MaxPageLen: DefaultMaxPageLen,
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Options)

// WithFilter sets the output filter level.
func WithFilter(level int) Option {
	return func(o *Options) {
		o.Filter = level
	}
}

// WithHex prints status bytes and field values in hex.
func WithHex(hex bool) Option {
	return func(o *Options) {
		o.Hex = hex
	}
}

// WithByte1 sets byte 1 of control pages.
func WithByte1(b byte) Option {
	return func(o *Options) {
		o.Byte1 = b
	}
}

// WithMaskIgnore disables the element type control mask.
func WithMaskIgnore(ignore bool) Option {
	return func(o *Options) {
		o.MaskIgnore = ignore
	}
}

// WithWarn enables extra checks and warnings.
func WithWarn(warn bool) Option {
	return func(o *Options) {
		o.Warn = warn
	}
}

// WithEIIOE sets the EIIOE promotion mode.
func WithEIIOE(mode EIIOEMode) Option {
	return func(o *Options) {
		o.EIIOE = mode
	}
}

// WithJoinHeuristics replaces the default join workarounds.
func WithJoinHeuristics(h JoinHeuristics) Option {
	return func(o *Options) {
		o.Heuristics = h
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMaxPageLen sets the page buffer size. Values outside 8..65532 are
// ignored.
func WithMaxPageLen(n int) Option {
	return func(o *Options) {
		if n >= 8 && n <= DefaultMaxPageLen {
			o.MaxPageLen = n
		}
	}
}
