package types

// Mode identifies which trading environment owns the current state.
// Exactly one mode is active at any time.
type Mode string

const (
	ModeSim   Mode = "SIM"
	ModeLive  Mode = "LIVE"
	ModeDebug Mode = "DEBUG"

	// ModeNone marks "no owning mode" on a flat position.
	ModeNone Mode = ""
)

// Valid reports whether m is one of the three trading modes.
func (m Mode) Valid() bool {
	return m == ModeSim || m == ModeLive || m == ModeDebug
}

// Precedence orders modes as LIVE > SIM > DEBUG.
func (m Mode) Precedence() int {
	switch m {
	case ModeLive:
		return 2
	case ModeSim:
		return 1
	default:
		return 0
	}
}

func (m Mode) String() string {
	if m == ModeNone {
		return "NONE"
	}
	return string(m)
}
