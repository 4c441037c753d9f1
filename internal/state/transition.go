package state

import (
	"fmt"

	"trade-dashboard/internal/types"
)

// TransitionDecision is the result of validating a requested mode change.
type TransitionDecision struct {
	Allowed bool
	Reason  string
	// ImplicitClose means the caller must close the open position (producing
	// a ClosedTrade) before committing the switch.
	ImplicitClose bool
}

// ValidateTransition is the pure mode-transition rule set. It never mutates
// state; the coordinator applies the side effects it prescribes.
//
// Rules, in order: same mode is always allowed; LIVE is always allowed (an
// open SIM position is auto-closed by the caller); SIM is allowed unless a
// LIVE position is open; DEBUG is always allowed.
func ValidateTransition(current, requested types.Mode, hasOpenPosition bool, positionMode types.Mode) TransitionDecision {
	if requested == current {
		return TransitionDecision{Allowed: true}
	}

	switch requested {
	case types.ModeLive:
		return TransitionDecision{
			Allowed:       true,
			ImplicitClose: hasOpenPosition && positionMode == types.ModeSim,
		}
	case types.ModeSim:
		if hasOpenPosition && positionMode == types.ModeLive {
			return TransitionDecision{
				Allowed: false,
				Reason:  "cannot switch to SIM while a LIVE position is open",
			}
		}
		return TransitionDecision{Allowed: true}
	case types.ModeDebug:
		return TransitionDecision{Allowed: true}
	}

	return TransitionDecision{
		Allowed: false,
		Reason:  fmt.Sprintf("unknown mode '%s'", requested),
	}
}
