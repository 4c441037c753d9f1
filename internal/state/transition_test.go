package state

import (
	"testing"

	"trade-dashboard/internal/types"
)

func TestSameModeAlwaysAllowed(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeSim, types.ModeLive, types.ModeDebug} {
		d := ValidateTransition(mode, mode, true, mode)
		if !d.Allowed {
			t.Errorf("Expected %s -> %s to be allowed", mode, mode)
		}
		if d.ImplicitClose {
			t.Errorf("Expected no implicit close for %s -> %s", mode, mode)
		}
	}
}

func TestLiveAlwaysAllowed(t *testing.T) {
	// Flat
	d := ValidateTransition(types.ModeSim, types.ModeLive, false, types.ModeNone)
	if !d.Allowed || d.ImplicitClose {
		t.Errorf("Expected SIM -> LIVE while flat to be allowed without implicit close, got %+v", d)
	}

	// Open SIM position forces an implicit close
	d = ValidateTransition(types.ModeSim, types.ModeLive, true, types.ModeSim)
	if !d.Allowed {
		t.Error("Expected SIM -> LIVE with open SIM position to be allowed")
	}
	if !d.ImplicitClose {
		t.Error("Expected implicit close of the SIM position")
	}
}

func TestSimBlockedByLivePosition(t *testing.T) {
	d := ValidateTransition(types.ModeLive, types.ModeSim, true, types.ModeLive)
	if d.Allowed {
		t.Error("Expected LIVE -> SIM with open LIVE position to be denied")
	}
	if d.Reason == "" {
		t.Error("Expected a denial reason")
	}

	// Flat LIVE may drop to SIM
	d = ValidateTransition(types.ModeLive, types.ModeSim, false, types.ModeNone)
	if !d.Allowed {
		t.Error("Expected LIVE -> SIM while flat to be allowed")
	}
}

func TestDebugAlwaysAllowed(t *testing.T) {
	d := ValidateTransition(types.ModeLive, types.ModeDebug, true, types.ModeLive)
	if !d.Allowed {
		t.Error("Expected LIVE -> DEBUG to be allowed even with an open position")
	}
	if d.ImplicitClose {
		t.Error("Expected no implicit close on DEBUG entry")
	}
}

func TestUnknownModeDenied(t *testing.T) {
	d := ValidateTransition(types.ModeSim, types.Mode("BACKTEST"), false, types.ModeNone)
	if d.Allowed {
		t.Error("Expected unknown mode to be denied")
	}
}

func TestModePrecedence(t *testing.T) {
	if types.ModeLive.Precedence() <= types.ModeSim.Precedence() {
		t.Error("Expected LIVE to outrank SIM")
	}
	if types.ModeSim.Precedence() <= types.ModeDebug.Precedence() {
		t.Error("Expected SIM to outrank DEBUG")
	}
}
