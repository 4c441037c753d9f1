package state

import (
	"trade-dashboard/internal/types"
)

// dispatcher buffers notifications inside atomic-update scopes and flushes
// them in the fixed order mode -> balance -> position when the outermost
// scope exits. Outside a scope, notifications dispatch immediately.
//
// Not safe for concurrent use; it lives on the coordinator's owner goroutine.
type dispatcher struct {
	depth     int
	buffered  []types.Notification
	listeners []func(types.Notification)
}

func newDispatcher() *dispatcher {
	return &dispatcher{}
}

func (d *dispatcher) addListener(fn func(types.Notification)) {
	d.listeners = append(d.listeners, fn)
}

func (d *dispatcher) begin() {
	d.depth++
}

func (d *dispatcher) end() {
	if d.depth == 0 {
		return
	}
	d.depth--
	if d.depth > 0 {
		return
	}

	buffered := d.buffered
	d.buffered = nil

	// Fixed field order regardless of buffering order, so observers never
	// attribute a balance or position to a stale mode. Relative order within
	// one kind is preserved.
	for _, kind := range []types.NotificationKind{types.NotifyMode, types.NotifyBalance, types.NotifyPosition} {
		for _, n := range buffered {
			if n.Kind == kind {
				d.dispatch(n)
			}
		}
	}
	// Anything outside the three ordered kinds flushes last.
	for _, n := range buffered {
		switch n.Kind {
		case types.NotifyMode, types.NotifyBalance, types.NotifyPosition:
		default:
			d.dispatch(n)
		}
	}
}

func (d *dispatcher) notify(n types.Notification) {
	if d.depth > 0 {
		d.buffered = append(d.buffered, n)
		return
	}
	d.dispatch(n)
}

func (d *dispatcher) dispatch(n types.Notification) {
	for _, fn := range d.listeners {
		fn(n)
	}
}
