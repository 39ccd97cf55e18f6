package engine

import (
	"slices"
	"time"
)

// timeoutState is the engine's single armed timer and the handles waiting
// on it. gen identifies the timer so a fire that raced with a clear is
// recognised as stale.
type timeoutState struct {
	gen   uint64
	after time.Duration
	stop  func() bool
	subs  []*Outcome[Fired]
}

func (e *Engine) onArm(sub *Outcome[Fired], after time.Duration) {
	if e.timeout != nil {
		e.timeout.subs = append(e.timeout.subs, sub)
		e.logger.Debug("timeout already armed", "after", e.timeout.after, "requested", after)
		return
	}
	if e.inputClosed {
		sub.reject(cancelWith(ErrUpstreamClosed, "", e.readErr))
		return
	}
	e.arm(after, sub)
}

func (e *Engine) arm(after time.Duration, sub *Outcome[Fired]) {
	e.gen++
	gen := e.gen

	ts := &timeoutState{gen: gen, after: after}
	if sub != nil {
		ts.subs = append(ts.subs, sub)
	}
	ts.stop = e.timers.AfterFunc(after, func() {
		e.queue.Enqueue(command{kind: cmdFire, gen: gen})
	})
	e.timeout = ts

	e.logger.Debug("timeout armed", "after", after, "gen", gen)
	e.record(Event{Kind: EventTimeoutArmed, Reason: after.String()})
}

func (e *Engine) onFire(gen uint64) {
	ts := e.timeout
	if ts == nil || ts.gen != gen {
		e.logger.Debug("stale timeout ignored", "gen", gen)
		return
	}
	e.timeout = nil

	pending := e.registry
	e.registry = nil
	for _, ex := range pending {
		e.cancelExpectation(ex, ErrTimedOut, nil)
	}

	e.logger.Info("timeout fired", "after", ts.after, "cancelled", len(pending))
	e.record(Event{Kind: EventTimeoutFired, Reason: ts.after.String()})
	e.publish()

	for _, sub := range ts.subs {
		sub.fulfil(Fired{After: ts.after})
	}
}

func (e *Engine) onDisarm(sub *Outcome[Fired]) {
	if e.timeout == nil || !slices.Contains(e.timeout.subs, sub) {
		return
	}
	e.clearTimeout(ErrCancelled, nil)
}

// clearTimeout stops the active timer and cancels its handles with reason.
func (e *Engine) clearTimeout(reason *CancelError, cause error) {
	ts := e.timeout
	if ts == nil {
		return
	}
	e.timeout = nil
	ts.stop()

	for _, sub := range ts.subs {
		sub.reject(cancelWith(reason, "", cause))
	}
	e.logger.Debug("timeout cleared", "reason", reason.Code, "gen", ts.gen)
	e.record(Event{Kind: EventTimeoutCleared, Reason: string(reason.Code)})
}
