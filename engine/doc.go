// Package engine implements the expecto expectation matching engine.
//
// An Engine reads the output of another process, accumulates it into a
// text buffer, and settles expectations registered by the controlling
// program: wait for a pattern, then Send a response.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Run owns every piece of mutable state. Callers never touch the buffer or
// the registry directly; they enqueue commands (chunk, register, arm,
// cancel, reset, eof) on a FIFO queue and receive an Outcome handle.
//
// Match Pass:
// A pass tests each pending expectation in registration order against the
// whole buffer. The first one that matches wins, even when another
// pattern's match starts earlier in the text. The winner is fulfilled,
// the buffer is cut after the matched text, and every other expectation and
// the active timeout are cancelled. After a pass with a winner the engine
// is back at zero pending expectations.
//
// Passes run synchronously on every chunk. Registration only schedules a
// pass. ExpectAll is the guaranteed batch: its patterns always compete in
// one pass. Separate Expect calls share a pass only if they are queued
// before it runs.
//
// Timeout:
// At most one timer is armed per engine. Expect arms the default timeout
// when none is active. If the timer fires first, every pending expectation
// is cancelled with ErrTimedOut and the timeout outcome is fulfilled; if a
// match happens first the timeout outcome is cancelled with
// ErrTimeoutCleared.
//
// End of input:
// When Input ends a final pass runs, EOF() is fulfilled with the residual
// buffer, and whatever is still pending is cancelled with
// ErrUpstreamClosed. Later registrations get one pass against the residual
// buffer and are cancelled the same way.
//
// Cancellation reasons are values (*CancelError), never panics. The only
// panic is a nil pattern passed to Expect.
package engine
