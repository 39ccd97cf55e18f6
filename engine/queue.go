package engine

import (
	"sync"
	"time"
)

type commandKind int

const (
	cmdChunk commandKind = iota + 1
	cmdRegister
	cmdMatch
	cmdArm
	cmdFire
	cmdCancel
	cmdDisarm
	cmdReset
	cmdEOF
	cmdSync
)

func (k commandKind) String() string {
	switch k {
	case cmdChunk:
		return "chunk"
	case cmdRegister:
		return "register"
	case cmdMatch:
		return "match"
	case cmdArm:
		return "arm"
	case cmdFire:
		return "fire"
	case cmdCancel:
		return "cancel"
	case cmdDisarm:
		return "disarm"
	case cmdReset:
		return "reset"
	case cmdEOF:
		return "eof"
	case cmdSync:
		return "sync"
	default:
		return "unknown"
	}
}

// command is one unit of work for the engine loop. Only the fields
// relevant to kind are set.
type command struct {
	kind commandKind

	data   []byte          // cmdChunk
	batch  []*expectation  // cmdRegister
	target *expectation    // cmdCancel
	timer  *Outcome[Fired] // cmdArm, cmdDisarm
	after  time.Duration   // cmdArm
	gen    uint64          // cmdFire
	err    error           // cmdEOF
	done   chan struct{}   // cmdSync
}

// commandQueue is an unbounded, thread-safe FIFO of commands.
//
// Any goroutine may enqueue; only the engine loop dequeues. The signal
// channel (buffered, size 1) coalesces wakeups so the loop can select on
// it together with ctx.Done().
type commandQueue struct {
	mu     sync.Mutex
	cmds   []command
	closed bool
	signal chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		cmds:   make([]command, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds c to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(c command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.cmds = append(q.cmds, c)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front command without blocking.
func (q *commandQueue) TryDequeue() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return command{}, false
	}

	c := q.cmds[0]
	// Release references held by the backing array.
	q.cmds[0] = command{}
	if len(q.cmds) == 1 {
		q.cmds = q.cmds[:0]
	} else {
		q.cmds = q.cmds[1:]
	}
	return c, true
}

// Wait returns a channel that signals when commands may be available.
// It is closed when the queue is closed.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *commandQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.cmds) == 0
}

// Len returns the number of queued commands.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Close stops further enqueues and wakes the loop. Commands already queued
// remain available to TryDequeue.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
