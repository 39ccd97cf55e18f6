package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/expecto/internal/textcodec"
	"github.com/roach88/expecto/pattern"
)

// Match is the value an expectation is fulfilled with.
type Match = pattern.Match

// Fired is the value a timeout is fulfilled with when it elapses.
type Fired struct {
	After time.Duration
}

const (
	// DefaultTimeout is armed implicitly by Expect when no timeout is active.
	DefaultTimeout = 1000 * time.Millisecond

	// DefaultMaxBuffer caps the unmatched text kept in the buffer.
	DefaultMaxBuffer = 1 << 20

	// DefaultChunkSize is the read size used to pump Config.Input.
	DefaultChunkSize = 4096

	// DefaultName tags log records when Config.Name is empty.
	DefaultName = "expecto"
)

// Config configures an Engine. Input and Output are required.
type Config struct {
	// Input is the output stream of the controlled process.
	Input io.Reader

	// Output is where Send writes, usually the process's stdin.
	Output io.Writer

	// Encoding names the text encoding of Input. Default "utf-8".
	Encoding string

	// Name identifies the engine in logs and transcripts.
	Name string

	// SessionID identifies the session. A UUIDv7 is generated when empty.
	SessionID string

	// DefaultTimeout is armed by Expect when no timeout is active.
	// Zero means DefaultTimeout; a negative value disables the implicit
	// timeout so expectations wait until matched, cancelled or closed.
	DefaultTimeout time.Duration

	// MaxBuffer caps the buffer in bytes; the oldest text is dropped
	// beyond it. Zero or negative means DefaultMaxBuffer.
	MaxBuffer int

	// ChunkSize is the read size for Input. Zero means DefaultChunkSize.
	ChunkSize int

	// Timers schedules timeouts. Nil means SystemTimers().
	Timers Timers

	// Logger receives engine logs. Nil means slog.Default().
	Logger *slog.Logger

	// Recorder receives transcript events. Optional.
	Recorder Recorder
}

type expectation struct {
	id      int64
	pattern pattern.Pattern
	desc    string
	outcome *Outcome[Match]
}

// Engine matches expectations against the accumulated output of a process.
//
// All state changes happen on the goroutine running Run. Expect,
// ExpectAll, Timeout, Reset, Feed and CloseInput only enqueue commands
// and are safe from any goroutine, as are Send and the snapshot accessors.
//
// ExpectAll is the batch form: its patterns are queued as one command and
// always compete in one pass against one buffer, in argument order.
// Separate Expect calls are batched only on a best-effort basis. A register
// command schedules one match pass behind it, and a later Expect shares
// that pass only if it is queued before the pass runs; once Run is live
// two calls from one goroutine may land on either side of it.
type Engine struct {
	name      string
	sessionID string
	encoding  string
	input     io.Reader
	output    io.Writer
	logger    *slog.Logger
	timers    Timers
	recorder  Recorder

	defaultTimeout time.Duration
	maxBuffer      int
	chunkSize      int

	clock   *Clock // transcript seq
	ids     *Clock // expectation ids
	queue   *commandQueue
	decoder *textcodec.Decoder

	// Owned by the Run goroutine.
	buffer         string
	registry       []*expectation
	matchScheduled bool
	timeout        *timeoutState
	gen            uint64
	inputClosed    bool
	readErr        error

	eof *Outcome[string]

	snapBuffer  atomic.Pointer[string]
	snapPending atomic.Int64

	sendMu  sync.Mutex
	recMu   sync.Mutex
	running atomic.Bool
	done    chan struct{}
}

// New creates an Engine. Call Run to start processing.
func New(cfg Config) (*Engine, error) {
	if cfg.Input == nil {
		return nil, errors.New("engine: config: Input is required")
	}
	if cfg.Output == nil {
		return nil, errors.New("engine: config: Output is required")
	}

	encName := cfg.Encoding
	if encName == "" {
		encName = textcodec.DefaultEncoding
	}
	dec, err := textcodec.NewDecoder(encName)
	if err != nil {
		return nil, fmt.Errorf("engine: config: %w", err)
	}

	e := &Engine{
		name:           cfg.Name,
		sessionID:      cfg.SessionID,
		encoding:       encName,
		input:          cfg.Input,
		output:         cfg.Output,
		timers:         cfg.Timers,
		recorder:       cfg.Recorder,
		defaultTimeout: cfg.DefaultTimeout,
		maxBuffer:      cfg.MaxBuffer,
		chunkSize:      cfg.ChunkSize,
		clock:          NewClock(),
		ids:            NewClock(),
		queue:          newCommandQueue(),
		decoder:        dec,
		done:           make(chan struct{}),
	}
	if e.name == "" {
		e.name = DefaultName
	}
	if e.sessionID == "" {
		e.sessionID = UUIDv7Generator{}.Generate()
	}
	if e.timers == nil {
		e.timers = SystemTimers()
	}
	if e.defaultTimeout == 0 {
		e.defaultTimeout = DefaultTimeout
	}
	if e.maxBuffer <= 0 {
		e.maxBuffer = DefaultMaxBuffer
	}
	if e.chunkSize <= 0 {
		e.chunkSize = DefaultChunkSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("engine", e.name, "session", e.sessionID)

	e.eof = newOutcome[string](nil)
	e.publish()
	return e, nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return e.name }

// SessionID returns the session id.
func (e *Engine) SessionID() string { return e.sessionID }

// Run starts the single-writer loop and the input pump.
// It blocks until Stop is called and the queue drains, or ctx is done.
//
// On return every pending expectation and timeout has been cancelled with
// ErrStopped. Run returns ctx.Err() on cancellation and the input read
// error, if any, otherwise nil. Run must be called at most once.
//
// The input pump blocks in Input.Read and exits only when Input returns an
// error or EOF. Returning from Run does not close Input: the caller must
// close it, as spawn.Process.Close does, or the pump goroutine leaks.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine: Run called twice")
	}
	defer close(e.done)

	e.logger.Info("engine starting", "encoding", e.encoding)
	go e.pump()

	var runErr error
loop:
	for {
		if c, ok := e.queue.TryDequeue(); ok {
			e.process(c)
			continue
		}
		if e.queue.Drained() {
			e.logger.Info("engine stopping: stopped")
			break
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			runErr = ctx.Err()
			break loop
		case <-e.queue.Wait():
		}
	}

	e.shutdown()

	if runErr == nil && e.readErr != nil {
		runErr = fmt.Errorf("engine: read input: %w", e.readErr)
	}
	return runErr
}

// Stop shuts the engine down. Commands already queued are processed, then
// Run settles whatever is still pending with ErrStopped and returns.
// Stop does not close Input; see Run.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Done is closed when Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Expect registers an expectation for p. A nil pattern panics.
func (e *Engine) Expect(p pattern.Pattern) *Outcome[Match] {
	return e.ExpectAll(p)[0]
}

// ExpectAll registers ps as one batch. The batch is evaluated against a
// single buffer snapshot; the earliest pattern in ps that matches wins.
func (e *Engine) ExpectAll(ps ...pattern.Pattern) []*Outcome[Match] {
	if len(ps) == 0 {
		return nil
	}

	batch := make([]*expectation, len(ps))
	outs := make([]*Outcome[Match], len(ps))
	for i, p := range ps {
		if p == nil {
			panic("engine: Expect with nil pattern")
		}
		ex := &expectation{
			id:      e.ids.Next(),
			pattern: p,
			desc:    p.String(),
		}
		ex.outcome = newOutcome[Match](func() {
			e.queue.Enqueue(command{kind: cmdCancel, target: ex})
		})
		batch[i] = ex
		outs[i] = ex.outcome
	}

	if !e.queue.Enqueue(command{kind: cmdRegister, batch: batch}) {
		for _, ex := range batch {
			e.logger.Error("expect on stopped engine", "pattern", ex.desc)
			ex.outcome.reject(cancelWith(ErrStopped, ex.desc, nil))
		}
	}
	return outs
}

// Timeout arms the engine's timeout for d, or attaches to the one already
// armed (whose duration is left unchanged). d <= 0 uses the engine default.
//
// The returned outcome is fulfilled if the timer fires, and cancelled with
// ErrTimeoutCleared when a match stops it first. Cancel on the handle
// disarms the shared timer.
func (e *Engine) Timeout(d time.Duration) *Outcome[Fired] {
	if d <= 0 {
		d = e.defaultTimeout
		if d <= 0 {
			d = DefaultTimeout
		}
	}

	var o *Outcome[Fired]
	o = newOutcome[Fired](func() {
		e.queue.Enqueue(command{kind: cmdDisarm, timer: o})
	})
	if !e.queue.Enqueue(command{kind: cmdArm, timer: o, after: d}) {
		e.logger.Error("timeout on stopped engine", "after", d)
		o.reject(cancelWith(ErrStopped, "", nil))
	}
	return o
}

// Reset drops every pending expectation without settling it.
// Dropped outcomes stay pending; the timeout is left as is.
func (e *Engine) Reset() {
	e.queue.Enqueue(command{kind: cmdReset})
}

// EOF returns an outcome fulfilled with the residual buffer once the input
// has ended and a final match pass has run.
func (e *Engine) EOF() *Outcome[string] {
	return e.eof
}

// Feed delivers a chunk as if read from Input. The slice is copied.
func (e *Engine) Feed(chunk []byte) error {
	data := make([]byte, len(chunk))
	copy(data, chunk)
	if !e.queue.Enqueue(command{kind: cmdChunk, data: data}) {
		return fmt.Errorf("engine: feed: %w", ErrStopped)
	}
	return nil
}

// CloseInput signals end of input as if Input returned io.EOF.
func (e *Engine) CloseInput() {
	e.queue.Enqueue(command{kind: cmdEOF})
}

// Sync blocks until every command queued before it, including any match
// pass those commands scheduled, has been processed.
func (e *Engine) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !e.queue.Enqueue(command{kind: cmdSync, done: done}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of registered, unsettled expectations as of
// the last processed command.
func (e *Engine) Pending() int {
	return int(e.snapPending.Load())
}

// Buffer returns the unmatched text as of the last processed command.
func (e *Engine) Buffer() string {
	if p := e.snapBuffer.Load(); p != nil {
		return *p
	}
	return ""
}

// Send writes text verbatim to Output.
func (e *Engine) Send(text string) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	if _, err := io.WriteString(e.output, text); err != nil {
		return fmt.Errorf("engine: send: %w", err)
	}
	e.logger.Debug("sent", "text", text)
	e.record(Event{Kind: EventSend, Text: text})
	return nil
}

// SendLine writes text followed by a newline.
func (e *Engine) SendLine(text string) error {
	return e.Send(text + "\n")
}

// Sendf formats according to a format specifier and sends the result.
func (e *Engine) Sendf(format string, args ...any) error {
	return e.Send(fmt.Sprintf(format, args...))
}

// pump copies Input into the queue until it ends or the engine stops.
func (e *Engine) pump() {
	buf := make([]byte, e.chunkSize)
	for {
		n, err := e.input.Read(buf)
		if n > 0 {
			if ferr := e.Feed(buf[:n]); ferr != nil {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				err = nil
			}
			e.queue.Enqueue(command{kind: cmdEOF, err: err})
			return
		}
	}
}

// process handles one command.
// CRITICAL: called only from the Run goroutine.
func (e *Engine) process(c command) {
	switch c.kind {
	case cmdChunk:
		e.onChunk(c.data)
	case cmdRegister:
		e.onRegister(c.batch)
	case cmdMatch:
		e.matchScheduled = false
		e.runPass()
	case cmdArm:
		e.onArm(c.timer, c.after)
	case cmdFire:
		e.onFire(c.gen)
	case cmdCancel:
		e.onCancel(c.target)
	case cmdDisarm:
		e.onDisarm(c.timer)
	case cmdReset:
		e.onReset()
	case cmdEOF:
		e.onEOF(c.err)
	case cmdSync:
		// Let a scheduled pass run first so Sync observes its effects.
		if e.matchScheduled && e.queue.Enqueue(c) {
			return
		}
		close(c.done)
	default:
		e.logger.Error("unknown command", "kind", c.kind)
	}
	e.publish()
}

func (e *Engine) onRegister(batch []*expectation) {
	e.registry = append(e.registry, batch...)
	for _, ex := range batch {
		e.logger.Debug("expectation registered", "id", ex.id, "pattern", ex.desc)
		e.record(Event{Kind: EventExpect, Pattern: ex.desc})
	}

	if !e.inputClosed && e.timeout == nil && e.defaultTimeout > 0 {
		e.arm(e.defaultTimeout, nil)
	}

	if e.matchScheduled {
		return
	}
	if e.queue.Enqueue(command{kind: cmdMatch}) {
		e.matchScheduled = true
		return
	}
	// Stopping: the queue no longer accepts work, evaluate now.
	e.runPass()
}

func (e *Engine) onReset() {
	n := len(e.registry)
	e.registry = nil
	e.logger.Debug("reset", "dropped", n)
	e.record(Event{Kind: EventReset})
}

func (e *Engine) onEOF(err error) {
	if e.inputClosed {
		return
	}
	if tail := e.decoder.Flush(); tail != "" {
		e.buffer += tail
	}
	e.inputClosed = true
	e.readErr = err

	if err != nil {
		e.logger.Warn("input failed", "error", err)
		e.record(Event{Kind: EventEOF, Reason: err.Error()})
	} else {
		e.logger.Info("input closed", "residual", len(e.buffer))
		e.record(Event{Kind: EventEOF})
	}

	e.runPass()
	e.eof.fulfil(e.buffer)
}

// runPass runs one match pass. Once input has ended nothing new can
// arrive, so whatever the pass leaves pending is cancelled.
func (e *Engine) runPass() {
	e.matchPass()
	if !e.inputClosed {
		return
	}
	pending := e.registry
	e.registry = nil
	for _, ex := range pending {
		e.cancelExpectation(ex, ErrUpstreamClosed, e.readErr)
	}
	e.clearTimeout(ErrUpstreamClosed, e.readErr)
}

func (e *Engine) shutdown() {
	for {
		c, ok := e.queue.TryDequeue()
		if !ok {
			break
		}
		switch c.kind {
		case cmdRegister:
			for _, ex := range c.batch {
				ex.outcome.reject(cancelWith(ErrStopped, ex.desc, nil))
			}
		case cmdArm:
			c.timer.reject(cancelWith(ErrStopped, "", nil))
		case cmdSync:
			close(c.done)
		}
	}

	pending := e.registry
	e.registry = nil
	for _, ex := range pending {
		e.cancelExpectation(ex, ErrStopped, nil)
	}
	e.clearTimeout(ErrStopped, nil)
	e.eof.reject(cancelWith(ErrStopped, "", nil))
	e.publish()

	e.logger.Info("engine stopped", "cancelled", len(pending))
}

// record stamps ev with the next seq and hands it to the recorder.
func (e *Engine) record(ev Event) {
	if e.recorder == nil {
		return
	}
	e.recMu.Lock()
	defer e.recMu.Unlock()

	ev.Seq = e.clock.Next()
	if err := e.recorder.Record(ev); err != nil {
		e.logger.Warn("recorder failed", "kind", ev.Kind, "seq", ev.Seq, "error", err)
	}
}

func (e *Engine) publish() {
	buf := e.buffer
	e.snapBuffer.Store(&buf)
	e.snapPending.Store(int64(len(e.registry)))
}
