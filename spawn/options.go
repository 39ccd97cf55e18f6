package spawn

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/expecto/engine"
)

const defaultKillGrace = 2 * time.Second

// Option configures Start.
type Option func(*options)

type options struct {
	dir         string
	env         []string
	stderr      io.Writer
	mergeStderr bool
	killGrace   time.Duration
	engine      engine.Config
}

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithEnv adds KEY=value entries to the inherited environment.
func WithEnv(kv ...string) Option {
	return func(o *options) { o.env = append(o.env, kv...) }
}

// WithStderr sends the child's stderr to w. Without it stderr is discarded.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithMergedStderr feeds stderr into the engine together with stdout.
func WithMergedStderr() Option {
	return func(o *options) { o.mergeStderr = true }
}

// WithKillGrace sets how long Close waits after SIGTERM before killing.
// Values <= 0 are ignored.
func WithKillGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.killGrace = d
		}
	}
}

// WithEncoding sets the text encoding of the child's output.
func WithEncoding(name string) Option {
	return func(o *options) { o.engine.Encoding = name }
}

// WithTimeout sets the engine's default expectation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.engine.DefaultTimeout = d }
}

// WithName names the engine in logs and transcripts.
func WithName(name string) Option {
	return func(o *options) { o.engine.Name = name }
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(o *options) { o.engine.SessionID = id }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.engine.Logger = l }
}

// WithRecorder records the session transcript.
func WithRecorder(r engine.Recorder) Option {
	return func(o *options) { o.engine.Recorder = r }
}

// WithMaxBuffer caps the engine buffer.
func WithMaxBuffer(n int) Option {
	return func(o *options) { o.engine.MaxBuffer = n }
}

// WithTimers replaces the engine's timer source.
func WithTimers(t engine.Timers) Option {
	return func(o *options) { o.engine.Timers = t }
}

func resolveOptions(opts ...Option) options {
	o := options{killGrace: defaultKillGrace}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
