package session

import (
	"log/slog"
	"time"

	"github.com/sadopc/volscan/internal/scanner"
	"github.com/sadopc/volscan/internal/volume"
)

// DefaultTickInterval is how often a running scan publishes its state.
const DefaultTickInterval = time.Second

// Dispatcher runs a notification on the observer's side. A UI passes its
// own event-loop hand-off; the default runs fn inline.
type Dispatcher func(fn func())

func inline(fn func()) { fn() }

// SourceFactory returns the Source a session should scan vol through.
type SourceFactory func(vol volume.Volume) (scanner.Source, error)

func localSource(volume.Volume) (scanner.Source, error) {
	return scanner.NewLocalSource(), nil
}

// Option configures a Session or Manager.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	tick     time.Duration
	dispatch Dispatcher
	sources  SourceFactory
}

// WithLogger sets the logger. Scanner components inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTickInterval sets how often a running scan publishes. Non-positive
// values keep the default.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tick = d
		}
	}
}

// WithDispatcher routes every listener call through d.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.dispatch = d
		}
	}
}

// WithSourceFactory sets how a Manager opens each volume. The default
// reads the local filesystem.
func WithSourceFactory(f SourceFactory) Option {
	return func(o *options) {
		if f != nil {
			o.sources = f
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		tick:     DefaultTickInterval,
		dispatch: inline,
		sources:  localSource,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
