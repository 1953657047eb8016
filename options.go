package lifecycle

import (
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often a draining ShutdownBarrier checks its
// in-flight counter.
const DefaultPollInterval = 100 * time.Millisecond

// Option configures a Runtime and the managers it owns. Options that do not
// apply to a given constructor are ignored.
type Option interface {
	apply(*options)
}

// options holds the shared configuration.
type options struct {
	logger        *zap.Logger
	metrics       *Metrics
	pollInterval  time.Duration
	signals       []os.Signal
	handleSignals bool
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:        zap.NewNop(),
		pollInterval:  DefaultPollInterval,
		signals:       []os.Signal{os.Interrupt, syscall.SIGTERM},
		handleSignals: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	return o
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		opts.logger = logger
	})
}

// WithMetrics records hook, creation and guard metrics into m.
func WithMetrics(m *Metrics) Option {
	return optionFunc(func(opts *options) {
		opts.metrics = m
	})
}

// WithPollInterval sets how often a drain checks for in-flight guarded
// operations. Non-positive values keep the default.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(opts *options) {
		if d > 0 {
			opts.pollInterval = d
		}
	})
}

// WithSignals sets the OS signals that trigger Runtime shutdown.
// The default is os.Interrupt and SIGTERM.
func WithSignals(signals ...os.Signal) Option {
	return optionFunc(func(opts *options) {
		opts.signals = signals
		opts.handleSignals = len(signals) > 0
	})
}

// WithoutSignalHandling makes Runtime.Start subscribe only to its context,
// leaving OS signal handling to the caller.
func WithoutSignalHandling() Option {
	return optionFunc(func(opts *options) {
		opts.handleSignals = false
	})
}
