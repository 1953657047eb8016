package lifecycle

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ShutdownRegistrar accepts actions to run when the process shuts down.
// Runtime implements it.
type ShutdownRegistrar interface {
	OnShutdown(name string, action func())
}

// BarrierState is the registration state of a ShutdownBarrier.
type BarrierState int

const (
	// BarrierIdle means no drain action has been registered yet.
	BarrierIdle BarrierState = iota

	// BarrierArmed means the drain action is registered and will run on shutdown.
	BarrierArmed
)

// String returns the string representation of the BarrierState.
func (s BarrierState) String() string {
	switch s {
	case BarrierIdle:
		return "Idle"
	case BarrierArmed:
		return "Armed"
	default:
		return "Unknown"
	}
}

// ShutdownBarrier counts in-flight guarded operations and holds shutdown
// until they finish.
//
// The counter starts at -1. The first Guard call moves it to 0, and only the
// caller that observes that transition registers the drain action, so
// registration happens exactly once under any number of concurrent first
// callers. That caller then adds one more to move the counter into the normal
// range, where 0 means idle. While it is between the two adds the counter
// reads 0 even though its operation is about to run, so Drain also waits for
// arming to finish.
//
// A guarded operation that starts after shutdown has taken its snapshot of
// shutdown actions is not waited for.
//
// Draining has no timeout: a guarded operation that never returns blocks
// shutdown indefinitely. Callers that need a bound must impose it on the
// operation itself.
type ShutdownBarrier struct {
	inFlight atomic.Int64
	armed    atomic.Bool
	arming   atomic.Bool // first caller between its two adds

	registrar    ShutdownRegistrar
	pollInterval time.Duration

	logger  *zap.Logger
	metrics *Metrics
}

// NewShutdownBarrier creates an idle barrier. The drain action is registered
// with registrar on first use; with a nil registrar the caller is responsible
// for calling Drain.
func NewShutdownBarrier(registrar ShutdownRegistrar, opts ...Option) *ShutdownBarrier {
	o := newOptions(opts)
	b := &ShutdownBarrier{
		registrar:    registrar,
		pollInterval: o.pollInterval,
		logger:       o.logger,
		metrics:      o.metrics,
	}
	b.inFlight.Store(-1)
	return b
}

// Guard runs op as a guarded operation: shutdown will not proceed past the
// drain until op returns. The counter is released when op returns or panics;
// panics propagate to the caller.
func (b *ShutdownBarrier) Guard(op func() error) error {
	if b.inFlight.Add(1) == 0 {
		b.arming.Store(true)
		b.arm()
		b.inFlight.Add(1)
		b.arming.Store(false)
	}

	b.metrics.GuardStarted()
	defer func() {
		b.inFlight.Add(-1)
		b.metrics.GuardFinished()
	}()

	return op()
}

// GuardValue is Guard for operations that return a value.
func GuardValue[T any](b *ShutdownBarrier, op func() (T, error)) (T, error) {
	var result T
	err := b.Guard(func() error {
		var err error
		result, err = op()
		return err
	})
	return result, err
}

// arm registers the drain action. It runs at most once per barrier.
func (b *ShutdownBarrier) arm() {
	b.armed.Store(true)
	if b.registrar != nil {
		b.registrar.OnShutdown("shutdown-barrier-drain", b.Drain)
	}
	b.logger.Debug("shutdown barrier armed")
}

// Drain blocks until no guarded operation is in flight, polling at the
// configured interval.
func (b *ShutdownBarrier) Drain() {
	start := time.Now()
	b.logger.Info("draining guarded operations", zap.Int64("in_flight", b.InFlight()))

	if b.busy() {
		ticker := time.NewTicker(b.pollInterval)
		defer ticker.Stop()

		for b.busy() {
			<-ticker.C
		}
	}

	elapsed := time.Since(start)
	b.metrics.RecordDrain(elapsed)
	b.logger.Info("guarded operations drained", zap.Duration("elapsed", elapsed))
}

func (b *ShutdownBarrier) busy() bool {
	return b.inFlight.Load() > 0 || b.arming.Load()
}

// InFlight returns the number of guarded operations currently running.
func (b *ShutdownBarrier) InFlight() int64 {
	if n := b.inFlight.Load(); n > 0 {
		return n
	}
	return 0
}

// State returns whether the drain action has been registered.
func (b *ShutdownBarrier) State() BarrierState {
	if b.armed.Load() {
		return BarrierArmed
	}
	return BarrierIdle
}
