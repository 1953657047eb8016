package lifecycle

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	_ Disposable        = (*Runtime)(nil)
	_ ShutdownRegistrar = (*Runtime)(nil)
)

// Runtime owns a HookRegistry, an ActivationManager, a Coordinator and a
// ShutdownBarrier that share the same options, plus the subscription that
// turns an OS signal or a cancelled context into an orderly shutdown.
//
// Shutdown runs the registered shutdown actions (the barrier drain among
// them) concurrently and waits for all of them, then tears components down in
// reverse creation order.
type Runtime struct {
	id string

	registry    *HookRegistry
	activation  *ActivationManager
	coordinator *Coordinator
	barrier     *ShutdownBarrier

	opts *options

	mu          sync.Mutex
	actions     []shutdownAction
	stopSignals context.CancelFunc

	subscribeOnce sync.Once

	done   chan struct{}
	report *DestructionReport

	// State
	shuttingDown int32 // atomic
}

type shutdownAction struct {
	name   string
	action func()
}

// New creates a runtime. No signal subscription is installed until Start.
func New(opts ...Option) *Runtime {
	o := newOptions(opts)

	r := &Runtime{
		id:       uuid.NewString(),
		registry: NewHookRegistry(),
		opts:     o,
		done:     make(chan struct{}),
	}

	r.activation = NewActivationManager(r.registry, opts...)
	r.coordinator = NewCoordinator(r.registry, opts...)
	r.barrier = NewShutdownBarrier(r, opts...)

	return r
}

// ID returns the unique identifier of this runtime.
func (r *Runtime) ID() string {
	return r.id
}

// Registry returns the hook registry shared by the runtime's managers.
func (r *Runtime) Registry() *HookRegistry {
	return r.registry
}

// Activation returns the runtime's activation manager.
func (r *Runtime) Activation() *ActivationManager {
	return r.activation
}

// Coordinator returns the runtime's lifecycle coordinator.
func (r *Runtime) Coordinator() *Coordinator {
	return r.coordinator
}

// Barrier returns the runtime's shutdown barrier.
func (r *Runtime) Barrier() *ShutdownBarrier {
	return r.barrier
}

// Start installs the shutdown subscription and runs the activation pass.
//
// The subscription is installed once per runtime. It triggers Shutdown when
// ctx is done or, unless disabled with WithoutSignalHandling, when one of the
// configured signals arrives. An activation failure is returned as is; the
// subscription stays installed so the components created so far are still
// torn down.
func (r *Runtime) Start(ctx context.Context) error {
	if atomic.LoadInt32(&r.shuttingDown) != 0 {
		return fmt.Errorf("start runtime %s: %w", r.id, ErrRuntimeShutdown)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	r.subscribeOnce.Do(func() {
		r.subscribe(ctx)
	})

	return r.activation.Activate()
}

func (r *Runtime) subscribe(ctx context.Context) {
	var (
		trigger context.Context
		stop    context.CancelFunc
	)

	if r.opts.handleSignals && len(r.opts.signals) > 0 {
		trigger, stop = signal.NotifyContext(ctx, r.opts.signals...)
	} else {
		trigger, stop = context.WithCancel(ctx)
	}
	r.mu.Lock()
	r.stopSignals = stop
	r.mu.Unlock()

	go func() {
		select {
		case <-trigger.Done():
			// Shutdown cancels trigger itself; only log external triggers.
			if atomic.LoadInt32(&r.shuttingDown) == 0 {
				r.opts.logger.Info("shutdown triggered", zap.String("runtime", r.id), zap.Error(context.Cause(trigger)))
			}
			r.Shutdown()
		case <-r.done:
		}
	}()

	r.opts.logger.Debug("shutdown subscription installed",
		zap.String("runtime", r.id),
		zap.Bool("signals", r.opts.handleSignals),
	)
}

// OnShutdown registers an action to run during Shutdown. Each action runs on
// its own goroutine and Shutdown waits for all of them before tearing
// components down. Actions registered after shutdown has begun are not run.
func (r *Runtime) OnShutdown(name string, action func()) {
	if action == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Checked under mu so an action cannot land after Shutdown took its snapshot.
	if atomic.LoadInt32(&r.shuttingDown) != 0 {
		r.opts.logger.Warn("shutdown action registered after shutdown began", zap.String("action", name))
		return
	}

	r.actions = append(r.actions, shutdownAction{name: name, action: action})
}

// Shutdown drains guarded operations and tears down all created components.
// It runs once; concurrent and later calls wait for the first one and return
// its report.
func (r *Runtime) Shutdown() *DestructionReport {
	if !atomic.CompareAndSwapInt32(&r.shuttingDown, 0, 1) {
		<-r.done
		return r.report
	}

	r.opts.logger.Info("runtime shutting down", zap.String("runtime", r.id))

	r.mu.Lock()
	actions := r.actions
	r.actions = nil
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, a := range actions {
		wg.Add(1)
		go func(a shutdownAction) {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					r.opts.logger.Error("shutdown action panicked", zap.String("action", a.name), zap.Any("panic", v))
				}
			}()
			a.action()
		}(a)
	}
	wg.Wait()

	r.report = r.coordinator.Destroy()

	close(r.done)

	r.mu.Lock()
	stop := r.stopSignals
	r.mu.Unlock()
	if stop != nil {
		stop()
	}

	if !r.report.OK() {
		r.opts.logger.Warn("runtime shut down with teardown failures",
			zap.String("runtime", r.id),
			zap.Int("failures", len(r.report.Failures)),
		)
	} else {
		r.opts.logger.Info("runtime shut down", zap.String("runtime", r.id))
	}

	return r.report
}

// Close shuts the runtime down and returns the teardown failures, if any.
func (r *Runtime) Close() error {
	return r.Shutdown().Err()
}

// Done is closed once Shutdown has completed.
func (r *Runtime) Done() <-chan struct{} {
	return r.done
}

// Register queues component for the runtime's activation pass.
func (r *Runtime) Register(component any) error {
	return r.activation.Register(component)
}

// OnCreated reports a constructed component to the runtime's coordinator.
func (r *Runtime) OnCreated(component any) (ComponentRef, error) {
	return r.coordinator.OnCreated(component)
}

// Guard runs op through the runtime's shutdown barrier.
func (r *Runtime) Guard(op func() error) error {
	return r.barrier.Guard(op)
}
