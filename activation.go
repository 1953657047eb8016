package lifecycle

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// ActivationManager runs a one-shot activation pass over explicitly
// registered components. Register and Activate share a single lock, so no two
// calls ever run concurrently. Hooks must not call back into the manager.
//
// Activation is a startup gate: the first failing hook aborts the pass. The
// queue is kept, and each entry remembers how many of its hooks completed, so
// calling Activate again after fixing the fault resumes at the failed hook
// without re-running hooks that already succeeded.
type ActivationManager struct {
	mu       sync.Mutex
	registry *HookRegistry
	queue    []*activationEntry

	logger  *zap.Logger
	metrics *Metrics
}

type activationEntry struct {
	component any
	typ       reflect.Type
	completed int // hooks already run
	done      bool
}

// NewActivationManager creates a manager that discovers hooks through registry.
func NewActivationManager(registry *HookRegistry, opts ...Option) *ActivationManager {
	if registry == nil {
		registry = NewHookRegistry()
	}

	o := newOptions(opts)
	return &ActivationManager{
		registry: registry,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// Register queues component for the next activation pass.
func (m *ActivationManager) Register(component any) error {
	if component == nil {
		return ErrComponentNil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = append(m.queue, &activationEntry{
		component: component,
		typ:       reflect.TypeOf(component),
	})
	return nil
}

// Activate invokes the Activate hooks of every queued component, in
// registration order and in discovery order per component.
//
// A hook with an invalid signature aborts with a ConfigurationError; a hook
// that fails aborts with a HookInvocationError. In both cases the remaining
// components are not visited and the queue is not cleared. The queue is
// cleared only after a complete pass, so a second call without new
// registrations does nothing.
func (m *ActivationManager) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil
	}

	for _, entry := range m.queue {
		if entry.done {
			continue
		}

		hooks := m.registry.Discover(entry.typ, Activate)
		for entry.completed < len(hooks) {
			hook := hooks[entry.completed]
			if err := runHook(hook, entry.component, m.metrics); err != nil {
				m.logger.Error("activation aborted",
					zap.String("component", formatType(entry.typ)),
					zap.String("hook", hook.Name),
					zap.Error(err),
				)
				return err
			}
			entry.completed++
		}

		entry.done = true
		m.logger.Debug("component activated",
			zap.String("component", formatType(entry.typ)),
			zap.Int("hooks", len(hooks)),
		)
	}

	m.logger.Info("activation complete", zap.Int("components", len(m.queue)))
	m.queue = nil
	return nil
}

// Pending returns the number of queued components not yet fully activated.
func (m *ActivationManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := 0
	for _, entry := range m.queue {
		if !entry.done {
			pending++
		}
	}
	return pending
}
