package lifecycle

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ComponentRef identifies a component recorded in a Coordinator's creation log.
type ComponentRef struct {
	// ID is unique per created component.
	ID string

	// Seq is the position in creation order, starting at 1.
	Seq uint64

	// Type is the dynamic type of the component.
	Type reflect.Type
}

// String returns the type and creation sequence, e.g. "*Server#3".
func (r ComponentRef) String() string {
	return fmt.Sprintf("%s#%d", formatType(r.Type), r.Seq)
}

// createdComponent is one entry of the creation log.
type createdComponent struct {
	ref      ComponentRef
	instance any
}

// Coordinator runs PostConstruct hooks when the container reports a component
// as created, records creation order, and tears components down in reverse
// creation order. Later-created components are assumed to depend on
// earlier-created ones.
type Coordinator struct {
	registry *HookRegistry

	mu   sync.Mutex
	log  []createdComponent
	seen map[any]struct{} // pointer instances created or being created
	seq  uint64

	// destroyMu serializes teardown passes.
	destroyMu sync.Mutex

	logger  *zap.Logger
	metrics *Metrics
}

// NewCoordinator creates a coordinator that discovers hooks through registry.
func NewCoordinator(registry *HookRegistry, opts ...Option) *Coordinator {
	if registry == nil {
		registry = NewHookRegistry()
	}

	o := newOptions(opts)
	return &Coordinator{
		registry: registry,
		seen:     make(map[any]struct{}),
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// OnCreated is called by the container once per successfully constructed
// component. It runs the component's PostConstruct hooks synchronously, in
// discovery order. Any failure is returned as a CreationError and the
// component is treated as never created. On success the component is appended
// to the creation log.
//
// OnCreated is safe for concurrent use; the creation order is the order in
// which calls reach the log.
func (c *Coordinator) OnCreated(component any) (ComponentRef, error) {
	if component == nil {
		return ComponentRef{}, CreationError{Cause: ErrComponentNil}
	}

	typ := reflect.TypeOf(component)

	if !c.reserve(component) {
		return ComponentRef{}, CreationError{ComponentType: typ, Cause: ErrAlreadyCreated}
	}

	for _, hook := range c.registry.Discover(typ, PostConstruct) {
		if err := runHook(hook, component, c.metrics); err != nil {
			c.release(component)
			c.logger.Error("component creation aborted",
				zap.String("component", formatType(typ)),
				zap.String("hook", hook.Name),
				zap.Error(err),
			)
			return ComponentRef{}, CreationError{ComponentType: typ, Cause: err}
		}
	}

	c.mu.Lock()
	c.seq++
	ref := ComponentRef{
		ID:   uuid.NewString(),
		Seq:  c.seq,
		Type: typ,
	}
	c.log = append(c.log, createdComponent{ref: ref, instance: component})
	c.mu.Unlock()

	c.metrics.RecordCreated()
	c.logger.Debug("component created", zap.Stringer("component", ref))

	return ref, nil
}

// Destroy tears down every logged component in reverse creation order,
// one at a time. A component's teardown stops at its first failing PreDestroy
// hook; the failure is recorded in the report and the walk continues with the
// next component. Destroy never panics and never returns an error: inspect the
// report to detect partial failure.
//
// Destroy is meant to run once. A later call observes an empty creation log
// and returns an empty report.
func (c *Coordinator) Destroy() *DestructionReport {
	c.destroyMu.Lock()
	defer c.destroyMu.Unlock()

	c.mu.Lock()
	entries := c.log
	c.log = nil
	c.seen = make(map[any]struct{})
	c.mu.Unlock()

	report := newDestructionReport()

	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]

		for _, hook := range c.registry.Discover(entry.ref.Type, PreDestroy) {
			if err := runHook(hook, entry.instance, c.metrics); err != nil {
				report.add(entry.ref, DestructionError{Component: entry.ref, Cause: err})
				c.logger.Warn("component teardown failed",
					zap.Stringer("component", entry.ref),
					zap.String("hook", hook.Name),
					zap.Error(err),
				)
				break
			}
		}

		report.Destroyed++
		c.metrics.RecordDestroyed()
	}

	if len(entries) > 0 {
		c.logger.Info("teardown complete",
			zap.Int("components", report.Destroyed),
			zap.Int("failures", len(report.Failures)),
		)
	}

	return report
}

// Components returns the creation log in creation order.
func (c *Coordinator) Components() []ComponentRef {
	c.mu.Lock()
	defer c.mu.Unlock()

	refs := make([]ComponentRef, len(c.log))
	for i, entry := range c.log {
		refs[i] = entry.ref
	}
	return refs
}

// reserve marks a pointer component as being created. It reports false if
// the component was already created or is being created concurrently. Value
// components have no identity and are never rejected.
func (c *Coordinator) reserve(component any) bool {
	if !hasIdentity(component) {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[component]; ok {
		return false
	}
	c.seen[component] = struct{}{}
	return true
}

func (c *Coordinator) release(component any) {
	if !hasIdentity(component) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, component)
}

func hasIdentity(component any) bool {
	switch reflect.TypeOf(component).Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
