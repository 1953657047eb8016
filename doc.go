// Package lifecycle manages the lifecycle of long-lived application
// components: activation at startup, post-construction hooks as a container
// builds components, orderly teardown in reverse creation order, and a
// shutdown barrier that holds teardown until in-flight work finishes.
//
// # Overview
//
// lifecycle is built from four pieces that can be used on their own or
// together through a Runtime:
//   - HookRegistry: discovers the hooks of a component type and caches them
//   - ActivationManager: one-shot, fail-fast activation of registered components
//   - Coordinator: PostConstruct on creation, PreDestroy on teardown
//   - ShutdownBarrier: counts guarded operations and drains them on shutdown
//
// # Hooks
//
// A component takes part in a phase by implementing a capability interface:
//
//	func (s *Server) Activate() error      { return s.listen() }
//	func (s *Server) PostConstruct() error { return s.loadRoutes() }
//	func (s *Server) PreDestroy() error    { return s.listener.Close() }
//
// Close() error, see Disposable, counts as a PreDestroy hook.
//
// Any function taking the component as its only argument can also be
// registered explicitly, typically a method expression:
//
//	registry := lifecycle.NewHookRegistry()
//	lifecycle.RegisterHooks[Server](registry, lifecycle.Activate, (*Server).Warmup)
//
// Hooks registered for an embedded type run for every component that embeds
// it. Within a phase the component's own hooks run first, then those of its
// exported embedded fields in declaration order, depth first.
//
// A hook must take no arguments besides its receiver and return nothing or a
// single error. This is checked when the hook is invoked, which fails with a
// ConfigurationError.
//
// # Activation
//
// Register queues components; Activate runs their Activate hooks in
// registration order and stops at the first failure:
//
//	activation := lifecycle.NewActivationManager(registry)
//	activation.Register(server)
//	activation.Register(worker)
//	if err := activation.Activate(); err != nil {
//	    log.Fatal(err)
//	}
//
// After a complete pass the queue is empty, so calling Activate again does
// nothing until new components are registered.
//
// # Creation and Teardown
//
// A Coordinator is told about each component the container builds. It runs
// the PostConstruct hooks and records the creation order:
//
//	coordinator := lifecycle.NewCoordinator(registry)
//	if _, err := coordinator.OnCreated(db); err != nil {
//	    return err // db is not considered created
//	}
//
// Destroy visits the components in reverse creation order. A failing
// PreDestroy hook is recorded in the DestructionReport and never stops the
// teardown of the remaining components:
//
//	report := coordinator.Destroy()
//	if !report.OK() {
//	    report.Print(os.Stderr)
//	}
//
// Provide wires a Coordinator into a dig container so every constructed value
// is reported automatically.
//
// # Shutdown Barrier
//
// Guard runs an operation that shutdown must wait for:
//
//	err := rt.Guard(func() error {
//	    return handle(req)
//	})
//
// The first guarded call registers the drain with the runtime. On shutdown
// the drain blocks until no guarded operation is in flight. There is no
// timeout.
//
// # Runtime
//
// Runtime owns one of each piece and subscribes to OS signals:
//
//	rt := lifecycle.New(lifecycle.WithLogger(logger))
//	rt.Register(server)
//	if err := rt.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	<-rt.Done()
//
// # Thread Safety
//
// All types are safe for concurrent use. ActivationManager serializes
// Register and Activate. Hooks must not call back into the manager running
// them.
//
// # Error Handling
//
// Typed errors carry context and unwrap to sentinel errors:
//
//	var ce lifecycle.ConfigurationError
//	if errors.As(err, &ce) {
//	    log.Printf("bad hook %s on %v", ce.Hook, ce.ComponentType)
//	}
package lifecycle
