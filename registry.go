package lifecycle

import (
	"reflect"
	"sync"
)

// HookRegistry holds the explicit registration table of lifecycle hooks and
// caches, per component type, the ordered hooks of every phase.
//
// Hooks come from two sources, most-derived level first:
//  1. the component type itself: the capability interfaces it implements
//     (Activator, PostConstructor, PreDestroyer, Disposable), then the hooks
//     registered for the type in declaration order;
//  2. each exported embedded field, in declaration order and depth first,
//     with the hooks registered for the embedded type.
//
// Capability methods promoted from a nil embedded pointer are skipped, like
// registered hooks of a nil embedded field.
//
// The cache is append-only. Once a type has been discovered its hooks are
// fixed and further registrations for it are rejected.
type HookRegistry struct {
	mu    sync.RWMutex
	table map[reflect.Type]*[phaseCount][]reflect.Value

	cache sync.Map // map[reflect.Type]*hookSet
}

// hookSet holds the resolved hooks of a single component type.
type hookSet [phaseCount][]Hook

type capability struct {
	iface  reflect.Type
	method string
	fn     reflect.Value
}

var capabilities = [phaseCount][]capability{
	Activate: {
		{reflect.TypeOf((*Activator)(nil)).Elem(), "Activate", reflect.ValueOf(Activator.Activate)},
	},
	PostConstruct: {
		{reflect.TypeOf((*PostConstructor)(nil)).Elem(), "PostConstruct", reflect.ValueOf(PostConstructor.PostConstruct)},
	},
	PreDestroy: {
		{reflect.TypeOf((*PreDestroyer)(nil)).Elem(), "PreDestroy", reflect.ValueOf(PreDestroyer.PreDestroy)},
		{reflect.TypeOf((*Disposable)(nil)).Elem(), "Close", reflect.ValueOf(Disposable.Close)},
	},
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		table: make(map[reflect.Type]*[phaseCount][]reflect.Value),
	}
}

// Register appends hooks for the given component type and phase. Each hook is
// a function whose only parameter, if any, is the receiver: a method
// expression such as (*Server).Warmup, or a closure. Hooks registered for T
// and *T share one entry.
//
// Signatures are not validated here; an invalid hook fails with a
// ConfigurationError when it is invoked. Registering a method that already
// runs as a capability hook, such as (*Server).PreDestroy on a PreDestroyer,
// has no effect: it runs once.
func (r *HookRegistry) Register(t reflect.Type, phase Phase, hooks ...any) error {
	if t == nil {
		return HookRegistrationError{Phase: phase, Cause: ErrComponentTypeNil}
	}

	if !phase.IsValid() {
		return HookRegistrationError{ComponentType: t, Phase: phase, Cause: PhaseError{Value: int(phase)}}
	}

	fns := make([]reflect.Value, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			return HookRegistrationError{ComponentType: t, Phase: phase, Cause: ErrHookNil}
		}

		fn := reflect.ValueOf(hook)
		if fn.Kind() != reflect.Func {
			return HookRegistrationError{ComponentType: t, Phase: phase, Cause: ErrHookNotFunc}
		}
		if fn.IsNil() {
			return HookRegistrationError{ComponentType: t, Phase: phase, Cause: ErrHookNil}
		}

		fns = append(fns, fn)
	}

	key := baseType(t)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.discovered(key) {
		return HookRegistrationError{ComponentType: t, Phase: phase, Cause: ErrHooksDiscovered}
	}

	entry, ok := r.table[key]
	if !ok {
		entry = &[phaseCount][]reflect.Value{}
		r.table[key] = entry
	}
	entry[phase] = append(entry[phase], fns...)

	return nil
}

// RegisterHooks registers hooks for the component type T.
//
// Example:
//
//	lifecycle.RegisterHooks[*Server](registry, lifecycle.Activate, (*Server).Listen)
func RegisterHooks[T any](r *HookRegistry, phase Phase, hooks ...any) error {
	return r.Register(reflect.TypeOf((*T)(nil)).Elem(), phase, hooks...)
}

// Discover returns the ordered hooks of phase for the component type t. The
// first call for a type scans it and caches the result; later calls are
// lookups. The returned slice is shared and must not be modified.
func (r *HookRegistry) Discover(t reflect.Type, phase Phase) []Hook {
	if t == nil || !phase.IsValid() {
		return nil
	}

	if cached, ok := r.cache.Load(t); ok {
		return cached.(*hookSet)[phase]
	}

	// Scan and store under the read lock so a concurrent Register cannot slip
	// between the scan and the store.
	r.mu.RLock()
	defer r.mu.RUnlock()

	actual, _ := r.cache.LoadOrStore(t, r.scan(t))
	return actual.(*hookSet)[phase]
}

// DiscoverFor is Discover for the dynamic type of component.
func (r *HookRegistry) DiscoverFor(component any, phase Phase) []Hook {
	return r.Discover(reflect.TypeOf(component), phase)
}

func (r *HookRegistry) scan(t reflect.Type) *hookSet {
	set := &hookSet{}

	// implemented holds, per phase, the declared methods already covered by a
	// capability hook so an explicit registration of the same method is dropped.
	var implemented [phaseCount]map[string]bool

	for _, phase := range Phases() {
		for _, c := range capabilities[phase] {
			if !t.Implements(c.iface) {
				continue
			}

			promoted, declaring := promotion(t, c.method)
			set[phase] = append(set[phase], Hook{
				Phase:    phase,
				Name:     methodName(t, c.method),
				Owner:    t,
				fn:       c.fn,
				promoted: promoted,
			})

			if name := declaredName(declaring, c.method); name != "" {
				if implemented[phase] == nil {
					implemented[phase] = make(map[string]bool)
				}
				implemented[phase][name] = true
			}
		}
	}

	r.collect(set, t, nil, make(map[reflect.Type]bool), &implemented)
	return set
}

// collect appends the registered hooks of t and then recurses into its
// exported embedded fields.
func (r *HookRegistry) collect(set *hookSet, t reflect.Type, path []int, visited map[reflect.Type]bool, implemented *[phaseCount]map[string]bool) {
	base := baseType(t)
	if visited[base] {
		return
	}
	visited[base] = true

	if entry, ok := r.table[base]; ok {
		for _, phase := range Phases() {
			for _, fn := range entry[phase] {
				if implemented[phase][qualifiedName(fn)] {
					continue
				}
				set[phase] = append(set[phase], newHook(phase, t, fn, path))
			}
		}
	}

	if base.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < base.NumField(); i++ {
		field := base.Field(i)
		if !field.Anonymous || !field.IsExported() {
			continue
		}

		fieldPath := make([]int, len(path), len(path)+1)
		copy(fieldPath, path)
		r.collect(set, field.Type, append(fieldPath, i), visited, implemented)
	}
}

// promotion finds the embedded field that t's method is promoted from. It
// returns the field path, empty when t declares the method itself, and the
// type that declares it. Unexported embedded fields count: Go promotes their
// methods too.
func promotion(t reflect.Type, method string) ([]int, reflect.Type) {
	base := baseType(t)
	if base.Kind() != reflect.Struct || declares(base, method) {
		return nil, base
	}

	type candidate struct {
		typ  reflect.Type
		path []int
	}

	level := []candidate{{typ: base}}
	visited := map[reflect.Type]bool{base: true}

	for len(level) > 0 {
		var next, found []candidate

		for _, c := range level {
			for i := 0; i < c.typ.NumField(); i++ {
				field := c.typ.Field(i)
				if !field.Anonymous {
					continue
				}

				path := make([]int, len(c.path), len(c.path)+1)
				copy(path, c.path)
				path = append(path, i)

				ft := baseType(field.Type)
				if declares(ft, method) {
					found = append(found, candidate{typ: ft, path: path})
					continue
				}

				if ft.Kind() == reflect.Struct && !visited[ft] {
					visited[ft] = true
					next = append(next, candidate{typ: ft, path: path})
				}
			}
		}

		switch len(found) {
		case 0:
			level = next
		case 1:
			return found[0].path, found[0].typ
		default:
			return nil, base
		}
	}

	return nil, base
}

// declares reports whether t, or *t, declares method itself rather than
// through an embedded field.
func declares(t reflect.Type, method string) bool {
	if t.Kind() == reflect.Interface {
		_, ok := t.MethodByName(method)
		return ok
	}

	if m, ok := t.MethodByName(method); ok {
		return !isWrapper(m.Func)
	}
	if m, ok := reflect.PointerTo(t).MethodByName(method); ok {
		return !isWrapper(m.Func)
	}
	return false
}

func (r *HookRegistry) discovered(key reflect.Type) bool {
	if _, ok := r.cache.Load(key); ok {
		return true
	}
	_, ok := r.cache.Load(reflect.PointerTo(key))
	return ok
}

// baseType strips pointer indirections.
func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
