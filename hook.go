package lifecycle

import (
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Hook describes an operation tagged for one lifecycle phase. Once bound to a
// component it must take no arguments and return nothing or a single error.
type Hook struct {
	Phase Phase

	// Name identifies the hook in errors and logs, e.g. "(*Server).Warmup".
	Name string

	// Owner is the type the hook was declared for. Hooks collected from an
	// embedded field report the embedded type.
	Owner reflect.Type

	fn   reflect.Value
	path []int // field indexes from the component to the embedded owner

	// promoted is set on capability hooks whose method is promoted from an
	// embedded field: the field indexes from the component to that field.
	promoted []int
}

func newHook(phase Phase, owner reflect.Type, fn reflect.Value, path []int) Hook {
	return Hook{
		Phase: phase,
		Name:  funcName(fn),
		Owner: owner,
		fn:    fn,
		path:  path,
	}
}

// Invoke runs the hook against component.
//
// Signature problems surface here as ConfigurationError. An error returned by
// the hook, or a panic inside it, is wrapped in a HookInvocationError. Hooks
// declared on, or promoted from, a nil embedded pointer are skipped.
func (h Hook) Invoke(component any) (err error) {
	componentType := reflect.TypeOf(component)

	if !h.fn.IsValid() {
		return h.configurationError(componentType, ErrHookNil)
	}

	ft := h.fn.Type()
	if ft.NumIn() > 1 || ft.IsVariadic() {
		return h.configurationError(componentType, ErrHookArity)
	}

	if !validHookResults(ft) {
		return h.configurationError(componentType, ErrHookResults)
	}

	if h.behindNil(component) {
		return nil
	}

	var args []reflect.Value
	if ft.NumIn() == 1 {
		recv, ok, skip := h.receiver(component, ft.In(0))
		if skip {
			return nil
		}
		if !ok {
			return h.configurationError(componentType, ErrReceiverMismatch)
		}
		args = []reflect.Value{recv}
	}

	defer func() {
		if r := recover(); r != nil {
			err = HookInvocationError{
				ComponentType: componentType,
				Hook:          h.Name,
				Phase:         h.Phase,
				Panic:         r,
				Stack:         debug.Stack(),
			}
		}
	}()

	out := h.fn.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return HookInvocationError{
			ComponentType: componentType,
			Hook:          h.Name,
			Phase:         h.Phase,
			Cause:         out[0].Interface().(error),
		}
	}

	return nil
}

func (h Hook) configurationError(componentType reflect.Type, cause error) error {
	var signature reflect.Type
	if h.fn.IsValid() {
		signature = h.fn.Type()
	}

	return ConfigurationError{
		ComponentType: componentType,
		Hook:          h.Name,
		Phase:         h.Phase,
		Signature:     signature,
		Cause:         cause,
	}
}

// receiver walks from the component to the hook's owner and adapts the value
// to the parameter type the hook expects. skip is true when the owner sits
// behind a nil embedded pointer.
func (h Hook) receiver(component any, want reflect.Type) (recv reflect.Value, ok bool, skip bool) {
	v := reflect.ValueOf(component)

	for _, index := range h.path {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false, true
			}
			v = v.Elem()
		}

		if v.Kind() != reflect.Struct || index >= v.NumField() {
			return reflect.Value{}, false, false
		}
		v = v.Field(index)
	}

	for v.IsValid() {
		if len(h.path) > 0 && v.Kind() == reflect.Pointer && v.IsNil() {
			return reflect.Value{}, false, true
		}

		if v.Type().AssignableTo(want) {
			return v, true, false
		}

		if v.CanAddr() && reflect.PointerTo(v.Type()).AssignableTo(want) {
			return v.Addr(), true, false
		}

		if v.Kind() != reflect.Pointer {
			break
		}

		if v.IsNil() {
			return reflect.Value{}, false, false
		}
		v = v.Elem()
	}

	return reflect.Value{}, false, false
}

// behindNil reports whether the embedded field a promoted capability method
// comes from is a nil pointer or interface, or sits behind one.
func (h Hook) behindNil(component any) bool {
	if len(h.promoted) == 0 {
		return false
	}

	v := reflect.ValueOf(component)
	for _, index := range h.promoted {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return true
			}
			v = v.Elem()
		}

		if v.Kind() != reflect.Struct || index >= v.NumField() {
			return false
		}
		v = v.Field(index)
	}

	return (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil()
}

// runHook invokes h and records its outcome.
func runHook(h Hook, component any, metrics *Metrics) error {
	start := time.Now()
	err := h.Invoke(component)
	metrics.RecordHook(h.Phase, start, err)
	return err
}

func validHookResults(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 0:
		return true
	case 1:
		return ft.Out(0) == errorType
	default:
		return false
	}
}

// funcName returns the package-relative name of a function value,
// e.g. "(*Server).Warmup" or "TestActivate.func1".
func funcName(fn reflect.Value) string {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return "<nil>"
	}

	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return fn.Type().String()
	}

	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// methodName formats a capability method for display, e.g. "(*Server).Close".
func methodName(t reflect.Type, method string) string {
	if t.Kind() == reflect.Pointer && t.Elem().Name() != "" {
		return "(*" + t.Elem().Name() + ")." + method
	}
	return formatType(t) + "." + method
}

// isWrapper reports whether fn is a compiler-generated method wrapper, as
// produced for promoted methods and for value methods called through a pointer.
func isWrapper(fn reflect.Value) bool {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return false
	}

	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}

	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}

var receiverReplacer = strings.NewReplacer("(*", "", ")", "")

// qualifiedName returns the fully qualified name of a function with pointer
// receiver markers removed, e.g. "example.com/app.Server.Close".
func qualifiedName(fn reflect.Value) string {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return ""
	}

	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return ""
	}
	return receiverReplacer.Replace(f.Name())
}

// declaredName is qualifiedName for method as declared on t.
func declaredName(t reflect.Type, method string) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return ""
	}
	return t.PkgPath() + "." + t.Name() + "." + method
}
