package lifecycle

import (
	"reflect"
	"strings"

	"go.uber.org/dig"
)

var digOutType = reflect.TypeOf(dig.Out{})

// Provide registers constructor with a dig container so that every value it
// builds is reported to coordinator. Each field of a dig.Out result counts as
// its own component, including the fields of nested and embedded result
// objects.
//
// A failing PostConstruct hook becomes the constructor's error, so dig aborts
// the construction that needed the value. Because dig builds values lazily in
// dependency order, the coordinator then tears them down in reverse
// dependency order.
//
// Example:
//
//	c := dig.New()
//	_ = lifecycle.Provide(c, rt.Coordinator(), NewDatabase)
//	_ = lifecycle.Provide(c, rt.Coordinator(), NewServer)
//	err := c.Invoke(func(s *Server) error { return s.Serve() })
func Provide(c *dig.Container, coordinator *Coordinator, constructor any, opts ...dig.ProvideOption) error {
	if constructor == nil {
		return ErrConstructorNil
	}

	fn := reflect.ValueOf(constructor)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return CreationError{ComponentType: ft, Cause: ErrConstructorNotFunc}
	}
	if coordinator == nil {
		return ErrCoordinatorNil
	}

	in := make([]reflect.Type, ft.NumIn())
	for i := range in {
		in[i] = ft.In(i)
	}

	out := make([]reflect.Type, ft.NumOut())
	for i := range out {
		out[i] = ft.Out(i)
	}

	hasErr := len(out) > 0 && out[len(out)-1] == errorType
	if !hasErr {
		out = append(out, errorType)
	}

	wrapped := reflect.MakeFunc(reflect.FuncOf(in, out, ft.IsVariadic()), func(args []reflect.Value) []reflect.Value {
		var results []reflect.Value
		if ft.IsVariadic() {
			results = fn.CallSlice(args)
		} else {
			results = fn.Call(args)
		}

		values := results
		if hasErr {
			values = results[:len(results)-1]
			if errVal := results[len(results)-1]; !errVal.IsNil() {
				return results
			}
		}

		for _, v := range values {
			if err := reportValue(coordinator, v); err != nil {
				return failedResults(out, err)
			}
		}

		if !hasErr {
			results = append(results, reflect.Zero(errorType))
		}
		return results
	})

	return c.Provide(wrapped.Interface(), opts...)
}

// reportValue reports a constructed value, or the fields of a dig.Out result.
// Embedded result objects are walked like any other field.
func reportValue(coordinator *Coordinator, v reflect.Value) error {
	if v.Kind() == reflect.Struct && dig.IsOut(v.Interface()) {
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() || field.Type == digOutType {
				continue
			}

			fv := v.Field(i)
			if isFlattened(field) && fv.Kind() == reflect.Slice {
				for j := 0; j < fv.Len(); j++ {
					if err := reportValue(coordinator, fv.Index(j)); err != nil {
						return err
					}
				}
				continue
			}

			if err := reportValue(coordinator, fv); err != nil {
				return err
			}
		}
		return nil
	}

	if !v.IsValid() || isNilValue(v) {
		return nil
	}

	_, err := coordinator.OnCreated(v.Interface())
	return err
}

func isFlattened(field reflect.StructField) bool {
	group := field.Tag.Get("group")
	return strings.Contains(group, ",flatten")
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func failedResults(out []reflect.Type, err error) []reflect.Value {
	results := make([]reflect.Value, len(out))
	for i := 0; i < len(out)-1; i++ {
		results[i] = reflect.Zero(out[i])
	}
	results[len(out)-1] = reflect.ValueOf(&err).Elem()
	return results
}
