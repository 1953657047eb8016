package lifecycle

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Component errors.
	ErrComponentNil     = errors.New("component cannot be nil")
	ErrComponentTypeNil = errors.New("component type cannot be nil")
	ErrAlreadyCreated   = errors.New("component already registered with the coordinator")
	ErrConstructorNil   = errors.New("constructor cannot be nil")

	// ErrConstructorNotFunc is returned by Provide for non-function constructors.
	ErrConstructorNotFunc = errors.New("constructor must be a function")

	// Runtime errors.
	ErrRuntimeShutdown = errors.New("runtime has been shut down")
	ErrCoordinatorNil  = errors.New("coordinator cannot be nil")

	// Hook registration errors.
	ErrHookNil         = errors.New("hook cannot be nil")
	ErrHookNotFunc     = errors.New("hook must be a function")
	ErrHooksDiscovered = errors.New("hooks for this type have already been discovered")

	// Hook invocation errors.
	ErrHookArity        = errors.New("hook must take no arguments besides its receiver")
	ErrHookResults      = errors.New("hook must return nothing or a single error")
	ErrReceiverMismatch = errors.New("hook receiver does not match the component")
)

var (
	_ error = PhaseError{}
	_ error = HookRegistrationError{}
	_ error = ConfigurationError{}
	_ error = HookInvocationError{}
	_ error = CreationError{}
	_ error = DestructionError{}
	_ error = DisposalError{}
	_ error = ConfigError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// PhaseError indicates an invalid lifecycle phase value.
type PhaseError struct {
	Value any
}

func (e PhaseError) Error() string {
	return fmt.Sprintf("invalid lifecycle phase: %v", e.Value)
}

// HookRegistrationError wraps errors that occur while adding hooks to a HookRegistry.
type HookRegistrationError struct {
	ComponentType reflect.Type
	Phase         Phase
	Cause         error
}

func (e HookRegistrationError) Error() string {
	return fmt.Sprintf("failed to register %s hook for %s: %v", e.Phase, formatType(e.ComponentType), e.Cause)
}

func (e HookRegistrationError) Unwrap() error {
	return e.Cause
}

// ConfigurationError indicates a hook whose signature cannot be invoked as a
// zero-argument operation on its component. It is raised when the hook is
// invoked, never when it is registered or discovered.
type ConfigurationError struct {
	ComponentType reflect.Type
	Hook          string
	Phase         Phase
	Signature     reflect.Type
	Cause         error
}

func (e ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("invalid %s hook %s on %s", e.Phase, e.Hook, formatType(e.ComponentType)))
	if e.Signature != nil {
		b.WriteString(fmt.Sprintf(" (%s)", e.Signature))
	}
	b.WriteString(fmt.Sprintf(": %v", e.Cause))
	return b.String()
}

func (e ConfigurationError) Unwrap() error {
	return e.Cause
}

// HookInvocationError wraps an error returned from, or a panic raised inside, a hook body.
type HookInvocationError struct {
	ComponentType reflect.Type
	Hook          string
	Phase         Phase
	Cause         error
	Panic         any
	Stack         []byte
}

func (e HookInvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s hook %s on %s panicked: %v", e.Phase, e.Hook, formatType(e.ComponentType), e.Panic)
	}
	return fmt.Sprintf("%s hook %s on %s failed: %v", e.Phase, e.Hook, formatType(e.ComponentType), e.Cause)
}

func (e HookInvocationError) Unwrap() error {
	return e.Cause
}

// CreationError indicates a component failed its PostConstruct hooks and was
// never considered created.
type CreationError struct {
	ComponentType reflect.Type
	Cause         error
}

func (e CreationError) Error() string {
	return fmt.Sprintf("creation of %s aborted: %v", formatType(e.ComponentType), e.Cause)
}

func (e CreationError) Unwrap() error {
	return e.Cause
}

// DestructionError records a PreDestroy failure for one component. It is
// collected into a DestructionReport and never returned on its own.
type DestructionError struct {
	Component ComponentRef
	Cause     error
}

func (e DestructionError) Error() string {
	return fmt.Sprintf("destruction of %s failed: %v", e.Component, e.Cause)
}

func (e DestructionError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates teardown errors
type DisposalError struct {
	Context string // "coordinator", "runtime"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// ConfigError indicates an invalid configuration file or value.
type ConfigError struct {
	Path  string
	Field string
	Cause error
}

func (e ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Path != "":
		return fmt.Sprintf("config %q: %s: %v", e.Path, e.Field, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("config: %s: %v", e.Field, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("config %q: %v", e.Path, e.Cause)
	default:
		return fmt.Sprintf("config: %v", e.Cause)
	}
}

func (e ConfigError) Unwrap() error {
	return e.Cause
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
