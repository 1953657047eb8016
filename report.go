package lifecycle

import (
	"fmt"
	"io"
	"strings"
)

// DestructionReport is the outcome of one teardown pass. An empty Failures
// map means every component was torn down successfully.
type DestructionReport struct {
	// Failures maps each component whose PreDestroy hooks failed to a
	// DestructionError wrapping the cause.
	Failures map[ComponentRef]error

	// Destroyed is the number of components visited, including failed ones.
	Destroyed int

	order []ComponentRef // failures in teardown order
}

func newDestructionReport() *DestructionReport {
	return &DestructionReport{
		Failures: make(map[ComponentRef]error),
	}
}

func (r *DestructionReport) add(ref ComponentRef, err error) {
	if _, ok := r.Failures[ref]; !ok {
		r.order = append(r.order, ref)
	}
	r.Failures[ref] = err
}

// OK reports whether the teardown had no failures.
func (r *DestructionReport) OK() bool {
	return r == nil || len(r.Failures) == 0
}

// Failed returns the failed components in teardown order.
func (r *DestructionReport) Failed() []ComponentRef {
	if r == nil {
		return nil
	}
	return append([]ComponentRef(nil), r.order...)
}

// Err returns nil for a successful teardown, or a DisposalError listing the
// failures in teardown order.
func (r *DestructionReport) Err() error {
	if r.OK() {
		return nil
	}

	errs := make([]error, 0, len(r.order))
	for _, ref := range r.order {
		errs = append(errs, r.Failures[ref])
	}
	return DisposalError{Context: "coordinator", Errors: errs}
}

// Print writes a human-readable summary of the report to w.
func (r *DestructionReport) Print(w io.Writer) error {
	_, err := io.WriteString(w, r.String())
	return err
}

// String renders the report for diagnostics.
func (r *DestructionReport) String() string {
	if r == nil {
		return "no teardown performed\n"
	}

	var b strings.Builder
	if r.OK() {
		fmt.Fprintf(&b, "destroyed %d components\n", r.Destroyed)
		return b.String()
	}

	fmt.Fprintf(&b, "destroyed %d components, %d failed:\n", r.Destroyed, len(r.order))
	for i, ref := range r.order {
		err := r.Failures[ref]
		if de, ok := err.(DestructionError); ok {
			err = de.Cause
		}
		fmt.Fprintf(&b, "  %d. %s: %v\n", i+1, ref, err)
	}
	return b.String()
}
