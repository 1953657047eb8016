package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// AssertEvents checks the recorder holds exactly the expected events, in order.
func AssertEvents(t *testing.T, rec *Recorder, expected ...string) bool {
	t.Helper()
	if len(expected) == 0 {
		return assert.Empty(t, rec.Events(), "expected no events")
	}
	return assert.Equal(t, expected, rec.Events())
}

// AssertClosed checks ch is closed, or receives, within timeout.
func AssertClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...interface{}) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return assert.Fail(t, "channel was not closed in time", msgAndArgs...)
	}
}

// AssertBlocked checks ch stays open for at least d.
func AssertBlocked(t *testing.T, ch <-chan struct{}, d time.Duration, msgAndArgs ...interface{}) bool {
	t.Helper()
	select {
	case <-ch:
		return assert.Fail(t, "channel closed while expected to block", msgAndArgs...)
	case <-time.After(d):
		return true
	}
}

// AssertPanicsWith checks that f panics with the given value.
func AssertPanicsWith(t *testing.T, expected any, f func(), msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.PanicsWithValue(t, expected, f, msgAndArgs...)
}
