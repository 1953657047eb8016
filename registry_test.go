package lifecycle_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/junioryono/lifecycle"
	"github.com/junioryono/lifecycle/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type closingComponent struct {
	rec *testutil.Recorder
}

func (c *closingComponent) PreDestroy() error {
	c.rec.Record("pre-destroy")
	return nil
}

func (c *closingComponent) Close() error {
	c.rec.Record("close")
	return nil
}

type pooledConn struct {
	*testutil.Closer
}

type eagerConn struct {
	*testutil.Closer
	rec *testutil.Recorder
}

func (c *eagerConn) Close() error {
	c.rec.Record("eager.close")
	return nil
}

type connWrapper struct {
	*testutil.Closer
}

type hiddenConn struct {
	*connWrapper
}

func hookNames(hooks []lifecycle.Hook) []string {
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.Name
	}
	return names
}

func invokeAll(t *testing.T, hooks []lifecycle.Hook, component any) {
	t.Helper()
	for _, h := range hooks {
		require.NoError(t, h.Invoke(component), "hook %s", h.Name)
	}
}

func TestHookRegistry_Register(t *testing.T) {
	t.Run("validates arguments", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		plainType := reflect.TypeOf(testutil.Plain{})
		var nilHook func(*testutil.Plain)

		tests := []struct {
			name  string
			typ   reflect.Type
			phase lifecycle.Phase
			hooks []any
			cause error
		}{
			{"nil type", nil, lifecycle.Activate, []any{func() {}}, lifecycle.ErrComponentTypeNil},
			{"nil hook", plainType, lifecycle.Activate, []any{nil}, lifecycle.ErrHookNil},
			{"typed nil hook", plainType, lifecycle.Activate, []any{nilHook}, lifecycle.ErrHookNil},
			{"not a function", plainType, lifecycle.Activate, []any{"start"}, lifecycle.ErrHookNotFunc},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := registry.Register(tt.typ, tt.phase, tt.hooks...)
				var re lifecycle.HookRegistrationError
				require.True(t, errors.As(err, &re), "got %v", err)
				assert.ErrorIs(t, err, tt.cause)
			})
		}

		err := registry.Register(plainType, lifecycle.Phase(9), func() {})
		var pe lifecycle.PhaseError
		assert.True(t, errors.As(err, &pe))
	})

	t.Run("invalid signatures are accepted", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()

		err := lifecycle.RegisterHooks[testutil.Plain](registry, lifecycle.Activate,
			func(*testutil.Plain, int) error { return nil },
			func(*testutil.Plain) (int, error) { return 0, nil },
		)
		require.NoError(t, err)
		assert.Len(t, registry.Discover(reflect.TypeOf(&testutil.Plain{}), lifecycle.Activate), 2)
	})

	t.Run("T and *T share an entry", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		require.NoError(t, lifecycle.RegisterHooks[testutil.Plain](registry, lifecycle.Activate, func() { rec.Record("value") }))
		require.NoError(t, lifecycle.RegisterHooks[*testutil.Plain](registry, lifecycle.Activate, func() { rec.Record("pointer") }))

		invokeAll(t, registry.DiscoverFor(&testutil.Plain{}, lifecycle.Activate), &testutil.Plain{})
		testutil.AssertEvents(t, rec, "value", "pointer")
	})

	t.Run("rejected after discovery", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		require.NoError(t, lifecycle.RegisterHooks[testutil.Base](registry, lifecycle.PostConstruct, (*testutil.Base).Init))

		registry.DiscoverFor(&testutil.Base{}, lifecycle.PostConstruct)

		err := lifecycle.RegisterHooks[testutil.Base](registry, lifecycle.PreDestroy, (*testutil.Base).Stop)
		assert.ErrorIs(t, err, lifecycle.ErrHooksDiscovered)

		err = lifecycle.RegisterHooks[*testutil.Base](registry, lifecycle.PreDestroy, (*testutil.Base).Stop)
		assert.ErrorIs(t, err, lifecycle.ErrHooksDiscovered)

		assert.Empty(t, registry.DiscoverFor(&testutil.Base{}, lifecycle.PreDestroy))
	})
}

func TestHookRegistry_Discover(t *testing.T) {
	t.Run("capability interfaces", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		component := &testutil.Component{Name: "a"}

		assert.Equal(t, []string{"(*Component).Activate"}, hookNames(registry.DiscoverFor(component, lifecycle.Activate)))
		assert.Equal(t, []string{"(*Component).PostConstruct"}, hookNames(registry.DiscoverFor(component, lifecycle.PostConstruct)))
		assert.Equal(t, []string{"(*Component).PreDestroy"}, hookNames(registry.DiscoverFor(component, lifecycle.PreDestroy)))
	})

	t.Run("PreDestroy runs before Close", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()
		component := &closingComponent{rec: rec}

		hooks := registry.DiscoverFor(component, lifecycle.PreDestroy)
		assert.Equal(t, []string{"(*closingComponent).PreDestroy", "(*closingComponent).Close"}, hookNames(hooks))

		invokeAll(t, hooks, component)
		testutil.AssertEvents(t, rec, "pre-destroy", "close")
	})

	t.Run("capabilities precede registered hooks", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		require.NoError(t, lifecycle.RegisterHooks[testutil.Component](registry, lifecycle.Activate, func() {}))

		hooks := registry.DiscoverFor(&testutil.Component{}, lifecycle.Activate)
		require.Len(t, hooks, 2)
		assert.Equal(t, "(*Component).Activate", hooks[0].Name)
	})

	t.Run("derived level first then embedded in declaration order", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		require.NoError(t, lifecycle.RegisterHooks[testutil.Base](registry, lifecycle.PostConstruct, (*testutil.Base).Init))
		require.NoError(t, lifecycle.RegisterHooks[testutil.Mixin](registry, lifecycle.PostConstruct, (*testutil.Mixin).Init))
		require.NoError(t, lifecycle.RegisterHooks[testutil.Derived](registry, lifecycle.PostConstruct, (*testutil.Derived).Setup))

		d := &testutil.Derived{
			Base:  testutil.Base{Name: "d", Recorder: rec},
			Mixin: testutil.Mixin{Recorder: rec},
		}

		hooks := registry.DiscoverFor(d, lifecycle.PostConstruct)
		assert.Equal(t, []string{"(*Derived).Setup", "(*Base).Init", "(*Mixin).Init"}, hookNames(hooks))
		assert.Equal(t, reflect.TypeOf(testutil.Base{}), hooks[1].Owner)

		invokeAll(t, hooks, d)
		testutil.AssertEvents(t, rec, "derived.setup:d", "base.init:d", "mixin.init")
	})

	t.Run("depth first through embedded pointers", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		require.NoError(t, lifecycle.RegisterHooks[testutil.Base](registry, lifecycle.Activate, (*testutil.Base).Init))
		require.NoError(t, lifecycle.RegisterHooks[testutil.Mixin](registry, lifecycle.Activate, (*testutil.Mixin).Init))
		require.NoError(t, lifecycle.RegisterHooks[testutil.Derived](registry, lifecycle.Activate, (*testutil.Derived).Setup))
		require.NoError(t, lifecycle.RegisterHooks[testutil.Nested](registry, lifecycle.Activate, (*testutil.Nested).Start))

		n := &testutil.Nested{Derived: &testutil.Derived{
			Base:  testutil.Base{Name: "n", Recorder: rec},
			Mixin: testutil.Mixin{Recorder: rec},
		}}

		invokeAll(t, registry.DiscoverFor(n, lifecycle.Activate), n)
		testutil.AssertEvents(t, rec, "nested.start", "derived.setup:n", "base.init:n", "mixin.init")
	})

	t.Run("hooks behind a nil embedded pointer are skipped", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		require.NoError(t, lifecycle.RegisterHooks[testutil.Base](registry, lifecycle.Activate, (*testutil.Base).Init))
		require.NoError(t, lifecycle.RegisterHooks[testutil.Derived](registry, lifecycle.Activate, (*testutil.Derived).Setup))

		n := &testutil.Nested{}
		hooks := registry.DiscoverFor(n, lifecycle.Activate)
		require.Len(t, hooks, 2)

		invokeAll(t, hooks, n)
		testutil.AssertEvents(t, rec)
	})

	t.Run("promoted capability behind a nil embedded pointer is skipped", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()

		tests := []struct {
			name      string
			component any
		}{
			{"nil embedded pointer", &pooledConn{}},
			{"nil unexported embedded pointer", &hiddenConn{}},
			{"nil pointer two levels down", &hiddenConn{connWrapper: &connWrapper{}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				hooks := registry.DiscoverFor(tt.component, lifecycle.PreDestroy)
				require.Len(t, hooks, 1)
				assert.NoError(t, hooks[0].Invoke(tt.component))
			})
		}
	})

	t.Run("promoted capability runs when the embedded pointer is set", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		conn := &hiddenConn{connWrapper: &connWrapper{Closer: &testutil.Closer{Name: "c", Recorder: rec}}}
		invokeAll(t, registry.DiscoverFor(conn, lifecycle.PreDestroy), conn)
		testutil.AssertEvents(t, rec, "close:c")
	})

	t.Run("method declared on the outer type is not skipped", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		conn := &eagerConn{rec: rec}
		invokeAll(t, registry.DiscoverFor(conn, lifecycle.PreDestroy), conn)
		testutil.AssertEvents(t, rec, "eager.close")
	})

	t.Run("registered capability method runs once", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		rec := testutil.NewRecorder()

		require.NoError(t, lifecycle.RegisterHooks[testutil.Component](registry, lifecycle.PreDestroy,
			(*testutil.Component).PreDestroy,
			func(*testutil.Component) { rec.Record("extra") },
		))

		component := &testutil.Component{Name: "c", Recorder: rec}
		hooks := registry.DiscoverFor(component, lifecycle.PreDestroy)
		require.Len(t, hooks, 2)
		assert.Equal(t, "(*Component).PreDestroy", hooks[0].Name)
		invokeAll(t, hooks, component)

		db := testutil.NewDatabase(rec)
		hooks = registry.DiscoverFor(db, lifecycle.PreDestroy)
		require.Len(t, hooks, 2)
		assert.Equal(t, "(*Database).PreDestroy", hooks[0].Name)
		invokeAll(t, hooks, db)

		testutil.AssertEvents(t, rec, "pre-destroy:c", "extra", "pre-destroy:db", "extra")
	})

	t.Run("invalid input", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		assert.Nil(t, registry.Discover(nil, lifecycle.Activate))
		assert.Nil(t, registry.DiscoverFor(&testutil.Component{}, lifecycle.Phase(-1)))
	})

	t.Run("cached per type", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		require.NoError(t, lifecycle.RegisterHooks[testutil.Plain](registry, lifecycle.Activate, func() {}))

		typ := reflect.TypeOf(&testutil.Plain{})
		first := registry.Discover(typ, lifecycle.Activate)
		second := registry.Discover(typ, lifecycle.Activate)

		require.Len(t, first, 1)
		assert.Same(t, &first[0], &second[0])
	})

	t.Run("concurrent discovery", func(t *testing.T) {
		registry := lifecycle.NewHookRegistry()
		require.NoError(t, lifecycle.RegisterHooks[testutil.Base](registry, lifecycle.Activate, (*testutil.Base).Init))

		typ := reflect.TypeOf(&testutil.Derived{})
		results := make([][]lifecycle.Hook, 50)

		var g errgroup.Group
		for i := range results {
			i := i
			g.Go(func() error {
				results[i] = registry.Discover(typ, lifecycle.Activate)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		for _, hooks := range results {
			require.Len(t, hooks, 1)
			assert.Same(t, &results[0][0], &hooks[0])
		}
	})
}
