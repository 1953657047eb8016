// Package chi provides lifecycle integration for the Chi router.
//
// GuardMiddleware runs every request as a guarded operation of a
// ShutdownBarrier, so runtime shutdown waits for in-flight requests before
// tearing components down.
//
// Example usage:
//
//	rt := lifecycle.New()
//
//	r := chi.NewRouter()
//	r.Use(lifecyclechi.GuardMiddleware(rt.Barrier(),
//	    lifecyclechi.WithSkipPaths("/healthz"),
//	))
package chi

import (
	"net/http"

	"github.com/junioryono/lifecycle"
)

// Config holds the configuration for the guard middleware.
type Config struct {
	// Skip reports whether a request should bypass the barrier.
	// Skipped requests are not waited for during shutdown.
	Skip func(*http.Request) bool
}

// Option configures the guard middleware.
type Option func(*Config)

// WithSkip sets the predicate for requests that bypass the barrier.
func WithSkip(skip func(*http.Request) bool) Option {
	return func(c *Config) {
		c.Skip = skip
	}
}

// WithSkipPaths bypasses the barrier for requests to the given exact paths.
func WithSkipPaths(paths ...string) Option {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}

	return WithSkip(func(r *http.Request) bool {
		_, ok := set[r.URL.Path]
		return ok
	})
}

func defaultConfig() *Config {
	return &Config{
		Skip: func(*http.Request) bool { return false },
	}
}

// GuardMiddleware creates a Chi middleware that serves each request inside
// barrier.Guard. Panics from the handler propagate after the request is
// released, so it composes with middleware.Recoverer.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Recoverer)
//	r.Use(lifecyclechi.GuardMiddleware(rt.Barrier()))
func GuardMiddleware(barrier *lifecycle.ShutdownBarrier, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			_ = barrier.Guard(func() error {
				next.ServeHTTP(w, r)
				return nil
			})
		})
	}
}
