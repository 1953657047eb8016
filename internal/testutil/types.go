package testutil

import (
	"errors"
	"strings"
	"sync"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrIntentional = errors.New("intentional error")
	ErrDisposal    = errors.New("disposal error")
)

// Recorder collects lifecycle events in the order they happen.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends an event.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many recorded events start with prefix.
func (r *Recorder) Count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Component implements Activate, PostConstruct and PreDestroy, recording
// "activate:<Name>", "post-construct:<Name>" and "pre-destroy:<Name>".
// Each hook returns its configured error, or panics with its configured value.
type Component struct {
	Name     string
	Recorder *Recorder

	ActivateErr      error
	PostConstructErr error
	PreDestroyErr    error

	ActivatePanic   any
	PreDestroyPanic any
}

// Activate records the activation.
func (c *Component) Activate() error {
	c.Recorder.Record("activate:" + c.Name)
	if c.ActivatePanic != nil {
		panic(c.ActivatePanic)
	}
	return c.ActivateErr
}

// PostConstruct records the post-construction.
func (c *Component) PostConstruct() error {
	c.Recorder.Record("post-construct:" + c.Name)
	return c.PostConstructErr
}

// PreDestroy records the teardown.
func (c *Component) PreDestroy() error {
	c.Recorder.Record("pre-destroy:" + c.Name)
	if c.PreDestroyPanic != nil {
		panic(c.PreDestroyPanic)
	}
	return c.PreDestroyErr
}

// Closer only implements Close.
type Closer struct {
	Name     string
	Recorder *Recorder
	CloseErr error
}

// Close records "close:<Name>".
func (c *Closer) Close() error {
	c.Recorder.Record("close:" + c.Name)
	return c.CloseErr
}

// Plain has no capability methods. Tests attach hooks to it through a registry.
type Plain struct {
	Name     string
	Recorder *Recorder
}

// Base carries methods meant to be registered as hooks with method
// expressions such as (*Base).Init.
type Base struct {
	Name     string
	Recorder *Recorder
}

// Init records "base.init:<Name>".
func (b *Base) Init() error {
	b.Recorder.Record("base.init:" + b.Name)
	return nil
}

// Stop records "base.stop:<Name>".
func (b *Base) Stop() {
	b.Recorder.Record("base.stop:" + b.Name)
}

// Mixin is a second embeddable type.
type Mixin struct {
	Recorder *Recorder
}

// Init records "mixin.init".
func (m *Mixin) Init() error {
	m.Recorder.Record("mixin.init")
	return nil
}

// Derived embeds Base and Mixin by value, in that order.
type Derived struct {
	Base
	Mixin
}

// Setup records "derived.setup:<Name>".
func (d *Derived) Setup() error {
	d.Base.Recorder.Record("derived.setup:" + d.Name)
	return nil
}

// Nested embeds Derived, so Base and Mixin sit two levels down.
type Nested struct {
	*Derived
}

// Start records "nested.start".
func (n *Nested) Start() error {
	n.Derived.Base.Recorder.Record("nested.start")
	return nil
}

// Database, Cache and Server form a dependency chain for container tests.
type Database struct {
	Component
}

// Cache depends on Database.
type Cache struct {
	Component
	DB *Database
}

// Server depends on Cache.
type Server struct {
	Component
	Cache *Cache
}

// NewDatabase creates a Database that records into rec.
func NewDatabase(rec *Recorder) *Database {
	return &Database{Component: Component{Name: "db", Recorder: rec}}
}

// NewCache creates a Cache that records into rec.
func NewCache(rec *Recorder, db *Database) *Cache {
	return &Cache{Component: Component{Name: "cache", Recorder: rec}, DB: db}
}

// NewServer creates a Server that records into rec.
func NewServer(rec *Recorder, cache *Cache) *Server {
	return &Server{Component: Component{Name: "server", Recorder: rec}, Cache: cache}
}
