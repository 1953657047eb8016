package testutil

// ComponentBuilder helps build Component fixtures.
type ComponentBuilder struct {
	component *Component
}

// NewComponentBuilder starts a Component that records into rec.
func NewComponentBuilder(name string, rec *Recorder) *ComponentBuilder {
	return &ComponentBuilder{
		component: &Component{Name: name, Recorder: rec},
	}
}

// FailActivate makes Activate return err.
func (b *ComponentBuilder) FailActivate(err error) *ComponentBuilder {
	b.component.ActivateErr = err
	return b
}

// FailPostConstruct makes PostConstruct return err.
func (b *ComponentBuilder) FailPostConstruct(err error) *ComponentBuilder {
	b.component.PostConstructErr = err
	return b
}

// FailPreDestroy makes PreDestroy return err.
func (b *ComponentBuilder) FailPreDestroy(err error) *ComponentBuilder {
	b.component.PreDestroyErr = err
	return b
}

// PanicOnActivate makes Activate panic with v.
func (b *ComponentBuilder) PanicOnActivate(v any) *ComponentBuilder {
	b.component.ActivatePanic = v
	return b
}

// PanicOnPreDestroy makes PreDestroy panic with v.
func (b *ComponentBuilder) PanicOnPreDestroy(v any) *ComponentBuilder {
	b.component.PreDestroyPanic = v
	return b
}

// Build returns the component.
func (b *ComponentBuilder) Build() *Component {
	return b.component
}

// Components builds one recording component per name.
func Components(rec *Recorder, names ...string) []*Component {
	out := make([]*Component, len(names))
	for i, name := range names {
		out[i] = NewComponentBuilder(name, rec).Build()
	}
	return out
}
