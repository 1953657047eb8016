package lifecycle

// Activator is implemented by components that take part in the activation
// pass of an ActivationManager.
//
// Example:
//
//	type Cache struct {
//	    store map[string][]byte
//	}
//
//	func (c *Cache) Activate() error {
//	    return c.warm()
//	}
type Activator interface {
	Activate() error
}

// PostConstructor is implemented by components that need to finish their
// initialization once the container has constructed them. A returned error
// aborts the creation of the component.
type PostConstructor interface {
	PostConstruct() error
}

// PreDestroyer is implemented by components that release resources during
// teardown. Teardown runs in reverse creation order.
type PreDestroyer interface {
	PreDestroy() error
}

// Disposable is treated as a PreDestroy capability. When a component
// implements both PreDestroyer and Disposable, PreDestroy runs first.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}
