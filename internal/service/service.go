// Package service builds the configured service map into lazily constructed,
// process-wide singletons.
package service

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/http-skeleton/internal/config"
)

// App is the handle factories receive.
type App interface {
	Boot() config.Boot
	Settings() config.HTTP
	Logger() *zap.Logger
}

// Factory constructs the service registered under a class name.
type Factory func(app App, options map[string]any) (any, error)

// Descriptor is one service map entry.
type Descriptor struct {
	ID      string
	Class   string
	Options map[string]any
}

type descriptorEntry struct {
	Class   string         `config:"class"`
	Options map[string]any `config:"options"`
}

// ParseDescriptors reads the merged services tree. An entry is either a
// class name or a mapping with class and options.
func ParseDescriptors(tree *config.Map) ([]Descriptor, error) {
	out := make([]Descriptor, 0, tree.Len())
	for _, id := range tree.Keys() {
		raw, _ := tree.Get(id)

		d := Descriptor{ID: id}
		switch v := raw.(type) {
		case string:
			d.Class = v
		case *config.Map:
			var entry descriptorEntry
			if err := v.Decode(&entry); err != nil {
				return nil, InvalidDescriptorError{ID: id, Cause: err}
			}
			d.Class, d.Options = entry.Class, entry.Options
		default:
			return nil, InvalidDescriptorError{ID: id, Cause: fmt.Errorf("expected a class name or mapping, got %T", raw)}
		}
		if d.Class == "" {
			return nil, InvalidDescriptorError{ID: id, Cause: fmt.Errorf("class is required")}
		}
		out = append(out, d)
	}
	return out, nil
}

// Container hands out one instance per service id.
type Container struct {
	app         App
	descriptors map[string]Descriptor
	factories   map[string]Factory

	mu        sync.Mutex
	instances map[string]any
}

// NewContainer checks every descriptor against the registered factories.
func NewContainer(app App, descriptors []Descriptor, factories map[string]Factory) (*Container, error) {
	c := &Container{
		app:         app,
		descriptors: make(map[string]Descriptor, len(descriptors)),
		factories:   factories,
		instances:   make(map[string]any),
	}
	for _, d := range descriptors {
		if _, ok := factories[d.Class]; !ok {
			return nil, UnknownClassError{ID: d.ID, Class: d.Class}
		}
		c.descriptors[d.ID] = d
	}
	return c, nil
}

// Has reports whether id is configured.
func (c *Container) Has(id string) bool {
	_, ok := c.descriptors[id]
	return ok
}

// IDs lists configured service ids in sorted order.
func (c *Container) IDs() []string {
	ids := make([]string, 0, len(c.descriptors))
	for id := range c.descriptors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the instance for id, constructing it on first use. A failed
// construction is not cached. Factories run without the container lock held,
// so they may resolve other services; when two callers race on the same id
// the first stored instance wins.
func (c *Container) Get(id string) (any, error) {
	c.mu.Lock()
	svc, ok := c.instances[id]
	c.mu.Unlock()
	if ok {
		return svc, nil
	}

	d, ok := c.descriptors[id]
	if !ok {
		return nil, UnknownServiceError{ID: id}
	}

	built, err := c.factories[d.Class](c.app, d.Options)
	if err != nil {
		return nil, fmt.Errorf("construct service %s (%s): %w", id, d.Class, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.instances[id]; ok {
		return svc, nil
	}
	c.instances[id] = built
	return built, nil
}

// Get returns the service id as a T.
func Get[T any](c *Container, id string) (T, error) {
	var zero T
	svc, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %s is %T, not %T", id, svc, zero)
	}
	return typed, nil
}

// UnknownClassError occurs when a descriptor names an unregistered class.
type UnknownClassError struct {
	ID    string
	Class string
}

// Error implements the error interface.
func (e UnknownClassError) Error() string {
	return fmt.Sprintf("service %s: unknown class %q", e.ID, e.Class)
}

// UnknownServiceError occurs when Get is asked for an unconfigured id.
type UnknownServiceError struct {
	ID string
}

// Error implements the error interface.
func (e UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.ID)
}

// InvalidDescriptorError occurs for malformed service map entries.
type InvalidDescriptorError struct {
	ID    string
	Cause error
}

// Error implements the error interface.
func (e InvalidDescriptorError) Error() string {
	return fmt.Sprintf("service %s: %s", e.ID, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidDescriptorError) Unwrap() error {
	return e.Cause
}
