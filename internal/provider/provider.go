// Package provider defines how packages contribute configuration, routes,
// services and controllers to the application.
//
// Only providers named in config/providers.yaml take part in boot, in the
// order listed there.
package provider

import (
	"fmt"

	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/router"
)

// Provider carries the contributions of one package. The YAML documents are
// merged between the kernel baseline and the application's own files.
type Provider struct {
	Name       string
	HTTPConfig []byte
	CLIConfig  []byte
	Routes     []byte
	Services   []byte
	// Controllers builds the provider's controllers from the merged HTTP tree.
	Controllers func(tree *config.Map) map[string]router.Controller
}

// Registry maps provider names to providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry returns a registry holding providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p. Names must be unique.
func (r *Registry) Register(p Provider) error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if _, dup := r.providers[p.Name]; dup {
		return DuplicateProviderError{Name: p.Name}
	}
	r.providers[p.Name] = p
	return nil
}

// Resolve returns the named providers in the given order.
func (r *Registry) Resolve(names []string) ([]Provider, error) {
	out := make([]Provider, 0, len(names))
	for _, name := range names {
		p, ok := r.providers[name]
		if !ok {
			return nil, UnknownProviderError{Name: name}
		}
		out = append(out, p)
	}
	return out, nil
}

// UnknownProviderError occurs when the whitelist names an unregistered provider.
type UnknownProviderError struct {
	Name string
}

// Error implements the error interface.
func (e UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.Name)
}

// DuplicateProviderError occurs when two providers share a name.
type DuplicateProviderError struct {
	Name string
}

// Error implements the error interface.
func (e DuplicateProviderError) Error() string {
	return fmt.Sprintf("provider %q registered twice", e.Name)
}
