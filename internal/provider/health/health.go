// Package health provides a liveness endpoint at /healthz.
package health

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/provider"
	"github.com/eugenenazirov/http-skeleton/internal/router"
)

// Name is the provider's whitelist name.
const Name = "health"

var (
	//go:embed http.yaml
	httpConfig []byte
	//go:embed routes.yaml
	routes []byte
)

// Option configures the health controller.
type Option func(*Controller)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// Provider returns the health provider.
func Provider(opts ...Option) provider.Provider {
	return provider.Provider{
		Name:       Name,
		HTTPConfig: httpConfig,
		Routes:     routes,
		Controllers: func(tree *config.Map) map[string]router.Controller {
			return map[string]router.Controller{Name: NewController(tree, opts...).Actions()}
		},
	}
}

// Controller answers health checks.
type Controller struct {
	message string
	clock   func() time.Time
}

// NewController reads health.message from the merged tree.
func NewController(tree *config.Map, opts ...Option) *Controller {
	c := &Controller{
		message: "ok",
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	if v, ok := tree.Lookup("health.message"); ok {
		if s, ok := v.(string); ok {
			c.message = s
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Actions exposes the controller to the router.
func (c *Controller) Actions() router.Actions {
	return router.Actions{"check": c.Check}
}

type response struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Check writes the status document.
func (c *Controller) Check(ctx *router.Context) error {
	ctx.Response.Header().Set("Content-Type", "application/json")
	ctx.Response.Header().Set("Cache-Control", "no-store")
	ctx.Response.WriteHeader(http.StatusOK)
	return json.NewEncoder(ctx.Response).Encode(response{
		Status:    "ok",
		Message:   c.message,
		Timestamp: c.clock(),
	})
}
