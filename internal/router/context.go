package router

import (
	"net/http"

	"github.com/eugenenazirov/http-skeleton/internal/baseurl"
)

// Action handles one matched request.
type Action func(*Context) error

// Controller resolves action names to actions.
type Controller interface {
	Action(name string) (Action, bool)
}

// Actions is a Controller backed by a map.
type Actions map[string]Action

// Action implements Controller.
func (a Actions) Action(name string) (Action, bool) {
	fn, ok := a[name]
	return fn, ok
}

// Renderer writes a template reference ("file@layer") as the response body.
type Renderer interface {
	Render(w http.ResponseWriter, status int, ref string, vars map[string]any) error
}

// Context is handed to every action.
type Context struct {
	Response http.ResponseWriter
	Request  *http.Request
	Route    Route
	// Args holds the placeholder values of regex routes, in pattern order.
	Args []string
	Vars map[string]string
	// Status is set when the action serves an error route.
	Status int
	// Err is the failure that led to a 500 error route.
	Err error

	renderer   Renderer
	showErrors bool
}

// Template returns the route's template reference.
func (c *Context) Template() string {
	return c.Route.Template()
}

// PublicRootURL returns the public base URL for this request.
func (c *Context) PublicRootURL() string {
	return baseurl.FromContext(c.Request.Context())
}

// Render renders ref with vars, using Status when set and 200 otherwise.
func (c *Context) Render(ref string, vars map[string]any) error {
	status := c.Status
	if status == 0 {
		status = http.StatusOK
	}
	return c.renderer.Render(c.Response, status, ref, vars)
}

// ErrorDetail returns the failure message when error details may be shown.
func (c *Context) ErrorDetail() string {
	if !c.showErrors || c.Err == nil {
		return ""
	}
	return c.Err.Error()
}
