// Package router dispatches requests through the merged route table.
//
// Lookup order is exact path, regex routes in declaration order, a static
// file below the public root, and finally the 404 error route. Action
// failures and panics are served by the 500 error route; when an error
// route is missing or fails itself, a plain-text response is written.
package router

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Option configures a Router.
type Option func(*Router)

// WithStaticDir serves files below dir for unmatched GET and HEAD requests.
func WithStaticDir(dir string) Option {
	return func(r *Router) {
		r.staticDir = dir
	}
}

// WithErrorDetails exposes failure messages on 500 responses.
func WithErrorDetails(show bool) Option {
	return func(r *Router) {
		r.showErrors = show
	}
}

// Router is an http.Handler over a Table.
type Router struct {
	table       *Table
	controllers map[string]Controller
	renderer    Renderer
	logger      *zap.Logger
	staticDir   string
	showErrors  bool
}

// New builds a Router. Every route must resolve to a registered action.
func New(table *Table, controllers map[string]Controller, renderer Renderer, logger *zap.Logger, opts ...Option) (*Router, error) {
	r := &Router{
		table:       table,
		controllers: controllers,
		renderer:    renderer,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, e := range table.Entries() {
		if _, ok := r.action(e.Route); !ok {
			return nil, UnknownActionError{Pattern: e.Pattern, Controller: e.Route.Controller, Action: e.Route.Action}
		}
	}
	return r, nil
}

func (r *Router) action(route Route) (Action, bool) {
	c, ok := r.controllers[route.Controller]
	if !ok {
		return nil, false
	}
	return c.Action(route.Action)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m, ok := r.table.Match(req.URL.Path)
	if !ok {
		if r.serveStatic(w, req) {
			return
		}
		r.serveError(w, req, http.StatusNotFound, nil)
		return
	}

	route := m.Route
	if req.Method == http.MethodOptions && !route.Allows(http.MethodOptions) {
		w.Header().Set("Allow", route.AllowHeader())
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !route.Allows(req.Method) {
		w.Header().Set("Allow", route.AllowHeader())
		r.serveError(w, req, http.StatusMethodNotAllowed, nil)
		return
	}

	action, _ := r.action(route)
	ctx := r.newContext(w, req, route)
	ctx.Args = m.Args
	ctx.Vars = m.Vars

	if err := invoke(action, ctx); err != nil {
		r.logger.Error("action failed",
			zap.String("pattern", m.Pattern),
			zap.String("controller", route.Controller),
			zap.String("action", route.Action),
			zap.Error(err),
		)
		r.serveError(w, req, http.StatusInternalServerError, err)
	}
}

func (r *Router) newContext(w http.ResponseWriter, req *http.Request, route Route) *Context {
	return &Context{
		Response:   w,
		Request:    req,
		Route:      route,
		renderer:   r.renderer,
		showErrors: r.showErrors,
	}
}

func (r *Router) serveError(w http.ResponseWriter, req *http.Request, status int, cause error) {
	route, ok := r.table.ErrorRoute(status)
	if !ok {
		r.plainError(w, status, cause)
		return
	}

	action, _ := r.action(route)
	ctx := r.newContext(w, req, route)
	ctx.Status = status
	ctx.Err = cause

	if err := invoke(action, ctx); err != nil {
		r.logger.Error("error route failed", zap.Int("status", status), zap.Error(err))
		r.plainError(w, status, cause)
	}
}

func (r *Router) plainError(w http.ResponseWriter, status int, cause error) {
	msg := fmt.Sprintf("%d %s", status, http.StatusText(status))
	if r.showErrors && cause != nil {
		msg += "\n\n" + cause.Error()
	}
	http.Error(w, msg, status)
}

func invoke(action Action, ctx *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = PanicError{Value: rec}
		}
	}()
	return action(ctx)
}

// serveStatic serves an existing regular file below the static root.
// Dot-prefixed path segments are never served.
func (r *Router) serveStatic(w http.ResponseWriter, req *http.Request) bool {
	if r.staticDir == "" {
		return false
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}

	name := path.Clean("/" + req.URL.Path)
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}

	f, err := http.Dir(r.staticDir).Open(name)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("static file open failed", zap.String("path", name), zap.Error(err))
		}
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeContent(w, req, info.Name(), info.ModTime(), f)
	return true
}
