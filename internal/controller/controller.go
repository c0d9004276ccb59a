// Package controller holds the application's page controllers.
package controller

import (
	"net/http"
	"strconv"

	"github.com/eugenenazirov/http-skeleton/internal/router"
)

// Names under which the controllers are registered with the router.
const (
	AppName    = "app"
	PublicName = "public"
)

// App serves the public pages. Template file and layer come from the route.
type App struct{}

// Actions exposes the controller to the router.
func (c App) Actions() router.Actions {
	return router.Actions{
		"index":      c.Index,
		"helloworld": c.Helloworld,
	}
}

// Index renders the home page with the public root URL as canonical link.
func (App) Index(ctx *router.Context) error {
	return ctx.Render(ctx.Template(), map[string]any{
		"canonical": ctx.PublicRootURL(),
	})
}

// Helloworld renders the hello world page.
func (App) Helloworld(ctx *router.Context) error {
	return ctx.Render(ctx.Template(), map[string]any{
		"canonical": ctx.PublicRootURL() + "/helloworld.html",
	})
}

// Public renders the generic error pages.
type Public struct{}

// Actions exposes the controller to the router.
func (c Public) Actions() router.Actions {
	return router.Actions{
		"errorPage": c.ErrorPage,
	}
}

// ErrorPage renders the route's error template. The status is the one the
// router dispatched with, or else the first route param.
func (Public) ErrorPage(ctx *router.Context) error {
	status := ctx.Status
	if status == 0 {
		status = statusFromParams(ctx.Route.Params)
		ctx.Status = status
	}
	return ctx.Render(ctx.Template(), map[string]any{
		"status":      status,
		"status_text": http.StatusText(status),
		"detail":      ctx.ErrorDetail(),
		"canonical":   ctx.PublicRootURL() + ctx.Request.URL.Path,
	})
}

func statusFromParams(params []any) int {
	if len(params) > 0 {
		switch v := params[0].(type) {
		case int:
			return v
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return http.StatusInternalServerError
}
