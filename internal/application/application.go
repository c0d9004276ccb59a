package application

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eugenenazirov/http-skeleton/internal/baseurl"
	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/controller"
	"github.com/eugenenazirov/http-skeleton/internal/kernel"
	"github.com/eugenenazirov/http-skeleton/internal/middleware"
	"github.com/eugenenazirov/http-skeleton/internal/provider"
	"github.com/eugenenazirov/http-skeleton/internal/provider/health"
	"github.com/eugenenazirov/http-skeleton/internal/router"
	"github.com/eugenenazirov/http-skeleton/internal/service"
	"github.com/eugenenazirov/http-skeleton/internal/view"
)

// ViewService is the service id the router renders through.
const ViewService = "view"

// App encapsulates the booted kernel, its services and the HTTP server.
type App struct {
	kernel   *kernel.Kernel
	logger   *zap.Logger
	services *service.Container
	router   *router.Router
	metrics  *middleware.Metrics
	handler  http.Handler
	server   *http.Server
}

// Providers returns the registry of every provider the binary ships with.
// Only those named in config/providers.yaml are loaded.
func Providers() *provider.Registry {
	registry, err := provider.NewRegistry(health.Provider())
	if err != nil {
		panic(fmt.Sprintf("built-in providers: %v", err))
	}
	return registry
}

// Factories returns the service classes the container can construct.
func Factories() map[string]service.Factory {
	return map[string]service.Factory{
		"view.Engine": newViewEngine,
	}
}

// New wires the application from a kernel booted in HTTP mode.
func New(k *kernel.Kernel, logger *zap.Logger) (*App, error) {
	if k.Mode != kernel.ModeHTTP {
		return nil, fmt.Errorf("application requires kernel mode %q, got %q", kernel.ModeHTTP, k.Mode)
	}
	cfg := k.HTTP

	a := &App{kernel: k, logger: logger}

	descriptors, err := service.ParseDescriptors(k.Services)
	if err != nil {
		return nil, fmt.Errorf("failed to read service map: %w", err)
	}
	a.services, err = service.NewContainer(a, descriptors, Factories())
	if err != nil {
		return nil, fmt.Errorf("failed to build service container: %w", err)
	}
	renderer, err := service.Get[router.Renderer](a.services, ViewService)
	if err != nil {
		return nil, fmt.Errorf("failed to construct renderer: %w", err)
	}

	controllers, err := Controllers(k)
	if err != nil {
		return nil, err
	}
	table, err := router.NewTable(k.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}
	a.router, err = router.New(table, controllers, renderer, logger,
		router.WithStaticDir(k.Boot.PublicPath),
		router.WithErrorDetails(cfg.ErrorHandler.ShowErrors(k.Boot.Environment)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	resolver, err := baseurl.New(baseurl.PolicyFrom(k.Boot, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve public root URL: %w", err)
	}

	opts := []middleware.Option{
		middleware.WithLogging(cfg.Server.RequestLogging),
		middleware.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
		middleware.WithCORS(cfg.Server.CORS),
		middleware.WithBaseURL(resolver),
	}
	if cfg.Server.Metrics.Enabled {
		a.metrics = middleware.NewMetrics("skeleton")
		opts = append(opts, middleware.WithMetrics(a.metrics))
	}
	a.handler = BuildRootHandler(middleware.Chain(a.router, logger, opts...), a.metrics, cfg.Server.Metrics.Path)
	a.server = NewServer(cfg.Server, a.handler)

	if url, ok := resolver.Fixed(); ok {
		logger.Info("public root URL", zap.String("url", url))
	} else {
		logger.Info("public root URL auto-detected per request", zap.String("env", k.Boot.Environment.String()))
	}
	return a, nil
}

// Controllers collects the application controllers and those of every
// loaded provider. A name may be registered only once.
func Controllers(k *kernel.Kernel) (map[string]router.Controller, error) {
	out := map[string]router.Controller{
		controller.AppName:    controller.App{}.Actions(),
		controller.PublicName: controller.Public{}.Actions(),
	}
	for _, p := range k.Providers {
		if p.Controllers == nil {
			continue
		}
		for name, c := range p.Controllers(k.Tree) {
			if _, ok := out[name]; ok {
				return nil, fmt.Errorf("provider %s: controller %q already registered", p.Name, name)
			}
			out[name] = c
		}
	}
	return out, nil
}

// BuildRootHandler mounts the metrics endpoint next to the routed application.
func BuildRootHandler(appHandler http.Handler, metrics *middleware.Metrics, metricsPath string) http.Handler {
	if metrics == nil || metricsPath == "" {
		return appHandler
	}
	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler())
	mux.Handle("/", appHandler)
	return mux
}

// NewServer creates and configures an HTTP server from the server settings.
func NewServer(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.String("env", a.kernel.Boot.Environment.String()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the fully wrapped root handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Services returns the service container.
func (a *App) Services() *service.Container {
	return a.services
}

// Boot implements service.App.
func (a *App) Boot() config.Boot {
	return a.kernel.Boot
}

// Settings implements service.App.
func (a *App) Settings() config.HTTP {
	return a.kernel.HTTP
}

// Logger implements service.App.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

type viewOptions struct {
	// Layers maps extra layer names to directories relative to the app root.
	Layers         map[string]string `config:"layers"`
	CacheEnabled   *bool             `config:"cache_enabled"`
	TrimWhitespace *bool             `config:"trim_whitespace"`
}

// newViewEngine builds the template renderer. The app layer is
// <app>/templates; view settings come from the HTTP config unless the
// service options override them.
func newViewEngine(app service.App, options map[string]any) (any, error) {
	var opts viewOptions
	if err := config.DecodeValue(options, &opts); err != nil {
		return nil, err
	}

	cfg := app.Settings()
	root := app.Boot().AppPath
	layers := map[string]fs.FS{view.LayerApp: os.DirFS(filepath.Join(root, "templates"))}
	for name, dir := range opts.Layers {
		if name == view.LayerKernel {
			return nil, fmt.Errorf("layer %q is reserved", name)
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		layers[name] = os.DirFS(dir)
	}

	cache, trim := cfg.View.CacheEnabled, cfg.View.TrimWhitespace
	if opts.CacheEnabled != nil {
		cache = *opts.CacheEnabled
	}
	if opts.TrimWhitespace != nil {
		trim = *opts.TrimWhitespace
	}

	return view.New(view.Options{
		Layers:         layers,
		Globals:        view.Globals(cfg),
		CacheEnabled:   cache,
		TrimWhitespace: trim,
		Charset:        cfg.Locale.Charset,
	}), nil
}
