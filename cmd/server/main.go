package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/http-skeleton/internal/application"
	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/console"
	"github.com/eugenenazirov/http-skeleton/internal/kernel"
	"github.com/eugenenazirov/http-skeleton/internal/logging"
	"github.com/eugenenazirov/http-skeleton/internal/router"
	"github.com/eugenenazirov/http-skeleton/internal/service"
)

var signalNotify = signal.Notify

type commandLine struct {
	app *kingpin.Application

	env           *string
	appPath       *string
	publicPath    *string
	publicRootURL *string
	envFile       *string

	serve    *kingpin.CmdClause
	routes   *kingpin.CmdClause
	config   *kingpin.CmdClause
	services *kingpin.CmdClause

	configKey     *string
	configCLI     *bool
	configSources *bool
}

func newCommandLine() *commandLine {
	c := &commandLine{app: kingpin.New("server", "HTTP application skeleton: layered configuration, routing and error pages")}

	c.env = c.app.Flag("env", "Environment: dev, stage or prod (APP_ENV)").String()
	c.appPath = c.app.Flag("app-path", "Application root containing config/ and templates/ (APP_PATH)").String()
	c.publicPath = c.app.Flag("public-path", "Public root served for static files (APP_PUBLIC_PATH)").String()
	c.publicRootURL = c.app.Flag("public-root-url", "Public base URL used verbatim in every environment (APP_PUBLIC_ROOT_URL)").String()
	c.envFile = c.app.Flag("env-file", "Path to a .env file").String()

	c.serve = c.app.Command("serve", "Start the HTTP server").Default()
	c.routes = c.app.Command("routes", "Print the merged route table")
	c.config = c.app.Command("config", "Print the merged configuration")
	c.configKey = c.config.Arg("key", "Dotted key to print, e.g. http.base_url").String()
	c.configCLI = c.config.Flag("cli", "Print the CLI configuration instead of the HTTP one").Bool()
	c.configSources = c.config.Flag("sources", "List the layers that were merged").Bool()
	c.services = c.app.Command("services", "Print the merged service map")

	return c
}

func (c *commandLine) overrides() *config.CLIOverrides {
	return &config.CLIOverrides{
		EnvFile:       *c.envFile,
		Environment:   optional(*c.env),
		AppPath:       optional(*c.appPath),
		PublicPath:    optional(*c.publicPath),
		PublicRootURL: optional(*c.publicRootURL),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func main() {
	cl := newCommandLine()
	command := kingpin.MustParse(cl.app.Parse(os.Args[1:]))

	boot, err := config.LoadBoot(cl.overrides())
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	if command != cl.serve.FullCommand() {
		if err := runConsole(cl, command, boot, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
			os.Exit(1)
		}
		return
	}

	k, err := kernel.Load(boot, kernel.ModeHTTP, application.Providers())
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := newLogger(k)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger.Debug("configuration loaded", zap.Strings("sources", k.Sources))

	app, err := application.New(k, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), k.HTTP.Server.ShutdownGracePeriod, logger)
}

func newLogger(k *kernel.Kernel) (*zap.Logger, error) {
	var (
		opts logging.Options
		err  error
	)
	switch k.Mode {
	case kernel.ModeCLI:
		opts, err = logging.ForCLI(k.CLI, k.Path(k.CLI.ErrorHandler.LogFile))
	default:
		opts, err = logging.ForHTTP(k.HTTP, k.Path(k.HTTP.ErrorHandler.LogFile))
	}
	if err != nil {
		return nil, err
	}
	return logging.New(opts)
}

// runConsole executes one of the inspection commands against a CLI-mode kernel.
func runConsole(cl *commandLine, command string, boot config.Boot, w io.Writer) error {
	k, err := kernel.Load(boot, kernel.ModeCLI, application.Providers())
	if err != nil {
		return err
	}
	logger, err := newLogger(k)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger.Debug("kernel booted",
		zap.String("env", boot.Environment.String()),
		zap.Strings("sources", k.Sources),
	)

	switch command {
	case cl.routes.FullCommand():
		table, err := router.NewTable(k.Routes)
		if err != nil {
			return err
		}
		return console.PrintRoutes(w, table)

	case cl.config.FullCommand():
		target := k
		if !*cl.configCLI {
			if target, err = kernel.Load(boot, kernel.ModeHTTP, application.Providers()); err != nil {
				return err
			}
		}
		if *cl.configSources {
			if err := console.PrintSources(w, target.Sources); err != nil {
				return err
			}
		}
		return console.PrintConfig(w, target.Tree, *cl.configKey)

	case cl.services.FullCommand():
		descriptors, err := service.ParseDescriptors(k.Services)
		if err != nil {
			return err
		}
		return console.PrintServices(w, descriptors)
	}
	return fmt.Errorf("unknown command %q", command)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
