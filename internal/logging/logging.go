package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/http-skeleton/internal/config"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error; empty means info.
	Level string
	// Encoding is "json" (default) or "console".
	Encoding string
	// Color enables ANSI level colours for the console encoding.
	Color bool
	// ErrorFile additionally receives every entry at error level and above.
	ErrorFile string
	// Location is the timezone timestamps are written in; nil means UTC.
	Location *time.Location
	// OutputPaths overrides the default stderr sink.
	OutputPaths []string
}

// New creates a structured logger. The default is the production JSON
// configuration with ISO8601 timestamps.
func New(opts Options) (*zap.Logger, error) {
	levelText := opts.Level
	if levelText == "" {
		levelText = "info"
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = timeEncoder(loc)
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false
	if opts.Encoding == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if opts.Color {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if opts.ErrorFile != "" {
		fileCore, err := errorFileCore(opts.ErrorFile, loc)
		if err != nil {
			return nil, err
		}
		logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}
	return logger, nil
}

func errorFileCore(path string, loc *time.Location) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create error log directory: %w", err)
	}
	sink, _, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open error log: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = timeEncoder(loc)
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zapcore.ErrorLevel), nil
}

func timeEncoder(loc *time.Location) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		zapcore.ISO8601TimeEncoder(t.In(loc), enc)
	}
}

// ForHTTP derives server logger options from the HTTP settings. errorFile
// must already be resolved against the application root.
func ForHTTP(cfg config.HTTP, errorFile string) (Options, error) {
	loc, err := cfg.Locale.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Level:     cfg.Log.Level,
		Encoding:  "json",
		ErrorFile: errorFile,
		Location:  loc,
	}, nil
}

// ForCLI derives console logger options from the CLI settings. Verbosity
// picks the level; colour follows cli.ansi or, when unset, whether stderr
// is a terminal.
func ForCLI(cfg config.CLI, errorFile string) (Options, error) {
	loc, err := cfg.Locale.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Level:     VerbosityLevel(cfg.CLI.Verbosity),
		Encoding:  "console",
		Color:     ColorEnabled(cfg.CLI.ANSI, os.Stderr.Fd()),
		ErrorFile: errorFile,
		Location:  loc,
	}, nil
}

// VerbosityLevel maps cli.verbosity 0..3 to a level name.
func VerbosityLevel(v int) string {
	switch {
	case v <= 0:
		return "error"
	case v == 1:
		return "warn"
	case v == 2:
		return "info"
	default:
		return "debug"
	}
}

// ColorEnabled honours an explicit setting and otherwise detects a terminal on fd.
func ColorEnabled(ansi *bool, fd uintptr) bool {
	if ansi != nil {
		return *ansi
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
