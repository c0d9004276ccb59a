package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadBoot.
const (
	EnvEnvironment   = "APP_ENV"
	EnvAppPath       = "APP_PATH"
	EnvPublicPath    = "APP_PUBLIC_PATH"
	EnvPublicRootURL = "APP_PUBLIC_ROOT_URL"
)

// Boot holds the process-wide values fixed by the entry point before any
// configuration file is read.
type Boot struct {
	Environment Environment
	// AppPath is the application root containing config/ and templates/.
	AppPath string
	// PublicPath is the public root served for static files.
	PublicPath string
	// PublicRootURL, when set, is used verbatim as the public base URL in
	// every environment.
	PublicRootURL string
	StartedAt     time.Time
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	EnvFile       string
	Environment   *string
	AppPath       *string
	PublicPath    *string
	PublicRootURL *string
}

// LoadBoot resolves the boot values from multiple sources with precedence:
// CLI flags > Environment variables > .env file > Defaults
func LoadBoot(overrides *CLIOverrides) (Boot, error) {
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	wd, err := os.Getwd()
	if err != nil {
		return Boot{}, fmt.Errorf("resolve working directory: %w", err)
	}

	dotenv, err := readDotEnv(overrides, wd)
	if err != nil {
		return Boot{}, err
	}
	getenv := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}

	rawEnv := firstNonEmpty(deref(overrides.Environment), getenv(EnvEnvironment), string(Dev))
	env, err := ParseEnvironment(rawEnv)
	if err != nil {
		return Boot{}, err
	}

	appPath, err := filepath.Abs(firstNonEmpty(deref(overrides.AppPath), getenv(EnvAppPath), wd))
	if err != nil {
		return Boot{}, fmt.Errorf("resolve app path: %w", err)
	}
	publicPath, err := filepath.Abs(firstNonEmpty(deref(overrides.PublicPath), getenv(EnvPublicPath), filepath.Join(appPath, "public")))
	if err != nil {
		return Boot{}, fmt.Errorf("resolve public path: %w", err)
	}

	boot := Boot{
		Environment:   env,
		AppPath:       appPath,
		PublicPath:    publicPath,
		PublicRootURL: firstNonEmpty(deref(overrides.PublicRootURL), getenv(EnvPublicRootURL)),
		StartedAt:     time.Now(),
	}
	if err := validateBoot(boot); err != nil {
		return Boot{}, err
	}
	return boot, nil
}

// readDotEnv loads key/value pairs without touching the process environment.
// An explicit file must exist; the implicit one next to the app root is optional.
func readDotEnv(overrides *CLIOverrides, wd string) (map[string]string, error) {
	if overrides.EnvFile != "" {
		values, err := godotenv.Read(overrides.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		return values, nil
	}

	root := firstNonEmpty(deref(overrides.AppPath), os.Getenv(EnvAppPath), wd)
	values, err := godotenv.Read(filepath.Join(root, ".env"))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return values, nil
}

func validateBoot(b Boot) error {
	if b.PublicRootURL != "" {
		if err := validateAbsoluteURL(b.PublicRootURL); err != nil {
			return fmt.Errorf("%s: %w", EnvPublicRootURL, err)
		}
	}
	return nil
}

// validateAbsoluteURL checks for an absolute http(s) URL without a trailing slash.
func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("URL %q must be absolute (http or https)", raw)
	}
	if strings.HasSuffix(raw, "/") {
		return fmt.Errorf("URL %q must not end with a slash", raw)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
