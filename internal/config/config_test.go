package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func clearBootEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvEnvironment, EnvAppPath, EnvPublicPath, EnvPublicRootURL} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func strPtr(s string) *string { return &s }

func TestLoadBootDefaults(t *testing.T) {
	clearBootEnv(t)
	dir := t.TempDir()

	boot, err := LoadBoot(&CLIOverrides{AppPath: strPtr(dir)})
	if err != nil {
		t.Fatalf("LoadBoot returned error: %v", err)
	}

	if boot.Environment != Dev {
		t.Fatalf("expected default environment dev, got %s", boot.Environment)
	}
	if boot.PublicPath != filepath.Join(dir, "public") {
		t.Fatalf("unexpected public path: %s", boot.PublicPath)
	}
	if boot.PublicRootURL != "" {
		t.Fatalf("expected no public root URL, got %q", boot.PublicRootURL)
	}
	if boot.StartedAt.IsZero() {
		t.Fatalf("expected start time to be recorded")
	}
}

func TestLoadBootPrecedence(t *testing.T) {
	clearBootEnv(t)
	dir := t.TempDir()
	dotenv := "APP_ENV=prod\nAPP_PUBLIC_ROOT_URL=https://dotenv.example.com\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Run("dotenv fills unset variables", func(t *testing.T) {
		boot, err := LoadBoot(&CLIOverrides{AppPath: strPtr(dir)})
		if err != nil {
			t.Fatalf("LoadBoot returned error: %v", err)
		}
		if boot.Environment != Prod {
			t.Fatalf("expected prod from .env, got %s", boot.Environment)
		}
		if boot.PublicRootURL != "https://dotenv.example.com" {
			t.Fatalf("unexpected public root URL %q", boot.PublicRootURL)
		}
	})

	t.Run("environment overrides dotenv", func(t *testing.T) {
		t.Setenv(EnvEnvironment, "stage")
		boot, err := LoadBoot(&CLIOverrides{AppPath: strPtr(dir)})
		if err != nil {
			t.Fatalf("LoadBoot returned error: %v", err)
		}
		if boot.Environment != Stage {
			t.Fatalf("expected stage from environment, got %s", boot.Environment)
		}
	})

	t.Run("flags override everything", func(t *testing.T) {
		t.Setenv(EnvEnvironment, "stage")
		boot, err := LoadBoot(&CLIOverrides{
			AppPath:       strPtr(dir),
			Environment:   strPtr("dev"),
			PublicRootURL: strPtr("https://flag.example.com"),
		})
		if err != nil {
			t.Fatalf("LoadBoot returned error: %v", err)
		}
		if boot.Environment != Dev || boot.PublicRootURL != "https://flag.example.com" {
			t.Fatalf("expected flag values, got %+v", boot)
		}
	})
}

func TestLoadBootRejectsInvalidValues(t *testing.T) {
	clearBootEnv(t)
	dir := t.TempDir()

	_, err := LoadBoot(&CLIOverrides{AppPath: strPtr(dir), Environment: strPtr("qa")})
	if !errors.Is(err, ErrUnknownEnvironment) {
		t.Fatalf("expected ErrUnknownEnvironment, got %v", err)
	}

	if _, err := LoadBoot(&CLIOverrides{AppPath: strPtr(dir), PublicRootURL: strPtr("https://example.com/")}); err == nil {
		t.Fatalf("expected error for trailing slash")
	}
	if _, err := LoadBoot(&CLIOverrides{AppPath: strPtr(dir), PublicRootURL: strPtr("example.com")}); err == nil {
		t.Fatalf("expected error for relative URL")
	}
}

func TestLoadBootMissingExplicitEnvFile(t *testing.T) {
	clearBootEnv(t)
	if _, err := LoadBoot(&CLIOverrides{EnvFile: filepath.Join(t.TempDir(), "missing.env")}); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
}

func TestParseEnvironment(t *testing.T) {
	for _, raw := range []string{"dev", "STAGE", " prod "} {
		if _, err := ParseEnvironment(raw); err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
	}
	if _, err := ParseEnvironment(""); err == nil {
		t.Fatalf("expected error for empty environment")
	}
}

func TestErrorHandlerDefaults(t *testing.T) {
	var eh ErrorHandler
	if !eh.ShowErrors(Dev) || eh.ShowErrors(Prod) {
		t.Fatalf("expected display_errors to default to dev only")
	}

	off := false
	eh.DisplayErrors = &off
	if eh.ShowErrors(Dev) {
		t.Fatalf("expected explicit display_errors to win")
	}

	mail := Mail{From: Address{Email: "system@example.com"}}
	if got := eh.SenderAddress(mail); got != "system@example.com" {
		t.Fatalf("expected fallback sender, got %q", got)
	}
	empty := ""
	eh.Sender = &empty
	if got := eh.SenderAddress(mail); got != "" {
		t.Fatalf("expected disabled fallback, got %q", got)
	}
}

func TestHTTPValidate(t *testing.T) {
	yes := true
	testCases := []struct {
		name    string
		mutate  func(*HTTP)
		wantErr bool
	}{
		{name: "valid", mutate: func(*HTTP) {}},
		{name: "base url with trailing slash", mutate: func(c *HTTP) { c.HTTP.BaseURL = "https://example.com/" }, wantErr: true},
		{name: "invalid trusted proxy", mutate: func(c *HTTP) { c.HTTP.TrustedProxies = []string{"10.0.0.0/33"} }, wantErr: true},
		{name: "negative retry after", mutate: func(c *HTTP) { c.Maintenance.Flag.DefaultRetryAfter = -1 }, wantErr: true},
		{name: "samesite none without secure", mutate: func(c *HTTP) { c.Cookie.SameSite = "None" }, wantErr: true},
		{name: "samesite none with secure", mutate: func(c *HTTP) { c.Cookie.SameSite = "None"; c.Cookie.Secure = &yes }},
		{name: "unknown timezone", mutate: func(c *HTTP) { c.Locale.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "unknown transport", mutate: func(c *HTTP) { c.Mail.Transport = "pigeon" }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *HTTP) { c.Server.RateLimit.RPS = -1 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *HTTP) { c.Log.Level = "loud" }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := HTTP{
				HTTP:   HTTPSection{BaseURL: "https://www.example.com", TrustedProxies: []string{"10.0.0.0/8", "::1"}},
				Locale: Locale{Timezone: "Europe/Copenhagen"},
				Cookie: Cookie{SameSite: "Lax"},
			}
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestCLIValidate(t *testing.T) {
	if err := (CLI{CLI: CLISection{Verbosity: 4}}).Validate(); err == nil {
		t.Fatalf("expected error for verbosity 4")
	}
	if err := (CLI{CLI: CLISection{Verbosity: 3}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
