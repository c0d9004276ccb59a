package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// Validate checks the HTTP settings for values the kernel cannot honour.
func (c HTTP) Validate() error {
	if c.HTTP.BaseURL != "" {
		if err := validateAbsoluteURL(c.HTTP.BaseURL); err != nil {
			return fmt.Errorf("http.base_url: %w", err)
		}
	}
	for _, p := range c.HTTP.TrustedProxies {
		if err := validateIPOrCIDR(p); err != nil {
			return fmt.Errorf("http.trusted_proxies: %w", err)
		}
	}
	if c.Server.RateLimit.RPS < 0 {
		return fmt.Errorf("server.rate_limit.rps must be >= 0")
	}
	if c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit.burst must be >= 0")
	}
	if c.Server.Metrics.Enabled && !strings.HasPrefix(c.Server.Metrics.Path, "/") {
		return fmt.Errorf("server.metrics.path must start with /")
	}
	if _, err := c.Locale.Location(); err != nil {
		return fmt.Errorf("locale.timezone: %w", err)
	}
	if err := validateSameSite("cookie", c.Cookie.SameSite, c.Cookie.Secure); err != nil {
		return err
	}
	if err := validateSameSite("session.cookie", c.Session.CookieSameSite, c.Session.CookieSecure); err != nil {
		return err
	}
	if err := c.Mail.validate(); err != nil {
		return err
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if c.Maintenance.Flag.DefaultRetryAfter < 0 {
		return fmt.Errorf("maintenance.flag.default_retry_after must be >= 0")
	}
	if c.Maintenance.Backup.Keep < 0 {
		return fmt.Errorf("maintenance.backup.keep must be >= 0")
	}
	if c.Webhooks.TTLSeconds < 0 || c.Webhooks.TTLClockSkewTolerance < 0 {
		return fmt.Errorf("webhooks ttl values must be >= 0")
	}
	return nil
}

// Validate checks the CLI settings.
func (c CLI) Validate() error {
	if c.CLI.Verbosity < 0 || c.CLI.Verbosity > 3 {
		return fmt.Errorf("cli.verbosity must be between 0 and 3, got %d", c.CLI.Verbosity)
	}
	if _, err := c.Locale.Location(); err != nil {
		return fmt.Errorf("locale.timezone: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return err
	}
	if c.Maintenance.Flag.DefaultRetryAfter < 0 {
		return fmt.Errorf("maintenance.flag.default_retry_after must be >= 0")
	}
	return nil
}

func (m Mail) validate() error {
	if m.Transport != "" && !slices.Contains([]string{"smtp", "mail", "sendmail", "qmail"}, m.Transport) {
		return fmt.Errorf("mail.transport %q is not supported", m.Transport)
	}
	if m.Format != "" && m.Format != "html" && m.Format != "text" {
		return fmt.Errorf("mail.format must be html or text, got %q", m.Format)
	}
	if m.SMTP.Encryption != "" && m.SMTP.Encryption != "tls" && m.SMTP.Encryption != "ssl" {
		return fmt.Errorf("mail.smtp.encryption must be tls, ssl or null, got %q", m.SMTP.Encryption)
	}
	if m.SMTP.Debug.Level < 0 || m.SMTP.Debug.Level > 4 {
		return fmt.Errorf("mail.smtp.debug.level must be between 0 and 4")
	}
	return nil
}

func (l Log) validate() error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log.level %q is not supported", l.Level)
	}
}

func validateSameSite(section, sameSite string, secure *bool) error {
	switch sameSite {
	case "", "Lax", "Strict":
		return nil
	case "None":
		if secure == nil || !*secure {
			return fmt.Errorf("%s: samesite None requires secure=true", section)
		}
		return nil
	default:
		return fmt.Errorf("%s: samesite must be Lax, Strict or None, got %q", section, sameSite)
	}
}

func validateIPOrCIDR(raw string) error {
	if strings.Contains(raw, "/") {
		if _, _, err := net.ParseCIDR(raw); err != nil {
			return fmt.Errorf("invalid CIDR %q", raw)
		}
		return nil
	}
	if net.ParseIP(raw) == nil {
		return fmt.Errorf("invalid IP %q", raw)
	}
	return nil
}
