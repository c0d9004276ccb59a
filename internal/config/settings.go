package config

import (
	"time"
)

// HTTP aggregates the settings decoded from the merged HTTP configuration tree.
type HTTP struct {
	Identity     Identity     `config:"identity"`
	HTTP         HTTPSection  `config:"http"`
	Server       Server       `config:"server"`
	Locale       Locale       `config:"locale"`
	ErrorHandler ErrorHandler `config:"error_handler"`
	Session      Session      `config:"session"`
	Cookie       Cookie       `config:"cookie"`
	Mail         Mail         `config:"mail"`
	View         View         `config:"view"`
	Log          Log          `config:"log"`
	Maintenance  Maintenance  `config:"maintenance"`
	Webhooks     Webhooks     `config:"webhooks"`
}

// CLI aggregates the settings decoded from the merged CLI configuration tree.
type CLI struct {
	Identity     Identity     `config:"identity"`
	Locale       Locale       `config:"locale"`
	CLI          CLISection   `config:"cli"`
	Log          Log          `config:"log"`
	ErrorHandler ErrorHandler `config:"error_handler"`
	Maintenance  Maintenance  `config:"maintenance"`
}

type Identity struct {
	AppName string `config:"app_name"`
	Email   string `config:"email"`
	Phone   string `config:"phone"`
}

// HTTPSection controls base URL resolution.
type HTTPSection struct {
	BaseURL        string   `config:"base_url"`
	TrustProxy     bool     `config:"trust_proxy"`
	TrustedProxies []string `config:"trusted_proxies"`
}

// Server configures the listener and the middleware chain.
type Server struct {
	Addr                string        `config:"addr"`
	ReadHeaderTimeout   time.Duration `config:"read_header_timeout"`
	WriteTimeout        time.Duration `config:"write_timeout"`
	IdleTimeout         time.Duration `config:"idle_timeout"`
	ShutdownGracePeriod time.Duration `config:"shutdown_grace_period"`
	RequestLogging      bool          `config:"request_logging"`
	RateLimit           RateLimit     `config:"rate_limit"`
	CORS                CORS          `config:"cors"`
	Metrics             Metrics       `config:"metrics"`
}

// RateLimit disables the limiter when either value is zero.
type RateLimit struct {
	RPS   float64 `config:"rps"`
	Burst int     `config:"burst"`
}

type CORS struct {
	Enabled     bool   `config:"enabled"`
	AllowOrigin string `config:"allow_origin"`
}

type Metrics struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`
}

type Locale struct {
	Language string `config:"language"`
	Timezone string `config:"timezone"`
	Charset  string `config:"charset"`
}

// Location loads the configured timezone, defaulting to UTC.
func (l Locale) Location() (*time.Location, error) {
	if l.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(l.Timezone)
}

type ErrorHandler struct {
	LogFile   string `config:"log_file"`
	Recipient string `config:"recipient"`
	// Sender nil falls back to mail.from.email; an empty string disables the fallback.
	Sender        *string `config:"sender"`
	MaxLogSize    int64   `config:"max_log_size"`
	Template      string  `config:"template"`
	DisplayErrors *bool   `config:"display_errors"`
}

// ShowErrors reports whether error details may be exposed to clients.
// Unset means "only in dev".
func (e ErrorHandler) ShowErrors(env Environment) bool {
	if e.DisplayErrors != nil {
		return *e.DisplayErrors
	}
	return env.IsDev()
}

// SenderAddress resolves the error mail sender against the mail defaults.
func (e ErrorHandler) SenderAddress(mail Mail) string {
	if e.Sender == nil {
		return mail.From.Email
	}
	return *e.Sender
}

type Session struct {
	Name                string      `config:"name"`
	SavePath            string      `config:"save_path"`
	GCMaxLifetime       int         `config:"gc_maxlifetime"`
	UseStrictMode       bool        `config:"use_strict_mode"`
	UseOnlyCookies      bool        `config:"use_only_cookies"`
	LazyWrite           bool        `config:"lazy_write"`
	SIDLength           int         `config:"sid_length"`
	SIDBitsPerCharacter int         `config:"sid_bits_per_character"`
	CookieSecure        *bool       `config:"cookie_secure"`
	CookieHTTPOnly      bool        `config:"cookie_httponly"`
	CookieSameSite      string      `config:"cookie_samesite"`
	CookiePath          string      `config:"cookie_path"`
	CookieDomain        *string     `config:"cookie_domain"`
	RotateInterval      int         `config:"rotate_interval"`
	Fingerprint         Fingerprint `config:"fingerprint"`
}

type Fingerprint struct {
	BindUserAgent bool `config:"bind_user_agent"`
	BindIPOctets  int  `config:"bind_ip_octets"`
	BindIPBlocks  int  `config:"bind_ip_blocks"`
}

type Cookie struct {
	Secure   *bool  `config:"secure"`
	HTTPOnly bool   `config:"httponly"`
	SameSite string `config:"samesite"`
	Path     string `config:"path"`
	Domain   string `config:"domain"`
}

type Mail struct {
	From         Address `config:"from"`
	ReplyTo      Address `config:"reply_to"`
	Format       string  `config:"format"`
	Transport    string  `config:"transport"`
	SendmailPath string  `config:"sendmail_path"`
	SMTP         SMTP    `config:"smtp"`
}

type Address struct {
	Email string `config:"email"`
	Name  string `config:"name"`
}

type SMTP struct {
	Host       string    `config:"host"`
	Port       int       `config:"port"`
	Encryption string    `config:"encryption"`
	Auth       bool      `config:"auth"`
	Username   string    `config:"username"`
	Password   string    `config:"password"`
	AutoTLS    bool      `config:"auto_tls"`
	Timeout    int       `config:"timeout"`
	Keepalive  bool      `config:"keepalive"`
	Debug      SMTPDebug `config:"debug"`
}

type SMTPDebug struct {
	Level  int    `config:"level"`
	Output string `config:"output"`
}

type View struct {
	CacheEnabled       bool           `config:"cache_enabled"`
	TrimWhitespace     bool           `config:"trim_whitespace"`
	RemoveHTMLComments bool           `config:"remove_html_comments"`
	MarketingScripts   string         `config:"marketing_scripts"`
	ViewVars           map[string]any `config:"view_vars"`
}

type Log struct {
	DefaultFile string `config:"default_file"`
	// Level is one of debug, info, warn, error.
	Level string `config:"level"`
}

type Maintenance struct {
	Flag   MaintenanceFlag   `config:"flag"`
	Backup MaintenanceBackup `config:"backup"`
}

type MaintenanceFlag struct {
	Path              string   `config:"path"`
	Template          string   `config:"template"`
	AllowedIPs        []string `config:"allowed_ips"`
	DefaultRetryAfter int      `config:"default_retry_after"`
}

type MaintenanceBackup struct {
	Enabled bool   `config:"enabled"`
	Keep    int    `config:"keep"`
	Dir     string `config:"dir"`
}

type Webhooks struct {
	Enabled               bool     `config:"enabled"`
	TTLSeconds            int      `config:"ttl_seconds"`
	TTLClockSkewTolerance int      `config:"ttl_clock_skew_tolerance"`
	AllowedIPs            []string `config:"allowed_ips"`
	NonceDir              string   `config:"nonce_dir"`
}

// CLISection configures console output.
type CLISection struct {
	// ANSI nil means auto-detect from the terminal.
	ANSI      *bool `config:"ansi"`
	Verbosity int   `config:"verbosity"`
}
