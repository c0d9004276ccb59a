// Package baseurl decides the public root URL used for canonical links.
//
// An explicit boot value wins verbatim. Otherwise the configured
// http.base_url is used. Without either, dev derives the URL from each
// incoming request while stage and prod refuse to boot.
package baseurl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/eugenenazirov/http-skeleton/internal/config"
)

// ErrBaseURLRequired is returned outside dev when no absolute base URL is configured.
var ErrBaseURLRequired = errors.New("an absolute public base URL is required outside dev (set http.base_url or APP_PUBLIC_ROOT_URL)")

// Policy collects the inputs of the base URL decision.
type Policy struct {
	Environment    config.Environment
	Explicit       string
	Configured     string
	TrustProxy     bool
	TrustedProxies []string
}

// PolicyFrom builds a Policy from boot values and HTTP settings.
func PolicyFrom(boot config.Boot, cfg config.HTTPSection) Policy {
	return Policy{
		Environment:    boot.Environment,
		Explicit:       boot.PublicRootURL,
		Configured:     cfg.BaseURL,
		TrustProxy:     cfg.TrustProxy,
		TrustedProxies: cfg.TrustedProxies,
	}
}

// Resolver yields the public root URL for a request.
type Resolver struct {
	fixed      string
	trustProxy bool
	trusted    []*net.IPNet
}

// New applies the policy. It fails with ErrBaseURLRequired when stage or
// prod would need auto-detection.
func New(p Policy) (*Resolver, error) {
	r := &Resolver{trustProxy: p.TrustProxy}
	for _, raw := range p.TrustedProxies {
		n, err := parseNet(raw)
		if err != nil {
			return nil, err
		}
		r.trusted = append(r.trusted, n)
	}

	switch {
	case p.Explicit != "":
		r.fixed = p.Explicit
	case p.Configured != "":
		r.fixed = strings.TrimSuffix(p.Configured, "/")
	case p.Environment.IsDev():
	default:
		return nil, fmt.Errorf("%s: %w", p.Environment, ErrBaseURLRequired)
	}
	return r, nil
}

// Fixed returns the configured URL, if auto-detection is not in use.
func (r *Resolver) Fixed() (string, bool) {
	return r.fixed, r.fixed != ""
}

// Resolve returns the public root URL for req, without a trailing slash.
func (r *Resolver) Resolve(req *http.Request) string {
	if r.fixed != "" {
		return r.fixed
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	host := req.Host

	if r.trustProxy && r.fromTrustedProxy(req.RemoteAddr) {
		proto, fwdHost := forwardedValues(req.Header)
		if proto == "http" || proto == "https" {
			scheme = proto
		}
		if validHost(fwdHost) {
			host = fwdHost
		}
	}
	return scheme + "://" + host
}

// Middleware stores the resolved URL in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := WithContext(req.Context(), r.Resolve(req))
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func (r *Resolver) fromTrustedProxy(remoteAddr string) bool {
	if len(r.trusted) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range r.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// forwardedValues prefers RFC 7239 Forwarded over the X-Forwarded-* pair.
func forwardedValues(h http.Header) (proto, host string) {
	if fwd := h.Get("Forwarded"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		for _, pair := range strings.Split(first, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			v = strings.Trim(v, `"`)
			switch strings.ToLower(k) {
			case "proto":
				proto = strings.ToLower(v)
			case "host":
				host = v
			}
		}
		if proto != "" || host != "" {
			return proto, host
		}
	}

	proto = strings.ToLower(firstValue(h.Get("X-Forwarded-Proto")))
	host = firstValue(h.Get("X-Forwarded-Host"))
	return proto, host
}

func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

func validHost(h string) bool {
	return h != "" && !strings.ContainsAny(h, "/\\ @?#")
}

func parseNet(raw string) (*net.IPNet, error) {
	if strings.Contains(raw, "/") {
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		return n, nil
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, fmt.Errorf("invalid trusted proxy %q", raw)
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying url.
func WithContext(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, contextKey{}, url)
}

// FromContext returns the URL stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return ""
}
