// Package view renders html/template files addressed as "file@layer".
//
// A layer is a named file system. The "kernel" layer ships embedded error
// pages; the "app" layer is the application's templates directory and is
// used when a reference names no layer.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/eugenenazirov/http-skeleton/internal/config"
)

// Layer names known to every engine.
const (
	LayerApp    = "app"
	LayerKernel = "kernel"
)

//go:embed templates
var kernelTemplates embed.FS

// KernelLayer returns the embedded kernel templates.
func KernelLayer() fs.FS {
	sub, err := fs.Sub(kernelTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Options configures an Engine.
type Options struct {
	Layers map[string]fs.FS
	// Globals are available in every template; per-call vars win.
	Globals        map[string]any
	CacheEnabled   bool
	TrimWhitespace bool
	Charset        string
}

// Engine is safe for concurrent use.
type Engine struct {
	layers         map[string]fs.FS
	globals        map[string]any
	cacheEnabled   bool
	trimWhitespace bool
	contentType    string

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New builds an Engine. The kernel layer is added unless Layers overrides it.
func New(opts Options) *Engine {
	layers := map[string]fs.FS{LayerKernel: KernelLayer()}
	for name, fsys := range opts.Layers {
		layers[name] = fsys
	}
	charset := opts.Charset
	if charset == "" {
		charset = "UTF-8"
	}
	return &Engine{
		layers:         layers,
		globals:        opts.Globals,
		cacheEnabled:   opts.CacheEnabled,
		trimWhitespace: opts.TrimWhitespace,
		contentType:    "text/html; charset=" + charset,
		cache:          make(map[string]*template.Template),
	}
}

// ParseRef splits "file@layer"; a missing layer means LayerApp.
func ParseRef(ref string) (file, layer string) {
	if i := strings.LastIndex(ref, "@"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, LayerApp
}

// Render executes ref and writes it with status. Nothing is written when
// the template fails, so callers may still fall back to another response.
func (e *Engine) Render(w http.ResponseWriter, status int, ref string, vars map[string]any) error {
	var buf bytes.Buffer
	if err := e.Execute(&buf, ref, vars); err != nil {
		return err
	}
	w.Header().Set("Content-Type", e.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// markupToken matches a whole pre or textarea element, whose whitespace is
// content, or a whitespace run.
var markupToken = regexp.MustCompile(`(?is)<pre\b.*?</pre\s*>|<textarea\b.*?</textarea\s*>|\s+`)

// trimMarkup drops whitespace runs that sit between two tags.
func trimMarkup(src []byte) []byte {
	src = bytes.TrimSpace(src)
	out := make([]byte, 0, len(src))
	last := 0
	for _, loc := range markupToken.FindAllIndex(src, -1) {
		start, end := loc[0], loc[1]
		if src[start] == '<' {
			continue
		}
		if start > 0 && src[start-1] == '>' && end < len(src) && src[end] == '<' {
			out = append(out, src[last:start]...)
			last = end
		}
	}
	return append(out, src[last:]...)
}

// Execute renders ref into w.
func (e *Engine) Execute(w io.Writer, ref string, vars map[string]any) error {
	tmpl, err := e.lookup(ref)
	if err != nil {
		return err
	}

	data := make(map[string]any, len(e.globals)+len(vars))
	for k, v := range e.globals {
		data[k] = v
	}
	for k, v := range vars {
		data[k] = v
	}

	if !e.trimWhitespace {
		if err := tmpl.Execute(w, data); err != nil {
			return fmt.Errorf("render %s: %w", ref, err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", ref, err)
	}
	_, err = w.Write(trimMarkup(buf.Bytes()))
	return err
}

func (e *Engine) lookup(ref string) (*template.Template, error) {
	if e.cacheEnabled {
		e.mu.RLock()
		tmpl, ok := e.cache[ref]
		e.mu.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	file, layer := ParseRef(ref)
	fsys, ok := e.layers[layer]
	if !ok {
		return nil, UnknownLayerError{Layer: layer, Ref: ref}
	}
	src, err := fs.ReadFile(fsys, path.Clean(file))
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", ref, err)
	}
	tmpl, err := template.New(path.Base(file)).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", ref, err)
	}

	if e.cacheEnabled {
		e.mu.Lock()
		e.cache[ref] = tmpl
		e.mu.Unlock()
	}
	return tmpl, nil
}

// UnknownLayerError occurs when a reference names a layer the engine lacks.
type UnknownLayerError struct {
	Layer string
	Ref   string
}

// Error implements the error interface.
func (e UnknownLayerError) Error() string {
	return fmt.Sprintf("template %s: unknown layer %q", e.Ref, e.Layer)
}

// Globals collects the template variables shared by every page: identity,
// locale, view.view_vars and the marketing scripts.
func Globals(cfg config.HTTP) map[string]any {
	g := map[string]any{
		"app_name":          cfg.Identity.AppName,
		"app_email":         cfg.Identity.Email,
		"app_phone":         cfg.Identity.Phone,
		"language":          cfg.Locale.Language,
		"charset":           cfg.Locale.Charset,
		"marketing_scripts": template.HTML(cfg.View.MarketingScripts),
	}
	for k, v := range cfg.View.ViewVars {
		g[k] = v
	}
	return g
}
