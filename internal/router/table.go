package router

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/eugenenazirov/http-skeleton/internal/config"
)

// Route is a single route table entry.
type Route struct {
	Controller    string   `config:"controller"`
	Action        string   `config:"action"`
	Methods       []string `config:"methods"`
	TemplateFile  string   `config:"template_file"`
	TemplateLayer string   `config:"template_layer"`
	Params        []any    `config:"params"`
}

// Template returns the "file@layer" reference of the route, or "" when the
// route names no template.
func (r Route) Template() string {
	if r.TemplateFile == "" {
		return ""
	}
	if r.TemplateLayer == "" {
		return r.TemplateFile
	}
	return r.TemplateFile + "@" + r.TemplateLayer
}

// Allows reports whether method is accepted by the route.
func (r Route) Allows(method string) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// AllowHeader is the value of the Allow header for the route.
func (r Route) AllowHeader() string {
	methods := append([]string(nil), r.Methods...)
	if !r.Allows(http.MethodOptions) {
		methods = append(methods, http.MethodOptions)
	}
	return strings.Join(methods, ", ")
}

// normalize upper-cases methods, defaults to GET and adds HEAD next to GET.
func (r *Route) normalize() {
	if len(r.Methods) == 0 {
		r.Methods = []string{http.MethodGet}
	}
	seen := make(map[string]bool, len(r.Methods)+1)
	methods := make([]string, 0, len(r.Methods)+1)
	for _, m := range r.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		methods = append(methods, m)
	}
	if seen[http.MethodGet] && !seen[http.MethodHead] {
		methods = append(methods, http.MethodHead)
	}
	r.Methods = methods
}

// Kind tells how an entry is matched.
type Kind string

const (
	KindExact Kind = "exact"
	KindRegex Kind = "regex"
	KindError Kind = "error"
)

// Entry is a route together with the key it was declared under.
type Entry struct {
	Kind    Kind
	Pattern string
	Route   Route
}

// Match is the outcome of a successful lookup.
type Match struct {
	Pattern string
	Route   Route
	// Args holds placeholder values in pattern order.
	Args []string
	// Vars maps placeholder names to their values.
	Vars map[string]string
}

type regexRoute struct {
	pattern string
	route   Route
	re      *regexp.Regexp
	names   []string
}

// Table is the compiled route table.
type Table struct {
	exact      map[string]Route
	exactOrder []string
	regex      []regexRoute
	errors     map[int]Route
}

// NewTable compiles the merged routes tree. Keys starting with "/" are exact
// routes, "regex" holds placeholder routes in declaration order and integer
// keys in 100..599 are error routes.
func NewTable(tree *config.Map) (*Table, error) {
	t := &Table{
		exact:  make(map[string]Route),
		errors: make(map[int]Route),
	}

	for _, key := range tree.Keys() {
		value, _ := tree.Get(key)
		switch {
		case key == "regex":
			if err := t.addRegex(value); err != nil {
				return nil, err
			}
		case strings.HasPrefix(key, "/"):
			route, err := decodeRoute(key, value)
			if err != nil {
				return nil, err
			}
			path := NormalizePath(key)
			if _, dup := t.exact[path]; !dup {
				t.exactOrder = append(t.exactOrder, path)
			}
			t.exact[path] = route
		default:
			status, err := strconv.Atoi(key)
			if err != nil || status < 100 || status > 599 {
				return nil, InvalidRouteKeyError{Key: key}
			}
			route, err := decodeRoute(key, value)
			if err != nil {
				return nil, err
			}
			t.errors[status] = route
		}
	}
	return t, nil
}

func (t *Table) addRegex(value any) error {
	if value == nil {
		return nil
	}
	patterns, ok := value.(*config.Map)
	if !ok {
		return InvalidRouteError{Key: "regex", Cause: fmt.Errorf("expected a mapping, got %T", value)}
	}
	for _, pattern := range patterns.Keys() {
		raw, _ := patterns.Get(pattern)
		route, err := decodeRoute(pattern, raw)
		if err != nil {
			return err
		}
		re, names, err := compilePattern(pattern)
		if err != nil {
			return InvalidRouteError{Key: pattern, Cause: err}
		}
		t.regex = append(t.regex, regexRoute{pattern: pattern, route: route, re: re, names: names})
	}
	return nil
}

func decodeRoute(key string, value any) (Route, error) {
	var route Route
	if err := config.DecodeValue(value, &route); err != nil {
		return Route{}, InvalidRouteError{Key: key, Cause: err}
	}
	if route.Controller == "" || route.Action == "" {
		return Route{}, InvalidRouteError{Key: key, Cause: fmt.Errorf("controller and action are required")}
	}
	route.normalize()
	return route, nil
}

// Match finds the route for path: exact routes first, then regex routes in
// declaration order.
func (t *Table) Match(path string) (Match, bool) {
	path = NormalizePath(path)
	if route, ok := t.exact[path]; ok {
		return Match{Pattern: path, Route: route}, true
	}
	for _, rr := range t.regex {
		sub := rr.re.FindStringSubmatch(path)
		if sub == nil {
			continue
		}
		m := Match{Pattern: rr.pattern, Route: rr.route, Vars: make(map[string]string, len(rr.names))}
		for i, name := range rr.names {
			v := sub[rr.re.SubexpIndex(groupName(i))]
			m.Args = append(m.Args, v)
			m.Vars[name] = v
		}
		return m, true
	}
	return Match{}, false
}

// ErrorRoute returns the error route declared for status.
func (t *Table) ErrorRoute(status int) (Route, bool) {
	r, ok := t.errors[status]
	return r, ok
}

// Entries lists the table: exact routes, regex routes, then error routes by status.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.exact)+len(t.regex)+len(t.errors))
	for _, p := range t.exactOrder {
		out = append(out, Entry{Kind: KindExact, Pattern: p, Route: t.exact[p]})
	}
	for _, rr := range t.regex {
		out = append(out, Entry{Kind: KindRegex, Pattern: rr.pattern, Route: rr.route})
	}
	for status := 100; status <= 599; status++ {
		if r, ok := t.errors[status]; ok {
			out = append(out, Entry{Kind: KindError, Pattern: strconv.Itoa(status), Route: r})
		}
	}
	return out
}

// NormalizePath trims one trailing slash; the root path is left alone.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}

var placeholderRE = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholder classes. Unknown names match a single path segment.
var placeholderClasses = map[string]string{
	"id":    `[0-9]+`,
	"email": `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+`,
	"slug":  `[a-zA-Z0-9_-]+`,
	"code":  `[a-zA-Z0-9]+`,
}

const defaultPlaceholderClass = `[^/]+`

// compilePattern anchors pattern and replaces each {name} with its class.
// Text outside placeholders is taken as a regular expression.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	var names []string
	expr := placeholderRE.ReplaceAllStringFunc(NormalizePath(pattern), func(tok string) string {
		name := tok[1 : len(tok)-1]
		class, ok := placeholderClasses[name]
		if !ok {
			class = defaultPlaceholderClass
		}
		group := groupName(len(names))
		names = append(names, name)
		return "(?P<" + group + ">" + class + ")"
	})
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, nil, err
	}
	return re, names, nil
}

func groupName(i int) string {
	return "p" + strconv.Itoa(i)
}
