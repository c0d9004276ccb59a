// Package kernel boots the application: it resolves the provider whitelist
// and builds the merged configuration, route and service trees.
//
// Every tree is layered the same way, last layer winning per key: the
// embedded baseline, then each whitelisted provider in list order, then the
// application's base file and finally its environment overlay. Missing and
// empty layers are skipped, so an empty overlay never removes anything.
package kernel

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/provider"
)

// Mode selects which configuration family is loaded.
type Mode string

const (
	ModeHTTP Mode = "http"
	ModeCLI  Mode = "cli"
)

//go:embed baseline/*.yaml
var baseline embed.FS

// Kernel is the booted state shared by the HTTP server and CLI commands.
type Kernel struct {
	Boot      config.Boot
	Mode      Mode
	Providers []provider.Provider
	// Tree is the merged configuration of Mode.
	Tree *config.Map
	// HTTP is decoded in ModeHTTP, CLI in ModeCLI.
	HTTP     config.HTTP
	CLI      config.CLI
	Routes   *config.Map
	Services *config.Map
	// Sources names the configuration layers that contributed to Tree.
	Sources []string
}

// Load boots the kernel for mode.
func Load(boot config.Boot, mode Mode, registry *provider.Registry) (*Kernel, error) {
	if mode != ModeHTTP && mode != ModeCLI {
		return nil, fmt.Errorf("unknown kernel mode %q", mode)
	}

	names, err := readProviderList(filepath.Join(boot.AppPath, "config", "providers.yaml"))
	if err != nil {
		return nil, err
	}
	providers, err := registry.Resolve(names)
	if err != nil {
		return nil, err
	}

	k := &Kernel{Boot: boot, Mode: mode, Providers: providers}
	configDir := filepath.Join(boot.AppPath, "config")
	env := boot.Environment.String()

	cfg := newStack()
	if err := cfg.addEmbedded(string(mode) + ".yaml"); err != nil {
		return nil, err
	}
	for _, p := range providers {
		doc := p.HTTPConfig
		if mode == ModeCLI {
			doc = p.CLIConfig
		}
		if err := cfg.addBytes("provider "+p.Name, doc); err != nil {
			return nil, err
		}
	}
	if err := cfg.addFiles(
		filepath.Join(configDir, string(mode)+".yaml"),
		filepath.Join(configDir, string(mode)+"."+env+".yaml"),
	); err != nil {
		return nil, err
	}
	k.Tree, k.Sources = cfg.merge(), cfg.sources

	routes := newStack()
	if err := routes.addEmbedded("routes.yaml"); err != nil {
		return nil, err
	}
	for _, p := range providers {
		if err := routes.addBytes("provider "+p.Name+" routes", p.Routes); err != nil {
			return nil, err
		}
	}
	if err := routes.addFiles(
		filepath.Join(configDir, "routes.yaml"),
		filepath.Join(configDir, "routes."+env+".yaml"),
	); err != nil {
		return nil, err
	}
	k.Routes = routes.merge()

	services := newStack()
	if err := services.addEmbedded("services.yaml"); err != nil {
		return nil, err
	}
	for _, p := range providers {
		if err := services.addBytes("provider "+p.Name+" services", p.Services); err != nil {
			return nil, err
		}
	}
	if err := services.addFiles(filepath.Join(configDir, "services.yaml")); err != nil {
		return nil, err
	}
	k.Services = services.merge()

	if err := k.decode(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kernel) decode() error {
	switch k.Mode {
	case ModeHTTP:
		if err := k.Tree.Decode(&k.HTTP); err != nil {
			return err
		}
		if err := k.HTTP.Validate(); err != nil {
			return fmt.Errorf("invalid http config: %w", err)
		}
	case ModeCLI:
		if err := k.Tree.Decode(&k.CLI); err != nil {
			return err
		}
		if err := k.CLI.Validate(); err != nil {
			return fmt.Errorf("invalid cli config: %w", err)
		}
	}
	return nil
}

// Path resolves p against the application root unless it is absolute.
func (k *Kernel) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(k.Boot.AppPath, p)
}

// readProviderList reads the whitelist. A missing file means no providers.
func readProviderList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, config.FileError{Path: path, Cause: config.InvalidYamlError{Cause: err}}
	}
	return names, nil
}

// stack collects the non-empty layers of one tree.
type stack struct {
	layers  []*config.Map
	sources []string
}

func newStack() *stack {
	return &stack{}
}

func (s *stack) push(source string, m *config.Map) {
	if m.Len() == 0 {
		return
	}
	s.layers = append(s.layers, m)
	s.sources = append(s.sources, source)
}

func (s *stack) addEmbedded(name string) error {
	doc, err := baseline.ReadFile("baseline/" + name)
	if err != nil {
		return err
	}
	return s.addBytes("baseline "+name, doc)
}

func (s *stack) addBytes(source string, doc []byte) error {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil
	}
	m, err := config.ParseBytes(doc)
	if err != nil {
		return config.FileError{Path: source, Cause: err}
	}
	s.push(source, m)
	return nil
}

func (s *stack) addFiles(paths ...string) error {
	for _, path := range paths {
		m, found, err := config.ReadFile(path)
		if err != nil {
			return err
		}
		if found {
			s.push(path, m)
		}
	}
	return nil
}

func (s *stack) merge() *config.Map {
	return config.Merge(s.layers...)
}
