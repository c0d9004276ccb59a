// Package console renders kernel state for the CLI commands.
package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/router"
	"github.com/eugenenazirov/http-skeleton/internal/service"
)

// PrintRoutes writes the route table in lookup order.
func PrintRoutes(w io.Writer, table *router.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tPATTERN\tMETHODS\tCONTROLLER\tACTION\tTEMPLATE")
	for _, e := range table.Entries() {
		tmpl := e.Route.Template()
		if tmpl == "" {
			tmpl = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Kind,
			e.Pattern,
			strings.Join(e.Route.Methods, ","),
			e.Route.Controller,
			e.Route.Action,
			tmpl,
		)
	}
	return tw.Flush()
}

// PrintConfig writes the value at key (the whole tree when key is empty) as YAML.
func PrintConfig(w io.Writer, tree *config.Map, key string) error {
	v, ok := tree.Lookup(key)
	if !ok {
		return KeyNotFoundError{Key: key}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return enc.Close()
}

// PrintServices writes the service map.
func PrintServices(w io.Writer, descriptors []service.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tOPTIONS")
	for _, d := range descriptors {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.ID, d.Class, len(d.Options))
	}
	return tw.Flush()
}

// PrintSources lists the configuration layers in merge order.
func PrintSources(w io.Writer, sources []string) error {
	for i, s := range sources {
		if _, err := fmt.Fprintf(w, "# %d. %s\n", i+1, s); err != nil {
			return err
		}
	}
	return nil
}

// KeyNotFoundError occurs when a config path resolves to nothing.
type KeyNotFoundError struct {
	Key string
}

// Error implements the error interface.
func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("config key %q not found", e.Key)
}
