package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/http-skeleton/internal/config"
	"github.com/eugenenazirov/http-skeleton/internal/router"
	"github.com/eugenenazirov/http-skeleton/internal/service"
)

func parse(t *testing.T, doc string) *config.Map {
	t.Helper()
	m, err := config.ParseBytes([]byte(doc))
	require.NoError(t, err)
	return m
}

func TestPrintRoutes(t *testing.T) {
	table, err := router.NewTable(parse(t, `
/:
  controller: app
  action: index
  template_file: public/index.html
  template_layer: app
regex:
  /user/{id}:
    controller: user
    action: show
    methods: [GET, POST]
404:
  controller: public
  action: errorPage
`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintRoutes(&buf, table))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "KIND"))
	require.Contains(t, lines[1], "public/index.html@app")
	require.Contains(t, lines[2], "/user/{id}")
	require.Contains(t, lines[2], "GET,POST,HEAD")
	require.True(t, strings.HasPrefix(lines[3], "error"))
}

func TestPrintConfig(t *testing.T) {
	tree := parse(t, "http:\n  base_url: https://www.example.com\n  trust_proxy: false\nidentity:\n  app_name: Demo\n")

	t.Run("whole tree keeps order", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintConfig(&buf, tree, ""))
		require.Equal(t, "http:\n  base_url: https://www.example.com\n  trust_proxy: false\nidentity:\n  app_name: Demo\n", buf.String())
	})

	t.Run("scalar key", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintConfig(&buf, tree, "identity.app_name"))
		require.Equal(t, "Demo\n", buf.String())
	})

	t.Run("missing key", func(t *testing.T) {
		var kerr KeyNotFoundError
		require.ErrorAs(t, PrintConfig(&bytes.Buffer{}, tree, "mail.smtp"), &kerr)
	})
}

func TestPrintServicesAndSources(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintServices(&buf, []service.Descriptor{{ID: "view", Class: "view.Engine"}}))
	require.Contains(t, buf.String(), "view.Engine")

	buf.Reset()
	require.NoError(t, PrintSources(&buf, []string{"baseline http.yaml", "/app/config/http.yaml"}))
	require.Equal(t, "# 1. baseline http.yaml\n# 2. /app/config/http.yaml\n", buf.String())
}
