// Package config loads the application's configuration. Boot values (environment,
// paths, public root URL) are resolved with precedence: CLI flags > Environment
// variables > .env file > Defaults. Configuration files are ordered YAML trees
// merged layer by layer (last wins per key, maps recursive, lists replaced
// wholesale) and decoded into strongly typed settings.
package config
