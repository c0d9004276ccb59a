// Package application wires a booted kernel into a running HTTP server.
// It builds the service container, collects application and provider
// controllers, and wraps the router in the middleware chain. This keeps the
// main package focused on CLI parsing and orchestration.
package application
