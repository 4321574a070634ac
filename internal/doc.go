// Package internal documents the Explore With Me service internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses and routing
// - domain: event, request, user and category lifecycles
// - stats: the hit statistics service and its HTTP client
// - storage: PostgreSQL repositories and migrations
// - jobs: River workers delivering hits
// - audit, config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
