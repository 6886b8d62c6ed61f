// Package internal documents the BomaniHosts backend internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: contact and account business logic
// - storage: PostgreSQL repositories and embedded migrations
// - email: SMTP and Resend delivery of contact notifications
// - auth, audit, config, metrics, ratelimit, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
