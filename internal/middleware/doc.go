// Package middleware holds the HTTP middleware of the campaign cleaner
// server: request IDs, rate limiting, body limits, timeouts, CORS, security
// headers, OpenTelemetry instrumentation and JSON request validation.
//
// Panic recovery and request logging live in internal/errors so that they
// share the problem-details renderer with the handlers.
package middleware
