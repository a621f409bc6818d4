// Package errors renders API failures as RFC 7807 problem details.
//
// Handlers return either an *APIError or a plain error from a lower layer.
// ErrorHandler.HandleError maps known sentinels (missing batches and files,
// invalid names, rejected uploads, oversized bodies) to their status codes
// and hides everything else behind a generic 500.
package errors
