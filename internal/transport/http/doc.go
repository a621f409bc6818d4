// Package http implements the HTTP handlers of the campaign cleaner.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result. Errors are passed to the shared
// errors.ErrorHandler, which renders RFC 7807 problem documents.
//
// Routes:
//
//	POST /api/upload               multipart upload, field files[]
//	POST /api/process              {"files": [...]}, runs one cleaning batch
//	GET  /api/batches/{id}         stored batch summary
//	GET  /api/download/{filename}  cleaned CSV with an ETag
//	GET  /api/health[/ready|/live] health checks
//	GET  /api/version              build information
//	GET  /metrics                  Prometheus exposition
package http
