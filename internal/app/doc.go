// Package app wires the campaign cleaner server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, a YAML file and the environment
//	2. Initialize logging and OpenTelemetry
//	3. Open the upload and output stores (local disk or S3)
//	4. Open the batch summary store (memory or Redis)
//	5. Build the processor, dispatcher and services
//	6. Set up middleware and routes, then the HTTP server
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. Stop drains the HTTP server, stops the
// periodic cleanup, optionally purges every stored file, flushes telemetry
// and closes the stores and the Redis client.
//
// Errors are returned to the caller; the package never calls os.Exit.
package app
