// Package httpclient provides the HTTP backends paywire requests go through.
//
// A Backend executes one HTTP request and returns the status and body. Every
// implementation is safe for concurrent use by any number of goroutines
// sharing one instance, never retries on its own, and never mutates the
// process configuration. Three capability-equivalent variants exist:
//   - PooledBackend: shared keep-alive connection pool (default)
//   - EphemeralBackend: a fresh connection per request
//   - RawBackend: dials TCP and speaks HTTP/1.1 directly
//
// Backends capture the configured proxy when they are constructed. If the
// current configuration's proxy later drifts from the captured value, the
// backend warns on each affected request and keeps using the captured proxy,
// so routing stays consistent for the life of the instance.
package httpclient
