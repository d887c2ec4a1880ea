// Package config holds the client configuration for paywire.
//
// Configuration is an explicit value, not a bag of package globals, but the
// process keeps one current snapshot that request paths read at call time.
// Each field documents whether it is read live on every request or captured
// once when a backend is constructed:
//   - BaseURL, APIKey, Backend, MaxRetries, Timeout: live
//   - Proxy: captured at backend construction; later changes are detected and
//     warned about, never silently picked up (see packages/httpclient)
package config
