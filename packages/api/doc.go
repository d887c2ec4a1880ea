// Package api is the payment API client layer.
//
// It issues requests through the configured HTTP backend, reading BaseURL,
// APIKey and MaxRetries from the current configuration on every call. Retry
// policy lives here and only here: connection failures are retried up to the
// configured count, backends never retry on their own.
package api
