package httpclient

import (
	"context"
	"net/http"
	"time"
)

// EphemeralBackend opens a fresh connection for every request: keep-alives
// are disabled so nothing is pooled between calls. Slower than
// PooledBackend, but with no shared connection state beyond the transport's
// own synchronization.
type EphemeralBackend struct {
	httpClient      *http.Client
	proxy           string
	proxyFromConfig bool
	timeout         time.Duration
}

// NewEphemeral creates an ephemeral backend, capturing the configured proxy
// the same way NewPooled does.
func NewEphemeral(opts ...Option) *EphemeralBackend {
	o := resolveOptions(opts)

	transport := &http.Transport{
		DisableKeepAlives: true,
		Proxy:             proxyFunc(o.proxy),
	}

	return &EphemeralBackend{
		httpClient:      &http.Client{Transport: transport},
		proxy:           o.proxy,
		proxyFromConfig: o.fromConfig,
		timeout:         o.timeout,
	}
}

func (b *EphemeralBackend) Proxy() string { return b.proxy }

func (b *EphemeralBackend) Do(ctx context.Context, req *Request) (*Response, error) {
	warnIfProxyStale(b.proxy, b.proxyFromConfig)
	return doHTTP(ctx, b.httpClient, req, requestTimeout(b.timeout))
}
