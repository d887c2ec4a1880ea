package httpclient

import (
	"context"
	"net/http"
	"time"
)

// PooledBackend executes requests through a shared keep-alive connection
// pool. It is the default backend.
type PooledBackend struct {
	httpClient      *http.Client
	proxy           string
	proxyFromConfig bool
	timeout         time.Duration
}

// NewPooled creates a pooled backend. The proxy configured at this moment is
// captured for the life of the instance unless WithProxy overrides it.
func NewPooled(opts ...Option) *PooledBackend {
	o := resolveOptions(opts)

	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		Proxy:               proxyFunc(o.proxy),
	}

	return &PooledBackend{
		httpClient:      &http.Client{Transport: transport},
		proxy:           o.proxy,
		proxyFromConfig: o.fromConfig,
		timeout:         o.timeout,
	}
}

func (b *PooledBackend) Proxy() string { return b.proxy }

func (b *PooledBackend) Do(ctx context.Context, req *Request) (*Response, error) {
	warnIfProxyStale(b.proxy, b.proxyFromConfig)
	return doHTTP(ctx, b.httpClient, req, requestTimeout(b.timeout))
}
