package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/paywire/packages/config"
)

const (
	// DefaultTimeout is the request timeout used when neither the backend
	// nor the configuration sets one.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Backend executes HTTP requests. One instance may be shared by any number
// of concurrent callers; implementations must keep responses strictly paired
// with their requests and must not retry or mutate configuration.
type Backend interface {
	// Do executes req and returns the response or a classified *Error.
	Do(ctx context.Context, req *Request) (*Response, error)
	// Proxy returns the proxy URL captured when the backend was created,
	// empty for direct connections.
	Proxy() string
}

// Option configures a backend at construction time.
type Option func(*backendOptions)

type backendOptions struct {
	proxy      string
	proxySet   bool
	fromConfig bool
	timeout    time.Duration
}

// WithProxy fixes the proxy for this backend instance, overriding whatever
// the configuration holds at construction time.
func WithProxy(proxyURL string) Option {
	return func(o *backendOptions) {
		o.proxy = proxyURL
		o.proxySet = true
	}
}

// WithTimeout fixes the per-request timeout for this backend instance
// instead of reading the configured timeout at call time.
func WithTimeout(d time.Duration) Option {
	return func(o *backendOptions) {
		o.timeout = d
	}
}

// resolveOptions applies opts and captures the configured proxy when no
// explicit one was given. A capture from configuration is what stale-proxy
// detection compares against later; an explicit WithProxy is a deliberate
// choice and is never reported as drift.
func resolveOptions(opts []Option) backendOptions {
	var o backendOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.proxySet {
		o.proxy = config.Current().Proxy
		o.fromConfig = true
	}
	return o
}

// New builds the backend variant named by cfg.Backend.
func New(cfg *config.Config, opts ...Option) (Backend, error) {
	switch cfg.Backend {
	case config.BackendPooled, "":
		return NewPooled(opts...), nil
	case config.BackendEphemeral:
		return NewEphemeral(opts...), nil
	case config.BackendRaw:
		return NewRaw(opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

var (
	defaultMu      sync.Mutex
	defaultBackend Backend
)

// Default returns the process-wide backend, creating it from the current
// configuration on first use. The created instance captures the proxy active
// at that moment.
func Default() Backend {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBackend == nil {
		b, err := New(config.Current())
		if err != nil {
			b = NewPooled()
		}
		defaultBackend = b
	}
	return defaultBackend
}

// SetDefault replaces the process-wide backend and returns the previous one.
// Passing nil resets it so the next Default call rebuilds from configuration.
func SetDefault(b Backend) Backend {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultBackend
	defaultBackend = b
	return prev
}

// warnIfProxyStale compares the proxy captured from configuration against
// the one configured right now and emits the stale-configuration diagnostic
// on mismatch. Backends created with an explicit WithProxy never warn, and
// the backend keeps using its captured proxy either way.
func warnIfProxyStale(captured string, fromConfig bool) {
	if !fromConfig {
		return
	}
	if config.Current().Proxy != captured {
		config.Warn("proxy was updated after sending a request; this client " +
			"keeps the proxy it was created with. Create a new client to pick " +
			"up the new proxy")
	}
}

// ValidateURL checks that a URL is absolute and uses an allowed scheme.
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// requestTimeout picks the effective timeout: the backend's fixed one when
// set, otherwise the configured Timeout read at call time.
func requestTimeout(fixed time.Duration) time.Duration {
	if fixed > 0 {
		return fixed
	}
	if ms := config.Current().Timeout; ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return DefaultTimeout
}

// doHTTP executes req through an *http.Client. PooledBackend and
// EphemeralBackend share this path; they differ only in transport setup.
func doHTTP(ctx context.Context, hc *http.Client, req *Request, timeout time.Duration) (*Response, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, classify(req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, malformed(req.Method, req.URL, err)
	}

	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
	}, nil
}

// proxyFunc converts a captured proxy string into a transport proxy
// function, nil for direct connections.
func proxyFunc(proxy string) func(*http.Request) (*neturl.URL, error) {
	if proxy == "" {
		return nil
	}
	u, err := neturl.Parse(proxy)
	if err != nil {
		return nil
	}
	return http.ProxyURL(u)
}
