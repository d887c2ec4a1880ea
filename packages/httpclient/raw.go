package httpclient

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"
)

// RawBackend dials TCP itself and speaks HTTP/1.1 over the connection, one
// connection per request. It exists as the lowest-level capability-equivalent
// variant; it holds no state between requests, so instances are trivially
// safe to share.
//
// Through a proxy it sends absolute-form request targets; https through a
// proxy (CONNECT tunneling) is not supported.
type RawBackend struct {
	proxy           string
	proxyFromConfig bool
	timeout         time.Duration
}

// NewRaw creates a raw backend, capturing the configured proxy the same way
// NewPooled does.
func NewRaw(opts ...Option) *RawBackend {
	o := resolveOptions(opts)
	return &RawBackend{proxy: o.proxy, proxyFromConfig: o.fromConfig, timeout: o.timeout}
}

func (b *RawBackend) Proxy() string { return b.proxy }

func (b *RawBackend) Do(ctx context.Context, req *Request) (*Response, error) {
	warnIfProxyStale(b.proxy, b.proxyFromConfig)

	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}
	u, err := neturl.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	timeout := requestTimeout(b.timeout)
	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	addr, useProxy, err := b.dialTarget(u)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classify(req.Method, req.URL, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	if u.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: u.Hostname()})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, classify(req.Method, req.URL, err)
		}
		conn = tlsConn
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequest(req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	// One request per connection; the server closing after the body marks
	// the end of the response.
	httpReq.Close = true

	start := time.Now()
	if useProxy {
		err = httpReq.WriteProxy(conn)
	} else {
		err = httpReq.Write(conn)
	}
	if err != nil {
		return nil, classify(req.Method, req.URL, err)
	}

	httpResp, err := http.ReadResponse(bufio.NewReader(conn), httpReq)
	if err != nil {
		return nil, readError(req, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, readError(req, err)
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

// readError separates transport-level read failures (timeouts, resets) from
// genuinely unparseable responses.
func readError(req *Request, err error) *Error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return classify(req.Method, req.URL, err)
	}
	return malformed(req.Method, req.URL, err)
}

// dialTarget resolves the address to dial and whether the request must be
// written in proxy (absolute-form) style.
func (b *RawBackend) dialTarget(u *neturl.URL) (addr string, useProxy bool, err error) {
	if b.proxy != "" {
		if u.Scheme == "https" {
			return "", false, fmt.Errorf("raw backend does not support https through a proxy")
		}
		pu, err := neturl.Parse(b.proxy)
		if err != nil {
			return "", false, fmt.Errorf("invalid proxy URL %q: %w", b.proxy, err)
		}
		return hostPort(pu), true, nil
	}
	return hostPort(u), false, nil
}

func hostPort(u *neturl.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}
