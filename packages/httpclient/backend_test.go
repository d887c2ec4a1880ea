package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/paywire/packages/config"
	"github.com/abdul-hamid-achik/paywire/packages/mock"
)

// setTestConfig installs a fresh configuration for the test and restores the
// previous one afterwards.
func setTestConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	prev := config.Set(cfg)
	t.Cleanup(func() { config.Set(prev) })
}

// captureWarnings collects configuration warnings emitted during the test.
func captureWarnings(t *testing.T) func() []string {
	t.Helper()
	var mu sync.Mutex
	var warnings []string
	prev := config.SetWarnFunc(func(msg string) {
		mu.Lock()
		warnings = append(warnings, msg)
		mu.Unlock()
	})
	t.Cleanup(func() { config.SetWarnFunc(prev) })
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), warnings...)
	}
}

func allBackends(t *testing.T) map[string]Backend {
	t.Helper()
	return map[string]Backend{
		"pooled":    NewPooled(),
		"ephemeral": NewEphemeral(),
		"raw":       NewRaw(),
	}
}

func TestBackends_Get(t *testing.T) {
	setTestConfig(t, nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/v1/balance", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"object": "balance"}`))
	}))
	defer server.Close()

	for name, backend := range allBackends(t) {
		t.Run(name, func(t *testing.T) {
			req := NewRequest("GET", server.URL+"/v1/balance").
				SetHeader("Authorization", "Bearer sk_test_123")

			resp, err := backend.Do(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, 200, resp.StatusCode)
			assert.True(t, resp.IsSuccess())
			assert.True(t, resp.IsJSON())
			assert.Contains(t, resp.BodyString(), "balance")
		})
	}
}

func TestBackends_ThreadSafety(t *testing.T) {
	setTestConfig(t, nil)

	for name, backend := range allBackends(t) {
		t.Run(name, func(t *testing.T) {
			server := mock.NewServer(mock.WithSequenceNumbers())
			require.NoError(t, server.Start())
			defer server.Close()

			const n = 10

			var (
				mu   sync.Mutex
				seen = make(map[int]bool)
				wg   sync.WaitGroup
			)

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					resp, err := backend.Do(context.Background(), NewRequest("GET", server.URL()+"/v1/balance"))
					if !assert.NoError(t, err) {
						return
					}

					doc, err := resp.BodyJSON()
					if !assert.NoError(t, err) {
						return
					}
					reqNum, ok := doc["req_num"].(float64)
					if !assert.True(t, ok, "response missing req_num: %s", resp.BodyString()) {
						return
					}

					mu.Lock()
					assert.False(t, seen[int(reqNum)], "response %d delivered twice", int(reqNum))
					seen[int(reqNum)] = true
					mu.Unlock()
				}()
			}
			wg.Wait()

			// server should have seen n unique requests
			assert.Equal(t, n, server.Requests())
			// client should have seen n unique responses
			assert.Len(t, seen, n)
		})
	}
}

func TestBackends_Timeout(t *testing.T) {
	setTestConfig(t, nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	backends := map[string]Backend{
		"pooled":    NewPooled(WithTimeout(50 * time.Millisecond)),
		"ephemeral": NewEphemeral(WithTimeout(50 * time.Millisecond)),
		"raw":       NewRaw(WithTimeout(50 * time.Millisecond)),
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Do(context.Background(), NewRequest("GET", server.URL))
			require.Error(t, err)
			assert.True(t, IsTimeout(err), "expected timeout kind, got: %v", err)
		})
	}
}

func TestBackends_ConnectionRefused(t *testing.T) {
	setTestConfig(t, nil)

	// Grab a port that is free, then release it so connections are refused.
	server := mock.NewServer()
	require.NoError(t, server.Start())
	deadURL := server.URL()
	require.NoError(t, server.Close())

	for name, backend := range allBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Do(context.Background(), NewRequest("GET", deadURL+"/v1/balance"))
			require.Error(t, err)
			assert.True(t, IsConnection(err), "expected connection kind, got: %v", err)
		})
	}
}

func TestWithProxy_RoutesThroughProxy(t *testing.T) {
	setTestConfig(t, nil)

	proxy := mock.NewServer()
	require.NoError(t, proxy.Start())
	defer proxy.Close()

	backends := map[string]Backend{
		"pooled":    NewPooled(WithProxy(proxy.URL())),
		"ephemeral": NewEphemeral(WithProxy(proxy.URL())),
		"raw":       NewRaw(WithProxy(proxy.URL())),
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			before := proxy.Requests()

			resp, err := backend.Do(context.Background(), NewRequest("GET", "http://upstream.invalid/v1/balance"))
			require.NoError(t, err)

			assert.Equal(t, 200, resp.StatusCode)
			assert.Equal(t, proxy.URL(), backend.Proxy())
			assert.Equal(t, before+1, proxy.Requests())
		})
	}
}

func TestStaleProxyWarning(t *testing.T) {
	proxy := mock.NewServer()
	require.NoError(t, proxy.Start())
	defer proxy.Close()

	setTestConfig(t, func(cfg *config.Config) {
		cfg.Proxy = proxy.URL()
	})
	warnings := captureWarnings(t)

	// The backend captures the proxy configured right now.
	backend := NewPooled()

	_, err := backend.Do(context.Background(), NewRequest("GET", "http://upstream.invalid/v1/balance"))
	require.NoError(t, err)
	assert.Empty(t, warnings())
	assert.Equal(t, 1, proxy.Requests())

	// Drift the configuration out from under the backend.
	config.Mutate(func(cfg *config.Config) {
		cfg.Proxy = "http://127.0.0.1:1"
	})

	// The request still succeeds: the backend keeps its captured proxy.
	_, err = backend.Do(context.Background(), NewRequest("GET", "http://upstream.invalid/v1/balance"))
	require.NoError(t, err)
	assert.Equal(t, 2, proxy.Requests())

	got := warnings()
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "proxy was updated after sending a request")
}

func TestNew_SelectsVariant(t *testing.T) {
	setTestConfig(t, nil)

	tests := []struct {
		kind config.BackendKind
		want any
	}{
		{config.BackendPooled, &PooledBackend{}},
		{config.BackendEphemeral, &EphemeralBackend{}},
		{config.BackendRaw, &RawBackend{}},
	}

	for _, tt := range tests {
		cfg := config.Default()
		cfg.Backend = tt.kind
		b, err := New(cfg)
		require.NoError(t, err)
		assert.IsType(t, tt.want, b)
	}

	cfg := config.Default()
	cfg.Backend = "carrier-pigeon"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestDefault_LazyAndReplaceable(t *testing.T) {
	setTestConfig(t, nil)
	prev := SetDefault(nil)
	t.Cleanup(func() { SetDefault(prev) })

	first := Default()
	require.NotNil(t, first)
	assert.Same(t, first, Default())

	custom := NewEphemeral()
	old := SetDefault(custom)
	assert.Same(t, first, old)
	assert.Same(t, custom, Default())
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid http URL",
			url:     "http://example.com/path",
			wantErr: false,
		},
		{
			name:    "valid https URL",
			url:     "https://example.com/path",
			wantErr: false,
		},
		{
			name:    "invalid scheme",
			url:     "ftp://example.com",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing scheme",
			url:     "example.com/path",
			wantErr: true,
			errMsg:  "unsupported URL scheme",
		},
		{
			name:    "missing host",
			url:     "http:///path",
			wantErr: true,
			errMsg:  "URL must have a host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponse_Helpers(t *testing.T) {
	resp := &Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       []byte(`{"req_num": 7}`),
	}

	assert.True(t, resp.IsSuccess())
	assert.True(t, resp.IsJSON())
	assert.Equal(t, "application/json; charset=utf-8", resp.Header("content-type"))

	doc, err := resp.BodyJSON()
	require.NoError(t, err)
	assert.Equal(t, float64(7), doc["req_num"])

	_, err = (&Response{Body: []byte("not json")}).BodyJSON()
	assert.Error(t, err)
}

func TestErrorKinds(t *testing.T) {
	connErr := &Error{Kind: KindConnection, Method: "GET", URL: "http://x", Cause: assert.AnError}
	assert.True(t, IsConnection(connErr))
	assert.False(t, IsTimeout(connErr))
	assert.ErrorIs(t, connErr, assert.AnError)
	assert.Contains(t, connErr.Error(), "connection error")

	if !strings.Contains((&Error{Kind: KindMalformed, Method: "GET", URL: "http://x"}).Error(), "malformed") {
		t.Error("malformed kind missing from message")
	}
}
