// Integration scenarios: the API layer, a backend, and the mock server wired
// together the way a real deployment would be, including the
// proxy-changed-after-use footgun.
package integration

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/paywire/packages/api"
	"github.com/abdul-hamid-achik/paywire/packages/config"
	"github.com/abdul-hamid-achik/paywire/packages/httpclient"
	"github.com/abdul-hamid-achik/paywire/packages/mock"
)

// setupEnv installs a fresh configuration and a fresh (lazily-built) default
// backend, restoring both afterwards.
func setupEnv(t *testing.T) {
	t.Helper()

	cfg := config.Default()
	cfg.BaseURL = "http://localhost:12111"
	cfg.APIKey = "sk_test_123"
	cfg.MaxRetries = 3
	prevCfg := config.Set(cfg)
	t.Cleanup(func() { config.Set(prevCfg) })

	prevBackend := httpclient.SetDefault(nil)
	t.Cleanup(func() { httpclient.SetDefault(prevBackend) })
}

// startMock starts a mock server and guarantees teardown on every exit path.
func startMock(t *testing.T, opts ...mock.Option) *mock.Server {
	t.Helper()
	server := mock.NewServer(opts...)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		require.NoError(t, server.Close())
	})
	return server
}

func TestHitsAPIBase(t *testing.T) {
	setupEnv(t)
	server := startMock(t)

	config.Mutate(func(cfg *config.Config) {
		cfg.BaseURL = server.URL()
	})

	doc, err := api.RetrieveBalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{}, doc)
	assert.Equal(t, 1, server.Requests())
}

func TestHitsProxyThroughDefaultClient(t *testing.T) {
	setupEnv(t)
	server := startMock(t)

	var (
		warnMu   sync.Mutex
		warnings []string
	)
	prevWarn := config.SetWarnFunc(func(msg string) {
		warnMu.Lock()
		warnings = append(warnings, msg)
		warnMu.Unlock()
	})
	t.Cleanup(func() { config.SetWarnFunc(prevWarn) })

	config.Mutate(func(cfg *config.Config) {
		cfg.Proxy = server.URL()
	})

	// The default backend is created lazily here and captures the proxy.
	_, err := api.RetrieveBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, server.Requests())
	assert.Empty(t, warnings)

	// Update the proxy to something unreachable after the backend has
	// already sent a request through the old one.
	config.Mutate(func(cfg *config.Config) {
		cfg.Proxy = "http://bad-url"
	})

	// The retrieval still succeeds: the backend keeps using the captured
	// proxy, and exactly one warning surfaces the drift.
	_, err = api.RetrieveBalance(context.Background())
	require.NoError(t, err)

	warnMu.Lock()
	defer warnMu.Unlock()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "proxy was updated after sending a request")
	assert.Equal(t, 2, server.Requests())
}

func TestHitsProxyThroughCustomClient(t *testing.T) {
	setupEnv(t)
	server := startMock(t)

	backend := httpclient.NewPooled(httpclient.WithProxy(server.URL()))
	httpclient.SetDefault(backend)

	_, err := api.RetrieveBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, server.Requests())
}

func testClientIsThreadSafe(t *testing.T, backend httpclient.Backend) {
	t.Helper()
	setupEnv(t)
	server := startMock(t, mock.WithSequenceNumbers())

	config.Mutate(func(cfg *config.Config) {
		cfg.BaseURL = server.URL()
	})
	httpclient.SetDefault(backend)

	const n = 10

	var (
		seenMu sync.Mutex
		seen   = make(map[int]bool)
		wg     sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			doc, err := api.RetrieveBalance(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			reqNum, ok := doc["req_num"].(float64)
			if !assert.True(t, ok, "response missing req_num: %v", doc) {
				return
			}

			seenMu.Lock()
			seen[int(reqNum)] = true
			seenMu.Unlock()
		}()
	}
	wg.Wait()

	// server should have seen n unique requests
	assert.Equal(t, n, server.Requests())
	// client should have seen n unique responses
	assert.Len(t, seen, n)
}

func TestPooledClientThreadSafety(t *testing.T) {
	testClientIsThreadSafe(t, httpclient.NewPooled())
}

func TestEphemeralClientThreadSafety(t *testing.T) {
	testClientIsThreadSafe(t, httpclient.NewEphemeral())
}

func TestRawClientThreadSafety(t *testing.T) {
	testClientIsThreadSafe(t, httpclient.NewRaw())
}

func TestJSONRoundTrip(t *testing.T) {
	setupEnv(t)

	original := map[string]any{
		"object":   "balance",
		"livemode": false,
		"available": []any{
			map[string]any{"amount": float64(1234), "currency": "usd"},
		},
	}
	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	server := startMock(t, mock.WithBody(string(encoded)))
	config.Mutate(func(cfg *config.Config) {
		cfg.BaseURL = server.URL()
	})

	doc, err := api.RetrieveBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, original, doc)
}
