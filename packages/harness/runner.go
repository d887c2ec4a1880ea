// Package harness drives concurrent load through a shared HTTP backend and
// verifies that every request got its own response: the mock server stamps
// each response with a unique sequence number, and a run passes only when
// the set of numbers seen by callers matches the number of requests sent.
package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/paywire/packages/api"
	"github.com/abdul-hamid-achik/paywire/packages/httpclient"
)

// Runner issues concurrent balance retrievals through one shared backend.
type Runner struct {
	backend     httpclient.Backend
	concurrency int
	requests    int
	rate        float64
	schema      string
	reporter    *Reporter
	metrics     *Metrics
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBackend sets the shared backend under test. All workers use this one
// instance; that sharing is the point.
func WithBackend(b httpclient.Backend) RunnerOption {
	return func(r *Runner) {
		r.backend = b
	}
}

// WithConcurrency sets the number of parallel workers.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		r.concurrency = n
	}
}

// WithRequests sets the total number of requests to issue.
func WithRequests(n int) RunnerOption {
	return func(r *Runner) {
		r.requests = n
	}
}

// WithRate caps the request rate in requests per second. Zero means unpaced.
func WithRate(rps float64) RunnerOption {
	return func(r *Runner) {
		r.rate = rps
	}
}

// WithSchema validates every response document against a JSON Schema.
func WithSchema(schemaJSON string) RunnerOption {
	return func(r *Runner) {
		r.schema = schemaJSON
	}
}

// WithReporter sets the reporter.
func WithReporter(rep *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = rep
	}
}

// NewRunner creates a runner. Defaults: 10 requests through 10 workers,
// unpaced, against the process default backend.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		concurrency: 10,
		requests:    10,
		metrics:     NewMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = NewReporter()
	}
	return r
}

// Result summarizes one run.
type Result struct {
	Requests   int
	Errors     int
	Unique     int
	Duplicates []int
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	Elapsed    time.Duration
	Passed     bool
}

// Run executes the configured load and reports whether every request got a
// distinct response.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", r.concurrency)
	}
	if r.requests < 1 {
		return nil, fmt.Errorf("requests must be >= 1, got %d", r.requests)
	}

	var schema *gojsonschema.Schema
	if r.schema != "" {
		var err error
		schema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(r.schema))
		if err != nil {
			return nil, fmt.Errorf("compiling schema: %w", err)
		}
	}

	var limiter *rate.Limiter
	if r.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.rate), 1)
	}

	client := api.NewClient(api.WithBackend(r.backend))

	jobs := make(chan struct{}, r.requests)
	for i := 0; i < r.requests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				r.runOne(ctx, client, schema)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	total, success, errors := r.metrics.Totals()
	unique, duplicates := r.metrics.Unique()

	// Uniqueness is only checkable when the server stamps responses with
	// sequence numbers; a plain endpoint still gets the error/duplicate
	// checks.
	distinct := r.metrics.Sequenced() == 0 || unique == int(success)

	res := &Result{
		Requests:   int(total),
		Errors:     int(errors),
		Unique:     unique,
		Duplicates: duplicates,
		P50:        r.metrics.Percentile(50),
		P95:        r.metrics.Percentile(95),
		P99:        r.metrics.Percentile(99),
		Elapsed:    elapsed,
		Passed:     errors == 0 && len(duplicates) == 0 && distinct,
	}

	r.reporter.Summary(res)
	return res, nil
}

func (r *Runner) runOne(ctx context.Context, client *api.Client, schema *gojsonschema.Schema) {
	start := time.Now()
	doc, err := client.RetrieveBalance(ctx)
	duration := time.Since(start)

	if err == nil && schema != nil {
		result, verr := schema.Validate(gojsonschema.NewGoLoader(doc))
		if verr != nil {
			err = fmt.Errorf("schema validation: %w", verr)
		} else if !result.Valid() {
			err = fmt.Errorf("response does not match schema: %v", result.Errors())
		}
	}

	r.metrics.Record(duration, err)
	if err != nil {
		return
	}

	if n, ok := doc["req_num"].(float64); ok {
		r.metrics.RecordSequence(int(n))
	}
}
