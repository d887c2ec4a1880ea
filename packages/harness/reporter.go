package harness

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Reporter prints run output.
type Reporter struct {
	writer  io.Writer
	noColor bool
	quiet   bool

	green *color.Color
	red   *color.Color
	cyan  *color.Color
	bold  *color.Color
	dim   *color.Color
}

// ReporterOption configures the reporter.
type ReporterOption func(*Reporter)

// WithWriter sets the output writer.
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output.
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithQuiet suppresses all output.
func WithQuiet(quiet bool) ReporterOption {
	return func(r *Reporter) {
		r.quiet = quiet
	}
}

// NewReporter creates a reporter writing to stdout.
func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	color.NoColor = r.noColor
	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.cyan = color.New(color.FgCyan)
	r.bold = color.New(color.Bold)
	r.dim = color.New(color.Faint)

	return r
}

// Header prints the run parameters before the load starts.
func (r *Reporter) Header(backend string, concurrency, requests int) {
	if r.quiet {
		return
	}
	r.bold.Fprint(r.writer, "paywire soak")
	fmt.Fprintf(r.writer, "  backend=%s  concurrency=%d  requests=%d\n", backend, concurrency, requests)
}

// Summary prints the run result.
func (r *Reporter) Summary(res *Result) {
	if r.quiet {
		return
	}

	fmt.Fprintln(r.writer)
	fmt.Fprintf(r.writer, "  requests   %d\n", res.Requests)
	fmt.Fprintf(r.writer, "  errors     %d\n", res.Errors)
	fmt.Fprintf(r.writer, "  unique     %d\n", res.Unique)
	if len(res.Duplicates) > 0 {
		r.red.Fprintf(r.writer, "  duplicated %v\n", res.Duplicates)
	}
	r.dim.Fprintf(r.writer, "  p50=%s p95=%s p99=%s elapsed=%s\n",
		res.P50, res.P95, res.P99, res.Elapsed.Round(time.Millisecond))

	if res.Passed {
		r.green.Fprintln(r.writer, "  PASS")
	} else {
		r.red.Fprintln(r.writer, "  FAIL")
	}
}

// Info prints an informational line.
func (r *Reporter) Info(format string, args ...any) {
	if r.quiet {
		return
	}
	r.cyan.Fprintf(r.writer, format+"\n", args...)
}

// Error prints an error line.
func (r *Reporter) Error(format string, args ...any) {
	if r.quiet {
		return
	}
	r.red.Fprintf(r.writer, format+"\n", args...)
}
