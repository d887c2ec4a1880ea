// Package mock provides an in-process HTTP server standing in for the
// payment API during tests.
package mock

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server is a mock payment API server bound to an ephemeral localhost port.
// It serves a canned JSON response to every request and counts the requests
// it receives; with sequence numbers enabled, each response carries the
// post-increment counter value so concurrent callers can verify that no
// response was lost or duplicated.
//
// The server also accepts absolute-form request targets, so it can be used
// as the target of an HTTP proxy setting.
type Server struct {
	delay   time.Duration
	status  int
	body    string
	seq     bool
	verbose bool

	mu    sync.Mutex // guards count only, never held across I/O
	count int

	listener net.Listener
	srv      *http.Server
	done     chan struct{}
	closed   sync.Once
	closeErr error
}

// Option is a functional option for Server.
type Option func(*Server)

// WithSequenceNumbers makes every response carry {"req_num": N}, where N is
// the request's unique post-increment counter value.
func WithSequenceNumbers() Option {
	return func(s *Server) {
		s.seq = true
	}
}

// WithDelay adds a delay to all responses.
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithStatus sets the response status code. Default 200.
func WithStatus(code int) Option {
	return func(s *Server) {
		s.status = code
	}
}

// WithBody fixes the response body, overriding the default {} and the
// sequence-number body.
func WithBody(body string) Option {
	return func(s *Server) {
		s.body = body
	}
}

// WithVerbose enables request logging.
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// NewServer creates a mock server. Call Start to bind it.
func NewServer(opts ...Option) *Server {
	s := &Server{
		status: http.StatusOK,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the server to an OS-assigned ephemeral port on localhost and
// serves on a background goroutine. The actual address is available through
// URL and Port once Start returns.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("binding mock server: %w", err)
	}
	s.listener = ln

	// The handler is installed directly, not behind a mux, so absolute-form
	// request URIs from proxied requests are served too.
	s.srv = &http.Server{Handler: http.HandlerFunc(s.handleRequest)}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("mock server: serve: %v", err)
		}
	}()

	if s.verbose {
		log.Printf("mock server listening on %s", s.URL())
	}
	return nil
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.Port())
}

// Port returns the ephemeral port the server is bound to.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Requests returns how many requests the server has handled so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close stops the serve loop, closes the listening socket, and waits for the
// background goroutine to exit. Safe to call more than once and from defer
// on every exit path.
func (s *Server) Close() error {
	s.closed.Do(func() {
		if s.srv == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeErr = s.srv.Shutdown(ctx)
		<-s.done
	})
	return s.closeErr
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	s.mu.Lock()
	s.count++
	reqNum := s.count
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	body := s.body
	switch {
	case body != "":
	case s.seq:
		body = fmt.Sprintf(`{"req_num": %d}`, reqNum)
	default:
		body = `{}`
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(s.status)
	_, _ = w.Write([]byte(body))

	if s.verbose {
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, s.status, time.Since(start))
	}
}
