// Package callback receives the browser redirect that ends a login.
//
// A Server listens on the loopback interface. Its Location is passed to the
// API as the login redirection, carrying a random state token. Once the
// user has validated the credential, the API sends the browser back to
// that address and Wait returns.
//
//	srv, err := callback.New(callback.Config{Opener: callback.WriterOpener(os.Stdout)})
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//
//	client, _ := ovh.NewClient(ctx, ovh.Config{..., Navigator: srv})
//	if _, err := client.Login(ctx, ovh.LoginOptions{}); err != nil {
//	    return err
//	}
//	return srv.Wait(ctx)
package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cmstar/go-logx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultAddr binds an ephemeral loopback port.
const DefaultAddr = "127.0.0.1:0"

// DefaultPath is the route the browser returns to.
const DefaultPath = "/callback"

// StateParam is the query parameter carrying the state token.
const StateParam = "state"

// ErrClosed is returned by Wait when the server is closed before the
// callback arrived.
var ErrClosed = errors.New("callback: server closed")

// Config configures a Server.
type Config struct {
	// Addr is the listen address. Defaults to DefaultAddr.
	Addr string

	// Path of the callback route. Defaults to DefaultPath.
	Path string

	// Opener shows the validation page. Defaults to logging the URL.
	Opener Opener

	Logger logx.Logger
}

// Server is a loopback HTTP server implementing ovh.Navigator.
type Server struct {
	engine *gin.Engine
	http   *http.Server

	path     string
	state    string
	location string

	opener Opener
	logger logx.Logger

	once      sync.Once
	closeOnce sync.Once
	done      chan struct{}
	closed    chan struct{}
}

// New starts a server. Call Close to release the port.
func New(cfg Config) (*Server, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("callback: listen %s: %w", addr, err)
	}

	s := newServer(cfg)
	s.location = (&url.URL{
		Scheme:   "http",
		Host:     ln.Addr().String(),
		Path:     s.path,
		RawQuery: url.Values{StateParam: {s.state}}.Encode(),
	}).String()

	s.http = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Log(logx.LevelError, "callback server stopped", "err", err.Error())
		}
	}()

	s.logger.Log(logx.LevelDebug, "callback server listening", "addr", ln.Addr().String())

	return s, nil
}

func newServer(cfg Config) *Server {
	s := &Server{
		path:   cfg.Path,
		state:  uuid.NewString(),
		opener: cfg.Opener,
		logger: cfg.Logger,
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	if s.path == "" {
		s.path = DefaultPath
	}

	if s.logger == nil {
		s.logger = nopLogger{}
	}

	if s.opener == nil {
		s.opener = logOpener{logger: s.logger}
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestID(HeaderRequestID))
	s.engine.GET(s.path, s.handleCallback)

	return s
}

// Location returns the callback URL, including the state token.
func (s *Server) Location() string {
	return s.location
}

// State returns the token expected on the callback.
func (s *Server) State() string {
	return s.state
}

// Navigate hands url to the Opener.
func (s *Server) Navigate(ctx context.Context, url string) error {
	s.logger.Log(logx.LevelInfo, "opening validation page", "url", url)
	return s.opener.Open(ctx, url)
}

// Wait blocks until the browser returns with the expected state, the
// context ends or the server is closed.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
	}

	select {
	case <-s.done:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close stops the server. Pending Wait calls return ErrClosed unless the
// callback already arrived.
func (s *Server) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.closed)

		if s.http != nil {
			err = s.http.Close()
		}
	})

	return err
}

func (s *Server) handleCallback(c *gin.Context) {
	if c.Query(StateParam) != s.state {
		s.logger.Log(logx.LevelWarn, "callback state mismatch", "requestId", c.GetString(contextKeyRequestID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}

	s.once.Do(func() {
		close(s.done)
		s.logger.Log(logx.LevelInfo, "credential validated", "requestId", c.GetString(contextKeyRequestID))
	})

	c.String(http.StatusOK, "Credential validated. You can close this window.")
}

type nopLogger struct{}

func (nopLogger) Log(logx.Level, string, ...interface{}) error { return nil }

func (nopLogger) LogFn(logx.Level, func() (string, []interface{})) error { return nil }
