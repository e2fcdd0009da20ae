// Package ovhtest provides an in-process fake of the OVH API for tests.
//
// The fake serves the authentication routes (/auth/time, /auth/credential,
// /auth/logout), a few /me routes and the /me.json schema. Authenticated
// routes verify the X-Ovh-* signature with ovhsig.Middleware against the
// configured application key and the consumer keys the fake has issued.
package ovhtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitalvas/ovhapi/ovhsig"
)

// Default keys of the fake application.
const (
	ApplicationKey    = "test-application-key"
	ApplicationSecret = "test-application-secret"
)

// Nichandle is returned by GET /me.
const Nichandle = "xx1234-ovh"

// Options configures the fake server.
type Options struct {
	ApplicationKey    string
	ApplicationSecret string

	// Now is the server clock. Defaults to time.Now.
	Now func() time.Time

	// MaxSkew is the accepted timestamp distance. Defaults to 30s.
	MaxSkew time.Duration
}

// Rule is an access rule as received by /auth/credential.
type Rule struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// CredentialRequest is the body received by /auth/credential.
type CredentialRequest struct {
	AccessRules []Rule `json:"accessRules"`
	Redirection string `json:"redirection"`
}

type failure struct {
	status int
	code   string
}

// Server is a running fake API. The embedded httptest.Server gives its
// URL, which is the client endpoint.
type Server struct {
	*httptest.Server

	opts Options

	mu          sync.Mutex
	consumers   map[string]bool
	calls       map[string]int
	failures    map[string]failure
	credentials []CredentialRequest
	bodies      map[string]string
}

// NewServer starts a fake API. Call Close when done.
func NewServer(opts Options) *Server {
	if opts.ApplicationKey == "" {
		opts.ApplicationKey = ApplicationKey
	}

	if opts.ApplicationSecret == "" {
		opts.ApplicationSecret = ApplicationSecret
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.MaxSkew <= 0 {
		opts.MaxSkew = 30 * time.Second
	}

	s := &Server{
		opts:      opts,
		consumers: make(map[string]bool),
		calls:     make(map[string]int),
		failures:  make(map[string]failure),
		bodies:    make(map[string]string),
	}

	signed, err := ovhsig.Middleware(ovhsig.MiddlewareConfig{
		Verify: ovhsig.VerifyConfig{
			Resolver: s.resolveSecret,
			Consumer: s.validateConsumer,
			MaxSkew:  opts.MaxSkew,
			Now:      opts.Now,
		},
	})
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/time", s.handleTime)
	mux.HandleFunc("POST /auth/credential", s.handleCredential)
	mux.Handle("POST /auth/logout", signed(http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET /me", signed(http.HandlerFunc(s.handleMe)))
	mux.Handle("PUT /me", signed(http.HandlerFunc(s.handleEcho)))
	mux.Handle("POST /me/contact", signed(http.HandlerFunc(s.handleEcho)))
	mux.Handle("GET /me/bill/{billId}", signed(http.HandlerFunc(s.handleBill)))
	mux.HandleFunc("GET /me.json", s.handleSchema)

	s.Server = httptest.NewServer(s.track(mux))

	return s
}

// Issue registers consumerKey as a validated credential.
func (s *Server) Issue(consumerKey string) {
	s.mu.Lock()
	s.consumers[consumerKey] = true
	s.mu.Unlock()
}

// Active reports whether consumerKey is issued and not revoked.
func (s *Server) Active(consumerKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.consumers[consumerKey]
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[path]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.calls {
		total += n
	}

	return total
}

// FailNext makes the next request on path answer status with an OVH
// error payload carrying code.
func (s *Server) FailNext(path string, status int, code string) {
	s.mu.Lock()
	s.failures[path] = failure{status: status, code: code}
	s.mu.Unlock()
}

// CredentialRequests returns the bodies received by /auth/credential.
func (s *Server) CredentialRequests() []CredentialRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]CredentialRequest(nil), s.credentials...)
}

// LastBody returns the last body received on path by an echo route.
func (s *Server) LastBody(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bodies[path]
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ovh-QueryId", "EU.fake-"+uuid.NewString())

		s.mu.Lock()
		s.calls[r.URL.Path]++
		f, failing := s.failures[r.URL.Path]
		delete(s.failures, r.URL.Path)
		s.mu.Unlock()

		if failing {
			ovhsig.WriteError(w, f.status, f.code, "injected failure")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) resolveSecret(_ *http.Request, applicationKey string) (string, error) {
	if applicationKey != s.opts.ApplicationKey {
		return "", fmt.Errorf("%w: application %q", ovhsig.ErrInvalidKey, applicationKey)
	}

	return s.opts.ApplicationSecret, nil
}

func (s *Server) validateConsumer(_ *http.Request, _, consumerKey string) error {
	if !s.Active(consumerKey) {
		return fmt.Errorf("%w: consumer %q", ovhsig.ErrInvalidKey, consumerKey)
	}

	return nil
}

func (s *Server) handleTime(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(ovhsig.HeaderContentType, ovhsig.ContentTypeJSON)
	io.WriteString(w, strconv.FormatInt(s.opts.Now().Unix(), 10))
}

func (s *Server) handleCredential(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(ovhsig.HeaderApplication) != s.opts.ApplicationKey {
		ovhsig.WriteError(w, http.StatusForbidden, "INVALID_KEY", "This application key is invalid")
		return
	}

	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ovhsig.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ck := strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	s.credentials = append(s.credentials, req)
	s.consumers[ck] = true
	s.mu.Unlock()

	writeJSON(w, map[string]string{
		"consumerKey":   ck,
		"validationUrl": s.URL + "/auth/sso?credentialToken=" + uuid.NewString(),
		"state":         "pendingValidation",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.consumers, r.Header.Get(ovhsig.HeaderConsumer))
	s.mu.Unlock()

	writeJSON(w, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"nichandle": Nichandle,
		"email":     "john.doe@example.com",
		"country":   "FR",
	})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		ovhsig.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	s.mu.Lock()
	s.bodies[r.URL.Path] = string(data)
	s.mu.Unlock()

	w.Header().Set(ovhsig.HeaderContentType, ovhsig.ContentTypeJSON)
	w.Write(data)
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"billId": r.PathValue("billId"),
		"query":  r.URL.RawQuery,
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(ovhsig.HeaderContentType, ovhsig.ContentTypeJSON)
	io.WriteString(w, meSchema)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set(ovhsig.HeaderContentType, ovhsig.ContentTypeJSON)
	_ = json.NewEncoder(w).Encode(v)
}

const meSchema = `{
  "apiVersion": "1.0",
  "swaggerVersion": "1.1",
  "basePath": "https://eu.api.ovh.com/1.0",
  "resourcePath": "/me",
  "apis": [
    {
      "path": "/me",
      "description": "Details about your OVH identifier",
      "operations": [
        {
          "httpMethod": "GET",
          "description": "Get this object properties",
          "responseType": "nichandle.Nichandle",
          "noAuthentication": false,
          "parameters": [],
          "apiStatus": {"value": "PRODUCTION", "description": "Stable production version"}
        }
      ]
    }
  ],
  "models": {
    "nichandle.Nichandle": {
      "id": "Nichandle",
      "namespace": "nichandle",
      "description": "Details about your OVH identifier",
      "properties": {
        "nichandle": {"type": "string", "fullType": "string", "canBeNull": false, "readOnly": true, "description": "Customer identifier"},
        "email": {"type": "string", "fullType": "string", "canBeNull": false, "readOnly": false, "description": "Email address"}
      }
    },
    "nichandle.CountryEnum": {
      "id": "CountryEnum",
      "namespace": "nichandle",
      "description": "Countries a nichandle can choose",
      "enum": ["CA", "FR", "US"],
      "enumType": "string"
    }
  }
}`
