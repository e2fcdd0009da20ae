package ovhsig

import "net/http"

// TransportConfig configures a signing Transport.
type TransportConfig struct {
	SignConfig

	// OnSignError, when set, replaces the error of a request that could
	// not be signed, for example to report a missing consumer key in the
	// caller's own error vocabulary. Errors of the base transport are
	// returned unchanged.
	OnSignError func(req *http.Request, err error) error
}

// Transport is an http.RoundTripper that adds the X-Ovh-* headers to
// every outgoing request. Requests that cannot be signed never reach the
// network.
type Transport struct {
	base   http.RoundTripper
	config TransportConfig
}

// NewTransport returns a Transport delegating to base. A nil base is
// replaced by a clone of http.DefaultTransport so the Transport owns its
// connection pool.
//
//	client := &http.Client{Transport: ovhsig.NewTransport(nil, ovhsig.TransportConfig{
//	    SignConfig: ovhsig.SignConfig{Credentials: provider, Offset: offset},
//	})}
func NewTransport(base *http.Transport, cfg TransportConfig) *Transport {
	t := &Transport{config: cfg}

	if base != nil {
		t.base = base
	} else {
		t.base = http.DefaultTransport.(*http.Transport).Clone()
	}

	return t
}

// RoundTrip signs a copy of req and sends it. req itself is left
// untouched; its body is read through GetBody when available.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := t.prepare(req)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}

		if t.config.OnSignError != nil {
			err = t.config.OnSignError(req, err)
		}

		return nil, err
	}

	return t.base.RoundTrip(out)
}

func (t *Transport) prepare(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())

	if out.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		out.Body = body
	}

	// The API expects JSON even on bodiless calls.
	if out.Header.Get(HeaderContentType) == "" {
		out.Header.Set(HeaderContentType, ContentTypeJSON)
	}

	if err := SignRequest(out, t.config.SignConfig); err != nil {
		return nil, err
	}

	return out, nil
}
