package ovh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/cmstar/go-logx"

	"github.com/vitalvas/ovhapi/ovhsig"
)

// HeaderQueryID carries the API request identifier on responses.
const HeaderQueryID = "X-Ovh-QueryId"

// RequestOptions tunes a call made with Do.
type RequestOptions struct {
	// Params fill the {name} placeholders of the path. Values left over
	// are sent as the query string.
	Params map[string]interface{}

	// Body is encoded as JSON. A json.RawMessage is sent as is.
	Body interface{}

	// NoAuthentication sends the call unsigned. It is allowed while
	// anonymous.
	NoAuthentication bool
}

// call is one HTTP exchange with the API.
type call struct {
	method string
	path   string
	query  url.Values
	body   interface{}

	// signed adds the X-Ovh-* authentication headers.
	signed bool

	// application adds only X-Ovh-Application to an unsigned call.
	application bool
}

// Do calls the API. path is relative to the endpoint, for example
// "/dedicated/server/{serviceName}". On a 2xx answer the JSON body is
// decoded into result when result is not nil. Other answers are returned
// as *APIError.
//
// Unless opts.NoAuthentication is set, calling Do while anonymous fails
// with ErrNotCredential without any network traffic.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions, result interface{}) error {
	if opts == nil {
		opts = &RequestOptions{}
	}

	if !opts.NoAuthentication && !c.creds.isAuthenticated() {
		return notCredential()
	}

	expanded, query := expandPath(path, opts.Params)

	return c.send(ctx, &call{
		method: method,
		path:   expanded,
		query:  query,
		body:   opts.Body,
		signed: !opts.NoAuthentication,
	}, result)
}

// Get is Do with GET and no options.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post is Do with POST and body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.Do(ctx, http.MethodPost, path, &RequestOptions{Body: body}, result)
}

// Put is Do with PUT and body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.Do(ctx, http.MethodPut, path, &RequestOptions{Body: body}, result)
}

// Delete is Do with DELETE and no options.
func (c *Client) Delete(ctx context.Context, path string, result interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, result)
}

// expandPath substitutes {name} placeholders with the escaped params and
// returns the unused params as query values.
func expandPath(path string, params map[string]interface{}) (string, url.Values) {
	if len(params) == 0 {
		return path, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	query := make(url.Values)

	for _, k := range keys {
		v := params[k]
		placeholder := "{" + k + "}"

		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(fmt.Sprint(v)))
			continue
		}

		switch vv := v.(type) {
		case []string:
			for _, s := range vv {
				query.Add(k, s)
			}
		default:
			query.Add(k, fmt.Sprint(vv))
		}
	}

	if len(query) == 0 {
		query = nil
	}

	return path, query
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// send performs cl and decodes a successful answer into result.
func (c *Client) send(ctx context.Context, cl *call, result interface{}) error {
	payload, err := encodeBody(cl.body)
	if err != nil {
		return fmt.Errorf("ovh: encode body: %w", err)
	}

	target := c.endpoint + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var headers http.Header

	if cl.signed {
		creds := c.creds.Credentials()
		if creds.ConsumerKey == "" {
			return notCredential()
		}

		offset, err := c.TimeDelta(ctx)
		if err != nil {
			return err
		}

		headers = ovhsig.Headers(&ovhsig.HeaderOptions{
			Credentials: creds,
			Method:      cl.method,
			URL:         target,
			Body:        string(payload),
			Offset:      offset,
			Now:         c.now(),
		})
	} else {
		headers = ovhsig.Headers(nil)

		if cl.application {
			headers.Set(ovhsig.HeaderApplication, c.creds.Credentials().ApplicationKey)
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, reader)
	if err != nil {
		return fmt.Errorf("ovh: build request: %w", err)
	}

	for name, values := range headers {
		req.Header[name] = values
	}

	c.logger.LogFn(logx.LevelDebug, func() (string, []interface{}) {
		return "api call", []interface{}{"method", cl.method, "url", target, "signed", cl.signed}
	})

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ovh: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, data)
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("ovh: decode %s %s: %w", cl.method, cl.path, err)
	}

	return nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		QueryID:    resp.Header.Get(HeaderQueryID),
		Body:       body,
	}

	// Non-JSON bodies keep only the status.
	_ = json.Unmarshal(body, e)

	return e
}
