// Package transport performs the HTTP calls made on behalf of the gateway.
// Failures are returned as data on the Response, never as Go errors, so the
// caller decides what a failed call means for its own result.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rubiojr/ontosearch/pkg/log"
)

// DefaultTimeout applies when a request does not carry its own timeout.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a backend response is read.
const maxBodySize = 32 << 20

// Request describes a single outbound call.
type Request struct {
	Method          string
	URL             string
	Headers         map[string]string
	Params          map[string]string
	Timeout         time.Duration
	FollowRedirects bool
}

// Response is the result of a call. JSONData holds the decoded body when the
// backend answered with valid JSON. Error is set for transport failures,
// non-2xx answers and undecodable bodies.
type Response struct {
	StatusCode   int               `json:"status_code"`
	JSONData     json.RawMessage   `json:"json_data,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Error        bool              `json:"error"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// OK reports whether the call succeeded with status 200 and a JSON body.
func (r *Response) OK() bool {
	return r != nil && !r.Error && r.StatusCode == http.StatusOK && len(r.JSONData) > 0
}

// ErrorResponse builds a failed response without performing a call.
func ErrorResponse(status int, format string, args ...any) *Response {
	return &Response{StatusCode: status, Error: true, ErrorMessage: fmt.Sprintf(format, args...)}
}

// Sender is the narrow interface the gateway depends on.
type Sender interface {
	SendRequest(ctx context.Context, req Request) *Response
}

// Client sends requests with net/http.
type Client struct {
	follow   *http.Client
	noFollow *http.Client
	log      *log.Logger
}

// NewClient returns a client sharing one connection pool between the
// redirect-following and the non-following modes.
func NewClient() *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	return &Client{
		follow: &http.Client{Transport: tr},
		noFollow: &http.Client{
			Transport: tr,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log.ForService("transport"),
	}
}

// SendRequest performs req. The request timeout is applied on top of the
// caller's context, so cancelling ctx aborts the call as well.
func (c *Client) SendRequest(ctx context.Context, req Request) *Response {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return ErrorResponse(http.StatusBadRequest, "invalid url %q: %v", req.URL, err)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return ErrorResponse(http.StatusBadRequest, "building request: %v", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := c.noFollow
	if req.FollowRedirects {
		client = c.follow
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		c.log.Warnf("%s %s failed after %v: %v", method, u.Redacted(), time.Since(start), err)
		return ErrorResponse(status, "request to %s failed: %v", u.Host, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	out := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		out.Error = true
		out.ErrorMessage = fmt.Sprintf("reading response body: %v", err)
		return out
	}
	c.log.Debugf("%s %s -> %d in %v (%d bytes)", method, u.Redacted(), resp.StatusCode, time.Since(start), len(body))

	if json.Valid(body) {
		out.JSONData = body
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Error = true
		out.ErrorMessage = backendMessage(resp.StatusCode, out.JSONData)
		return out
	}
	if out.JSONData == nil {
		out.Error = true
		out.ErrorMessage = "backend returned a non-JSON body"
	}
	return out
}

// backendMessage prefers the message field of a JSON error body.
func backendMessage(status int, body json.RawMessage) string {
	if len(body) > 0 {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			switch {
			case payload.Message != "":
				return payload.Message
			case payload.Error != "":
				return payload.Error
			}
		}
	}
	return fmt.Sprintf("backend returned status %d %s", status, http.StatusText(status))
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
