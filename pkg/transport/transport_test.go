package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendRequestSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "heart" {
			t.Errorf("expected q=heart, got %q", got)
		}
		if got := r.Header.Get("X-Client"); got != "test" {
			t.Errorf("expected X-Client header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"docs":[]}}`))
	}))
	defer ts.Close()

	resp := NewClient().SendRequest(context.Background(), Request{
		URL:     ts.URL + "/api/search",
		Params:  map[string]string{"q": "heart"},
		Headers: map[string]string{"X-Client": "test"},
	})

	if !resp.OK() {
		t.Fatalf("expected OK response, got %+v", resp)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected flattened headers, got %v", resp.Headers)
	}
}

func TestSendRequestBackendError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"solr is down"}`))
	}))
	defer ts.Close()

	resp := NewClient().SendRequest(context.Background(), Request{URL: ts.URL})

	if !resp.Error || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected error response with status 500, got %+v", resp)
	}
	if resp.ErrorMessage != "solr is down" {
		t.Errorf("expected backend message, got %q", resp.ErrorMessage)
	}
}

func TestSendRequestNonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer ts.Close()

	resp := NewClient().SendRequest(context.Background(), Request{URL: ts.URL})
	if !resp.Error || resp.OK() {
		t.Fatalf("expected malformed payload to be an error, got %+v", resp)
	}
}

func TestSendRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	start := time.Now()
	resp := NewClient().SendRequest(context.Background(), Request{URL: ts.URL, Timeout: 50 * time.Millisecond})

	if !resp.Error || resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected gateway timeout, got %+v", resp)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("request did not terminate promptly")
	}
}

func TestSendRequestRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := NewClient()

	followed := c.SendRequest(context.Background(), Request{URL: ts.URL + "/old", FollowRedirects: true})
	if !followed.OK() {
		t.Fatalf("expected redirect to be followed, got %+v", followed)
	}

	stopped := c.SendRequest(context.Background(), Request{URL: ts.URL + "/old"})
	if stopped.StatusCode != http.StatusFound || !stopped.Error {
		t.Fatalf("expected 302 without following, got %+v", stopped)
	}
}

func TestSendRequestInvalidURL(t *testing.T) {
	resp := NewClient().SendRequest(context.Background(), Request{URL: "http://[::1"})
	if !resp.Error || !strings.Contains(resp.ErrorMessage, "invalid url") {
		t.Fatalf("expected invalid url error, got %+v", resp)
	}
}
