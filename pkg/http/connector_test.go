package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoBody struct {
	Message string `json:"message"`
}

func TestConnector_DoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/echo", r.URL.Path)
		assert.Equal(t, "v", r.URL.Query().Get("q"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))

		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL, Logger: zap.NewNop()}, WithAuthToken("token"), WithRequestLogging())

	var resp echoBody
	err := c.DoRequest(context.Background(), http.MethodPost, "/echo", echoBody{Message: "hi"}, &resp,
		WithQuery("q", "v"),
		WithHeader("X-Test", "yes"),
	)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Message)
}

func TestConnector_DoRequest_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTeapot, httpErr.StatusCode)
	assert.Contains(t, httpErr.Message, "nope")
}

func TestConnector_DoRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestConnector_OpenStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		w.Write([]byte("chunk one "))
		w.(http.Flusher).Flush()
		w.Write([]byte("chunk two"))
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	body, err := c.OpenStream(context.Background(), http.MethodPost, "/", echoBody{Message: "q"})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "chunk one chunk two", string(data))
}

func TestAuthTransport_EmptyTokenIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	resp, err := NewClient(WithAuthToken("")).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestRedact(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("X-Api-Key", "secret")
	h.Set("Accept", "application/json")

	out := redact(h)

	assert.Equal(t, "[redacted]", out.Get("Authorization"))
	assert.Equal(t, "[redacted]", out.Get("X-Api-Key"))
	assert.Equal(t, "application/json", out.Get("Accept"))
	assert.Equal(t, "Bearer secret", h.Get("Authorization"))
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("dial failed")
	assert.ErrorIs(t, &NetworkError{Err: inner}, inner)
}
