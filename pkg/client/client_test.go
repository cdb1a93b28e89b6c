package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	svcerror "food-order-loadtest/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostSendsJSONAndHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/login/otp", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Load-Test"))

		raw, _ := io.ReadAll(r.Body)
		var body map[string]string
		assert.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "9000000001", body["mobile"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", Headers: map[string]string{"X-Load-Test": "yes"}})
	resp := c.Do(context.Background(), http.MethodPost, "/login/otp", map[string]string{"mobile": "9000000001"})

	require.NoError(t, resp.Err)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"success":true}`, string(resp.Body))
	assert.Equal(t, int64(1), c.Calls())
}

func TestClient_NonOKIsNotTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp := New(Config{BaseURL: srv.URL}).Do(context.Background(), http.MethodGet, "/delivery/quote", nil)
	assert.NoError(t, resp.Err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.False(t, resp.OK())
}

func TestClient_TimeoutIsTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	resp := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).Do(context.Background(), http.MethodGet, "/order/1", nil)
	require.Error(t, resp.Err)
	assert.Zero(t, resp.Status)
	assert.False(t, resp.OK())
	assert.True(t, errors.Is(resp.Err, svcerror.ErrTransportError))
}
