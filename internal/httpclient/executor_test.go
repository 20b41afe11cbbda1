package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newExecutor(retryMax int, errorHandler func(int, []byte) error) *Executor {
	return New(zap.NewNop(), nil, &http.Client{Timeout: 5 * time.Second}, retryMax, "venue", errorHandler)
}

func doGet(t *testing.T, e *Executor, url string) ([]byte, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	return e.Do(context.Background(), req, "test")
}

func TestDo_ReturnsRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer server.Close()

	body, err := doGet(t, newExecutor(2, nil), server.URL)

	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(body))
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	body, err := doGet(t, newExecutor(2, nil), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := doGet(t, newExecutor(1, nil), server.URL)

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_ClientErrorWithoutHandlerFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := doGet(t, newExecutor(2, nil), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDo_HandlerMayAcceptClientErrorBody(t *testing.T) {
	// The venue reports business failures inside 4xx envelopes; a handler
	// returning nil lets that body through as a valid payload.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"bad order"}}`))
	}))
	defer server.Close()

	e := newExecutor(2, func(status int, body []byte) error { return nil })
	body, err := doGet(t, e, server.URL)

	require.NoError(t, err)
	assert.Contains(t, string(body), "bad order")
	assert.Equal(t, int32(1), calls.Load(), "4xx is a verdict, never retried")
}

func TestDo_HandlerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	e := newExecutor(2, func(status int, body []byte) error {
		return fmt.Errorf("venue said no: %d", status)
	})
	_, err := doGet(t, e, server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue said no: 403")
}
