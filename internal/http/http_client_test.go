package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	ts := TestServer(t, http.StatusOK, "example response")
	defer ts.Close()

	cl := NewClient(ClientConfig{Timeout: time.Second})
	body, err := cl.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "example response\n", body)
}

func TestClientGetErrorStatus(t *testing.T) {
	ts := TestServer(t, http.StatusInternalServerError, "")
	defer ts.Close()

	cl := NewClient(ClientConfig{Timeout: time.Second})
	_, err := cl.Get(context.Background(), ts.URL)
	assert.Error(t, err)
}

func TestClientGetContextDeadline(t *testing.T) {
	ts := TestSlowServer(t, 500*time.Millisecond, "late")
	defer ts.Close()

	cl := NewClient(ClientConfig{Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := cl.Get(ctx, ts.URL)
	assert.Error(t, err)
}
