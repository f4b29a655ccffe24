package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestServer creates a peer stub responding to every request with code
// and response, the way fleet tests need a fake API-mode host.
func TestServer(t *testing.T, code int, response string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if code == http.StatusOK {
			if response != "" {
				_, err := fmt.Fprintln(rw, response)
				assert.NoError(t, err)
			} else {
				rw.WriteHeader(code)
			}
		} else {
			rw.WriteHeader(code)
		}
	}))
}

// TestSlowServer creates a peer stub that sleeps delay before answering,
// for exercising the cycle-deadline partial-results path.
func TestSlowServer(t *testing.T, delay time.Duration, response string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		time.Sleep(delay)
		_, err := fmt.Fprintln(rw, response)
		assert.NoError(t, err)
	}))
}
