package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogoutBackend(t *testing.T, status *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logout" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServeLoginAndLogout(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	backend := newLogoutBackend(t, &status)

	addr := freeAddr(t)
	startServer(t, writeTestConfig(t, buildTestConfig(backend.URL, addr, nil)))
	waitForServer(t, addr)

	client := noRedirectClient()
	base := "http://" + addr
	tokenCookie := &http.Cookie{Name: "access_token", Value: "tok-123"}

	t.Run("anonymous login", func(t *testing.T) {
		resp, err := client.Get(base + "/auth/login?redirect=subscriptions/fetch")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login?redirect=subscriptions%2Ffetch", resp.Header.Get("Location"))
	})

	t.Run("logged in login", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, base+"/auth/login?redirect=subscriptions/fetch", nil)
		req.AddCookie(tokenCookie)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login?logged_in=true&redirect=subscriptions%2Ffetch", resp.Header.Get("Location"))
	})

	t.Run("invalid target", func(t *testing.T) {
		resp, err := client.Get(base + "/auth/login?redirect=unknown/path")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "bad_request")
	})

	t.Run("logout refused keeps cookie", func(t *testing.T) {
		status.Store(http.StatusInternalServerError)
		defer status.Store(http.StatusOK)

		req, _ := http.NewRequest(http.MethodPost, base+"/auth/logout", nil)
		req.AddCookie(tokenCookie)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, resp.Cookies())
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, base+"/auth/logout", nil)
		req.AddCookie(tokenCookie)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		require.Len(t, resp.Cookies(), 1)
		assert.Equal(t, "access_token", resp.Cookies()[0].Name)
		assert.Less(t, resp.Cookies()[0].MaxAge, 0)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := client.Get(base + "/metrics")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Contains(t, string(body), `authredirect_logouts_total{outcome="success"} 1`)
		assert.Contains(t, string(body), `authredirect_logouts_total{outcome="rejected"} 1`)
	})
}

func TestServeGracefulShutdown(t *testing.T) {
	addr := freeAddr(t)
	cmd := startServer(t, writeTestConfig(t, buildTestConfig("http://127.0.0.1:1", addr, nil)))
	waitForServer(t, addr)

	require.NoError(t, stopServer(cmd), "SIGINT should exit cleanly")
}
