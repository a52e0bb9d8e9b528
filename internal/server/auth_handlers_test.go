package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgellow/authredirect/internal/redirect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogoutBackend(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	handlers := NewAuthHandlers(redirect.Options{}, time.Hour)

	tests := []struct {
		name         string
		query        string
		token        string
		wantStatus   int
		wantLocation string
	}{
		{
			name:         "anonymous",
			query:        "?redirect=subscriptions/fetch",
			wantStatus:   http.StatusFound,
			wantLocation: "/login?redirect=subscriptions%2Ffetch",
		},
		{
			name:         "logged in",
			query:        "?redirect=subscriptions/fetch",
			token:        "tok-123",
			wantStatus:   http.StatusFound,
			wantLocation: "/login?logged_in=true&redirect=subscriptions%2Ffetch",
		},
		{
			name:         "login target is emptied",
			query:        "?redirect=LOGIN",
			wantStatus:   http.StatusFound,
			wantLocation: "/login?redirect=",
		},
		{
			name:         "missing redirect param",
			wantStatus:   http.StatusFound,
			wantLocation: "/login?redirect=",
		},
		{
			name:       "unknown target",
			query:      "?redirect=unknown/path",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/login"+tt.query, nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: redirect.DefaultTokenKey, Value: tt.token})
			}
			w := httptest.NewRecorder()

			handlers.LoginHandler(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			} else {
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
				assert.Contains(t, w.Body.String(), "bad_request")
			}
		})
	}
}

func TestLoginHandler_MethodNotAllowed(t *testing.T) {
	handlers := NewAuthHandlers(redirect.Options{}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	w := httptest.NewRecorder()
	handlers.LoginHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestLogoutHandler_Success(t *testing.T) {
	backend := newLogoutBackend(t, http.StatusOK)
	handlers := NewAuthHandlers(redirect.Options{LogoutURL: backend.URL + "/logout"}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: redirect.DefaultTokenKey, Value: "tok-123"})
	w := httptest.NewRecorder()

	handlers.LogoutHandler(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	c := findCookie(resp, redirect.DefaultTokenKey)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestLogoutHandler_BackendRefused(t *testing.T) {
	backend := newLogoutBackend(t, http.StatusInternalServerError)
	handlers := NewAuthHandlers(redirect.Options{LogoutURL: backend.URL + "/logout"}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: redirect.DefaultTokenKey, Value: "tok-123"})
	w := httptest.NewRecorder()

	handlers.LogoutHandler(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Nil(t, findCookie(resp, redirect.DefaultTokenKey))
}

func TestLogoutHandler_StrictRejection(t *testing.T) {
	backend := newLogoutBackend(t, http.StatusUnauthorized)
	handlers := NewAuthHandlers(redirect.Options{
		LogoutURL:    backend.URL + "/logout",
		StrictLogout: true,
	}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handlers.LogoutHandler(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "bad_gateway")
}

func TestLogoutHandler_TransportFailure(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	logoutURL := backend.URL + "/logout"
	backend.Close()

	handlers := NewAuthHandlers(redirect.Options{
		LogoutURL:  logoutURL,
		HTTPClient: &http.Client{Timeout: time.Second},
	}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handlers.LogoutHandler(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestLogoutHandler_NotConfigured(t *testing.T) {
	handlers := NewAuthHandlers(redirect.Options{}, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handlers.LogoutHandler(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "not configured"))
}

func TestLogoutHandler_MethodNotAllowed(t *testing.T) {
	handlers := NewAuthHandlers(redirect.Options{}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	w := httptest.NewRecorder()
	handlers.LogoutHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
