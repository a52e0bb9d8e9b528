package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgellow/authredirect/internal/cookie"
	jsonwriter "github.com/dgellow/authredirect/internal/json"
	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/redirect"
)

// AuthHandlers exposes the Redirector over HTTP. Each request gets its own
// Redirector backed by the caller's cookies.
type AuthHandlers struct {
	opts         redirect.Options
	cookieMaxAge time.Duration
}

// NewAuthHandlers creates handlers sharing opts across requests
func NewAuthHandlers(opts redirect.Options, cookieMaxAge time.Duration) *AuthHandlers {
	return &AuthHandlers{
		opts:         opts,
		cookieMaxAge: cookieMaxAge,
	}
}

// httpNavigator turns a navigation into a redirect response
type httpNavigator struct {
	w         http.ResponseWriter
	r         *http.Request
	status    int
	navigated bool
}

func (n *httpNavigator) Navigate(_ context.Context, location string) error {
	http.Redirect(n.w, n.r, location, n.status)
	n.navigated = true
	return nil
}

func (h *AuthHandlers) redirector(w http.ResponseWriter, r *http.Request) (*redirect.Redirector, *httpNavigator) {
	nav := &httpNavigator{w: w, r: r, status: http.StatusFound}
	store := cookie.NewStore(w, r, h.cookieMaxAge)
	return redirect.New(store, nav, h.opts), nav
}

// LoginHandler handles GET /auth/login?redirect=<target>
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	target := r.URL.Query().Get("redirect")
	red, _ := h.redirector(w, r)

	if err := red.Login(r.Context(), target); err != nil {
		if errors.Is(err, redirect.ErrInvalidRedirect) {
			jsonwriter.WriteBadRequest(w, err.Error())
			return
		}
		log.LogErrorWithFields("http", "Login redirect failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to build login URL")
	}
}

// LogoutHandler handles POST /auth/logout. A successful backend logout
// clears the token cookie and redirects home; a refused one answers 204 and
// leaves the cookie in place.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	red, nav := h.redirector(w, r)

	if err := red.Logout(r.Context()); err != nil {
		if errors.Is(err, redirect.ErrNoLogoutEndpoint) {
			jsonwriter.WriteInternalServerError(w, "Logout endpoint not configured")
			return
		}
		log.LogErrorWithFields("http", "Logout failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteBadGateway(w, "Logout failed")
		return
	}

	if !nav.navigated {
		w.WriteHeader(http.StatusNoContent)
	}
}
