package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux registers the health, metrics and auth routes. gatherer may be nil
// to leave /metrics unregistered.
func NewMux(auth *AuthHandlers, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	authMiddleware := []MiddlewareFunc{
		NewNoStoreMiddleware(),
		NewLoggerMiddleware("auth"),
		NewRecoverMiddleware("auth"),
	}

	mux.Handle("/health", NewHealthHandler())
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.Handle("/auth/login", ChainMiddleware(http.HandlerFunc(auth.LoginHandler), authMiddleware...))
	mux.Handle("/auth/logout", ChainMiddleware(http.HandlerFunc(auth.LogoutHandler), authMiddleware...))

	return mux
}
