package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login URL results
const (
	LoginAnonymous = "anonymous"
	LoginLoggedIn  = "logged_in"
	LoginInvalid   = "invalid"
	LoginError     = "error"
)

// Logout outcomes
const (
	LogoutSuccess   = "success"
	LogoutRejected  = "rejected"
	LogoutTransport = "transport_error"
	LogoutError     = "error"
)

// Metrics holds the redirector counters. A nil *Metrics records nothing.
type Metrics struct {
	loginURLs      *prometheus.CounterVec
	logouts        *prometheus.CounterVec
	logoutDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg. Collectors already
// registered on reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	loginURLs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authredirect",
		Name:      "login_urls_total",
		Help:      "Login URLs built, by result",
	}, []string{"result"})

	logouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authredirect",
		Name:      "logouts_total",
		Help:      "Logout calls, by outcome",
	}, []string{"outcome"})

	logoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "authredirect",
		Name:      "logout_duration_seconds",
		Help:      "Latency of the logout endpoint round trip",
		Buckets:   prometheus.DefBuckets,
	})

	var err error
	if loginURLs, err = register(reg, loginURLs); err != nil {
		return nil, err
	}
	if logouts, err = register(reg, logouts); err != nil {
		return nil, err
	}
	if logoutDuration, err = register(reg, logoutDuration); err != nil {
		return nil, err
	}

	return &Metrics{
		loginURLs:      loginURLs,
		logouts:        logouts,
		logoutDuration: logoutDuration,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("registering metrics: %w", err)
	}
	return c, nil
}

// LoginURL counts one BuildLoginURL call
func (m *Metrics) LoginURL(result string) {
	if m == nil {
		return
	}
	m.loginURLs.WithLabelValues(result).Inc()
}

// Logout counts one Logout call. A zero elapsed skips the latency histogram.
func (m *Metrics) Logout(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.logoutDuration.Observe(elapsed.Seconds())
	}
}
