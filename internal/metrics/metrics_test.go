package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.LoginURL(LoginAnonymous)
	m.LoginURL(LoginAnonymous)
	m.LoginURL(LoginInvalid)
	m.Logout(LogoutSuccess, 20*time.Millisecond)
	m.Logout(LogoutRejected, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginURLs.WithLabelValues(LoginAnonymous)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginURLs.WithLabelValues(LoginInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts.WithLabelValues(LogoutSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts.WithLabelValues(LogoutRejected)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.logoutDuration))
}

func TestMetrics_RegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	first.LoginURL(LoginLoggedIn)
	second.LoginURL(LoginLoggedIn)
	assert.Equal(t, 2.0, testutil.ToFloat64(first.loginURLs.WithLabelValues(LoginLoggedIn)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoginURL(LoginAnonymous)
		m.Logout(LogoutSuccess, time.Second)
	})
}
