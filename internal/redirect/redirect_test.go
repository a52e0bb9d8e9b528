package redirect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgellow/authredirect/internal/metrics"
	"github.com/dgellow/authredirect/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNavigator remembers every location it was sent to
type recordingNavigator struct {
	locations []string
	err       error
}

func (n *recordingNavigator) Navigate(_ context.Context, location string) error {
	if n.err != nil {
		return n.err
	}
	n.locations = append(n.locations, location)
	return nil
}

type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (string, error)              { return "", b.err }
func (b brokenStore) Set(context.Context, string, string, time.Duration) error { return b.err }
func (b brokenStore) Delete(context.Context, string) error                     { return b.err }

func storeWithToken(t *testing.T, token string) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore("")
	require.NoError(t, s.Set(context.Background(), DefaultTokenKey, token, 0))
	return s
}

func TestBuildLoginURL_WithoutSession(t *testing.T) {
	r := New(storage.NewMemoryStore(""), nil, Options{})

	got, err := r.BuildLoginURL(context.Background(), "subscriptions/fetch")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=subscriptions%2Ffetch", got)
}

func TestBuildLoginURL_WithSession(t *testing.T) {
	r := New(storeWithToken(t, "tok-123"), nil, Options{})

	got, err := r.BuildLoginURL(context.Background(), "subscriptions/fetch")
	require.NoError(t, err)
	assert.Equal(t, "/login?logged_in=true&redirect=subscriptions%2Ffetch", got)
}

func TestBuildLoginURL_EveryAllowedTarget(t *testing.T) {
	ctx := context.Background()

	for _, loggedIn := range []bool{false, true} {
		store := storage.NewMemoryStore("")
		if loggedIn {
			require.NoError(t, store.Set(ctx, DefaultTokenKey, "tok", 0))
		}
		r := New(store, nil, Options{})

		for _, target := range DefaultRedirects {
			got, err := r.BuildLoginURL(ctx, target)
			require.NoError(t, err, "target %q", target)

			prefix := "/login?redirect="
			if loggedIn {
				prefix = "/login?logged_in=true&redirect="
			}
			require.True(t, strings.HasPrefix(got, prefix), "%q lacks prefix %q", got, prefix)

			suffix := got[strings.LastIndex(got, "=")+1:]
			assert.Equal(t, EncodeComponent(Canonical(Normalize(target))), suffix)
		}
	}
}

func TestBuildLoginURL_Normalization(t *testing.T) {
	r := New(storage.NewMemoryStore(""), nil, Options{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "upper case", input: "SUBSCRIPTIONS/POST", want: "/login?redirect=subscriptions%2Fpost"},
		{name: "surrounding whitespace", input: "  subscriptions/fetch\t", want: "/login?redirect=subscriptions%2Ffetch"},
		{name: "login canonicalizes to empty", input: "login", want: "/login?redirect="},
		{name: "LOGIN any case", input: " LoGiN ", want: "/login?redirect="},
		{name: "empty target", input: "", want: "/login?redirect="},
		{name: "whitespace only", input: "   ", want: "/login?redirect="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.BuildLoginURL(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildLoginURL_RejectsUnknownTarget(t *testing.T) {
	r := New(storage.NewMemoryStore(""), nil, Options{})

	_, err := r.BuildLoginURL(context.Background(), "unknown/path")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRedirect)

	var invalid *InvalidRedirectError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "unknown/path", invalid.Redirect)
}

func TestBuildLoginURL_PermissiveAcceptsAnything(t *testing.T) {
	r := New(storage.NewMemoryStore(""), nil, Options{PermissiveRedirects: true})

	got, err := r.BuildLoginURL(context.Background(), "Unknown/Path")
	require.NoError(t, err)
	assert.Equal(t, "/login?redirect=unknown%2Fpath", got)
}

func TestBuildLoginURL_ConfiguredAllowList(t *testing.T) {
	allow := NewAllowList([]string{
		"subscriptions/fetch?op=migrate",
		"login",
		"",
		"subscriptions/fetch?op=unsubscribe",
		"subscriptions/unsubscribe",
		"playlists/fetch",
	})
	r := New(storeWithToken(t, "tok"), nil, Options{AllowList: allow})

	got, err := r.BuildLoginURL(context.Background(), "subscriptions/fetch?op=migrate")
	require.NoError(t, err)
	assert.Equal(t, "/login?logged_in=true&redirect=subscriptions%2Ffetch%3Fop%3Dmigrate", got)

	_, err = r.BuildLoginURL(context.Background(), "subscriptions/post")
	assert.ErrorIs(t, err, ErrInvalidRedirect)
}

func TestBuildLoginURL_CustomPathsAndKey(t *testing.T) {
	store := storage.NewMemoryStore("")
	require.NoError(t, store.Set(context.Background(), "sid", "x", 0))
	r := New(store, nil, Options{LoginPath: "/auth/login", TokenKey: "sid"})

	got, err := r.BuildLoginURL(context.Background(), "subscriptions/post")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login?logged_in=true&redirect=subscriptions%2Fpost", got)
}

func TestBuildLoginURL_StoreFailure(t *testing.T) {
	boom := errors.New("store offline")
	r := New(brokenStore{err: boom}, nil, Options{})

	_, err := r.BuildLoginURL(context.Background(), "subscriptions/fetch")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "reading session token")
}

func TestBuildLoginURL_DoesNotTouchStore(t *testing.T) {
	store := storeWithToken(t, "tok-123")
	r := New(store, nil, Options{})

	_, err := r.BuildLoginURL(context.Background(), "login")
	require.NoError(t, err)

	got, err := store.Get(context.Background(), DefaultTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)
}

func TestBuildLoginURL_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	r := New(storage.NewMemoryStore(""), nil, Options{Metrics: m})

	_, _ = r.BuildLoginURL(context.Background(), "subscriptions/fetch")
	_, _ = r.BuildLoginURL(context.Background(), "nope")

	count, err := testutil.GatherAndCount(reg, "authredirect_login_urls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLogin_Navigates(t *testing.T) {
	nav := &recordingNavigator{}
	r := New(storage.NewMemoryStore(""), nav, Options{})

	require.NoError(t, r.Login(context.Background(), "subscriptions/fetch"))
	assert.Equal(t, []string{"/login?redirect=subscriptions%2Ffetch"}, nav.locations)
}

func TestLogin_InvalidTargetDoesNotNavigate(t *testing.T) {
	nav := &recordingNavigator{}
	r := New(storage.NewMemoryStore(""), nav, Options{})

	err := r.Login(context.Background(), "https://evil.example.com")
	assert.ErrorIs(t, err, ErrInvalidRedirect)
	assert.Empty(t, nav.locations)
}

func TestLogin_WithoutNavigator(t *testing.T) {
	r := New(storage.NewMemoryStore(""), nil, Options{})
	assert.ErrorIs(t, r.Login(context.Background(), "login"), ErrNoNavigator)
}
