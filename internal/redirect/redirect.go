package redirect

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/metrics"
	"github.com/dgellow/authredirect/internal/storage"
)

// Defaults applied by New for zero-valued Options fields
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
	DefaultTokenKey  = "access_token"
	DefaultTimeout   = 30 * time.Second
)

var defaultHTTPClient = &http.Client{Timeout: DefaultTimeout}

// Options configures a Redirector
type Options struct {
	// AllowList holds the accepted redirect targets. The zero value means
	// DefaultRedirects.
	AllowList AllowList
	// PermissiveRedirects skips allow-list enforcement: every target is
	// accepted, matching the legacy web helper whose guard never fired.
	PermissiveRedirects bool

	LoginPath string
	HomePath  string
	TokenKey  string

	// LogoutURL is the absolute URL of the backend logout endpoint
	LogoutURL string
	// StrictLogout makes Logout return *LogoutStatusError on non-200 answers
	// instead of ignoring them.
	StrictLogout bool
	HTTPClient   *http.Client

	Metrics *metrics.Metrics
}

// Redirector builds login URLs and performs logout for one token store.
// It holds no mutable state; concurrent use is safe when the store is.
type Redirector struct {
	store     storage.Store
	navigator Navigator
	opts      Options
	client    *http.Client
}

// New creates a Redirector. nav may be nil when only BuildLoginURL is used.
func New(store storage.Store, nav Navigator, opts Options) *Redirector {
	if opts.AllowList.targets == nil {
		opts.AllowList = NewAllowList(DefaultRedirects)
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if opts.HomePath == "" {
		opts.HomePath = DefaultHomePath
	}
	if opts.TokenKey == "" {
		opts.TokenKey = DefaultTokenKey
	}

	client := opts.HTTPClient
	if client == nil {
		client = defaultHTTPClient
	}

	return &Redirector{
		store:     store,
		navigator: nav,
		opts:      opts,
		client:    client,
	}
}

// BuildLoginURL returns the login URL for a redirect target.
//
// The target is trimmed and lowercased, checked against the allow-list, and
// "login" is rewritten to "". The result is
// "/login?redirect=<target>" without a session token and
// "/login?logged_in=true&redirect=<target>" with one.
func (r *Redirector) BuildLoginURL(ctx context.Context, redirect string) (string, error) {
	target := Normalize(redirect)

	if !r.opts.PermissiveRedirects && !r.opts.AllowList.Contains(target) {
		r.opts.Metrics.LoginURL(metrics.LoginInvalid)
		log.LogWarnWithFields("redirect", "Rejected redirect target", map[string]any{
			"redirect": target,
		})
		return "", &InvalidRedirectError{Redirect: redirect}
	}
	target = Canonical(target)

	loggedIn, err := storage.Has(ctx, r.store, r.opts.TokenKey)
	if err != nil {
		r.opts.Metrics.LoginURL(metrics.LoginError)
		return "", fmt.Errorf("reading session token: %w", err)
	}

	var b strings.Builder
	b.WriteString(r.opts.LoginPath)
	b.WriteByte('?')
	if loggedIn {
		b.WriteString("logged_in=true&")
	}
	b.WriteString("redirect=")
	b.WriteString(EncodeComponent(target))
	loginURL := b.String()

	if loggedIn {
		r.opts.Metrics.LoginURL(metrics.LoginLoggedIn)
	} else {
		r.opts.Metrics.LoginURL(metrics.LoginAnonymous)
	}

	log.LogTraceWithFields("redirect", "Built login URL", map[string]any{
		"redirect": target,
		"loggedIn": loggedIn,
		"url":      loginURL,
	})
	return loginURL, nil
}

// Login builds the login URL for redirect and navigates to it
func (r *Redirector) Login(ctx context.Context, redirect string) error {
	loginURL, err := r.BuildLoginURL(ctx, redirect)
	if err != nil {
		return err
	}
	return r.navigate(ctx, loginURL)
}

// AllowList returns the targets this Redirector accepts
func (r *Redirector) AllowList() AllowList {
	return r.opts.AllowList
}

func (r *Redirector) navigate(ctx context.Context, location string) error {
	if r.navigator == nil {
		return ErrNoNavigator
	}
	if err := r.navigator.Navigate(ctx, location); err != nil {
		return fmt.Errorf("navigating to %s: %w", location, err)
	}
	return nil
}
