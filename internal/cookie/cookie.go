package cookie

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgellow/authredirect/internal/envutil"
	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/storage"
)

// Set writes a cookie with the security settings used for session tokens.
// A maxAge of zero produces a browser-session cookie.
func Set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Cookie set", map[string]any{
		"name":     name,
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	log.LogTraceWithFields("cookie", "Cookie cleared", map[string]any{
		"name": name,
	})
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// Store exposes the cookies of one request/response pair as a storage.Store,
// the server-side view of the browser's session storage. Keys are cookie
// names. Writes made during the request are visible to later reads. A Store
// belongs to a single request and is not safe for concurrent use.
type Store struct {
	w       http.ResponseWriter
	r       *http.Request
	maxAge  time.Duration
	pending map[string]*string
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Store. maxAge is used for Set calls without a ttl.
func NewStore(w http.ResponseWriter, r *http.Request, maxAge time.Duration) *Store {
	return &Store{
		w:       w,
		r:       r,
		maxAge:  maxAge,
		pending: make(map[string]*string),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", storage.ErrTokenNotFound
		}
		return *v, nil
	}

	v, err := Get(s.r, key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", storage.ErrTokenNotFound
	}
	return v, err
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.maxAge
	}
	Set(s.w, key, value, ttl)
	s.pending[key] = &value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	Clear(s.w, key)
	s.pending[key] = nil
	return nil
}
