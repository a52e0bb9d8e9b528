package redirect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dgellow/authredirect/internal/ioutil"
	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/metrics"
	"github.com/dgellow/authredirect/internal/storage"
)

// Logout calls the logout endpoint. On 200 OK the session token is removed
// and the navigator is sent to the home path. Any other status leaves the
// token and location untouched; it is logged and, unless StrictLogout is
// set, not reported. Transport failures are returned without retrying.
func (r *Redirector) Logout(ctx context.Context) error {
	if r.opts.LogoutURL == "" {
		return ErrNoLogoutEndpoint
	}

	hadToken, err := storage.Has(ctx, r.store, r.opts.TokenKey)
	if err != nil {
		log.LogWarnWithFields("redirect", "Could not read session token before logout", map[string]any{
			"error": err.Error(),
		})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.LogoutURL, nil)
	if err != nil {
		r.opts.Metrics.Logout(metrics.LogoutError, 0)
		return fmt.Errorf("building logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.LogDebugWithFields("redirect", "Calling logout endpoint", map[string]any{
		"url":      r.opts.LogoutURL,
		"hadToken": hadToken,
	})

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.opts.Metrics.Logout(metrics.LogoutTransport, time.Since(start))
		log.LogErrorWithFields("redirect", "Logout request failed", map[string]any{
			"url":   r.opts.LogoutURL,
			"error": err.Error(),
		})
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		body := ioutil.ReadLimited(resp.Body, ioutil.DefaultExcerptLimit)
		r.opts.Metrics.Logout(metrics.LogoutRejected, elapsed)
		log.LogWarnWithFields("redirect", "Logout endpoint refused", map[string]any{
			"status": resp.StatusCode,
			"body":   body,
		})
		if r.opts.StrictLogout {
			return &LogoutStatusError{StatusCode: resp.StatusCode, Body: body}
		}
		return nil
	}
	ioutil.Drain(resp.Body)

	if err := r.store.Delete(ctx, r.opts.TokenKey); err != nil {
		r.opts.Metrics.Logout(metrics.LogoutError, elapsed)
		return fmt.Errorf("removing session token: %w", err)
	}

	if err := r.navigate(ctx, r.opts.HomePath); err != nil {
		r.opts.Metrics.Logout(metrics.LogoutError, elapsed)
		return err
	}

	r.opts.Metrics.Logout(metrics.LogoutSuccess, elapsed)
	log.LogInfoWithFields("redirect", "Logged out", map[string]any{
		"hadToken": hadToken,
	})
	return nil
}
