package redirect

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRedirect matches every *InvalidRedirectError
	ErrInvalidRedirect = errors.New("invalid redirect target")
	// ErrLogoutRejected matches every *LogoutStatusError
	ErrLogoutRejected = errors.New("logout rejected")
	// ErrNoNavigator is returned when an operation needs to navigate but the
	// Redirector was built without a Navigator
	ErrNoNavigator = errors.New("no navigator configured")
	// ErrNoLogoutEndpoint is returned by Logout when no endpoint is configured
	ErrNoLogoutEndpoint = errors.New("logout endpoint not configured")
)

// InvalidRedirectError reports a redirect target outside the allow-list
type InvalidRedirectError struct {
	Redirect string
}

func (e *InvalidRedirectError) Error() string {
	return fmt.Sprintf("invalid redirect target %q", e.Redirect)
}

func (e *InvalidRedirectError) Is(target error) bool {
	return target == ErrInvalidRedirect
}

// LogoutStatusError reports a logout endpoint answer other than 200 OK.
// Only returned when strict logout is enabled.
type LogoutStatusError struct {
	StatusCode int
	Body       string
}

func (e *LogoutStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("logout rejected: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("logout rejected: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *LogoutStatusError) Is(target error) bool {
	return target == ErrLogoutRejected
}
