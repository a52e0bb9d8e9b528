// Package redirect builds login URLs that carry a post-login redirect target
// and performs the logout round trip against the backend.
//
// A Redirector reads the session token from a storage.Store to decide
// whether the login URL advertises an existing session, validates redirect
// targets against a fixed AllowList, and hands every location it produces
// to a Navigator. Navigation is always the caller's concern: a CLI prints the
// location, an HTTP handler answers with a redirect.
package redirect
