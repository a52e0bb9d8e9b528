package redirect

import (
	"net/url"
	"strings"
)

// url.QueryEscape differs from the browser's encodeURIComponent in two ways:
// it writes spaces as '+' and it escapes !'()*. Undo both so URLs match what
// the web frontend produces.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s for use as a query parameter value with
// encodeURIComponent semantics.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
