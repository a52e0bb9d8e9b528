package redirect

import (
	"slices"
	"strings"
)

// LoginTarget is the redirect target that points back at the login page.
// It is rewritten to the empty target to avoid a redirect loop.
const LoginTarget = "login"

// DefaultRedirects are the targets accepted when no list is configured
var DefaultRedirects = []string{"subscriptions/fetch", LoginTarget, "", "subscriptions/post"}

// AllowList is an immutable set of normalized redirect targets
type AllowList struct {
	targets map[string]struct{}
}

// NewAllowList normalizes entries and builds the set. Unlike host allow-lists
// the empty string is a meaningful entry (redirect to the site root).
func NewAllowList(entries []string) AllowList {
	targets := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		targets[Normalize(e)] = struct{}{}
	}
	return AllowList{targets: targets}
}

// Contains reports whether the already-normalized target is allowed
func (a AllowList) Contains(target string) bool {
	_, ok := a.targets[target]
	return ok
}

// Len returns the number of distinct targets
func (a AllowList) Len() int {
	return len(a.targets)
}

// Targets returns the allowed targets in sorted order
func (a AllowList) Targets() []string {
	out := make([]string, 0, len(a.targets))
	for t := range a.targets {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Normalize trims surrounding whitespace and lowercases a target
func Normalize(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}

// Canonical maps a normalized target to the value sent as the redirect
// parameter.
func Canonical(target string) string {
	if target == LoginTarget {
		return ""
	}
	return target
}
