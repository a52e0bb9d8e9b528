package ioutil

import (
	"fmt"
	"io"
	"strings"
)

// DefaultExcerptLimit bounds response bodies copied into logs and errors
const DefaultExcerptLimit = 512

// ReadLimited reads up to limit bytes from r and returns the content as a string.
// If reading fails, it returns a string describing the failure instead of
// silencing it. Intended for including response bodies in errors and logs.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return strings.TrimSpace(string(body))
}

// Drain discards the rest of r so the underlying connection can be reused.
func Drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64<<10))
}
