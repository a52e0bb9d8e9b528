package redirect

import (
	"context"
	"fmt"
	"io"
)

// Navigator moves the user agent to a location produced by a Redirector
type Navigator interface {
	Navigate(ctx context.Context, location string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(ctx context.Context, location string) error

func (f NavigatorFunc) Navigate(ctx context.Context, location string) error {
	return f(ctx, location)
}

// WriterNavigator "navigates" by printing the location, one per line
type WriterNavigator struct {
	W io.Writer
}

func (n WriterNavigator) Navigate(_ context.Context, location string) error {
	_, err := fmt.Fprintf(n.W, "Location: %s\n", location)
	return err
}
