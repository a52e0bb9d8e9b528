package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dgellow/authredirect/internal/log"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored session token",
	}
	cmd.AddCommand(newTokenSetCmd(opts), newTokenImportCmd(opts), newTokenClearCmd(opts))
	return cmd
}

func newTokenSetCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "set <value>",
		Short: "Store a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Store().Set(cmd.Context(), app.TokenKey(), args[0], ttl); err != nil {
				return fmt.Errorf("storing session token: %w", err)
			}
			log.LogInfoWithFields("main", "Session token stored", map[string]any{
				"ttl": ttl.String(),
			})
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expiry of the stored token (0 keeps it until cleared)")
	return cmd
}

// tokenTTL returns how long tok stays usable. Zero means no known expiry.
func tokenTTL(tok *oauth2.Token, now time.Time) time.Duration {
	switch {
	case !tok.Expiry.IsZero():
		return tok.Expiry.Sub(now)
	case tok.ExpiresIn > 0:
		return time.Duration(tok.ExpiresIn) * time.Second
	default:
		return 0
	}
}

func readOAuthToken(r io.Reader) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.NewDecoder(r).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decoding token JSON: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token JSON has no access_token")
	}
	if !tok.Expiry.IsZero() && !tok.Valid() {
		return nil, fmt.Errorf("token expired at %s", tok.Expiry.Format(time.RFC3339))
	}
	return &tok, nil
}

func newTokenImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Store the access token of an OAuth2 token JSON read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := readOAuthToken(cmd.InOrStdin())
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ttl := tokenTTL(tok, time.Now())
			if err := app.Store().Set(cmd.Context(), app.TokenKey(), tok.AccessToken, ttl); err != nil {
				return fmt.Errorf("storing session token: %w", err)
			}
			log.LogInfoWithFields("main", "Session token imported", map[string]any{
				"tokenType": tok.Type(),
				"ttl":       ttl.Round(time.Second).String(),
			})
			return nil
		},
	}
}

func newTokenClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Store().Delete(cmd.Context(), app.TokenKey()); err != nil {
				return fmt.Errorf("removing session token: %w", err)
			}
			return nil
		},
	}
}
