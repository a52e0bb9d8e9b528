package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dgellow/authredirect/internal/config"
	"github.com/spf13/cobra"
)

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version":          config.VersionPrefix,
		"baseURL":          map[string]string{"$env": "AUTHREDIRECT_BASE_URL"},
		"loginPath":        "/login",
		"logoutPath":       "/logout",
		"homePath":         "/",
		"tokenKey":         "access_token",
		"redirects":        []string{"subscriptions/fetch", "login", "", "subscriptions/post"},
		"enforceAllowList": true,
		"strictLogout":     false,
		"timeout":          "30s",
		"storage": map[string]any{
			"kind":      "redis",
			"keyPrefix": "authredirect:",
			"redisAddr": map[string]string{"$env": "REDIS_ADDR"},
		},
		"server": map[string]any{
			"addr":         ":8080",
			"cookieMaxAge": "24h",
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(w io.Writer, path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Fprintf(w, "Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(result.Errors))
		for _, err := range result.Errors {
			if err.Path != "" {
				fmt.Fprintf(w, "  - %s: %s\n", err.Path, err.Message)
			} else {
				fmt.Fprintf(w, "  - %s\n", err.Message)
			}
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			if warn.Path != "" {
				fmt.Fprintf(w, "  - %s: %s\n", warn.Path, warn.Message)
			} else {
				fmt.Fprintf(w, "  - %s\n", warn.Message)
			}
		}
	}

	fmt.Fprintln(w)
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		fmt.Fprintln(w, "Result: PASS")
	} else if len(result.Errors) == 0 {
		fmt.Fprintln(w, "Result: FAIL (warnings present)")
	} else {
		fmt.Fprintln(w, "Result: FAIL")
	}

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate config files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Generate a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := generateDefaultConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default config at: %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the file given by --config without resolving env vars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath == "" {
				return fmt.Errorf("--config flag is required for validation")
			}
			return validateConfig(cmd.OutOrStdout(), opts.configPath)
		},
	})

	return cmd
}
