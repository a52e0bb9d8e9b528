package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dgellow/authredirect/internal"
	"github.com/dgellow/authredirect/internal/config"
	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/redirect"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var BuildVersion = "dev"

const defaultEnvFile = ".env"

type rootOptions struct {
	configPath string
	envFile    string
	token      string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{envFile: defaultEnvFile}

	root := &cobra.Command{
		Use:           "authredirect",
		Short:         "Build login redirect URLs and call the logout endpoint",
		Version:       BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile, cmd.Flags().Changed("env-file"))
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", opts.envFile, "dotenv file loaded before the config")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "session token seeded into the store before running")

	root.AddCommand(
		newServeCmd(opts),
		newLoginURLCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newTokenCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// loadEnvFile loads a dotenv file. A missing default file is not an error;
// a missing file named explicitly is.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	log.LogDebugWithFields("main", "Loaded env file", map[string]any{
		"path": path,
	})
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, config.ValidateConfig(&cfg)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openApp loads the config, builds the application and seeds --token
func openApp(ctx context.Context, opts *rootOptions) (*internal.App, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	app, err := internal.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if opts.token != "" {
		if err := app.Store().Set(ctx, app.TokenKey(), opts.token, 0); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("seeding session token: %w", err)
		}
	}
	return app, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /auth/login, /auth/logout, /health and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.LogInfoWithFields("main", "Starting authredirect", map[string]any{
				"version": BuildVersion,
				"config":  opts.configPath,
			})

			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Run(cmd.Context())
		},
	}
}

func newLoginURLCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login-url <target>",
		Short: "Print the login URL for a redirect target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			loginURL, err := app.Redirector(nil).BuildLoginURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), loginURL)
			return err
		},
	}
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <target>",
		Short: "Navigate to the login URL for a redirect target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			nav := redirect.WriterNavigator{W: cmd.OutOrStdout()}
			return app.Redirector(nav).Login(cmd.Context(), args[0])
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Call the logout endpoint and clear the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			nav := redirect.WriterNavigator{W: cmd.OutOrStdout()}
			return app.Redirector(nav).Logout(cmd.Context())
		},
	}
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		log.LogError("%v", err)
		os.Exit(1)
	}
}
