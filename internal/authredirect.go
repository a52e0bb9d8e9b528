package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgellow/authredirect/internal/config"
	"github.com/dgellow/authredirect/internal/log"
	"github.com/dgellow/authredirect/internal/metrics"
	"github.com/dgellow/authredirect/internal/redirect"
	"github.com/dgellow/authredirect/internal/server"
	"github.com/dgellow/authredirect/internal/storage"
	"github.com/dgellow/authredirect/internal/urlutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// App wires configuration, token storage, metrics and the HTTP surface
type App struct {
	config     config.Config
	store      storage.Store
	registry   *prometheus.Registry
	opts       redirect.Options
	handler    http.Handler
	httpServer *server.HTTPServer
}

// NewApp builds the application from a resolved config
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	log.LogInfoWithFields("main", "Building application", map[string]any{
		"baseURL":          cfg.BaseURL,
		"storage":          cfg.Storage.Kind,
		"redirects":        len(cfg.Redirects),
		"enforceAllowList": cfg.EnforceAllowList,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to setup metrics: %w", err)
	}

	opts, err := redirectOptions(cfg, m)
	if err != nil {
		return nil, err
	}

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	handler := buildHTTPHandler(cfg, opts, registry)

	return &App{
		config:     cfg,
		store:      store,
		registry:   registry,
		opts:       opts,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Server.Addr),
	}, nil
}

// Redirector returns a Redirector over the configured token store
func (a *App) Redirector(nav redirect.Navigator) *redirect.Redirector {
	return redirect.New(a.store, nav, a.opts)
}

// Store returns the configured token store
func (a *App) Store() storage.Store {
	return a.store
}

// TokenKey returns the storage key of the session token
func (a *App) TokenKey() string {
	return a.opts.TokenKey
}

// Handler returns the HTTP handler served by Run
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	log.LogInfoWithFields("main", "Starting HTTP surface", map[string]any{
		"addr": a.config.Server.Addr,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.LogInfoWithFields("main", "Starting graceful shutdown", map[string]any{
			"reason":  context.Cause(gctx).Error(),
			"timeout": shutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			log.LogErrorWithFields("main", "HTTP server shutdown error", map[string]any{
				"error": err.Error(),
			})
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.LogInfoWithFields("main", "Application shutdown complete", nil)
	return nil
}

// Close releases the token store connection, if any
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func setupStorage(ctx context.Context, cfg config.Config) (storage.Store, error) {
	s := cfg.Storage
	return storage.Open(ctx, storage.Options{
		Kind:          s.Kind,
		KeyPrefix:     s.KeyPrefix,
		RedisAddr:     s.RedisAddr,
		RedisPassword: string(s.RedisPassword),
		RedisDB:       s.RedisDB,
		Firestore: storage.FirestoreOptions{
			ProjectID:       s.GCPProject,
			Database:        s.FirestoreDatabase,
			Collection:      s.Collection,
			CredentialsFile: s.CredentialsFile,
		},
	})
}

func redirectOptions(cfg config.Config, m *metrics.Metrics) (redirect.Options, error) {
	logoutURL, err := urlutil.ResolveEndpoint(cfg.BaseURL, cfg.LogoutPath)
	if err != nil {
		return redirect.Options{}, fmt.Errorf("invalid logout endpoint: %w", err)
	}

	return redirect.Options{
		AllowList:           redirect.NewAllowList(cfg.Redirects),
		PermissiveRedirects: !cfg.EnforceAllowList,
		LoginPath:           cfg.LoginPath,
		HomePath:            cfg.HomePath,
		TokenKey:            cfg.TokenKey,
		LogoutURL:           logoutURL,
		StrictLogout:        cfg.StrictLogout,
		HTTPClient:          &http.Client{Timeout: cfg.Timeout},
		Metrics:             m,
	}, nil
}

func buildHTTPHandler(cfg config.Config, opts redirect.Options, gatherer prometheus.Gatherer) http.Handler {
	authHandlers := server.NewAuthHandlers(opts, cfg.Server.CookieMaxAge)
	return server.NewMux(authHandlers, gatherer)
}
