package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bomanihosts/backend/internal/api"
	"github.com/bomanihosts/backend/internal/api/handlers"
	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/config"
	"github.com/bomanihosts/backend/internal/domain/contact"
	"github.com/bomanihosts/backend/internal/domain/users"
	"github.com/bomanihosts/backend/internal/email"
	"github.com/bomanihosts/backend/internal/metrics"
	"github.com/bomanihosts/backend/internal/ratelimit"
	"github.com/bomanihosts/backend/internal/storage/postgres"
	"github.com/bomanihosts/backend/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host    string
	port    int
	migrate bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the BomaniHosts HTTP server",
		Long: `Start the BomaniHosts HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Optionally apply pending database migrations (--migrate)
- Serve the contact and account endpoints
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Apply migrations, then start with debug logging
  server serve --migrate --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, opts.migrate)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, migrateFirst bool) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting BomaniHosts server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if migrateFirst {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	metrics.Registry.MustRegister(metrics.NewPoolCollector(pool))

	deps, cleanup, err := buildDependencies(cfg, logger, pool)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(deps),
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// buildDependencies wires repositories, services and the rate limiter. The
// returned cleanup releases the limiter backend.
func buildDependencies(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool) (api.Dependencies, func(), error) {
	store, err := postgres.NewStore(pool)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("create store: %w", err)
	}

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("create email service: %w", err)
	}
	templates, err := email.LoadTemplates()
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("load email templates: %w", err)
	}
	notifier := email.NewContactNotifier(mailer, templates, cfg.Email.AdminAddress)

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("create password hasher: %w", err)
	}

	limiter, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("create rate limiter: %w", err)
	}
	var probe handlers.Pinger
	if redisLimiter, ok := limiter.(*ratelimit.RedisLimiter); ok {
		probe = redisLimiter
	}

	deps := api.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Pool:       pool,
		Contacts:   contact.NewService(store.Contacts(), notifier, cfg.Email.SendTimeout, logger),
		Accounts:   users.NewService(store.Users(), hasher, logger),
		Tokens:     auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, cfg.Auth.JWTIssuer),
		Limiter:    limiter,
		RedisProbe: probe,
		Version:    Version,
		GitCommit:  GitCommit,
		BuildDate:  BuildDate,
	}
	cleanup := func() {
		if err := limiter.Close(); err != nil {
			logger.Error().Err(err).Msg("rate limiter close error")
		}
	}
	return deps, cleanup, nil
}
