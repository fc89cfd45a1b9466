package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/auth"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
	"github.com/oneroskilfu/ireva-app-sub001/internal/notification"
	"github.com/oneroskilfu/ireva-app-sub001/internal/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/paymentgateway"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ratelimit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/refund"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport/rest"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport/swagger"
	"github.com/oneroskilfu/ireva-app-sub001/pkg/signature"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests and provider webhooks`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer(cmd.Context())
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *dbHandles
	Redis     *redis.Client
	Bus       *events.EventBus
	Publisher notification.Publisher
	Sandbox   *paymentgateway.Sandbox
	Router    *chi.Mux
	Logger    *slog.Logger
}

// Close releases resources in reverse order of construction. In-flight event
// handlers finish before the publisher and database go away.
func (d *Dependencies) Close() {
	if d.Sandbox != nil {
		d.Sandbox.Shutdown()
	}
	if d.Bus != nil {
		d.Bus.Wait()
	}
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error("notification publisher close error", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}

func startHTTPServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting HTTP server",
			"address", addr,
			"environment", deps.Config.Environment,
			"provider", deps.Config.Payment.Provider)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Logger.Info("server stopped")
	return nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, lg, err := bootstrap()
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{Config: cfg, Logger: lg, Router: chi.NewRouter()}
	ok := false
	defer func() {
		if !ok {
			deps.Close()
		}
	}()

	// Refuses to start in production without a webhook secret.
	verifier, err := signature.NewVerifier(cfg.Webhook.Secret, cfg.IsProduction(), lg)
	if err != nil {
		return nil, fmt.Errorf("webhook verifier: %w", err)
	}

	if deps.DB, err = openDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.Webhook.RateLimit.Requests, cfg.Webhook.RateLimit.Window)
	if cfg.Redis.Enabled {
		deps.Redis, err = ratelimit.NewRedisClient(ctx, ratelimit.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		limiter = ratelimit.NewRedisLimiter(deps.Redis, cfg.Webhook.RateLimit.Requests, cfg.Webhook.RateLimit.Window, "ratelimit:webhook", lg)
	}

	deps.Bus = events.NewEventBus(lg)
	if deps.Publisher, err = newNotificationPublisher(cfg, lg); err != nil {
		return nil, err
	}
	notification.NewNotifier(deps.Publisher, cfg.Kafka.TopicPrefix, lg).Register(deps.Bus)

	var provider payment.Provider
	provider, deps.Sandbox = newProvider(cfg, lg)

	svc := buildServices(cfg, deps.DB, provider, deps.Bus, lg)

	var spec *swagger.Spec
	if cfg.Server.OpenAPIPath != "" {
		if spec, err = swagger.Load(ctx, cfg.Server.OpenAPIPath); err != nil {
			return nil, err
		}
	}

	var healthRedis redis.UniversalClient
	if deps.Redis != nil {
		healthRedis = deps.Redis
	}

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:         rest.NewHealthHandler(deps.DB.SQL, healthRedis),
		Auth:           auth.NewHandler(auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer), lg),
		Payment:        payment.NewHandler(svc.Payment, lg),
		Webhook:        payment.NewWebhookHandler(svc.Payment, svc.Inbox, verifier, cfg.Webhook.SignatureHeader, cfg.Webhook.MaxBodyBytes, lg),
		Ledger:         ledger.NewHandler(svc.Ledger, lg),
		Refund:         refund.NewHandler(svc.Refund, lg),
		Reconciliation: reconciliation.NewHandler(svc.Reconciliation, lg),
		OpenAPI:        spec,
	}, rest.WebhookLimits{
		Limiter:           limiter,
		TrustForwardedFor: cfg.Webhook.TrustForwardedFor,
	}, lg)

	ok = true
	return deps, nil
}

func init() {
	rootCmd.AddCommand(httpServerCmd)
}
