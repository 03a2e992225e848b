package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/guildtools/ticketbot/internal/api/http"
	"github.com/guildtools/ticketbot/internal/api/http/handlers"
	"github.com/guildtools/ticketbot/internal/auth"
	"github.com/guildtools/ticketbot/internal/cache"
	"github.com/guildtools/ticketbot/internal/config"
	"github.com/guildtools/ticketbot/internal/controls"
	"github.com/guildtools/ticketbot/internal/domain"
	"github.com/guildtools/ticketbot/internal/events"
	"github.com/guildtools/ticketbot/internal/gateway"
	"github.com/guildtools/ticketbot/internal/observability"
	"github.com/guildtools/ticketbot/internal/persistence"
	"github.com/guildtools/ticketbot/internal/queue"
	"github.com/guildtools/ticketbot/internal/ratelimit"
	"github.com/guildtools/ticketbot/internal/repository"
	"github.com/guildtools/ticketbot/internal/service"
	"github.com/guildtools/ticketbot/internal/transcript"
	"github.com/guildtools/ticketbot/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.Files, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	retryer := repository.NewRetryer(repository.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
		MaxDelay:    cfg.Retry.MaxDelay(),
	}, logger, metrics)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool, retryer)
	panelRepo := repository.NewPanelRepository(pool, retryer)
	controlRepo := repository.NewControlRepository(pool, retryer)

	registry := controls.NewRegistry(controlRepo, redis.ClientHandle(), cfg.Tickets.ConfigCacheTTL(), logger)
	dispatcher := events.NewInMemoryDispatcher()

	var publisher *queue.Publisher
	if cfg.Queue.URL != "" {
		publisher, err = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to connect amqp", zap.Error(err))
		}
		publisher.SubscribeAll(dispatcher)
		defer publisher.Close()
	}

	var history service.HistoryFetcher
	var poster service.TranscriptPoster
	var roles service.RoleChecker
	if cfg.Gateway.BaseURL != "" {
		client := gateway.NewClient(cfg.Gateway, logger)
		history, poster, roles = client, client, client
	} else {
		logger.Warn("GATEWAY_BASE_URL not set, platform calls are stubbed")
		noop := gateway.Noop{Logger: logger}
		history, poster, roles = noop, noop, noop
	}

	manager := service.NewTicketManager(service.ManagerDependencies{
		TicketRepo:      ticketRepo,
		PanelRepo:       panelRepo,
		Registry:        registry,
		Limiter:         ratelimit.New(),
		ConfigCache:     cache.New[string, *domain.PanelConfig](cfg.Tickets.CacheCapacity),
		LookupCache:     cache.New[string, string](cfg.Tickets.CacheCapacity),
		Transcripts:     transcript.New(),
		History:         history,
		Poster:          poster,
		Roles:           roles,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
		RateLimitWindow: cfg.Tickets.RateLimitWindow(),
		ConfigCacheTTL:  cfg.Tickets.ConfigCacheTTL(),
		LookupCacheTTL:  cfg.Tickets.LookupCacheTTL(),
	})
	defer manager.Shutdown()

	go runSweeper(ctx, manager, cfg.Tickets.SweepInterval())

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Interactions:   handlers.NewInteractionsHandler(manager, registry, metrics),
		Tickets:        handlers.NewTicketsHandler(manager),
		Panel:          handlers.NewPanelHandler(manager),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func runSweeper(ctx context.Context, manager *service.TicketManager, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.Sweep()
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
