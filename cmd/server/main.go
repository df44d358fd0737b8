package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	auditHandler "rotacultural/internal/audit/handler"
	authHandler "rotacultural/internal/auth/handler"
	authService "rotacultural/internal/auth/service"
	"rotacultural/internal/auth/store/revocation"
	userStore "rotacultural/internal/auth/store/user"
	jwttoken "rotacultural/internal/jwt_token"
	"rotacultural/internal/platform/config"
	"rotacultural/internal/platform/httpserver"
	"rotacultural/internal/platform/logger"
	"rotacultural/internal/platform/metrics"
	"rotacultural/internal/platform/postgres"
	"rotacultural/internal/platform/redis"
	"rotacultural/internal/points/cache"
	pointsHandler "rotacultural/internal/points/handler"
	pointsMetrics "rotacultural/internal/points/metrics"
	"rotacultural/internal/points/models"
	pointsService "rotacultural/internal/points/service"
	"rotacultural/internal/points/store/tree"
	ratelimit "rotacultural/internal/ratelimit/middleware"
	rlModels "rotacultural/internal/ratelimit/models"
	"rotacultural/internal/ratelimit/store/bucket"
	httptransport "rotacultural/internal/transport/http"
	"rotacultural/pkg/platform/audit/publisher"
	auditStore "rotacultural/pkg/platform/audit/store/memory"
	"rotacultural/pkg/platform/circuit"
	"rotacultural/pkg/platform/middleware/admin"
	authmw "rotacultural/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// backend is the selected tree store plus what the server needs to manage it.
type backend struct {
	tree   tree.Store
	health httptransport.HealthCheck
	close  func()
	// redis is shared with the token revocation list when present.
	redis *redis.Client
}

func openBackend(ctx context.Context, cfg config.Server) (*backend, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, err
		}
		t := tree.NewRedisTree(client.Client, tree.WithKeyPrefix(cfg.Store.KeyPrefix))
		return &backend{
			tree:   t,
			health: client.Health,
			close:  func() { _ = client.Close() },
			redis:  client,
		}, nil
	case config.BackendBolt:
		t, err := tree.OpenBoltTree(cfg.Store.BoltPath, tree.BoltOptions{Bucket: cfg.Store.KeyPrefix})
		if err != nil {
			return nil, err
		}
		return &backend{tree: t, close: func() { _ = t.Close() }}, nil
	case config.BackendPostgres:
		pool, err := postgres.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		t := tree.NewPostgresTree(pool)
		if err := t.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &backend{tree: t, health: t.Health, close: pool.Close}, nil
	default:
		return &backend{tree: tree.NewInMemoryTree(), close: func() {}}, nil
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set JWT_SIGNING_KEY in production")
	}

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer store.close()

	var pointsTree pointsService.Tree = store.tree
	if cfg.Store.Backend != config.BackendMemory {
		pointsTree = tree.NewBreakerTree(store.tree, circuit.New(cfg.Store.Backend,
			circuit.WithFailureThreshold(cfg.Store.BreakerFailures),
			circuit.WithCooldown(cfg.Store.BreakerCooldown),
		), log)
	}

	appMetrics := metrics.New()
	auditor := publisher.NewPublisher(auditStore.NewInMemoryStore(),
		publisher.WithAsyncBuffer(cfg.AuditBuffer),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	points := pointsService.New(
		pointsTree,
		cache.New[any](cfg.Points.CacheTTL),
		models.NewValidator(cfg.PointCategories()),
		pointsService.WithLogger(log),
		pointsService.WithMetrics(pointsMetrics.New()),
		pointsService.WithPageSize(cfg.Points.PageSize),
		pointsService.WithAuditor(auditor),
	)

	var revocations authService.RevocationList = revocation.NewInMemoryTRL()
	if store.redis != nil {
		revocations = revocation.NewRedisTRL(store.redis.Client, revocation.WithKeyPrefix(cfg.Store.KeyPrefix))
	}
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	accounts := authService.New(userStore.New(), tokens, revocations, cfg.Auth.TokenTTL,
		authService.WithLogger(log),
		authService.WithMetrics(appMetrics),
		authService.WithAuditor(auditor),
	)

	var buckets ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	if store.redis != nil {
		buckets = bucket.NewRedisBucketStore(store.redis.Client, bucket.WithRedisKeyPrefix(cfg.Store.KeyPrefix))
	}
	limiter := ratelimit.New(buckets, log,
		ratelimit.WithLimit(rlModels.ClassAuth, rlModels.Limit{Requests: cfg.RateLimit.AuthRequests, Window: cfg.RateLimit.Window}),
		ratelimit.WithLimit(rlModels.ClassWrite, rlModels.Limit{Requests: cfg.RateLimit.WriteRequests, Window: cfg.RateLimit.Window}),
		ratelimit.WithObserver(appMetrics),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
	)

	oracle := authService.ContextOracle{}
	requireAuth := authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), accounts, log)
	requireAdmin := admin.RequireAdminToken(cfg.Auth.AdminToken, log)
	router := httptransport.NewRouter(httptransport.Options{
		Logger:  log,
		Latency: appMetrics,
		Metrics: promhttp.Handler(),
		Health:  store.health,
	},
		pointsHandler.New(points, oracle, requireAuth, log,
			pointsHandler.WithRateLimit(limiter.RateLimit(rlModels.ClassWrite))),
		authHandler.New(accounts, oracle, requireAuth, requireAdmin, log,
			authHandler.WithRateLimit(limiter.RateLimit(rlModels.ClassAuth))),
		auditHandler.New(auditor, requireAdmin, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting rotacultural",
			"addr", cfg.Addr,
			"store_backend", cfg.Store.Backend,
			"cache_ttl", cfg.Points.CacheTTL.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
