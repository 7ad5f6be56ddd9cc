package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/account-auth/internal/config"     // Internal config loader
	"github.com/iliyamo/account-auth/internal/database"   // MySQL pool and migrations
	"github.com/iliyamo/account-auth/internal/handler"    // HTTP handlers
	"github.com/iliyamo/account-auth/internal/metrics"    // Prometheus auth counters
	"github.com/iliyamo/account-auth/internal/repository" // MySQL and Redis stores
	"github.com/iliyamo/account-auth/internal/router"     // Internal router setup
	"github.com/iliyamo/account-auth/internal/service"    // auth and account use cases
	"github.com/iliyamo/account-auth/internal/utils"      // bcrypt and JWT adapters
	"github.com/iliyamo/account-auth/internal/worker"     // expired token cleanup
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := config.Load() // Load environment config

	dsn := database.DSN(cfg.DSNParts())
	if cfg.AutoMigrate {
		if err := database.RunMigrations(dsn); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := database.DefaultPool()
	pool.MaxOpen, pool.MaxIdle = cfg.DBMaxOpenConns, cfg.DBMaxOpenConns
	db, err := database.Open(ctx, dsn, pool)
	if err != nil {
		return err
	}
	defer db.Close()

	pingers := []handler.Pinger{db}
	users := repository.NewUserRepo(db)

	var tokens service.RefreshTokenStore
	switch cfg.TokenStore {
	case config.TokenStoreRedis:
		rdb, err := config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		tokens = repository.NewRedisTokenRepo(rdb, cfg.Redis.KeyPrefix)
		pingers = append(pingers, redisPinger{rdb})
		logger.Info("refresh tokens stored in redis")
	default:
		sqlTokens := repository.NewTokenRepo(db)
		tokens = sqlTokens
		if cfg.TokenCleanup > 0 {
			go worker.NewCleanupJob(sqlTokens, logger).Start(ctx, cfg.TokenCleanup)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		pub := service.NewAMQPPublisher(cfg.AMQPURL, logger)
		go pub.Run(ctx)
		events = pub
	}

	opts := []service.Option{
		service.WithEvents(events),
		service.WithMetrics(collector),
		service.WithLogger(logger),
	}
	issuer := utils.NewJWTIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.RefreshTTL)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)
	authSvc := service.NewAuthService(users, tokens, hasher, issuer, cfg.AccessTTL, opts...)
	userSvc := service.NewUserService(users, hasher, opts...)

	cookies := handler.CookieConfig{
		Secure:       cfg.Production(),
		AccessMaxAge: cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
	}
	e := router.New(logger)
	router.RegisterRoutes(e, handler.Ready(pingers...), metrics.Handler(reg))
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, userSvc, cookies, cfg.RequestTimeout), issuer)
	router.RegisterUsers(e, handler.NewUserHandler(userSvc, cfg.RequestTimeout), issuer)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "token_store", cfg.TokenStore)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// redisPinger adapts a Redis client to the readiness check.
type redisPinger struct{ rdb redis.UniversalClient }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }
