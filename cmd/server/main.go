package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/postr/config"
	"github.com/d60-Lab/postr/internal/api"
	"github.com/d60-Lab/postr/internal/api/handler"
	"github.com/d60-Lab/postr/internal/auth"
	"github.com/d60-Lab/postr/internal/cache"
	"github.com/d60-Lab/postr/internal/repository"
	"github.com/d60-Lab/postr/internal/service"
	"github.com/d60-Lab/postr/pkg/database"
	"github.com/d60-Lab/postr/pkg/logger"
	"github.com/d60-Lab/postr/pkg/tracing"
)

// @title postr API
// @version 1.0
// @description Micro-blogging backend: accounts, posts with edit history, follows, likes and feeds.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer <token>
func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger 尚未初始化
		_, _ = os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		_, _ = os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// 缓存不可用时降级为直连数据库，不阻止启动
			logger.Warn("redis unreachable, relation cache will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}
	relCache := cache.NewRelationCache(rdb, cfg.Redis.Prefix, cfg.Redis.TTL)
	invalidator := cache.NewInvalidator(relCache, 1024, 5, 200*time.Millisecond)
	stopInvalidator := invalidator.Start(2)

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		logger.Fatal("init token manager", zap.Error(err))
	}
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	h := handler.NewHandler(
		service.NewUserService(userRepo, hasher, tokens),
		service.NewPostService(postRepo, likeRepo),
		service.NewRelationshipService(userRepo, postRepo, followRepo, likeRepo, relCache, invalidator),
		service.NewFeedService(followRepo, postRepo, relCache),
		func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	)

	opts := api.RouterOptions{
		Mode:          cfg.Server.Mode,
		CORSOrigins:   cfg.Server.CORSOrigins,
		StoreDeadline: cfg.Database.AcquireTimeout,
		Swagger:       cfg.Server.Swagger,
	}
	if cfg.Tracing.Enabled {
		opts.TracingService = cfg.Tracing.ServiceName
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(h, tokens, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if err := stopInvalidator(ctx); err != nil {
		logger.Warn("invalidation queue not drained", zap.Int("pending", invalidator.QueueLen()), zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("close redis", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		logger.Error("close database", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
