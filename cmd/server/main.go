package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/oklog/run"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/newsfeed/config"
	"github.com/d60-Lab/newsfeed/internal/api/handler"
	"github.com/d60-Lab/newsfeed/internal/api/router"
	"github.com/d60-Lab/newsfeed/internal/cache"
	"github.com/d60-Lab/newsfeed/internal/repository"
	"github.com/d60-Lab/newsfeed/internal/service"
	"github.com/d60-Lab/newsfeed/pkg/database"
	"github.com/d60-Lab/newsfeed/pkg/logger"
	"github.com/d60-Lab/newsfeed/pkg/tracing"
)

// @title Newsfeed API
// @version 1.0
// @description 关注关系、发帖扇出与时间线
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "", "配置文件路径，默认查找 ./config.yaml")
	flag.Parse()

	if err := serve(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "newsfeed:", err)
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	users := repository.NewUserRepository(db, cfg.Database.UserCacheSize, cfg.Database.UserCacheTTL)
	follows := repository.NewFollowRepository(db)
	inbox := repository.NewInboxRepository(db)
	posts := repository.NewPostRepository(db)
	outbox := repository.NewOutboxRepository(db)
	likes := repository.NewLikeRepository(db)
	comments := repository.NewCommentRepository(db)

	var (
		followerIDs service.FollowerIDSource = follows
		invalidator service.FollowerInvalidator
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unavailable, follower cache falls back to database", zap.Error(err))
		}
		cached := cache.NewCachedFollowerIDs(cache.NewFollowerCache(rdb, cfg.Redis.FollowerTTL), follows)
		followerIDs, invalidator = cached, cached
	}

	engine, err := service.NewFanoutEngine(followerIDs, inbox, cfg.Fanout.BatchSize, service.WithChunkRate(cfg.Fanout.ChunksPerSecond))
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(users, cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	commentService := service.NewCommentService(db, comments, posts, likes)
	h := handler.New(
		accounts,
		service.NewRelationshipService(follows, users, invalidator),
		service.NewPublisher(db, users, outbox, engine, service.PublishMode(cfg.Fanout.Mode), cfg.Fanout.Timeout),
		service.NewPostService(posts, users, likes, follows, commentService),
		service.NewTimelineService(inbox, posts, users),
		service.NewLikeService(likes, posts, comments),
		commentService,
		service.NewCleanupService(db, posts, inbox, outbox, likes, comments, follows, users, invalidator),
	)
	engineHTTP := router.Setup(router.Options{
		Mode:        cfg.Server.Mode,
		ServiceName: cfg.Tracing.ServiceName,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		Swagger:     cfg.Server.Mode != "release",
	}, h, accounts)

	worker := service.NewFanoutWorker(outbox, engine, service.WorkerConfig{
		Workers:      cfg.Fanout.Workers,
		ClaimLimit:   cfg.Fanout.ClaimLimit,
		PollInterval: cfg.Fanout.PollInterval,
		Timeout:      cfg.Fanout.Timeout,
		MaxRetries:   cfg.Fanout.MaxRetries,
		RetryBase:    cfg.Fanout.RetryBase,
	})
	reaper := service.NewOutboxReaper(outbox, cfg.Fanout.StaleAfter)

	var g run.Group
	{
		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      engineHTTP,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		g.Add(func() error {
			logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		})
	}
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return worker.Run(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return reaper.Run(ctx, cfg.Fanout.ReaperSpec)
		}, func(error) {
			cancel()
		})
	}
	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		logger.Info("shutting down", zap.String("signal", sig.Signal.String()))
		return nil
	}
	return err
}
