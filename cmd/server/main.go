package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"startuppush/internal/auth"
	"startuppush/internal/config"
	"startuppush/internal/db"
	"startuppush/internal/logger"
	"startuppush/internal/models"
	"startuppush/internal/router"
	"startuppush/internal/services"
	"startuppush/internal/tracing"
)

const serviceName = "startuppush"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Tracing disabled")
		} else {
			defer tracing.Shutdown(tp, 5*time.Second)
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	// 通知：数据库必写，配置了 Kafka 时同时投递到 Kafka
	sinks := []services.Sink{services.NewStoreSink(store)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink := services.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaNotificationTopic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaNotificationTopic).Msg("Kafka notification sink enabled")
	}
	dispatcher := services.NewDispatcher(sinks...)

	var counter services.SaleCounter
	if cfg.BoostCounterBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		counter = services.NewRedisSaleCounter(rdb)
	}

	svc := services.New(services.Deps{
		Store:    store,
		Emitter:  dispatcher,
		Counter:  counter,
		Policy:   cfg.Policy,
		Location: cfg.Location,
	})

	var signer *auth.Signer
	if cfg.JWTSecret != "" {
		if signer, err = auth.NewSigner(cfg.JWTSecret); err != nil {
			log.Fatal().Err(err).Msg("Invalid JWT secret")
		}
	}

	r := router.Setup(router.Deps{
		Services:      svc,
		Store:         store,
		Signer:        signer,
		SessionSecret: cfg.SessionSecret,
		CORSOrigins:   cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("StartUpPush server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}

	// 排空通知队列后再关闭存储
	dispatcher.Close()
	log.Info().Msg("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		store := db.NewMemory()
		if err := seedMemory(ctx, store); err != nil {
			return nil, nil, err
		}
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return store, func() {}, nil
	}

	store, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}, nil
}

// seedMemory 内存模式下预置一个管理员和一个普通用户，方便本地调试
func seedMemory(ctx context.Context, store db.Store) error {
	users := []models.User{
		{ID: 1, Username: "admin", Role: models.RoleAdmin},
		{ID: 2, Username: "demo", Role: "user"},
	}
	for i := range users {
		if err := store.CreateUser(ctx, &users[i]); err != nil {
			return errors.Wrapf(err, "seed user %s", users[i].Username)
		}
	}
	log.Info().Msg("Seeded admin (id 1) and demo (id 2) users")
	return nil
}
