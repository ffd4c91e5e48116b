package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/agendly/agenda/api/handler"
	"github.com/agendly/agenda/internal/broker"
	"github.com/agendly/agenda/internal/config"
	"github.com/agendly/agenda/internal/infrastructure/dedupe"
	"github.com/agendly/agenda/internal/infrastructure/monitor"
	pgInfra "github.com/agendly/agenda/internal/infrastructure/postgres"
	redisInfra "github.com/agendly/agenda/internal/infrastructure/redis"
	"github.com/agendly/agenda/internal/router"
	"github.com/agendly/agenda/internal/services/lifecycle"
	"github.com/agendly/agenda/pkg/httpcontext"
	"github.com/agendly/agenda/pkg/logger"
	"github.com/agendly/agenda/repository/postgres"
	searchUC "github.com/agendly/agenda/usecase/search"
)

func main() {
	cfg, err := config.Load(config.ServiceSearch)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	ledger, err := dedupe.Open(cfg.Dedupe.Path, cfg.Broker.Group)
	if err != nil {
		zapLogger.Fatal("failed to open dedupe ledger", zap.Error(err))
	}
	manager.Register("dedupe_ledger", func(ctx context.Context) error {
		return ledger.Close()
	})

	mon := monitor.New(pool, redisClient, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	searchRepo := postgres.NewSearchRepository(pool)
	searchUseCase := searchUC.New(searchRepo, zapLogger)

	consumer, err := broker.NewConsumer(redisClient, broker.Options{
		Stream: cfg.Broker.Stream,
		Group:  cfg.Broker.Group,
		Name:   cfg.Broker.Consumer,
		Block:  cfg.Broker.Block,
	}, searchUseCase.Apply, ledger, zapLogger)
	if err != nil {
		zapLogger.Fatal("consumer setup failed", zap.Error(err))
	}
	if err := consumer.Bind(appCtx); err != nil {
		zapLogger.Fatal("consumer group binding failed", zap.Error(err))
	}
	consumer.Start(appCtx)
	manager.Register("consumer", func(ctx context.Context) error {
		return consumer.Stop(ctx)
	})

	reclaimer := broker.NewReclaimer(consumer, cfg.Broker.ReclaimInterval, cfg.Broker.ReclaimAfter, zapLogger)
	reclaimer.Start()
	manager.Register("reclaimer", func(ctx context.Context) error {
		reclaimer.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	r := router.Search(
		apiHandler.NewSearchHandler(searchUseCase, ctxAdapter, zapLogger),
		apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
