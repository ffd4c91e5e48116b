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
	"github.com/agendly/agenda/internal/infrastructure/monitor"
	pgInfra "github.com/agendly/agenda/internal/infrastructure/postgres"
	redisInfra "github.com/agendly/agenda/internal/infrastructure/redis"
	"github.com/agendly/agenda/internal/router"
	"github.com/agendly/agenda/internal/services/lifecycle"
	"github.com/agendly/agenda/pkg/httpcontext"
	"github.com/agendly/agenda/pkg/logger"
	"github.com/agendly/agenda/repository/postgres"
	appointmentUC "github.com/agendly/agenda/usecase/appointment"
)

func main() {
	cfg, err := config.Load(config.ServiceAppointments)
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

	mon := monitor.New(pool, redisClient, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	bus := broker.NewBus(redisClient, cfg.Broker.Stream, zapLogger)

	appointmentRepo := postgres.NewAppointmentRepository(pool)
	appointmentUseCase := appointmentUC.New(appointmentRepo, bus, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	r := router.Appointments(
		apiHandler.NewAppointmentHandler(appointmentUseCase, ctxAdapter, zapLogger),
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
