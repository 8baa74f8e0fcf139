package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/richxcame/fleet-engine/internal/booking"
	"github.com/richxcame/fleet-engine/internal/delivery"
	"github.com/richxcame/fleet-engine/internal/forecast"
	"github.com/richxcame/fleet-engine/internal/rebalancing"
	"github.com/richxcame/fleet-engine/internal/scheduler"
	"github.com/richxcame/fleet-engine/internal/stations"
	"github.com/richxcame/fleet-engine/pkg/config"
	"github.com/richxcame/fleet-engine/pkg/database"
	"github.com/richxcame/fleet-engine/pkg/eventbus"
	"github.com/richxcame/fleet-engine/pkg/health"
	"github.com/richxcame/fleet-engine/pkg/logger"
	"github.com/richxcame/fleet-engine/pkg/middleware"
)

const (
	serviceName = "fleet-engine"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment, serviceName); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting fleet engine",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresPool(ctx, &cfg.Database, serviceName)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.New(ctx, eventbus.Config{
			URL:        cfg.NATS.URL,
			Name:       serviceName,
			StreamName: cfg.NATS.StreamName,
		})
		if err != nil {
			logger.Warn("Failed to connect to NATS, continuing without events", zap.Error(err))
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	forecastService := forecast.NewService(forecast.NewRepository(db))
	stationService := stations.NewService(stations.NewRepository(db), forecastService)
	rebalancingService := rebalancing.NewService(rebalancing.NewRepository(db), stationService)
	rebalancingService.SetDefaultCapacity(cfg.Engine.DefaultVehicleCapacity)
	bookingService := booking.NewService(booking.NewRepository(db))
	deliveryService := delivery.NewService()

	checks := map[string]health.Checker{
		"database": health.DatabaseChecker(db),
	}

	if bus != nil {
		forecastService.SetEventBus(bus)
		rebalancingService.SetEventBus(bus)
		bookingService.SetEventBus(bus)
		deliveryService.SetEventBus(bus)
		checks["eventbus"] = health.EventBusChecker(bus)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.Metrics())

	router.GET("/healthz", health.Liveness(serviceName, version))
	router.GET("/health/ready", health.Readiness(serviceName, version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	forecast.NewHandler(forecastService).RegisterRoutes(router)
	stations.NewHandler(stationService, cfg.Engine.HeatmapResolution).RegisterRoutes(router)
	rebalancing.NewHandler(rebalancingService).RegisterRoutes(router)
	booking.NewHandler(bookingService).RegisterRoutes(router)
	delivery.NewHandler(deliveryService).RegisterRoutes(router)

	var sweeper scheduler.Sweeper
	if cfg.Engine.SweepEnabled {
		sweeper = rebalancingService
	}
	worker := scheduler.NewWorker(forecastService, sweeper, logger.Get(), cfg.Engine.ReconcileInterval())

	if bus != nil && cfg.Engine.SweepEnabled {
		listener := scheduler.NewForecastListener(rebalancingService, logger.Get())
		if err := listener.Start(ctx, bus); err != nil {
			logger.Warn("Failed to subscribe to forecast events", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		worker.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Fleet engine exited with error", zap.Error(err))
		return
	}

	logger.Info("Server stopped")
}
