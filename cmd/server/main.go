package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdoElHodaky/matchcore/internal/config"
	"github.com/abdoElHodaky/matchcore/internal/eventbus"
	"github.com/abdoElHodaky/matchcore/internal/httpapi"
	"github.com/abdoElHodaky/matchcore/internal/matching"
	"github.com/abdoElHodaky/matchcore/internal/metrics"
	"github.com/abdoElHodaky/matchcore/internal/simulator"
	"github.com/abdoElHodaky/matchcore/internal/stream"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	appName    = "matchcore"
	appVersion = "v1.0.0"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration directory")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s %s\n", appName, appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	collector := metrics.NewCollector()

	bus := eventbus.NewBus(logger, cfg.Bus.QueueCapacity)
	bus.SetMetrics(collector)
	sink := eventbus.NewEngineSink(bus)
	engine := matching.NewEngine(logger, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
		})
		bridge := eventbus.NewBridge(redisClient, bus, eventbus.ChannelNames{
			MarketData:   cfg.Channels.MarketData,
			OrderUpdates: cfg.Channels.OrderUpdate,
			Trade:        cfg.Channels.Trade,
			Error:        cfg.Channels.Error,
		}, logger)
		go func() {
			if err := bridge.PublishOut(ctx); err != nil && ctx.Err() == nil {
				logger.Error("redis bridge publish loop exited", zap.Error(err))
			}
		}()
	}

	if cfg.Simulator.Enabled {
		gen := simulator.New(bus, simulator.Config{
			Symbols:        cfg.Simulator.Symbols,
			Volatility:     cfg.Simulator.Volatility,
			UpdateInterval: cfg.Simulator.UpdateInterval,
		}, logger)
		go gen.Run(ctx)
	}

	hub := stream.NewHub(bus, logger)
	hub.SetMetrics(collector)
	go hub.Run()
	wsServer := stream.NewServer(hub, logger)

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers := httpapi.NewHandlers(engine, collector, logger)
	handlers.RegisterRoutes(router)

	router.GET("/ws/*path", gin.WrapH(wsServer))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("starting server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.String("path", path),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
