package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/care"
	"github.com/Ashesh3/teleicu-middleware/internal/config"
	"github.com/Ashesh3/teleicu-middleware/internal/consumer"
	"github.com/Ashesh3/teleicu-middleware/internal/directory"
	"github.com/Ashesh3/teleicu-middleware/internal/dispatch"
	httpapi "github.com/Ashesh3/teleicu-middleware/internal/http"
	"github.com/Ashesh3/teleicu-middleware/internal/logger"
	mqttclient "github.com/Ashesh3/teleicu-middleware/internal/mqtt"
	"github.com/Ashesh3/teleicu-middleware/internal/service"
	"github.com/Ashesh3/teleicu-middleware/internal/store"
	"github.com/Ashesh3/teleicu-middleware/internal/upstream"
	"github.com/Ashesh3/teleicu-middleware/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "teleicu-middleware")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting teleicu-middleware",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("care_api", cfg.Care.BaseURL),
		zap.String("sync_gate", cfg.Sync.Gate),
	)

	// 目录解析缓存：优先 Redis，不可用时回退内存
	var kv store.KV = store.NewMemoryKV()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis enabled but unreachable, falling back to in-memory cache", zap.Error(err))
		} else {
			kv = store.NewRedisKV(redisClient)
			defer redisClient.Close()
		}
	}

	observationStore := store.NewObservationStore(cfg.Store.WindowSize, cfg.Store.MaxDevices, zapLogger)
	latestVitals := store.NewLatestVitals()
	requestLog := store.NewRequestLog(cfg.Store.LogLimit)

	hub := ws.NewHub(zapLogger)
	dispatcher := dispatch.NewDispatcher(hub, zapLogger)

	directoryClient := directory.NewClient(
		cfg.Directory.BaseURL,
		kv,
		cfg.Directory.CacheTTL,
		cfg.Directory.JWTKey,
		cfg.Directory.TokenTTL,
		zapLogger,
	)
	careClient := care.NewClient(cfg.Care.BaseURL, zapLogger)

	var gate upstream.GatePolicy
	if cfg.Sync.Gate == "device" {
		gate = upstream.NewDeviceGate(cfg.Sync.Interval)
	} else {
		gate = upstream.NewGlobalGate(cfg.Sync.Interval)
	}
	scheduler := upstream.NewScheduler(
		observationStore,
		directoryClient,
		careClient,
		gate,
		cfg.Sync.StaleAfter,
		cfg.Sync.CallTimeout,
		zapLogger,
	)

	ingest := service.NewIngestService(
		observationStore,
		latestVitals,
		requestLog,
		dispatcher,
		scheduler,
		zapLogger,
	)

	handler := httpapi.NewObservationHandler(ingest, observationStore, latestVitals, requestLog, zapLogger)
	router := httpapi.NewRouter(zapLogger)
	router.RegisterObservationRoutes(handler)
	router.RegisterSubscriptionRoute(hub.HandleWS)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 可选的 MQTT 接入通道
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqttclient.NewClient(cfg, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		mqttConsumer = consumer.NewMQTTConsumer(cfg, mqttClient, ingest, zapLogger)
		go func() {
			if err := mqttConsumer.Start(ctx); err != nil {
				zapLogger.Error("MQTT consumer stopped with error", zap.Error(err))
			}
		}()
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, zapLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		zapLogger.Error("HTTP server stopped", zap.Error(err))
	}

	cancel()
	if mqttConsumer != nil {
		if err := mqttConsumer.Stop(context.Background()); err != nil {
			zapLogger.Error("Error stopping MQTT consumer", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
