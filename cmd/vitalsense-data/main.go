package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitalsense-data/internal/common/database"
	"vitalsense-data/internal/common/logger"
	mqttcommon "vitalsense-data/internal/common/mqtt"
	rediscommon "vitalsense-data/internal/common/redis"
	"vitalsense-data/internal/config"
	"vitalsense-data/internal/consumer"
	httpapi "vitalsense-data/internal/http"
	"vitalsense-data/internal/repository"
	"vitalsense-data/internal/service"
	"vitalsense-data/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "vitalsense-data")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	redisClient := rediscommon.NewRedisClient(cfg)
	kv := store.NewRedisKV(redisClient)

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	samplesRepo := repository.NewPostgresSamplesRepository(db)
	eventsRepo := repository.NewPostgresCorrelationEventsRepository(db)
	statusRepo := repository.NewPostgresStatusRepository(db)

	sampleSvc := service.NewSampleService(samplesRepo, kv,
		time.Duration(cfg.LatestVitalsTTLSec)*time.Second, log)
	correlationSvc := service.NewCorrelationService(samplesRepo, eventsRepo,
		redisClient, cfg.EventsStream, cfg.Detection, log)

	var cgmSyncSvc service.CGMSyncService
	if cfg.CGM.Enabled {
		cgmClient := service.NewCGMClient(cfg.CGM.BaseURL, cfg.CGM.APIKey, log)
		cgmSyncSvc = service.NewCGMSyncService(cgmClient, sampleSvc, log)
		log.Info("CGM sync enabled", zap.String("base_url", cfg.CGM.BaseURL))
	}

	router := httpapi.NewRouter(log)
	router.RegisterAPIRoutes(
		httpapi.NewSamplesHandler(sampleSvc, cgmSyncSvc, log),
		httpapi.NewCorrelationHandler(correlationSvc, log),
		httpapi.NewDashboardHandler(correlationSvc, log),
		httpapi.NewStatusHandler(statusRepo, log),
	)

	// 可选：穿戴设备 MQTT 样本接入
	var mqttClient *mqttcommon.Client
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTT.Enabled {
		mqttClient, err = mqttcommon.NewClient(&cfg.MQTT)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		mqttConsumer = consumer.NewMQTTConsumer(mqttClient, sampleSvc, cfg.MQTT.Topic, log)
		if err := mqttConsumer.Start(); err != nil {
			log.Fatal("Failed to start MQTT consumer", zap.Error(err))
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server exited", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if mqttConsumer != nil {
		mqttConsumer.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)
}
