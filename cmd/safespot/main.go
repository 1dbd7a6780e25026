package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mr1hm/safespot-alerts/internal/alerts"
	"github.com/mr1hm/safespot-alerts/internal/api"
	"github.com/mr1hm/safespot-alerts/internal/config"
	"github.com/mr1hm/safespot-alerts/internal/ingestion"
	"github.com/mr1hm/safespot-alerts/internal/location"
	"github.com/mr1hm/safespot-alerts/internal/logging"
	"github.com/mr1hm/safespot-alerts/internal/models"
	"github.com/mr1hm/safespot-alerts/internal/notify"
	"github.com/mr1hm/safespot-alerts/internal/observability"
	"github.com/mr1hm/safespot-alerts/internal/repository"
	"github.com/mr1hm/safespot-alerts/internal/severity"
	"github.com/mr1hm/safespot-alerts/internal/shelters"
)

type blobBackend interface {
	repository.BlobStore
	io.Closer
}

func openBlobs(ctx context.Context, cfg config.SnapshotConfig) (blobBackend, error) {
	switch cfg.Backend {
	case "redis":
		return repository.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return repository.NewSQLiteDB(cfg.DBPath)
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "snapshot_backend", cfg.Snapshot.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	blobs, err := openBlobs(ctx, cfg.Snapshot)
	if err != nil {
		logging.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer blobs.Close()
	snapshots := repository.NewSnapshotStore(blobs, cfg.Snapshot.Key, metrics)

	shelterList, err := shelters.Load(cfg.Shelters.Path)
	if err != nil {
		logging.Fatalf("Failed to load shelters: %v", err)
	}

	scorer, err := severity.New(cfg.Severity.Model, cfg.Severity.Seed)
	if err != nil {
		logging.Fatalf("Failed to build severity model: %v", err)
	}

	clock := clockwork.NewRealClock()
	orchestrator := ingestion.NewOrchestrator(ingestion.Options{
		USGSURL:     cfg.Sources.USGSURL,
		NWSURL:      cfg.Sources.NWSURL,
		UserAgent:   cfg.Sources.UserAgent,
		Timeout:     cfg.Sources.FetchTimeout,
		MaxAttempts: cfg.Sources.MaxAttempts,
		BackoffBase: cfg.Sources.BackoffBase,
		Clock:       clock,
		Metrics:     metrics,
	})

	// Notification sinks
	broadcaster := notify.NewBroadcaster()
	sinks := []notify.Dispatcher{notify.LogDispatcher{}, broadcaster}

	if cfg.Notify.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.Notify.NATSURL)
		if err != nil {
			logging.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		sinks = append(sinks, notify.NewNATSDispatcher(nc))
	}

	if cfg.Notify.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.Notify.AMQPURL)
		if err != nil {
			logging.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()
		d, err := notify.NewAMQPDispatcher(conn)
		if err != nil {
			logging.Fatalf("Failed to set up RabbitMQ publisher: %v", err)
		}
		sinks = append(sinks, d)
	}

	notifier := notify.NewService(sinks, cfg.Notify.Count, cfg.Notify.BufferSize, metrics)
	notifier.Start(ctx)

	store := alerts.NewStore(scorer, cfg.Refresh.AutoRefresh)
	if cfg.Location.Set {
		store.SetUserLocation(models.UserLocation{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Altitude:  cfg.Location.Altitude,
		})
	}

	scheduler := alerts.NewScheduler(store, orchestrator, snapshots, notifier, alerts.SchedulerOptions{
		Interval:          cfg.Refresh.Interval,
		RetryDelay:        cfg.Refresh.RetryDelay,
		RefreshOnFirstFix: true,
		Clock:             clock,
		Metrics:           metrics,
	})
	scheduler.Start(ctx)

	var subscriber *location.Subscriber
	if cfg.MQTT.Broker != "" {
		client, err := location.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			logging.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		defer client.Disconnect(250)

		subscriber = location.NewSubscriber(client, cfg.MQTT.LocationTopic, scheduler)
		if err := subscriber.Start(); err != nil {
			logging.Fatalf("Failed to subscribe to location updates: %v", err)
		}
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server))

	handler := api.NewHandler(store, scheduler, shelterList, broadcaster)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	if subscriber != nil {
		subscriber.Stop()
	}
	scheduler.Stop()
	notifier.Stop() // must run before cancel to drain the queue
	cancel()
	broadcaster.Close() // ends open SSE streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
