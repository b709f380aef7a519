package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/envdash-server/internal/climate"
	"github.com/smukkama/envdash-server/internal/dashboard"
	"github.com/smukkama/envdash-server/internal/ingest"
	"github.com/smukkama/envdash-server/internal/queue"
	"github.com/smukkama/envdash-server/internal/server"
	"github.com/smukkama/envdash-server/internal/store"
	"github.com/smukkama/envdash-server/internal/timer"
	"github.com/smukkama/envdash-server/internal/visibility"
	"github.com/smukkama/envdash-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Environmental Dashboard Server...")

	// Point-record store and visibility state
	st := store.NewStore()
	vis := visibility.NewStateStore()

	// Optional Redis cache for climate responses
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		fmt.Printf("Redis cache enabled (%s)\n", cfg.Redis.Addr)
	}

	climateClient := climate.NewClient(cfg.Climate, redisClient)

	// Dataset ingestors
	ingestors := []*ingest.Ingestor{
		ingest.NewIngestor(ingest.FoodParams(cfg.Datasets.FoodURL), st),
		ingest.NewIngestor(ingest.HeatParams(cfg.Datasets.HeatURL), st),
		ingest.NewIngestor(ingest.WasteParams(cfg.Datasets.WasteURL), st),
	}
	fmt.Printf("Configured %d dataset ingestors\n", len(ingestors))

	// Optional Kafka snapshot feed
	var feed *queue.SnapshotFeed
	if cfg.Kafka.Enabled {
		if err := queue.CreateTopic(
			cfg.Kafka.Brokers,
			cfg.Kafka.TopicSnapshots,
			cfg.Kafka.NumPartitions,
			1, // replication factor
		); err != nil {
			fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
		}

		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSnapshots)
		defer producer.Close()

		feed = queue.NewSnapshotFeed(producer)
		feed.Start(context.Background())
		defer feed.Stop()
		fmt.Printf("Snapshot feed publishing to %s\n", cfg.Kafka.TopicSnapshots)
	}

	// Subscriber registry
	registry := server.NewRegistry(cfg.HTTPServer.MaxSubscribers)
	fmt.Println("Subscriber registry initialized")

	// Dashboard controller
	controller := dashboard.NewController(st, vis, ingestors, climateClient, cfg.Datasets.RasterTileURL, registry, feed)

	// Initial ingest runs in the background; a slow upstream delays its
	// own dataset's first snapshot, never the server start
	fmt.Println("Starting initial ingest...")
	go controller.RefreshAll()

	// Scheduler for periodic refreshes
	scheduler := timer.NewScheduler(4)
	scheduler.Start()
	defer scheduler.Stop()

	scheduler.ScheduleEvery("dataset-refresh", cfg.Refresh.DatasetInterval, controller.RefreshAll)
	scheduler.ScheduleEvery("climate-refresh", cfg.Refresh.ClimateInterval, controller.RefreshClimate)
	fmt.Printf("Scheduled dataset refresh every %s, climate refresh every %s\n",
		cfg.Refresh.DatasetInterval, cfg.Refresh.ClimateInterval)

	// HTTP server
	httpServer := server.NewServer(&cfg.HTTPServer, registry, controller)
	if err := httpServer.Start(); err != nil {
		log.Fatalf("Failed to start HTTP server: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Stop(ctx)
	}()

	// Print statistics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			regStats := registry.Stats()
			storeStats := st.Stats()
			ctrlStats := controller.Stats()
			fmt.Printf("\n--- Dashboard Statistics ---\n")
			fmt.Printf("Subscribers: %d / %d\n", regStats.ActiveSubscribers, regStats.MaxSubscribers)
			fmt.Printf("Point Records: %d across %d datasets\n", storeStats.TotalRecords, storeStats.Datasets)
			fmt.Printf("Climate Loaded: %v\n", ctrlStats.ClimateLoaded)
			fmt.Printf("----------------------------\n\n")
		}
	}()

	fmt.Println("\n✓ Environmental Dashboard Server is running")
	fmt.Printf("✓ HTTP API listening on port %d\n", cfg.HTTPServer.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
