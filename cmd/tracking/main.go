package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadpage/internal/config"
	"github.com/ignite/leadpage/internal/pkg/logger"
	"github.com/ignite/leadpage/internal/repository/postgres"
	"github.com/ignite/leadpage/internal/rotation"
	"github.com/ignite/leadpage/internal/service/landing"
	"github.com/ignite/leadpage/internal/tracking"
)

// Standalone contact-link service: serves /p/{slug}/whatsapp from the
// published pages in PostgreSQL and, optionally, drains the selection queue.
func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	port := os.Getenv("TRACKING_PORT")
	if port == "" {
		port = "8081"
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.Lifetime())
	if err := db.Ping(); err != nil {
		log.Fatalf("database ping: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := landing.NewService(postgres.NewLandingRepo(db), nil, landing.Config{
		PublicBaseURL: cfg.Publishing.BaseURL,
	})

	var recorder tracking.SelectionRecorder
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			opts = &redis.Options{Addr: cfg.Redis.URL}
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis unavailable, selection stats off: %v", err)
			rdb.Close()
		} else {
			defer rdb.Close()
			recorder = rotation.NewStats(rdb)
		}
	}

	var publisher tracking.EventPublisher
	var consumer *tracking.Consumer
	if cfg.Tracking.QueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		sqsClient := sqs.NewFromConfig(awsCfg)
		publisher = tracking.NewPublisher(sqsClient, cfg.Tracking.QueueURL)
		if cfg.Tracking.ConsumerEnabled {
			consumer = tracking.NewConsumer(sqsClient, cfg.Tracking.QueueURL, db)
			consumer.Start(ctx)
		}
	}

	router := rotation.NewRouter(rotation.NewRandSampler(time.Now().UnixNano()))
	handler := tracking.NewHandler(svc, router, recorder, publisher)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("tracking service listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down tracking service...")

	if consumer != nil {
		consumer.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
