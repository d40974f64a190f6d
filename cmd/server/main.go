package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadpage/internal/api"
	"github.com/ignite/leadpage/internal/config"
	"github.com/ignite/leadpage/internal/content"
	"github.com/ignite/leadpage/internal/pkg/distlock"
	"github.com/ignite/leadpage/internal/pkg/logger"
	"github.com/ignite/leadpage/internal/repository/memory"
	"github.com/ignite/leadpage/internal/repository/postgres"
	"github.com/ignite/leadpage/internal/rotation"
	"github.com/ignite/leadpage/internal/service/landing"
	"github.com/ignite/leadpage/internal/storage"
	"github.com/ignite/leadpage/internal/tracking"
	"github.com/ignite/leadpage/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Lifetime())

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openRedis(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	var client *redis.Client
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: url})
	} else {
		client = redis.NewClient(opts)
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed (%s): %v — selection stats disabled, publish locks fall back", url, err)
		client.Close()
		return nil
	}
	return client
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Landing Page Builder (cmd/server/main.go)                 ║")
	log.Println("║  Builder API + WhatsApp contact rotation                   ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())

	// Landing page storage: PostgreSQL when configured, otherwise in-memory.
	var db *sql.DB
	var repo landing.Repository
	if cfg.Database.URL != "" {
		log.Printf("DB URL host portion: ...@%s/...", extractHost(cfg.Database.URL))
		db, err = openDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		repo = postgres.NewLandingRepo(db)
		log.Println("Landing pages stored in PostgreSQL")
	} else {
		repo = memory.NewLandingRepo()
		log.Println("DATABASE_URL not set — landing pages kept in memory (lost on restart)")
	}

	var redisClient *redis.Client
	var stats *rotation.Stats
	if cfg.Redis.URL != "" {
		redisClient = openRedis(cfg.Redis.URL)
		if redisClient != nil {
			stats = rotation.NewStats(redisClient)
			log.Printf("Redis connected: %s (selection stats + distributed locking enabled)", cfg.Redis.URL)
		}
	} else {
		log.Println("Redis not configured (REDIS_URL not set) — no selection stats")
	}

	lockTTL := cfg.Publishing.LockTTL()
	locker := func(key string) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, lockTTL)
	}

	var generator landing.ContentGenerator
	if cfg.Bedrock.Enabled {
		g, err := content.NewBedrockGenerator(ctx, cfg.Bedrock.Region, content.Options{
			ModelID:     cfg.Bedrock.ModelID,
			MaxTokens:   cfg.Bedrock.MaxTokens,
			Temperature: cfg.Bedrock.Temperature,
			Language:    cfg.Bedrock.Language,
		})
		if err != nil {
			log.Printf("Warning: Bedrock content generator unavailable: %v", err)
		} else {
			generator = g
			log.Printf("Content generation enabled (model=%s)", cfg.Bedrock.ModelID)
		}
	} else {
		log.Println("Content generation disabled")
	}

	svc := landing.NewService(repo, generator, landing.Config{
		PublicBaseURL:   cfg.Publishing.BaseURL,
		DefaultCurrency: cfg.Publishing.DefaultCurrency,
		DefaultMessage:  cfg.Publishing.DefaultMessage,
		ContentTimeout:  cfg.Bedrock.Timeout(),
		Locker:          locker,
	})

	// Shared AWS config for S3 images and the SQS selection queue.
	var s3Client *s3.Client
	var sqsClient *sqs.Client
	if cfg.Images.Enabled() || cfg.Tracking.QueueURL != "" {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
		if cfg.AWS.Profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			log.Printf("Warning: Failed to load AWS config: %v — images and selection queue disabled", err)
		} else {
			if cfg.Images.Enabled() {
				s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.Region = cfg.Images.Region })
			}
			if cfg.Tracking.QueueURL != "" {
				sqsClient = sqs.NewFromConfig(awsCfg)
			}
		}
	}

	var uploader api.ImageUploader
	var bucketCheck api.HeadBucketAPI
	if s3Client != nil {
		uploader = storage.NewImageHost(s3Client, storage.ImageConfig{
			Bucket:    cfg.Images.Bucket,
			Region:    cfg.Images.Region,
			CDNDomain: cfg.Images.CDNDomain,
			Prefix:    cfg.Images.Prefix,
			MaxWidth:  cfg.Images.MaxWidth,
		})
		bucketCheck = s3Client
		log.Printf("Image hosting initialized: bucket=%s, cdn=%s", cfg.Images.Bucket, cfg.Images.CDNDomain)
	} else {
		log.Println("Image hosting disabled (IMAGES_BUCKET not set)")
	}

	var publisher tracking.EventPublisher
	var consumer *tracking.Consumer
	if sqsClient != nil {
		publisher = tracking.NewPublisher(sqsClient, cfg.Tracking.QueueURL)
		log.Printf("Selection events published to %s", cfg.Tracking.QueueURL)
		if cfg.Tracking.ConsumerEnabled && db != nil {
			consumer = tracking.NewConsumer(sqsClient, cfg.Tracking.QueueURL, db)
			consumer.Start(ctx)
			log.Println("Selection consumer started")
		}
	}

	if db != nil && cfg.Tracking.ConsumerEnabled {
		go worker.NewSelectionCleanupWorker(db, cfg.Tracking.Retention()).Start(ctx)
		log.Printf("Selection cleanup worker started (retention %d days)", cfg.Tracking.RetentionDays)
	}

	var recorder tracking.SelectionRecorder
	var distribution api.DistributionReader
	if stats != nil {
		recorder = stats
		distribution = stats
	}

	router := rotation.NewRouter(rotation.NewRandSampler(time.Now().UnixNano()))
	redirects := tracking.NewHandler(svc, router, recorder, publisher)

	server := api.NewServer(cfg.Server, api.Deps{
		Landing:   api.NewLandingHandlers(svc, distribution, uploader),
		Redirects: redirects,
		Health:    api.NewHealthChecker(db, redisClient, bucketCheck, cfg.Images.Bucket),
		Owners:    api.NewOwnerResolver(cfg.Server.DevMode, cfg.Server.DevOwnerID),
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if consumer != nil {
		consumer.Stop()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Println("Server stopped")
}
