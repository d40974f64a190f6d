package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadpage/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded", "not_configured"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HeadBucketAPI is the subset of the S3 client used for the image bucket check.
type HeadBucketAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// HealthChecker reports on the database, Redis and the image bucket. Any of
// them may be nil; the in-memory repository mode has no database at all.
type HealthChecker struct {
	db          *sql.DB
	redisClient *redis.Client
	s3Client    HeadBucketAPI
	s3Bucket    string
	startTime   time.Time
}

func NewHealthChecker(db *sql.DB, redisClient *redis.Client, s3Client HeadBucketAPI, s3Bucket string) *HealthChecker {
	return &HealthChecker{
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		s3Bucket:    s3Bucket,
		startTime:   time.Now(),
	}
}

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status: determineOverallStatus(checks),
		Uptime: formatUptime(time.Since(hc.startTime)),
		Checks: checks,
	})
}

// HandleLiveness answers 200 while the process runs.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness answers 503 while the database is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, 3)

	go func() { ch <- result{"database", hc.checkDatabase(ctx)} }()
	go func() { ch <- result{"redis", hc.checkRedis(ctx)} }()
	go func() { ch <- result{"images", hc.checkImageBucket(ctx)} }()

	checks := make(map[string]ComponentCheck, 3)
	for i := 0; i < 3; i++ {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "not_configured", Message: "using in-memory repository"}
	}
	return timedCheck(ctx, 3*time.Second, time.Second, hc.db.PingContext)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redisClient == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	return timedCheck(ctx, 2*time.Second, 500*time.Millisecond, func(ctx context.Context) error {
		return hc.redisClient.Ping(ctx).Err()
	})
}

func (hc *HealthChecker) checkImageBucket(ctx context.Context) ComponentCheck {
	if hc.s3Client == nil || hc.s3Bucket == "" {
		return ComponentCheck{Status: "not_configured"}
	}
	return timedCheck(ctx, 3*time.Second, 2*time.Second, func(ctx context.Context) error {
		_, err := hc.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &hc.s3Bucket})
		return err
	})
}

// timedCheck runs ping under timeout and marks the component degraded when
// it answers slower than slow.
func timedCheck(ctx context.Context, timeout, slow time.Duration, ping func(context.Context) error) ComponentCheck {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: fmt.Sprintf("ping failed: %v", err)}
	}
	if latency > slow {
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String()}
}

// determineOverallStatus: a configured database that is down makes the
// service unhealthy; any other down or degraded component degrades it.
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if db := checks["database"]; db.Status == "down" {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == "down" || c.Status == "degraded" {
			return "degraded"
		}
	}
	return "healthy"
}

// formatUptime produces a human-readable uptime string like "3d 4h 12m 5s".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
