package rotation

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DistributionStats is the observed share of selections for one target.
type DistributionStats struct {
	TargetID   string  `json:"target_id"`
	Selections int64   `json:"selections"`
	Percentage float64 `json:"actual_percentage"`
}

// Stats keeps per-page selection counters in Redis so operators can compare
// observed traffic against configured weights. Counters are write-only from
// the routing path: Select never reads them.
type Stats struct {
	redis *redis.Client
}

// NewStats creates a Redis-backed selection counter.
func NewStats(client *redis.Client) *Stats {
	return &Stats{redis: client}
}

func statsKey(pageID string) string {
	return fmt.Sprintf("rotation:dist:%s", pageID)
}

// RecordSelection counts one routed click for targetID on pageID.
func (s *Stats) RecordSelection(ctx context.Context, pageID, targetID string) error {
	return s.redis.HIncrBy(ctx, statsKey(pageID), targetID, 1).Err()
}

// Distribution returns counters for every target that has been selected on
// pageID, ordered by target ID.
func (s *Stats) Distribution(ctx context.Context, pageID string) ([]DistributionStats, error) {
	raw, err := s.redis.HGetAll(ctx, statsKey(pageID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read distribution for %s: %w", pageID, err)
	}

	var total int64
	out := make([]DistributionStats, 0, len(raw))
	for targetID, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		total += n
		out = append(out, DistributionStats{TargetID: targetID, Selections: n})
	}
	for i := range out {
		if total > 0 {
			out[i].Percentage = float64(out[i].Selections) / float64(total) * 100
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

// Clear drops all counters for pageID.
func (s *Stats) Clear(ctx context.Context, pageID string) error {
	return s.redis.Del(ctx, statsKey(pageID)).Err()
}
