package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/election-operations/election-engine/domain/entities"
	"ballotbox/contexts/election-operations/election-engine/ports"

	"github.com/redis/go-redis/v9"
)

// ResultsCache stores computed results snapshots in redis so dashboard reads
// across processes share one warm copy. Entries expire on their own; a miss
// just means the caller recomputes from the tally.
type ResultsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewResultsCache(addr string, ttl time.Duration, logger *slog.Logger) *ResultsCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &ResultsCache{
		client: redis.NewClient(&redis.Options{Addr: strings.TrimSpace(addr)}),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ResultsCache) PutResults(ctx context.Context, results entities.ElectionResults) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, resultsKey(results.ElectionID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("results cache write failed",
			"event", "election_results_cache_put_failed",
			"module", "election-operations/election-engine",
			"layer", "adapter",
			"election_id", results.ElectionID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (c *ResultsCache) GetResults(ctx context.Context, electionID string) (entities.ElectionResults, bool, error) {
	payload, err := c.client.Get(ctx, resultsKey(electionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.ElectionResults{}, false, nil
		}
		return entities.ElectionResults{}, false, err
	}
	var results entities.ElectionResults
	if err := json.Unmarshal(payload, &results); err != nil {
		return entities.ElectionResults{}, false, err
	}
	return results, true, nil
}

func (c *ResultsCache) Close() error {
	return c.client.Close()
}

func resultsKey(electionID string) string {
	return fmt.Sprintf("election:results:%s", strings.TrimSpace(electionID))
}

var _ ports.ResultsCache = (*ResultsCache)(nil)
