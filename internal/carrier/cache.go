// internal/carrier/cache.go
package carrier

import (
	"context"
	"encoding/json"
	"time"

	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"

	"github.com/redis/go-redis/v9"
)

// QuestionCache caches fetched question sets in Redis, keyed by the context
// fingerprint. Cache failures are soft: a miss or a Redis error just means
// the caller fetches from the carrier again.
type QuestionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewQuestionCache(client *redis.Client, ttl time.Duration, log logger.Logger) *QuestionCache {
	return &QuestionCache{client: client, ttl: ttl, logger: log}
}

func cacheKey(carrierSlug, fingerprint string) string {
	return "eligibility:questions:" + carrierSlug + ":" + fingerprint
}

// Get returns the cached question set for a context fingerprint, if present.
func (c *QuestionCache) Get(ctx context.Context, carrierSlug, fingerprint string) ([]models.EligibilityQuestion, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, cacheKey(carrierSlug, fingerprint)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("question cache read failed", map[string]interface{}{
			"carrier": carrierSlug,
			"error":   err,
		})
		return nil, false
	}

	var questions []models.EligibilityQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, false
	}
	return questions, true
}

// Put stores a question set under its context fingerprint.
func (c *QuestionCache) Put(ctx context.Context, carrierSlug, fingerprint string, questions []models.EligibilityQuestion) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(questions)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, cacheKey(carrierSlug, fingerprint), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("question cache write failed", map[string]interface{}{
			"carrier": carrierSlug,
			"error":   err,
		})
	}
}
