package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"sheet-quiz/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question set from a backing source (spreadsheet endpoint, DB).
type QuestionLoader interface {
	FetchQuestions(ctx context.Context) (domain.QuestionSet, error)
}

// QuestionCache shares the fetched question set between server instances.
// The set is stored as JSON under a single key:
//
//	SET quiz:questions <json> EX <ttl>
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	key    string
	log    *zap.Logger
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration, log *zap.Logger) *QuestionCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		key:    "quiz:questions",
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context) (domain.QuestionSet, error) {
	if set, ok := c.cached(ctx); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := c.cached(ctx); ok {
			return set, nil
		}

		set, err := c.loader.FetchQuestions(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(set)
		if err == nil {
			err = c.client.Set(ctx, c.key, data, c.ttlWithJitter()).Err()
		}
		if err != nil {
			// the set is still usable, only sharing it failed
			c.log.Warn("caching questions in redis failed", zap.Error(err))
		}
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.QuestionSet).Clone(), nil
}

// Invalidate removes the shared set.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *QuestionCache) cached(ctx context.Context) (domain.QuestionSet, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("reading cached questions failed", zap.Error(err))
		}
		return nil, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(data, &set); err != nil || len(set) == 0 {
		return nil, false
	}
	return set, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
