package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sheet-quiz/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question set from a backing source (spreadsheet endpoint, DB).
type QuestionLoader interface {
	FetchQuestions(ctx context.Context) (domain.QuestionSet, error)
}

// QuestionCache keeps the last fetched question set for a TTL so concurrent
// sessions share one upstream call. Every caller gets its own copy.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) FetchQuestions(ctx context.Context) (domain.QuestionSet, error) {
	if set, ok := c.cached(c.clock()); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do("questions", func() (interface{}, error) {
		now := c.clock()
		if set, ok := c.cached(now); ok {
			return set, nil
		}

		set, err := c.loader.FetchQuestions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.questions = set.Clone()
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	// singleflight shares one result between waiters; hand each its own copy.
	return result.(domain.QuestionSet).Clone(), nil
}

// Invalidate drops the cached set so the next fetch goes upstream.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.questions = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *QuestionCache) cached(now time.Time) (domain.QuestionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.questions != nil && c.expiresAt.After(now) {
		return c.questions.Clone(), true
	}
	return nil, false
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticQuestionSource serves a fixed question set (demos, tests).
type StaticQuestionSource struct {
	questions domain.QuestionSet
}

func NewStaticQuestionSource(questions domain.QuestionSet) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) FetchQuestions(_ context.Context) (domain.QuestionSet, error) {
	if len(s.questions) == 0 {
		return nil, domain.ErrEmptySet
	}
	return s.questions.Clone(), nil
}
