package redis

import (
	"context"
	"testing"
	"time"

	"sheet-quiz/internal/domain"
	"sheet-quiz/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionSource(sampleQuestions())}
	cache := NewQuestionCache(client, loader, time.Minute, nil)

	set, err := cache.FetchQuestions(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if loader.calls != 1 || len(set) != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:questions") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:questions"); ttl < time.Minute {
		t.Fatalf("expected ttl of at least a minute, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	set, _ = cache.FetchQuestions(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if set[0].Options[1].Label != "B" || set[0].Correct[0] != "B" {
		t.Fatalf("cached set lost structure: %+v", set[0])
	}

	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = cache.FetchQuestions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuestionCacheSurvivesRedisOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionSource(sampleQuestions())}
	set, err := NewQuestionCache(client, loader, time.Minute, nil).FetchQuestions(context.Background())
	if err != nil || len(set) != 1 {
		t.Fatalf("expected loader result despite redis outage, got %v (%v)", set, err)
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) FetchQuestions(ctx context.Context) (domain.QuestionSet, error) {
	l.calls++
	return l.QuestionLoader.FetchQuestions(ctx)
}

func sampleQuestions() domain.QuestionSet {
	return domain.QuestionSet{
		{
			Text:    "What is 2 + 2?",
			Options: []domain.Option{{Label: "A", Text: "3"}, {Label: "B", Text: "4"}},
			Correct: []domain.Label{"B"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
