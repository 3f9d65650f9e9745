package redis

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps attempt counts in one Redis hash so every server
// instance sees the same numbers:
//
//	HINCRBY quizAttempts {email} 1
type AttemptStore struct {
	client *redis.Client
	key    string
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client, key: "quizAttempts"}
}

func (s *AttemptStore) Attempts(ctx context.Context, email string) (int, error) {
	n, err := s.client.HGet(ctx, s.key, strings.TrimSpace(email)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (s *AttemptStore) Increment(ctx context.Context, email string) (int, error) {
	n, err := s.client.HIncrBy(ctx, s.key, strings.TrimSpace(email), 1).Result()
	return int(n), err
}
