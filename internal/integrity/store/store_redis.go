package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"examguard/internal/integrity/models"
	"examguard/internal/sentinel"
)

const (
	redisKeyPrefix = "examguard:integrity:"
	// DefaultRedisCap bounds the events kept per exam.
	DefaultRedisCap = 5000
)

// RedisStore keeps a capped, expiring list of events per exam. It suits
// live-exam deployments where history is exported elsewhere.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	cap    int64
}

type RedisOption func(*RedisStore)

// WithRedisTTL sets how long an exam's list lives after its last append.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithRedisCap sets the maximum events retained per exam.
func WithRedisCap(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.cap = int64(n)
		}
	}
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    24 * time.Hour,
		cap:    DefaultRedisCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func examKey(examID string) string { return redisKeyPrefix + "exam:" + examID }
func idKey(id string) string       { return redisKeyPrefix + "id:" + id }

func (s *RedisStore) Append(ctx context.Context, ev models.Event) error {
	if ev.ID == "" {
		return sentinel.ErrInvalidInput
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode integrity event: %w", err)
	}

	fresh, err := s.client.SetNX(ctx, idKey(ev.ID), ev.ExamID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve integrity event id: %w", err)
	}
	if !fresh {
		return sentinel.ErrConflict
	}

	key := examKey(ev.ExamID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, payload)
		p.LTrim(ctx, key, 0, s.cap-1)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append integrity event: %w", err)
	}
	return nil
}

func (s *RedisStore) ListRecent(ctx context.Context, examIDs []string, since time.Time, limit int) ([]models.Event, error) {
	var all []models.Event
	for _, examID := range uniq(examIDs) {
		events, err := s.load(ctx, examID)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return recentFilter(all, since, limit), nil
}

func (s *RedisStore) ListByExam(ctx context.Context, examID string) ([]models.Event, error) {
	events, err := s.load(ctx, examID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(events, oldestFirst)
	return events, nil
}

func (s *RedisStore) load(ctx context.Context, examID string) ([]models.Event, error) {
	raw, err := s.client.LRange(ctx, examKey(examID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list integrity events: %w", err)
	}
	events := make([]models.Event, 0, len(raw))
	for _, item := range raw {
		var ev models.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode integrity event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
