package docflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FlowStore persists in-progress flows between user interactions.
type FlowStore interface {
	Save(ctx context.Context, flow *Flow) error
	Get(ctx context.Context, ownerID int64, id string) (*Flow, error)
	Delete(ctx context.Context, ownerID int64, id string) error
}

// RedisFlowStore keeps flow sessions as JSON values with a TTL.
type RedisFlowStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFlowStore builds the store. A zero ttl defaults to 24 hours.
func NewRedisFlowStore(client *redis.Client, ttl time.Duration) *RedisFlowStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisFlowStore{client: client, ttl: ttl}
}

func flowKey(ownerID int64, id string) string {
	return fmt.Sprintf("docflow:flow:%d:%s", ownerID, id)
}

func (s *RedisFlowStore) Save(ctx context.Context, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("docflow: marshal flow: %w", err)
	}
	return s.client.Set(ctx, flowKey(flow.OwnerID, flow.ID), data, s.ttl).Err()
}

func (s *RedisFlowStore) Get(ctx context.Context, ownerID int64, id string) (*Flow, error) {
	data, err := s.client.Get(ctx, flowKey(ownerID, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, err
	}
	var flow Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("docflow: unmarshal flow: %w", err)
	}
	return &flow, nil
}

func (s *RedisFlowStore) Delete(ctx context.Context, ownerID int64, id string) error {
	return s.client.Del(ctx, flowKey(ownerID, id)).Err()
}
