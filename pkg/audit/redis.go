package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ListPusher prepends values to a capped list. *redis.Client satisfies it.
type ListPusher interface {
	PushCapped(ctx context.Context, key string, maxLen int64, values ...[]byte) error
}

// ListReader reads a range of list entries. *redis.Client satisfies it.
type ListReader interface {
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// RedisSink keeps the most recent records in a Redis list, newest first.
type RedisSink struct {
	client  ListPusher
	key     string
	maxLen  int64
	timeout time.Duration
}

func NewRedisSink(client ListPusher, key string, maxLen int64, timeout time.Duration) *RedisSink {
	return &RedisSink{client: client, key: key, maxLen: maxLen, timeout: timeout}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Accept(ctx context.Context, rec CallRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding call record: %w", err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.client.PushCapped(ctx, s.key, s.maxLen, b)
}

// Recent returns up to n records from the list at key, newest first.
// Entries that fail to decode are skipped.
func Recent(ctx context.Context, r ListReader, key string, n int64) ([]CallRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := r.Range(ctx, key, 0, n-1)
	if err != nil {
		return nil, err
	}
	out := make([]CallRecord, 0, len(vals))
	for _, v := range vals {
		var rec CallRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
