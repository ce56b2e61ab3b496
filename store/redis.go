package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"web/polaris/annotation"
	"web/polaris/cluster"
)

// RedisStore keeps snapshots as plain keys and an index hash of their
// DatasetInfo, so every runner sharing the Redis sees the same datasets.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis opens a client. An empty address yields nil.
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// NewRedisStore wraps client. A zero ttl keeps snapshots forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "polaris"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) dataKey(id string) string { return s.prefix + ":dataset:" + id }
func (s *RedisStore) indexKey() string         { return s.prefix + ":datasets" }

func (s *RedisStore) Save(ctx context.Context, items []*annotation.Annotation) (DatasetInfo, error) {
	var buf bytes.Buffer
	if err := cluster.WriteCompressed(&buf, items); err != nil {
		return DatasetInfo{}, err
	}

	info := DatasetInfo{
		ID:        uuid.New().String()[:8],
		NumPoints: len(items),
		Timestamp: time.Now().Truncate(time.Second),
		Size:      int64(buf.Len()),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return DatasetInfo{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(info.ID), buf.Bytes(), s.ttl)
	pipe.HSet(ctx, s.indexKey(), info.ID, meta)
	if _, err := pipe.Exec(ctx); err != nil {
		return DatasetInfo{}, fmt.Errorf("redis save %s: %w", info.ID, err)
	}
	return info, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) ([]*annotation.Annotation, error) {
	data, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %s: %w", id, err)
	}
	return cluster.ReadCompressed(bytes.NewReader(data))
}

func (s *RedisStore) Info(ctx context.Context, id string) (DatasetInfo, error) {
	meta, err := s.client.HGet(ctx, s.indexKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return DatasetInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("redis info %s: %w", id, err)
	}
	var info DatasetInfo
	if err := json.Unmarshal(meta, &info); err != nil {
		return DatasetInfo{}, err
	}
	return info, nil
}

// List returns the indexed datasets whose snapshot still exists. Index
// entries of expired snapshots are removed.
func (s *RedisStore) List(ctx context.Context) ([]DatasetInfo, error) {
	all, err := s.client.HGetAll(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}

	infos := make([]DatasetInfo, 0, len(all))
	var stale []string
	for id, meta := range all {
		n, err := s.client.Exists(ctx, s.dataKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		var info DatasetInfo
		if err := json.Unmarshal([]byte(meta), &info); err != nil {
			continue
		}
		infos = append(infos, info)
	}
	if len(stale) > 0 {
		s.client.HDel(ctx, s.indexKey(), stale...)
	}

	sortNewestFirst(infos)
	return infos, nil
}
