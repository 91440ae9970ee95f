// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLog stores entries as JSON in a redis list, newest at the head.
type RedisLog struct {
	client   redis.Cmdable
	key      string
	capacity int
}

// NewRedisLog creates a redis backed log under key.
func NewRedisLog(client redis.Cmdable, key string, capacity int) *RedisLog {
	return &RedisLog{client: client, key: key, capacity: normalizeCapacity(capacity)}
}

func (r *RedisLog) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, int64(r.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *RedisLog) List(ctx context.Context) ([]Entry, error) {
	raws, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *RedisLog) Get(ctx context.Context, id string) (Entry, error) {
	e, _, err := r.find(ctx, id)
	return e, err
}

func (r *RedisLog) Delete(ctx context.Context, id string) error {
	_, raw, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	n, err := r.client.LRem(ctx, r.key, 1, raw).Result()
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	// trimmed by a concurrent Append after find
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisLog) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisLog) Len(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	return int(n), err
}

// find returns the entry and its stored JSON so LREM can match it exactly.
func (r *RedisLog) find(ctx context.Context, id string) (Entry, string, error) {
	raws, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return Entry{}, "", fmt.Errorf("list history: %w", err)
	}
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return Entry{}, "", fmt.Errorf("decode entry: %w", err)
		}
		if e.ID == id {
			return e, raw, nil
		}
	}
	return Entry{}, "", ErrNotFound
}
