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
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cfgpkg "github.com/hootrhino/rtuframe/internal/config"
)

// Open creates the log selected by cfg.History. The returned close function
// releases the backend connection and is never nil.
func Open(ctx context.Context, cfg *cfgpkg.Config, logger *zap.Logger) (Log, func(), error) {
	switch cfg.History.Backend {
	case cfgpkg.HistoryRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, func() {}, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("history backend ready", zap.String("backend", "redis"), zap.String("addr", cfg.Redis.Addr))
		return NewRedisLog(rdb, cfg.History.Key, cfg.History.Capacity), func() { _ = rdb.Close() }, nil

	case cfgpkg.HistoryPostgres:
		pool, err := NewPool(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, logger)
		if err != nil {
			return nil, func() {}, fmt.Errorf("postgres connect failed: %w", err)
		}
		log, err := NewPostgresLog(ctx, pool, cfg.History.Capacity)
		if err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		logger.Info("history backend ready", zap.String("backend", "postgres"))
		return log, pool.Close, nil
	}

	logger.Info("history backend ready", zap.String("backend", "memory"), zap.Int("capacity", cfg.History.Capacity))
	return NewMemoryLog(cfg.History.Capacity), func() {}, nil
}
