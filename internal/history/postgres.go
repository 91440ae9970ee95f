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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

const createHistoryTable = `CREATE TABLE IF NOT EXISTS frame_history (
    seq        BIGSERIAL,
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    request    JSONB NOT NULL,
    view       JSONB NOT NULL,
    hex        TEXT NOT NULL,
    comment    TEXT NOT NULL DEFAULT ''
)`

// NewPool creates a pgx pool and pings it. SQL statements are traced to
// logger at debug level when logger is not nil.
func NewPool(ctx context.Context, dsn string, maxOpen, maxIdle int, maxLifetime time.Duration, logger *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		cfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   &pgxZapLogger{logger: logger},
			LogLevel: tracelog.LogLevelDebug,
		}
	}
	if maxOpen > 0 {
		cfg.MaxConns = int32(maxOpen)
	}
	if maxIdle > 0 {
		cfg.MinConns = int32(maxIdle)
	}
	if maxLifetime > 0 {
		cfg.MaxConnLifetime = maxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctxPing, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// pgxZapLogger adapts tracelog.Logger to zap.
type pgxZapLogger struct {
	logger *zap.Logger
}

func (l *pgxZapLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zap.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		l.logger.Debug(msg, fields...)
	case tracelog.LogLevelWarn:
		l.logger.Warn(msg, fields...)
	case tracelog.LogLevelError:
		l.logger.Error(msg, fields...)
	default:
		l.logger.Info(msg, fields...)
	}
}

// PostgresLog stores entries in the frame_history table.
type PostgresLog struct {
	pool     *pgxpool.Pool
	capacity int
}

// NewPostgresLog creates the table if needed and returns the log.
func NewPostgresLog(ctx context.Context, pool *pgxpool.Pool, capacity int) (*PostgresLog, error) {
	if _, err := pool.Exec(ctx, createHistoryTable); err != nil {
		return nil, fmt.Errorf("create frame_history: %w", err)
	}
	return &PostgresLog{pool: pool, capacity: normalizeCapacity(capacity)}, nil
}

func (p *PostgresLog) Append(ctx context.Context, e Entry) error {
	req, err := json.Marshal(e.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	view, err := json.Marshal(e.View)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insert = `INSERT INTO frame_history (id, created_at, request, view, hex, comment)
                    VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insert, e.ID, e.Timestamp, req, view, e.Hex, e.Comment); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	const trim = `DELETE FROM frame_history WHERE id NOT IN (
                      SELECT id FROM frame_history ORDER BY seq DESC LIMIT $1)`
	if _, err := tx.Exec(ctx, trim, p.capacity); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *PostgresLog) List(ctx context.Context) ([]Entry, error) {
	const q = `SELECT id, created_at, request, view, hex, comment
               FROM frame_history ORDER BY seq DESC`
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *PostgresLog) Get(ctx context.Context, id string) (Entry, error) {
	const q = `SELECT id, created_at, request, view, hex, comment FROM frame_history WHERE id = $1`
	e, err := scanEntry(p.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (p *PostgresLog) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM frame_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresLog) Clear(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM frame_history`)
	return err
}

func (p *PostgresLog) Len(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM frame_history`).Scan(&n)
	return n, err
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e         Entry
		req, view []byte
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &req, &view, &e.Hex, &e.Comment); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal(req, &e.Request); err != nil {
		return Entry{}, fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(view, &e.View); err != nil {
		return Entry{}, fmt.Errorf("decode view: %w", err)
	}
	return e, nil
}
