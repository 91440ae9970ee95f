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

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	modbus "github.com/hootrhino/rtuframe"
	"github.com/hootrhino/rtuframe/internal/api"
	cfgpkg "github.com/hootrhino/rtuframe/internal/config"
	"github.com/hootrhino/rtuframe/internal/history"
	"github.com/hootrhino/rtuframe/internal/httpserver"
	"github.com/hootrhino/rtuframe/internal/logging"
	"github.com/hootrhino/rtuframe/internal/metrics"
)

func runServe(args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "config file (default $RTUFRAME_CONFIG or configs/rtuframe.yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// 1) config
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		return err
	}

	// 2) logger
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3) metrics
	reg := metrics.NewRegistry()
	appMetrics := metrics.NewAppMetrics(reg)
	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = metrics.Handler(reg)
	}

	// 4) history
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hist, closeHistory, err := history.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()
	if n, err := hist.Len(ctx); err == nil {
		appMetrics.SetHistorySize(n)
	}

	// 5) HTTP
	var mw []gin.HandlerFunc
	if cfg.RateLimit.Enable {
		limiter := httpserver.NewRateLimiter(cfg.RateLimit.RatePerSec, cfg.RateLimit.Burst)
		mw = append(mw, limiter.Middleware(appMetrics.RateLimited.Inc))
	}
	handler := api.NewHandler(modbus.NewFrameBuilder(), hist, appMetrics, logger)
	ready := func() bool {
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := hist.Len(rctx)
		return err == nil
	}
	srv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, ready,
		httpserver.WithAccessLog(logger),
		httpserver.WithRoutes(func(r gin.IRouter) { handler.RegisterRoutes(r, mw...) }),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr), zap.String("history", cfg.History.Backend))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("http server error", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
