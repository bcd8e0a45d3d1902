package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"wheelhouse/internal/config"
	"wheelhouse/internal/logger"
	"wheelhouse/internal/scheduler"
	apihttp "wheelhouse/internal/transport/http/api"
)

// App 负责应用级编排：加载配置→初始化依赖→启动评估轮与 HTTP 服务。
type App struct {
	cfg     *config.Config
	runner  *Runner
	httpSrv *apihttp.Server
	closers []func() error
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run 启动 HTTP 服务与对齐评估循环，任意一方失败即整体退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.runner == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	interval, err := time.ParseDuration(a.cfg.Scheduler.Interval)
	if err != nil {
		return fmt.Errorf("scheduler interval: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, interval, time.Duration(a.cfg.Scheduler.OffsetSeconds)*time.Second)
		sched.RunImmediately = a.cfg.Scheduler.RunImmediately
		sched.Start(func() {
			if err := a.runner.RunOnce(ctx); err != nil {
				logger.Errorf("evaluation run failed: %v", err)
			}
		})
		return nil
	})

	return group.Wait()
}

// Close 释放持久化与日志资源。
func (a *App) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}
	a.closers = nil
}
