package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usage-billing-service/internal/biz"
	"usage-billing-service/internal/conf"
	"usage-billing-service/internal/constants"
	"usage-billing-service/internal/metrics"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

// CronApp Cron 应用结构
type CronApp struct {
	cycleUsecase *biz.CycleUseCase
	locker       *redsync.Redsync
}

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化日志 (使用 go-pkg/logger)
	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/usage-billing-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}

	loggerInstance := logger.NewLogger(logConfig)

	// 添加基本字段
	loggerInstance = log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "usage-billing-cron",
	)

	logHelper := log.NewHelper(loggerInstance)

	// 初始化应用
	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 账期过期清理 - 每小时第 5 分钟执行
	// 多实例部署时用分布式锁保证同一轮只有一个实例扫描
	_, err = cronScheduler.AddFunc("0 5 * * * *", func() {
		logHelper.Info("[CRON] Starting billing cycle expiry sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		m := metrics.GetMetrics()
		lockStart := time.Now()
		mutex := app.locker.NewMutex(constants.RedisKeyCycleSweepLock, redsync.WithExpiry(5*time.Minute))
		if err := mutex.LockContext(ctx); err != nil {
			m.LockAcquireTotal.WithLabelValues(constants.LockResultFailed).Inc()
			logHelper.Infof("[CRON] Sweep lock held elsewhere, skipping: %v", err)
			return
		}
		m.LockAcquireTotal.WithLabelValues(constants.LockResultSuccess).Inc()
		m.LockAcquireDuration.Observe(time.Since(lockStart).Seconds())
		defer func() {
			if _, err := mutex.UnlockContext(ctx); err != nil {
				logHelper.Warnf("[CRON] Failed to release sweep lock: %v", err)
			}
		}()

		count, err := app.cycleUsecase.ExpireOverdue(ctx)
		if err != nil {
			logHelper.Errorf("[CRON] Error expiring billing cycles: %v", err)
			return
		}
		logHelper.Infof("[CRON] Billing cycle expiry sweep completed: expired=%d", count)
	})
	if err != nil {
		logHelper.Errorf("Failed to add cycle expiry job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Info("Scheduled jobs:")
	logHelper.Info("  - Billing cycle expiry sweep: hourly at minute 5")
	logHelper.Info("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
}
