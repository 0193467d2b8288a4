package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"hl-bridge/internal/bridge"
	"hl-bridge/internal/config"
	"hl-bridge/internal/exchange"
	"hl-bridge/internal/journal"
	"hl-bridge/internal/log"
	"hl-bridge/internal/outcome"
	"hl-bridge/internal/position"
	"hl-bridge/internal/store"
)

func main() {
	// 先剥离代理钱包覆盖项，命令分发与流水记录都不接触密钥材料。
	argv, override := config.StripAgentArgs(os.Args[1:])

	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	if err := flag.CommandLine.Parse(argv); err != nil {
		fmt.Fprintf(os.Stderr, "解析参数失败: %v\n", err)
		os.Exit(1)
	}
	args := flag.Args()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	creds := config.Resolve(cfg.Credentials, override)

	client := exchange.NewClient(cfg.Exchange, creds, logger)
	accounts := position.NewManager(client.Raw(), logger)

	// 流水数据库是可选项：初始化失败只降级，不影响命令执行。
	var invocationLog *journal.Journal
	if cfg.Database.Path != "" || cfg.Database.InMemory {
		sqliteStore, storeErr := store.NewSQLite(cfg.Database)
		if storeErr != nil {
			logger.Warn("初始化流水数据库失败，本次调用不记录流水", zap.Error(storeErr))
		} else {
			defer func() {
				if closeErr := sqliteStore.Close(); closeErr != nil {
					logger.Warn("关闭流水数据库失败", zap.Error(closeErr))
				}
			}()
			invocationLog, err = journal.New(sqliteStore, logger)
			if err != nil {
				logger.Warn("初始化流水表失败，本次调用不记录流水", zap.Error(err))
				invocationLog = nil
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := bridge.NewDispatcher(client, accounts, creds, logger)
	envelope := dispatcher.Dispatch(ctx, args)

	invocationLog.Record(ctx, args, envelope)

	// 无论命令成败，信封写出即为一次成功的调用。
	if err := outcome.Emit(os.Stdout, envelope); err != nil {
		logger.Error("写出结果失败", zap.Error(err))
		os.Exit(1)
	}
}
