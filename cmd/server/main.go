package main

import (
	"log"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/database"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/router"
	"github.com/blues/fbs/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := initLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化链客户端
	registry := chain.NewRegistry(cfg)
	chainClient := chain.NewClient(registry, cfg.Retry)
	defer chainClient.Close()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, chainClient, cfg)

	// 启动定时任务
	manager := task.Start(db, chainClient, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func initLogger(cfg config.LogConfig) error {
	level := logger.ParseLogLevel(cfg.Level)

	var l *logger.Logger
	var err error
	if cfg.Output == "file" && cfg.File != "" {
		l, err = logger.NewWithRotation(level, logger.RotationConfig{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		})
	} else {
		l, err = logger.New(level)
	}
	if err != nil {
		return err
	}

	logger.SetDefaultLogger(l)
	return nil
}
