package router

import (
	"context"
	"time"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/handler"
	"github.com/blues/fbs/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, chainClient *chain.Client, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", healthHandler(db, chainClient, cfg))

	matcher := chain.NewMatcher(chainClient)
	goalLogic := logic.NewGoalLogic(db)
	contributionLogic := logic.NewContributionLogic(db, matcher, goalLogic)
	bridgeLogic := logic.NewBridgeLogic(db, matcher, chainClient, cfg)
	distributionLogic := logic.NewDistributionLogic(db)
	projectLogic := logic.NewProjectLogic(db)
	progressLogic := logic.NewProgressLogic(db)

	contributionHandler := handler.NewContributionHandler(contributionLogic)
	bridgeHandler := handler.NewBridgeHandler(bridgeLogic, distributionLogic)
	projectHandler := handler.NewProjectHandler(projectLogic, progressLogic)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 出资相关路由
		contributions := v1.Group("/contributions")
		{
			contributions.POST("", contributionHandler.SubmitContribution)
			contributions.POST("/:txHash/reverify", contributionHandler.ReverifyContribution)
		}

		// 项目相关路由
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/progress", projectHandler.GetProjectProgress)

			projects.POST("/:id/bridge/prepare", bridgeHandler.PrepareBridge)
			projects.POST("/:id/bridge/:runId/tx", bridgeHandler.AttachBridgeTx)
			projects.POST("/:id/bridge/reverify", bridgeHandler.ReverifyBridge)
			projects.GET("/:id/bridge/runs", bridgeHandler.GetBridgeRuns)

			projects.POST("/:id/distributions", bridgeHandler.RecordDistribution)
			projects.GET("/:id/distributions", bridgeHandler.GetDistributions)
		}
	}

	return r
}

// healthHandler 报告数据库和各链RPC的可达性
func healthHandler(db *gorm.DB, chainClient *chain.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"service": "funding-bridge-service",
		}

		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		}
		health["database"] = dbStatus

		chains := gin.H{}
		for _, chainCfg := range cfg.Chains {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			if err := chainClient.Ping(ctx, chainCfg.ChainId); err != nil {
				chains[chainCfg.Name] = "unreachable"
			} else {
				chains[chainCfg.Name] = "connected"
			}
			cancel()
		}
		health["chains"] = chains

		c.JSON(200, health)
	}
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
