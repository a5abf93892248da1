package task

import (
	"context"
	"time"

	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/logic"
	"github.com/blues/fbs/internal/model"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// BridgeReverifyJob 桥接复核任务
// 对已回填目标链交易哈希但尚未确认的桥接记录重跑复核
type BridgeReverifyJob struct {
	db          *gorm.DB
	config      *config.Config
	bridgeLogic *logic.BridgeLogic
}

// NewBridgeReverifyJob 创建桥接复核任务
func NewBridgeReverifyJob(db *gorm.DB, cfg *config.Config, bridgeLogic *logic.BridgeLogic) *BridgeReverifyJob {
	return &BridgeReverifyJob{
		db:          db,
		config:      cfg,
		bridgeLogic: bridgeLogic,
	}
}

// GetName 获取任务名称
func (j *BridgeReverifyJob) GetName() string {
	return "bridge_reverify"
}

// GetSchedule 获取调度配置
func (j *BridgeReverifyJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *BridgeReverifyJob) Execute() {
	var runs []model.BridgeRunModel
	err := j.db.Where("dest_tx_hash <> '' AND confirmed_at IS NULL").
		Order("created_at ASC").
		Find(&runs).Error
	if err != nil {
		logger.Error("Failed to fetch unconfirmed bridge runs: %v", err)
		return
	}

	for _, run := range runs {
		var project model.ProjectModel
		if err := j.db.First(&project, run.ProjectId).Error; err != nil {
			logger.Error("Failed to load project %d for bridge run %d: %v", run.ProjectId, run.Id, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		result, err := j.bridgeLogic.Reverify(ctx, run.ProjectId, project.OwnerAddress, run.Id)
		cancel()

		if err != nil {
			logger.Warn("Bridge reverify of run %d failed: %v", run.Id, err)
			continue
		}
		if result.Confirmed {
			logger.Info("Bridge run %d confirmed, project %d is now bridged", run.Id, run.ProjectId)
		} else {
			logger.Debug("Bridge run %d not confirmed yet: %s", run.Id, result.Reason)
		}
	}
}
