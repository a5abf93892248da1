package task

import (
	"context"
	"sync"
	"time"

	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/logic"
	"github.com/blues/fbs/internal/model"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// 每轮最多复核的待确认记录数
const reverifyBatchSize = 100

// 并发复核的工作协程数
const reverifyPoolSize = 8

// ContributionReverifyJob 待确认出资复核任务
// 定期对pending记录重跑验证，复核本身幂等，正确性由存储层约束保证
type ContributionReverifyJob struct {
	db                *gorm.DB
	config            *config.Config
	contributionLogic *logic.ContributionLogic
}

// NewContributionReverifyJob 创建出资复核任务
func NewContributionReverifyJob(db *gorm.DB, cfg *config.Config, contributionLogic *logic.ContributionLogic) *ContributionReverifyJob {
	return &ContributionReverifyJob{
		db:                db,
		config:            cfg,
		contributionLogic: contributionLogic,
	}
}

// GetName 获取任务名称
func (j *ContributionReverifyJob) GetName() string {
	return "contribution_reverify"
}

// GetSchedule 获取调度配置
func (j *ContributionReverifyJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *ContributionReverifyJob) Execute() {
	var pending []model.ContributionModel
	err := j.db.Where("status = ?", model.ContributionStatusPending).
		Order("created_at ASC").
		Limit(reverifyBatchSize).
		Find(&pending).Error
	if err != nil {
		logger.Error("Failed to fetch pending contributions: %v", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	logger.Info("Reverifying %d pending contributions", len(pending))

	pool, err := ants.NewPool(reverifyPoolSize)
	if err != nil {
		logger.Error("Failed to create reverify worker pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	confirmed := 0
	var mu sync.Mutex

	for _, record := range pending {
		txHash := record.TxHash
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			result, err := j.contributionLogic.Reverify(ctx, txHash)
			if err != nil {
				logger.Warn("Reverify of contribution %s failed: %v", txHash, err)
				return
			}
			if result.Verified {
				mu.Lock()
				confirmed++
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit reverify task for %s: %v", txHash, err)
		}
	}

	wg.Wait()
	logger.Info("Contribution reverify completed: %d/%d confirmed", confirmed, len(pending))
}
