package task

import (
	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	config    *config.Config

	contributionLogic *logic.ContributionLogic
	bridgeLogic       *logic.BridgeLogic
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, chainClient *chain.Client, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	matcher := chain.NewMatcher(chainClient)
	goalLogic := logic.NewGoalLogic(db)

	return &Manager{
		scheduler:         s,
		db:                db,
		config:            cfg,
		contributionLogic: logic.NewContributionLogic(db, matcher, goalLogic),
		bridgeLogic:       logic.NewBridgeLogic(db, matcher, chainClient, cfg),
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, chainClient *chain.Client, cfg *config.Config) *Manager {
	manager := NewManager(db, chainClient, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// Job 后台任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	m.registerJob(NewContributionReverifyJob(m.db, m.config, m.contributionLogic))
	m.registerJob(NewBridgeReverifyJob(m.db, m.config, m.bridgeLogic))
}

// registerJob 注册单个任务，单例模式避免同一任务并发执行
func (m *Manager) registerJob(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
