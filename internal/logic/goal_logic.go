package logic

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/model"
	"gorm.io/gorm"
)

// sumScale 确认总额求和时统一使用的小数位数
const sumScale = 18

// AchieveOutcome 目标达成检查结果
type AchieveOutcome string

const (
	AchieveOutcomeGoalNotSet      AchieveOutcome = "GOAL_NOT_SET"     // 项目未设置目标
	AchieveOutcomeAlreadyAchieved AchieveOutcome = "ALREADY_ACHIEVED" // 已达成过，不重复处理
	AchieveOutcomeNotReached      AchieveOutcome = "NOT_REACHED"      // 未达到目标
	AchieveOutcomeAchieved        AchieveOutcome = "ACHIEVED"         // 本次检查达成
)

// AchieveResult 目标达成检查详情
type AchieveResult struct {
	Outcome      AchieveOutcome `json:"outcome"`
	ConfirmedSum int64          `json:"confirmed_sum"` // 已确认总额，向下取整到整币
	TargetAmount int64          `json:"target_amount"`
	// Flipped 表示本次调用是否是设置achieved_at的那一次
	Flipped    bool       `json:"flipped"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
}

// GoalLogic 募资目标业务逻辑
type GoalLogic struct {
	db *gorm.DB
}

// NewGoalLogic 创建募资目标业务逻辑
func NewGoalLogic(db *gorm.DB) *GoalLogic {
	return &GoalLogic{db: db}
}

// TryAchieve 检查并达成募资目标，可重复调用
// achieved_at 通过条件更新保证只被设置一次，项目状态只从前置状态推进
func (g *GoalLogic) TryAchieve(projectId int64) (*AchieveResult, error) {
	var goal model.GoalModel
	if err := g.db.Where("project_id = ?", projectId).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AchieveResult{Outcome: AchieveOutcomeGoalNotSet}, nil
		}
		return nil, fmt.Errorf("failed to load goal for project %d: %w", projectId, err)
	}

	if goal.AchievedAt != nil {
		return &AchieveResult{
			Outcome:      AchieveOutcomeAlreadyAchieved,
			TargetAmount: goal.TargetAmount,
			AchievedAt:   goal.AchievedAt,
		}, nil
	}

	sum, err := ConfirmedSumScaled(g.db, projectId, goal.Currency)
	if err != nil {
		return nil, err
	}

	// 向下取整到整币单位，绝不向上取整
	wholeUnits := WholeUnits(sum)

	if wholeUnits < goal.TargetAmount {
		return &AchieveResult{
			Outcome:      AchieveOutcomeNotReached,
			ConfirmedSum: wholeUnits,
			TargetAmount: goal.TargetAmount,
		}, nil
	}

	now := time.Now()

	// 条件更新，并发调用时只有一个能翻转
	res := g.db.Model(&model.GoalModel{}).
		Where("project_id = ? AND achieved_at IS NULL", projectId).
		Update("achieved_at", now)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to stamp goal achievement for project %d: %w", projectId, res.Error)
	}
	flipped := res.RowsAffected > 0

	// 只有仍处于前置状态的项目才推进，避免回退已桥接/已分配的项目
	if err := g.db.Model(&model.ProjectModel{}).
		Where("id = ? AND status IN ?", projectId, PreAchievementStatusList()).
		Update("status", model.ProjectStatusGoalAchieved).Error; err != nil {
		return nil, fmt.Errorf("failed to advance project %d status: %w", projectId, err)
	}

	achievedAt := &now
	if !flipped {
		// 被并发调用抢先设置，读取最终值
		var final model.GoalModel
		if err := g.db.Where("project_id = ?", projectId).First(&final).Error; err == nil {
			achievedAt = final.AchievedAt
		}
	}

	return &AchieveResult{
		Outcome:      AchieveOutcomeAchieved,
		ConfirmedSum: wholeUnits,
		TargetAmount: goal.TargetAmount,
		Flipped:      flipped,
		AchievedAt:   achievedAt,
	}, nil
}

// PreAchievementStatusList 前置状态列表，gorm IN 查询用
func PreAchievementStatusList() []string {
	statuses := make([]string, len(model.PreAchievementStatuses))
	for i, s := range model.PreAchievementStatuses {
		statuses[i] = string(s)
	}
	return statuses
}

// ConfirmedSumScaled 汇总项目在指定币种下的已确认出资，返回sumScale位定点整数
func ConfirmedSumScaled(db *gorm.DB, projectId int64, currency model.Currency) (*big.Int, error) {
	var amounts []string
	if err := db.Model(&model.ContributionModel{}).
		Where("project_id = ? AND currency = ? AND status = ?",
			projectId, currency, model.ContributionStatusConfirmed).
		Pluck("amount_human", &amounts).Error; err != nil {
		return nil, fmt.Errorf("failed to sum confirmed contributions for project %d: %w", projectId, err)
	}

	total := new(big.Int)
	for _, amount := range amounts {
		raw, err := chain.RawFromHuman(amount, sumScale)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q is not parseable: %w", amount, err)
		}
		total.Add(total, raw)
	}
	return total, nil
}

// WholeUnits 将sumScale位定点整数向下取整为整币数量
func WholeUnits(scaled *big.Int) int64 {
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(sumScale), nil)
	return new(big.Int).Div(scaled, divisor).Int64()
}

// ConfirmedSumHuman 汇总已确认出资并返回人类可读金额字符串
func ConfirmedSumHuman(db *gorm.DB, projectId int64, currency model.Currency) (string, error) {
	sum, err := ConfirmedSumScaled(db, projectId, currency)
	if err != nil {
		return "", err
	}
	return chain.HumanFromRaw(sum, sumScale), nil
}
