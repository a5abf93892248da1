package logic

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/model"
	"gorm.io/gorm"
)

// ChainProgress 按链汇总的已确认金额
type ChainProgress struct {
	ChainId int64  `json:"chain_id"`
	Amount  string `json:"amount"`
	Count   int    `json:"count"`
}

// PurposeProgress 按用途汇总的已确认金额
type PurposeProgress struct {
	PurposeId int64  `json:"purpose_id"`
	Title     string `json:"title"`
	Amount    string `json:"amount"`
	Count     int    `json:"count"`
}

// ProjectProgress 项目募资进度
type ProjectProgress struct {
	ProjectId       int64             `json:"project_id"`
	Currency        model.Currency    `json:"currency"`
	ConfirmedTotal  string            `json:"confirmed_total"`
	TargetAmount    int64             `json:"target_amount"`
	ProgressPercent float64           `json:"progress_percent"`
	Achieved        bool              `json:"achieved"`
	ByChain         []ChainProgress   `json:"by_chain"`
	ByPurpose       []PurposeProgress `json:"by_purpose"`
}

// ProgressLogic 进度查询，只读
type ProgressLogic struct {
	db *gorm.DB
}

// NewProgressLogic 创建进度查询逻辑
func NewProgressLogic(db *gorm.DB) *ProgressLogic {
	return &ProgressLogic{db: db}
}

// GetProjectProgress 汇总项目的已确认出资进度
func (p *ProgressLogic) GetProjectProgress(projectId int64) (*ProjectProgress, error) {
	var project model.ProjectModel
	if err := p.db.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project %d: %w", projectId, err)
	}

	var goal model.GoalModel
	if err := p.db.Where("project_id = ?", projectId).First(&goal).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load goal for project %d: %w", projectId, err)
		}
	}

	var contributions []model.ContributionModel
	if err := p.db.Where("project_id = ? AND status = ?",
		projectId, model.ContributionStatusConfirmed).
		Find(&contributions).Error; err != nil {
		return nil, fmt.Errorf("failed to load contributions for project %d: %w", projectId, err)
	}

	total := new(big.Int)
	byChain := make(map[int64]*big.Int)
	chainCounts := make(map[int64]int)
	byPurpose := make(map[int64]*big.Int)
	purposeCounts := make(map[int64]int)

	for _, contrib := range contributions {
		if goal.Id != 0 && contrib.Currency != goal.Currency {
			continue
		}
		raw, err := chain.RawFromHuman(contrib.AmountHuman, sumScale)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q is not parseable: %w", contrib.AmountHuman, err)
		}

		total.Add(total, raw)

		if byChain[contrib.ChainId] == nil {
			byChain[contrib.ChainId] = new(big.Int)
		}
		byChain[contrib.ChainId].Add(byChain[contrib.ChainId], raw)
		chainCounts[contrib.ChainId]++

		if contrib.PurposeId != nil {
			id := *contrib.PurposeId
			if byPurpose[id] == nil {
				byPurpose[id] = new(big.Int)
			}
			byPurpose[id].Add(byPurpose[id], raw)
			purposeCounts[id]++
		}
	}

	progress := &ProjectProgress{
		ProjectId:      projectId,
		Currency:       goal.Currency,
		ConfirmedTotal: chain.HumanFromRaw(total, sumScale),
		TargetAmount:   goal.TargetAmount,
		Achieved:       goal.AchievedAt != nil,
	}

	if goal.TargetAmount > 0 {
		progress.ProgressPercent = float64(WholeUnits(total)) / float64(goal.TargetAmount) * 100
	}

	var chainIds []int64
	for id := range byChain {
		chainIds = append(chainIds, id)
	}
	sortInt64s(chainIds)
	for _, id := range chainIds {
		progress.ByChain = append(progress.ByChain, ChainProgress{
			ChainId: id,
			Amount:  chain.HumanFromRaw(byChain[id], sumScale),
			Count:   chainCounts[id],
		})
	}

	if len(byPurpose) > 0 {
		var purposes []model.PurposeModel
		if err := p.db.Where("project_id = ?", projectId).Find(&purposes).Error; err != nil {
			return nil, fmt.Errorf("failed to load purposes for project %d: %w", projectId, err)
		}
		titles := make(map[int64]string, len(purposes))
		for _, purpose := range purposes {
			titles[purpose.Id] = purpose.Title
		}

		var purposeIds []int64
		for id := range byPurpose {
			purposeIds = append(purposeIds, id)
		}
		sortInt64s(purposeIds)
		for _, id := range purposeIds {
			progress.ByPurpose = append(progress.ByPurpose, PurposeProgress{
				PurposeId: id,
				Title:     titles[id],
				Amount:    chain.HumanFromRaw(byPurpose[id], sumScale),
				Count:     purposeCounts[id],
			})
		}
	}

	return progress, nil
}

// sortInt64s 升序排序，保证输出顺序稳定
func sortInt64s(s []int64) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}
