package logic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/blues/fbs/internal/model"
	"gorm.io/gorm"
)

// RecordDistributionInput 分配记录请求
type RecordDistributionInput struct {
	ProjectId     int64
	CallerAddress string
	PlanJSON      string
	TxHashes      []string
	Note          string
}

// DistributionLogic 分配记录业务逻辑，仅追加
type DistributionLogic struct {
	db *gorm.DB
}

// NewDistributionLogic 创建分配记录业务逻辑
func NewDistributionLogic(db *gorm.DB) *DistributionLogic {
	return &DistributionLogic{db: db}
}

// RecordDistribution 追加一条分配记录，并按需推进项目状态到distributed
func (d *DistributionLogic) RecordDistribution(input RecordDistributionInput) (*model.DistributionRunModel, error) {
	project, err := d.authorize(input.ProjectId, input.CallerAddress)
	if err != nil {
		return nil, err
	}

	if project.Status != model.ProjectStatusBridged && project.Status != model.ProjectStatusDistributed {
		return nil, ErrProjectNotBridged
	}

	if input.PlanJSON != "" && !json.Valid([]byte(input.PlanJSON)) {
		return nil, &LogicError{Code: "INVALID_PLAN", Message: "分配计划不是合法的JSON"}
	}
	for _, hash := range input.TxHashes {
		if !isTxHash(hash) {
			return nil, ErrInvalidTxHash
		}
	}

	run := model.DistributionRunModel{
		ProjectId: input.ProjectId,
		PlanJSON:  input.PlanJSON,
		TxHashes:  strings.Join(input.TxHashes, ","),
		Note:      input.Note,
	}

	now := time.Now()
	err = d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}

		// 只从bridged推进，重复记录不改变状态
		return tx.Model(&model.ProjectModel{}).
			Where("id = ? AND status = ?", input.ProjectId, model.ProjectStatusBridged).
			Updates(map[string]interface{}{
				"status":         model.ProjectStatusDistributed,
				"distributed_at": now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record distribution for project %d: %w", input.ProjectId, err)
	}

	return &run, nil
}

// ListDistributions 获取项目的分配记录，新的在前
func (d *DistributionLogic) ListDistributions(projectId int64) ([]model.DistributionRunModel, error) {
	var runs []model.DistributionRunModel
	if err := d.db.Where("project_id = ?", projectId).
		Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list distributions for project %d: %w", projectId, err)
	}
	return runs, nil
}

// authorize 所有者授权检查
func (d *DistributionLogic) authorize(projectId int64, callerAddress string) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := d.db.First(&project, projectId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project %d: %w", projectId, err)
	}

	if !strings.EqualFold(project.OwnerAddress, callerAddress) {
		return nil, ErrNotProjectOwner
	}
	return &project, nil
}
