package logic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// CreateProjectInput 项目创建请求
type CreateProjectInput struct {
	Title        string
	Description  string
	OwnerAddress string
	Currency     model.Currency
	TargetAmount int64
	Purposes     []string
}

// ProjectDetail 项目详情
type ProjectDetail struct {
	Project  *model.ProjectModel  `json:"project"`
	Goal     *model.GoalModel     `json:"goal"`
	Purposes []model.PurposeModel `json:"purposes"`
}

// ProjectLogic 项目业务逻辑
type ProjectLogic struct {
	db *gorm.DB
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB) *ProjectLogic {
	return &ProjectLogic{db: db}
}

// CreateProject 创建项目及其目标和用途，单事务写入
func (p *ProjectLogic) CreateProject(input CreateProjectInput) (*ProjectDetail, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, &LogicError{Code: "INVALID_TITLE", Message: "项目标题不能为空"}
	}
	if !common.IsHexAddress(input.OwnerAddress) {
		return nil, ErrInvalidAddress
	}
	if !input.Currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	if input.TargetAmount <= 0 {
		return nil, &LogicError{Code: "INVALID_TARGET", Message: "目标金额必须大于0"}
	}

	project := model.ProjectModel{
		Title:        input.Title,
		Description:  input.Description,
		OwnerAddress: common.HexToAddress(input.OwnerAddress).Hex(),
		Status:       model.ProjectStatusDraft,
	}
	goal := model.GoalModel{
		Currency:     input.Currency,
		TargetAmount: input.TargetAmount,
	}
	var purposes []model.PurposeModel

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		goal.ProjectId = project.Id
		if err := tx.Create(&goal).Error; err != nil {
			return err
		}

		for _, title := range input.Purposes {
			if strings.TrimSpace(title) == "" {
				continue
			}
			purposes = append(purposes, model.PurposeModel{
				ProjectId: project.Id,
				Title:     title,
			})
		}
		if len(purposes) > 0 {
			if err := tx.Create(&purposes).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &ProjectDetail{Project: &project, Goal: &goal, Purposes: purposes}, nil
}

// GetProject 获取项目详情
func (p *ProjectLogic) GetProject(projectId int64) (*ProjectDetail, error) {
	var project model.ProjectModel
	if err := p.db.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project %d: %w", projectId, err)
	}

	detail := &ProjectDetail{Project: &project}

	var goal model.GoalModel
	if err := p.db.Where("project_id = ?", projectId).First(&goal).Error; err == nil {
		detail.Goal = &goal
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load goal for project %d: %w", projectId, err)
	}

	if err := p.db.Where("project_id = ?", projectId).Find(&detail.Purposes).Error; err != nil {
		return nil, fmt.Errorf("failed to load purposes for project %d: %w", projectId, err)
	}

	return detail, nil
}

// GetProjects 获取项目列表
func (p *ProjectLogic) GetProjects(status string, page, pageSize int) ([]model.ProjectModel, int64, error) {
	query := p.db.Model(&model.ProjectModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	var projects []model.ProjectModel
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).
		Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, total, nil
}
