package model

import (
	"time"
)

// ProjectModel 募资项目模型
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`

	// 项目所有者地址，桥接/分配操作的唯一授权主体
	OwnerAddress string `json:"owner_address" gorm:"not null"`

	// 状态，单向推进: draft -> goal_achieved -> bridged -> distributed
	Status ProjectStatus `json:"status" gorm:"default:'draft'"`

	// 状态时间戳
	BridgedAt     *time.Time `json:"bridged_at"`
	DistributedAt *time.Time `json:"distributed_at"`
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft        ProjectStatus = "draft"         // 募集中
	ProjectStatusGoalAchieved ProjectStatus = "goal_achieved" // 已达成目标
	ProjectStatusBridged      ProjectStatus = "bridged"       // 已桥接
	ProjectStatusDistributed  ProjectStatus = "distributed"   // 已分配
)

// PreAchievementStatuses 允许推进到 goal_achieved 的前置状态
var PreAchievementStatuses = []ProjectStatus{
	ProjectStatusDraft,
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}
