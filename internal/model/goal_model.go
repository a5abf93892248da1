package model

import (
	"time"
)

// GoalModel 募资目标，每个项目一条
type GoalModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64    `json:"project_id" gorm:"uniqueIndex;not null"`
	Currency  Currency `json:"currency" gorm:"not null"`

	// 目标金额，整数，以整币为单位
	TargetAmount int64      `json:"target_amount" gorm:"not null" binding:"required,min=1"`
	Deadline     *time.Time `json:"deadline"`

	// 达成时间，只会被设置一次，设置后目标不可变更
	AchievedAt *time.Time `json:"achieved_at"`
}

// TableName 自定义表名
func (GoalModel) TableName() string {
	return "goal"
}
