package model

import (
	"time"
)

// PurposeModel 募资用途，项目下的可选分类
type PurposeModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId   int64  `json:"project_id" gorm:"not null;index"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
}

// TableName 自定义表名
func (PurposeModel) TableName() string {
	return "purpose"
}
