package model

import (
	"time"
)

// DistributionRunModel 桥接后的资金分配记录，仅追加不修改
type DistributionRunModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64 `json:"project_id" gorm:"not null;index"`

	// 分配计划文档，JSON文本
	PlanJSON string `json:"plan_json" gorm:"type:text"`

	// 分配涉及的交易哈希，逗号分隔
	TxHashes string `json:"tx_hashes" gorm:"type:text"`

	Note string `json:"note" gorm:"type:text"`
}

// TableName 自定义表名
func (DistributionRunModel) TableName() string {
	return "distribution_run"
}
