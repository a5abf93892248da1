package model

import (
	"time"
)

// ContributionModel 出资记录，以交易哈希为唯一键
type ContributionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64  `json:"project_id" gorm:"not null;index"`
	PurposeId *int64 `json:"purpose_id"`

	// 链上信息
	ChainId     int64    `json:"chain_id" gorm:"not null"`
	Currency    Currency `json:"currency" gorm:"not null"`
	TxHash      string   `json:"tx_hash" gorm:"uniqueIndex;not null"`
	FromAddress string   `json:"from_address"`
	ToAddress   string   `json:"to_address" gorm:"not null"`
	BlockNum    uint64   `json:"block_num"`

	// 金额，AmountRaw 为最小单位整数的十进制字符串，AmountHuman 为固定精度的人类可读金额
	AmountRaw   string `json:"amount_raw" gorm:"default:'0'"`
	Decimals    int    `json:"decimals" gorm:"default:0"`
	AmountHuman string `json:"amount_human" gorm:"not null"`

	// 状态只会从 pending 变为 confirmed，不会回退
	Status      ContributionStatus `json:"status" gorm:"default:'pending'"`
	ConfirmedAt *time.Time         `json:"confirmed_at"`
}

// ContributionStatus 出资记录状态
type ContributionStatus string

const (
	ContributionStatusPending   ContributionStatus = "pending"   // 待链上确认
	ContributionStatusConfirmed ContributionStatus = "confirmed" // 已匹配到链上Transfer事件
)

// Currency 支持的代币
type Currency string

const (
	CurrencyJPYC Currency = "JPYC"
	CurrencyUSDC Currency = "USDC"
)

// Valid 校验代币枚举
func (c Currency) Valid() bool {
	switch c {
	case CurrencyJPYC, CurrencyUSDC:
		return true
	}
	return false
}

// TableName 自定义表名
func (ContributionModel) TableName() string {
	return "contribution"
}
