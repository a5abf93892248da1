package model

import (
	"time"
)

// BridgeRunModel 一次跨链桥接尝试的记录
type BridgeRunModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64          `json:"project_id" gorm:"not null;index"`
	Provider  BridgeProvider `json:"provider" gorm:"not null"`
	Currency  Currency       `json:"currency" gorm:"not null"`

	// 源链信息
	SourceChainId int64  `json:"source_chain_id" gorm:"not null"`
	SourceAddress string `json:"source_address"`
	VaultAddress  string `json:"vault_address"`

	// 目标链信息
	DestChainId      int64  `json:"dest_chain_id" gorm:"not null"`
	DestTokenAddress string `json:"dest_token_address" gorm:"not null"`
	RecipientAddress string `json:"recipient_address" gorm:"not null"`

	// 准备时刻的已确认总额快照，后续复核以此为固定期望值
	SnapshotAmountHuman string `json:"snapshot_amount_human" gorm:"not null"`
	SnapshotDecimals    int    `json:"snapshot_decimals" gorm:"default:0"`

	// 准备时刻收款地址在目标链上的基准余额（最小单位），用于余额增量复核
	BaselineBalanceRaw string `json:"baseline_balance_raw" gorm:"default:''"`

	// 外部执行转账后回填的目标链交易哈希
	DestTxHash string `json:"dest_tx_hash"`

	// 确认信息，ConfirmedAt 设置后本记录不可变更
	ConfirmedAt   *time.Time `json:"confirmed_at"`
	ConfirmReason string     `json:"confirm_reason"`

	DryRun bool   `json:"dry_run" gorm:"default:false"`
	Force  bool   `json:"force" gorm:"default:false"`
	Note   string `json:"note" gorm:"type:text"`
}

// BridgeProvider 桥接方式标签，只做记录不参与判断
type BridgeProvider string

const (
	BridgeProviderUI     BridgeProvider = "ui"     // UI跳转流程
	BridgeProviderManual BridgeProvider = "manual" // 人工转账
)

// Valid 校验桥接方式枚举
func (p BridgeProvider) Valid() bool {
	switch p {
	case BridgeProviderUI, BridgeProviderManual:
		return true
	}
	return false
}

// TableName 自定义表名
func (BridgeRunModel) TableName() string {
	return "bridge_run"
}
