package handler

import (
	"time"

	"github.com/blues/fbs/internal/model"
)

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// 出资相关请求/响应模型

// SubmitContributionRequest 出资提交请求
type SubmitContributionRequest struct {
	ProjectId   int64  `json:"projectId" binding:"required"`
	PurposeId   *int64 `json:"purposeId"`
	ChainId     int64  `json:"chainId" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	TxHash      string `json:"txHash" binding:"required"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress" binding:"required"`
	AmountHuman string `json:"amount" binding:"required"`
}

// ContributionResponse 出资记录响应模型
type ContributionResponse struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"projectId"`
	PurposeID   *int64     `json:"purposeId,omitempty"`
	ChainID     int64      `json:"chainId"`
	Currency    string     `json:"currency"`
	TxHash      string     `json:"txHash"`
	FromAddress string     `json:"fromAddress"`
	ToAddress   string     `json:"toAddress"`
	AmountRaw   string     `json:"amountRaw"`
	Decimals    int        `json:"decimals"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	BlockNum    uint64     `json:"blockNum"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// VerifyContributionResponse 出资验证响应
type VerifyContributionResponse struct {
	Verified     bool                 `json:"verified"`
	Reason       string               `json:"reason,omitempty"`
	Contribution ContributionResponse `json:"contribution"`
}

// 桥接相关请求/响应模型

// PrepareBridgeRequest 桥接准备请求
type PrepareBridgeRequest struct {
	CallerAddress    string `json:"callerAddress" binding:"required"`
	Currency         string `json:"currency" binding:"required"`
	Provider         string `json:"provider" binding:"required"`
	SourceChainId    int64  `json:"sourceChainId" binding:"required"`
	SourceAddress    string `json:"sourceAddress"`
	VaultAddress     string `json:"vaultAddress"`
	RecipientAddress string `json:"recipientAddress"`
	DryRun           bool   `json:"dryRun"`
	Force            bool   `json:"force"`
	Note             string `json:"note"`
}

// AttachBridgeTxRequest 回填目标链交易哈希请求
type AttachBridgeTxRequest struct {
	CallerAddress string `json:"callerAddress" binding:"required"`
	DestTxHash    string `json:"destinationTxHash" binding:"required"`
}

// ReverifyBridgeRequest 桥接复核请求
type ReverifyBridgeRequest struct {
	CallerAddress string `json:"callerAddress" binding:"required"`
	BridgeRunId   int64  `json:"bridgeRunId"`
}

// BridgeRunResponse 桥接记录响应模型
type BridgeRunResponse struct {
	ID                  int64      `json:"id"`
	ProjectID           int64      `json:"projectId"`
	Provider            string     `json:"provider"`
	Currency            string     `json:"currency"`
	SourceChainID       int64      `json:"sourceChainId"`
	DestChainID         int64      `json:"destChainId"`
	DestTokenAddress    string     `json:"destTokenAddress"`
	RecipientAddress    string     `json:"recipientAddress"`
	SnapshotAmountHuman string     `json:"snapshotAmount"`
	DestTxHash          string     `json:"destinationTxHash,omitempty"`
	ConfirmedAt         *time.Time `json:"confirmedAt,omitempty"`
	ConfirmReason       string     `json:"confirmReason,omitempty"`
	DryRun              bool       `json:"dryRun"`
	Force               bool       `json:"force"`
	Note                string     `json:"note,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// PrepareBridgeResponse 桥接准备响应
type PrepareBridgeResponse struct {
	BridgeRun    BridgeRunResponse `json:"bridgeRun"`
	Instructions string            `json:"providerInstructions"`
}

// AttachBridgeTxResponse 回填响应
type AttachBridgeTxResponse struct {
	Saved       bool   `json:"saved"`
	BridgeRunId int64  `json:"bridgeRunId"`
	DestTxHash  string `json:"destinationTxHash"`
}

// 项目相关请求/响应模型

// CreateProjectRequest 项目创建请求
type CreateProjectRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	OwnerAddress string   `json:"ownerAddress" binding:"required"`
	Currency     string   `json:"currency" binding:"required"`
	TargetAmount int64    `json:"targetAmount" binding:"required,min=1"`
	Purposes     []string `json:"purposes"`
}

// RecordDistributionRequest 分配记录请求
type RecordDistributionRequest struct {
	CallerAddress string   `json:"callerAddress" binding:"required"`
	PlanJSON      string   `json:"plan"`
	TxHashes      []string `json:"txHashes"`
	Note          string   `json:"note"`
}

// 转换函数

// ToContributionResponse 将出资记录数据库模型转换为响应模型
func ToContributionResponse(record *model.ContributionModel) ContributionResponse {
	return ContributionResponse{
		ID:          record.Id,
		ProjectID:   record.ProjectId,
		PurposeID:   record.PurposeId,
		ChainID:     record.ChainId,
		Currency:    string(record.Currency),
		TxHash:      record.TxHash,
		FromAddress: record.FromAddress,
		ToAddress:   record.ToAddress,
		AmountRaw:   record.AmountRaw,
		Decimals:    record.Decimals,
		Amount:      record.AmountHuman,
		Status:      string(record.Status),
		BlockNum:    record.BlockNum,
		ConfirmedAt: record.ConfirmedAt,
		CreatedAt:   record.CreatedAt,
	}
}

// ToBridgeRunResponse 将桥接记录数据库模型转换为响应模型
func ToBridgeRunResponse(run *model.BridgeRunModel) BridgeRunResponse {
	return BridgeRunResponse{
		ID:                  run.Id,
		ProjectID:           run.ProjectId,
		Provider:            string(run.Provider),
		Currency:            string(run.Currency),
		SourceChainID:       run.SourceChainId,
		DestChainID:         run.DestChainId,
		DestTokenAddress:    run.DestTokenAddress,
		RecipientAddress:    run.RecipientAddress,
		SnapshotAmountHuman: run.SnapshotAmountHuman,
		DestTxHash:          run.DestTxHash,
		ConfirmedAt:         run.ConfirmedAt,
		ConfirmReason:       run.ConfirmReason,
		DryRun:              run.DryRun,
		Force:               run.Force,
		Note:                run.Note,
		CreatedAt:           run.CreatedAt,
	}
}

// ToBridgeRunResponseList 将桥接记录列表转换为响应模型列表
func ToBridgeRunResponseList(runs []model.BridgeRunModel) []BridgeRunResponse {
	result := make([]BridgeRunResponse, len(runs))
	for i, run := range runs {
		result[i] = ToBridgeRunResponse(&run)
	}
	return result
}
