package logic

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferVerifier 出资交易验证接口
type TransferVerifier interface {
	Match(ctx context.Context, q chain.TransferQuery) (*chain.MatchResult, error)
}

// SubmitInput 出资提交请求
type SubmitInput struct {
	ProjectId   int64
	PurposeId   *int64
	ChainId     int64
	Currency    model.Currency
	TxHash      string
	FromAddress string
	ToAddress   string
	AmountHuman string
}

// SubmitResult 出资提交/复核结果
type SubmitResult struct {
	Verified     bool
	Reason       chain.VerifyReason
	Contribution *model.ContributionModel
}

// ContributionLogic 出资记录业务逻辑
type ContributionLogic struct {
	db        *gorm.DB
	verifier  TransferVerifier
	goalLogic *GoalLogic
}

// NewContributionLogic 创建出资记录业务逻辑
func NewContributionLogic(db *gorm.DB, verifier TransferVerifier, goalLogic *GoalLogic) *ContributionLogic {
	return &ContributionLogic{db: db, verifier: verifier, goalLogic: goalLogic}
}

// SubmitOrReverify 提交出资交易哈希并验证，同一哈希可安全重复提交
// 已确认的记录直接返回，绝不重新验证
func (c *ContributionLogic) SubmitOrReverify(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if err := c.validateSubmit(&input); err != nil {
		return nil, err
	}

	// 已确认记录短路返回，幂等
	var existing model.ContributionModel
	err := c.db.Where("tx_hash = ?", input.TxHash).First(&existing).Error
	if err == nil && existing.Status == model.ContributionStatusConfirmed {
		return &SubmitResult{Verified: true, Contribution: &existing}, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load contribution %s: %w", input.TxHash, err)
	}

	result, err := c.verifier.Match(ctx, chain.TransferQuery{
		ChainId:     input.ChainId,
		Currency:    input.Currency,
		TxHash:      input.TxHash,
		FromAddress: input.FromAddress,
		ToAddress:   input.ToAddress,
		AmountHuman: input.AmountHuman,
	})
	if err != nil {
		return nil, err
	}

	record, err := c.upsert(&input, result)
	if err != nil {
		return nil, err
	}

	if record.Status == model.ContributionStatusConfirmed {
		c.tryAchieveBestEffort(input.ProjectId)
	}

	return &SubmitResult{
		Verified:     result.Matched,
		Reason:       result.Reason,
		Contribution: record,
	}, nil
}

// Reverify 对已存在的待确认记录重新验证，参数取自存储的记录
func (c *ContributionLogic) Reverify(ctx context.Context, txHash string) (*SubmitResult, error) {
	if !isTxHash(txHash) {
		return nil, ErrInvalidTxHash
	}

	var record model.ContributionModel
	if err := c.db.Where("tx_hash = ?", txHash).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to load contribution %s: %w", txHash, err)
	}

	if record.Status == model.ContributionStatusConfirmed {
		return &SubmitResult{Verified: true, Contribution: &record}, nil
	}

	input := SubmitInput{
		ProjectId:   record.ProjectId,
		PurposeId:   record.PurposeId,
		ChainId:     record.ChainId,
		Currency:    record.Currency,
		TxHash:      record.TxHash,
		FromAddress: record.FromAddress,
		ToAddress:   record.ToAddress,
		AmountHuman: record.AmountHuman,
	}

	result, err := c.verifier.Match(ctx, chain.TransferQuery{
		ChainId:     input.ChainId,
		Currency:    input.Currency,
		TxHash:      input.TxHash,
		FromAddress: input.FromAddress,
		ToAddress:   input.ToAddress,
		AmountHuman: input.AmountHuman,
	})
	if err != nil {
		return nil, err
	}

	updated, err := c.upsert(&input, result)
	if err != nil {
		return nil, err
	}

	if updated.Status == model.ContributionStatusConfirmed {
		c.tryAchieveBestEffort(record.ProjectId)
	}

	return &SubmitResult{
		Verified:     result.Matched,
		Reason:       result.Reason,
		Contribution: updated,
	}, nil
}

// upsert 以tx_hash为唯一键原子写入，并发提交同一哈希不会产生两行
// 冲突更新带status=pending守卫，已确认的行不会被降级
func (c *ContributionLogic) upsert(input *SubmitInput, result *chain.MatchResult) (*model.ContributionModel, error) {
	record := model.ContributionModel{
		ProjectId:   input.ProjectId,
		PurposeId:   input.PurposeId,
		ChainId:     input.ChainId,
		Currency:    input.Currency,
		TxHash:      input.TxHash,
		FromAddress: strings.ToLower(input.FromAddress),
		ToAddress:   strings.ToLower(input.ToAddress),
		AmountHuman: input.AmountHuman,
		AmountRaw:   "0",
		Status:      model.ContributionStatusPending,
	}

	if result.Matched {
		now := time.Now()
		record.Status = model.ContributionStatusConfirmed
		record.AmountRaw = result.RawValue.String()
		record.Decimals = result.Decimals
		record.BlockNum = result.BlockNum
		record.ConfirmedAt = &now
	}

	// amount_human和地址也随验证结果更新，确认行必须反映实际匹配到的那组输入，
	// 不能保留首次提交时虚报的金额
	err := c.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tx_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount_raw", "decimals", "amount_human",
			"from_address", "to_address", "block_num", "confirmed_at", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: "contribution", Name: "status"},
				Value:  string(model.ContributionStatusPending),
			},
		}},
	}).Create(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert contribution %s: %w", input.TxHash, err)
	}

	// 重新读取，拿到冲突守卫生效后的最终状态
	var final model.ContributionModel
	if err := c.db.Where("tx_hash = ?", input.TxHash).First(&final).Error; err != nil {
		return nil, fmt.Errorf("failed to reload contribution %s: %w", input.TxHash, err)
	}
	return &final, nil
}

// tryAchieveBestEffort 确认落库后尽力触发目标达成检查，失败只记日志
func (c *ContributionLogic) tryAchieveBestEffort(projectId int64) {
	result, err := c.goalLogic.TryAchieve(projectId)
	if err != nil {
		logger.Error("Goal achievement check failed for project %d: %v", projectId, err)
		return
	}
	if result.Outcome == AchieveOutcomeAchieved && result.Flipped {
		logger.Info("Project %d goal achieved: %d/%d", projectId, result.ConfirmedSum, result.TargetAmount)
	}
}

// validateSubmit 校验提交请求，在任何网络或存储调用之前拒绝非法输入
func (c *ContributionLogic) validateSubmit(input *SubmitInput) error {
	if !input.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !isTxHash(input.TxHash) {
		return ErrInvalidTxHash
	}
	if !common.IsHexAddress(input.ToAddress) {
		return ErrInvalidAddress
	}
	if input.FromAddress != "" && !common.IsHexAddress(input.FromAddress) {
		return ErrInvalidAddress
	}

	var project model.ProjectModel
	if err := c.db.First(&project, input.ProjectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to load project %d: %w", input.ProjectId, err)
	}

	if input.PurposeId != nil {
		var purpose model.PurposeModel
		err := c.db.Where("id = ? AND project_id = ?", *input.PurposeId, input.ProjectId).
			First(&purpose).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurposeNotFound
			}
			return fmt.Errorf("failed to load purpose %d: %w", *input.PurposeId, err)
		}
	}

	return nil
}

// isTxHash 校验交易哈希格式: 0x前缀+64位十六进制
func isTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}
