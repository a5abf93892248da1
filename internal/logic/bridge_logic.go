package logic

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/logger"
	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// InboundVerifier 桥接复核所需的链上访问接口
type InboundVerifier interface {
	MatchInbound(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error)
}

// BalanceReader 目标链余额读取接口
type BalanceReader interface {
	TokenAddress(chainId int64, currency model.Currency) (common.Address, error)
	TokenDecimals(ctx context.Context, chainId int64, currency model.Currency) (int, error)
	TokenBalance(ctx context.Context, chainId int64, currency model.Currency, account common.Address) (*big.Int, error)
}

// PrepareBridgeInput 桥接准备请求
type PrepareBridgeInput struct {
	ProjectId        int64
	CallerAddress    string
	Currency         model.Currency
	Provider         model.BridgeProvider
	SourceChainId    int64
	SourceAddress    string
	VaultAddress     string
	RecipientAddress string // 为空时使用项目所有者地址
	DryRun           bool
	Force            bool
	Note             string
}

// PrepareBridgeResult 桥接准备结果，包含外部执行转账所需的信息
type PrepareBridgeResult struct {
	Run          *model.BridgeRunModel `json:"run"`
	Instructions string                `json:"instructions"`
}

// BridgeReverifyResult 桥接复核结果
type BridgeReverifyResult struct {
	Verified    bool               `json:"verified"`
	Confirmed   bool               `json:"confirmed"`
	Reason      chain.VerifyReason `json:"reason,omitempty"`
	RunId       int64              `json:"run_id"`
	ConfirmedAt *time.Time         `json:"confirmed_at,omitempty"`
}

// BridgeLogic 桥接流程业务逻辑
// 状态机: 准备 -> 回填目标链交易哈希 -> 链上证据复核 -> 确认并推进项目状态
type BridgeLogic struct {
	db       *gorm.DB
	verifier InboundVerifier
	reader   BalanceReader
	cfg      *config.Config
}

// NewBridgeLogic 创建桥接业务逻辑
func NewBridgeLogic(db *gorm.DB, verifier InboundVerifier, reader BalanceReader, cfg *config.Config) *BridgeLogic {
	return &BridgeLogic{db: db, verifier: verifier, reader: reader, cfg: cfg}
}

// Prepare 创建桥接记录，捕获已确认总额快照和目标链基准余额
// 系统不持有也不移动资金，实际转账由外部执行
func (b *BridgeLogic) Prepare(ctx context.Context, input PrepareBridgeInput) (*PrepareBridgeResult, error) {
	project, err := b.authorize(input.ProjectId, input.CallerAddress)
	if err != nil {
		return nil, err
	}

	if !input.Currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	if !input.Provider.Valid() {
		return nil, ErrInvalidProvider
	}

	var goal model.GoalModel
	if err := b.db.Where("project_id = ?", input.ProjectId).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotAchieved
		}
		return nil, fmt.Errorf("failed to load goal for project %d: %w", input.ProjectId, err)
	}
	if goal.AchievedAt == nil {
		return nil, ErrGoalNotAchieved
	}

	if project.Status == model.ProjectStatusBridged && !input.Force {
		return nil, ErrAlreadyBridged
	}

	recipient := input.RecipientAddress
	if recipient == "" {
		recipient = project.OwnerAddress
	}
	if !common.IsHexAddress(recipient) {
		return nil, ErrInvalidAddress
	}
	if input.VaultAddress != "" && !common.IsHexAddress(input.VaultAddress) {
		return nil, ErrInvalidAddress
	}

	destChainId := b.cfg.Bridge.DestChainId

	// 目标链代币地址无法解析是配置错误，立即失败
	destToken, err := b.reader.TokenAddress(destChainId, input.Currency)
	if err != nil {
		return nil, err
	}

	destDecimals, err := b.reader.TokenDecimals(ctx, destChainId, input.Currency)
	if err != nil {
		return nil, err
	}

	// 快照此刻的已确认总额，后续复核以它为固定期望值
	snapshot, err := ConfirmedSumHuman(b.db, input.ProjectId, input.Currency)
	if err != nil {
		return nil, err
	}

	// 基准余额读取失败不阻塞准备，复核时退化为仅事件检查
	baseline := ""
	recipientAddr := common.HexToAddress(recipient)
	if balance, err := b.reader.TokenBalance(ctx, destChainId, input.Currency, recipientAddr); err != nil {
		logger.Warn("Failed to read baseline balance for project %d on chain %d: %v",
			input.ProjectId, destChainId, err)
	} else {
		baseline = balance.String()
	}

	run := model.BridgeRunModel{
		ProjectId:           input.ProjectId,
		Provider:            input.Provider,
		Currency:            input.Currency,
		SourceChainId:       input.SourceChainId,
		SourceAddress:       strings.ToLower(input.SourceAddress),
		VaultAddress:        strings.ToLower(input.VaultAddress),
		DestChainId:         destChainId,
		DestTokenAddress:    destToken.Hex(),
		RecipientAddress:    recipientAddr.Hex(),
		SnapshotAmountHuman: snapshot,
		SnapshotDecimals:    destDecimals,
		BaselineBalanceRaw:  baseline,
		DryRun:              input.DryRun,
		Force:               input.Force,
		Note:                input.Note,
	}

	if err := b.db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to create bridge run for project %d: %w", input.ProjectId, err)
	}

	return &PrepareBridgeResult{
		Run:          &run,
		Instructions: bridgeInstructions(&run),
	}, nil
}

// AttachTx 回填外部执行转账产生的目标链交易哈希，此时不做链上检查
func (b *BridgeLogic) AttachTx(projectId int64, callerAddress string, runId int64, destTxHash string) (*model.BridgeRunModel, error) {
	if _, err := b.authorize(projectId, callerAddress); err != nil {
		return nil, err
	}
	if !isTxHash(destTxHash) {
		return nil, ErrInvalidTxHash
	}

	run, err := b.loadRun(projectId, runId)
	if err != nil {
		return nil, err
	}
	if run.ConfirmedAt != nil {
		return nil, ErrRunAlreadyConfirmed
	}

	// confirmed_at守卫防止覆盖已确认的记录
	res := b.db.Model(&model.BridgeRunModel{}).
		Where("id = ? AND confirmed_at IS NULL", run.Id).
		Update("dest_tx_hash", destTxHash)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to attach dest tx to bridge run %d: %w", run.Id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrRunAlreadyConfirmed
	}

	run.DestTxHash = destTxHash
	return run, nil
}

// Reverify 对照目标链证据复核桥接，确认后原子推进项目状态
// 未确认类结果可安全重试，不产生副作用
func (b *BridgeLogic) Reverify(ctx context.Context, projectId int64, callerAddress string, runId int64) (*BridgeReverifyResult, error) {
	if _, err := b.authorize(projectId, callerAddress); err != nil {
		return nil, err
	}

	var run *model.BridgeRunModel
	var err error
	if runId > 0 {
		run, err = b.loadRun(projectId, runId)
	} else {
		run, err = b.latestRunWithTx(projectId)
	}
	if err != nil {
		return nil, err
	}

	if run.ConfirmedAt != nil {
		return &BridgeReverifyResult{
			Verified:    true,
			Confirmed:   true,
			RunId:       run.Id,
			ConfirmedAt: run.ConfirmedAt,
		}, nil
	}

	if run.DestTxHash == "" {
		return nil, ErrNoDestTxHash
	}

	destToken := common.HexToAddress(run.DestTokenAddress)
	recipient := common.HexToAddress(run.RecipientAddress)

	result, err := b.verifier.MatchInbound(ctx, run.DestChainId, destToken, recipient, run.DestTxHash)
	if err != nil {
		return nil, err
	}
	if !result.Matched {
		// 回执未找到、交易回滚、未收到转账都是"尚未确认"，调用方应重试复核
		return &BridgeReverifyResult{Reason: result.Reason, RunId: run.Id}, nil
	}

	reason := "transfer event matched"

	// 余额增量复核: 当前余额须不低于基准余额+快照期望增量
	if run.BaselineBalanceRaw != "" {
		ok, err := b.checkBalanceDelta(ctx, run, recipient)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &BridgeReverifyResult{Reason: chain.ReasonBalanceBelowTarget, RunId: run.Id}, nil
		}
		reason = "transfer event matched and balance delta satisfied"
	}

	now := time.Now()
	flipped := false

	// 确认桥接记录和推进项目状态必须是同一个原子单元，
	// 读取方不允许看到已确认的记录配上陈旧的项目状态
	err = b.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.BridgeRunModel{}).
			Where("id = ? AND confirmed_at IS NULL", run.Id).
			Updates(map[string]interface{}{
				"confirmed_at":   now,
				"confirm_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 被并发复核抢先确认，项目状态已由对方推进
			return nil
		}
		flipped = true

		return tx.Model(&model.ProjectModel{}).
			Where("id = ? AND status IN ?", projectId,
				[]string{string(model.ProjectStatusGoalAchieved), string(model.ProjectStatusBridged)}).
			Updates(map[string]interface{}{
				"status":     model.ProjectStatusBridged,
				"bridged_at": now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm bridge run %d: %w", run.Id, err)
	}

	confirmedAt := &now
	if !flipped {
		// 被并发复核抢先确认，读取最终落库的确认时间
		if final, err := b.loadRun(projectId, run.Id); err == nil && final.ConfirmedAt != nil {
			confirmedAt = final.ConfirmedAt
		}
	}

	return &BridgeReverifyResult{
		Verified:    true,
		Confirmed:   true,
		RunId:       run.Id,
		ConfirmedAt: confirmedAt,
	}, nil
}

// ListRuns 获取项目的桥接历史，新的在前
func (b *BridgeLogic) ListRuns(projectId int64) ([]model.BridgeRunModel, error) {
	var runs []model.BridgeRunModel
	if err := b.db.Where("project_id = ?", projectId).
		Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list bridge runs for project %d: %w", projectId, err)
	}
	return runs, nil
}

// checkBalanceDelta 余额增量检查
func (b *BridgeLogic) checkBalanceDelta(ctx context.Context, run *model.BridgeRunModel, recipient common.Address) (bool, error) {
	baseline, ok := new(big.Int).SetString(run.BaselineBalanceRaw, 10)
	if !ok {
		return false, fmt.Errorf("bridge run %d has unparseable baseline balance %q", run.Id, run.BaselineBalanceRaw)
	}

	// 源链精度可能高于目标链，快照先向下截断到目标链小数位
	snapshot := chain.FloorToDecimals(run.SnapshotAmountHuman, run.SnapshotDecimals)
	expected, err := chain.RawFromHuman(snapshot, run.SnapshotDecimals)
	if err != nil {
		return false, fmt.Errorf("bridge run %d has unparseable snapshot amount %q: %w",
			run.Id, run.SnapshotAmountHuman, err)
	}

	current, err := b.reader.TokenBalance(ctx, run.DestChainId, run.Currency, recipient)
	if err != nil {
		return false, err
	}

	want := new(big.Int).Add(baseline, expected)
	return current.Cmp(want) >= 0, nil
}

// authorize 所有者授权检查，地址比较不区分大小写
func (b *BridgeLogic) authorize(projectId int64, callerAddress string) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := b.db.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project %d: %w", projectId, err)
	}

	if !strings.EqualFold(project.OwnerAddress, callerAddress) {
		return nil, ErrNotProjectOwner
	}
	return &project, nil
}

// loadRun 加载属于指定项目的桥接记录
func (b *BridgeLogic) loadRun(projectId, runId int64) (*model.BridgeRunModel, error) {
	var run model.BridgeRunModel
	err := b.db.Where("id = ? AND project_id = ?", runId, projectId).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBridgeRunNotFound
		}
		return nil, fmt.Errorf("failed to load bridge run %d: %w", runId, err)
	}
	return &run, nil
}

// latestRunWithTx 取最近一条已回填目标链交易哈希的桥接记录
func (b *BridgeLogic) latestRunWithTx(projectId int64) (*model.BridgeRunModel, error) {
	var run model.BridgeRunModel
	err := b.db.Where("project_id = ? AND dest_tx_hash <> ''", projectId).
		Order("created_at DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBridgeRunNotFound
		}
		return nil, fmt.Errorf("failed to load latest bridge run for project %d: %w", projectId, err)
	}
	return &run, nil
}

// bridgeInstructions 生成给外部执行者的转账说明
func bridgeInstructions(run *model.BridgeRunModel) string {
	switch run.Provider {
	case model.BridgeProviderUI:
		return fmt.Sprintf("通过桥接UI将 %s %s 从链 %d 转入链 %d 的 %s，完成后回填目标链交易哈希",
			run.SnapshotAmountHuman, run.Currency, run.SourceChainId, run.DestChainId, run.RecipientAddress)
	default:
		return fmt.Sprintf("人工将 %s %s 从链 %d 转入链 %d 的 %s，完成后回填目标链交易哈希",
			run.SnapshotAmountHuman, run.Currency, run.SourceChainId, run.DestChainId, run.RecipientAddress)
	}
}
