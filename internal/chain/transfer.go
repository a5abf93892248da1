package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VerifyReason 验证结果原因码
type VerifyReason string

const (
	ReasonReceiptNotFoundYet VerifyReason = "RECEIPT_NOT_FOUND_YET"              // 回执尚不存在，可重试
	ReasonTxReverted         VerifyReason = "TX_REVERTED"                        // 交易已回滚，对该哈希是终态
	ReasonAmountParseFailed  VerifyReason = "AMOUNT_PARSE_FAILED"                // 金额解析失败
	ReasonTransferMismatch   VerifyReason = "TRANSFER_LOG_NOT_FOUND_OR_MISMATCH" // 未找到匹配的Transfer事件
	ReasonDestNotReceived    VerifyReason = "DEST_TRANSFER_NOT_RECEIVED_YET"     // 目标链尚未收到转账
	ReasonBalanceBelowTarget VerifyReason = "DEST_BALANCE_BELOW_EXPECTED"        // 目标链余额未达到期望增量
)

// TransferQuery 出资交易验证请求
type TransferQuery struct {
	ChainId     int64
	Currency    model.Currency
	TxHash      string
	FromAddress string // 可选，为空则不校验发送方
	ToAddress   string // 必填
	AmountHuman string
}

// MatchResult 验证结果
// Matched为false时Reason标明原因，其中只有TX_REVERTED是终态
type MatchResult struct {
	Matched  bool
	Reason   VerifyReason
	Decimals int
	RawValue *big.Int
	BlockNum uint64
}

// Matcher 出资交易匹配器
// 给定链上状态，同样的输入总是得出同样的结论，因此可以安全地反复复核
type Matcher struct {
	reader Reader
}

// NewMatcher 创建匹配器
func NewMatcher(reader Reader) *Matcher {
	return &Matcher{reader: reader}
}

// Match 获取回执并扫描日志，匹配符合期望的ERC-20 Transfer事件
// 配置错误和硬性RPC错误通过error返回，未确认类结果通过MatchResult返回
func (m *Matcher) Match(ctx context.Context, q TransferQuery) (*MatchResult, error) {
	token, err := m.reader.TokenAddress(q.ChainId, q.Currency)
	if err != nil {
		return nil, err
	}

	receipt, err := m.reader.TransactionReceipt(ctx, q.ChainId, common.HexToHash(q.TxHash))
	if err != nil {
		// 回执不存在和超时都是尚未确认，不是失败
		if errors.Is(err, ethereum.NotFound) || errors.Is(err, context.DeadlineExceeded) {
			return &MatchResult{Reason: ReasonReceiptNotFoundYet}, nil
		}
		return nil, err
	}
	if receipt == nil {
		return &MatchResult{Reason: ReasonReceiptNotFoundYet}, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return &MatchResult{Reason: ReasonTxReverted}, nil
	}

	decimals, err := m.reader.TokenDecimals(ctx, q.ChainId, q.Currency)
	if err != nil {
		return nil, err
	}

	expectedRaw, err := RawFromHuman(q.AmountHuman, decimals)
	if err != nil {
		return &MatchResult{Reason: ReasonAmountParseFailed, Decimals: decimals}, nil
	}

	expectedTo := common.HexToAddress(q.ToAddress)
	checkFrom := q.FromAddress != ""
	expectedFrom := common.HexToAddress(q.FromAddress)

	for _, log := range receipt.Logs {
		if log.Address != token {
			continue
		}
		event, ok := DecodeTransferLog(log)
		if !ok {
			continue
		}
		if event.To != expectedTo {
			continue
		}
		if event.Value.Cmp(expectedRaw) != 0 {
			continue
		}
		if checkFrom && event.From != expectedFrom {
			continue
		}

		return &MatchResult{
			Matched:  true,
			Decimals: decimals,
			RawValue: event.Value,
			BlockNum: receipt.BlockNumber.Uint64(),
		}, nil
	}

	return &MatchResult{Reason: ReasonTransferMismatch, Decimals: decimals}, nil
}

// MatchInbound 扫描回执日志，寻找任意一笔发给recipient的目标代币转账
// 用于桥接复核，金额由余额增量检查另行把关
func (m *Matcher) MatchInbound(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*MatchResult, error) {
	receipt, err := m.reader.TransactionReceipt(ctx, chainId, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) || errors.Is(err, context.DeadlineExceeded) {
			return &MatchResult{Reason: ReasonReceiptNotFoundYet}, nil
		}
		return nil, err
	}
	if receipt == nil {
		return &MatchResult{Reason: ReasonReceiptNotFoundYet}, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return &MatchResult{Reason: ReasonTxReverted}, nil
	}

	for _, log := range receipt.Logs {
		if log.Address != token {
			continue
		}
		event, ok := DecodeTransferLog(log)
		if !ok || event.To != recipient {
			continue
		}

		return &MatchResult{
			Matched:  true,
			RawValue: event.Value,
			BlockNum: receipt.BlockNumber.Uint64(),
		}, nil
	}

	return &MatchResult{Reason: ReasonDestNotReceived}, nil
}
