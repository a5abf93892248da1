package logic

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/database"
	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	ownerAddress = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"
	vaultAddress = "0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb"
	destToken    = "0xCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCcCc"
)

// txHashN 生成格式合法且互不相同的测试交易哈希
func txHashN(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// createTestProject 创建带目标的测试项目，返回项目ID
func createTestProject(t *testing.T, db *gorm.DB, target int64) int64 {
	t.Helper()
	project := model.ProjectModel{
		Title:        "テスト募集",
		OwnerAddress: ownerAddress,
		Status:       model.ProjectStatusDraft,
	}
	require.NoError(t, db.Create(&project).Error)

	goal := model.GoalModel{
		ProjectId:    project.Id,
		Currency:     model.CurrencyJPYC,
		TargetAmount: target,
	}
	require.NoError(t, db.Create(&goal).Error)
	return project.Id
}

// createConfirmedContribution 直接落一条已确认出资
func createConfirmedContribution(t *testing.T, db *gorm.DB, projectId, chainId int64, txHash, amount string) {
	t.Helper()
	now := time.Now()
	record := model.ContributionModel{
		ProjectId:   projectId,
		ChainId:     chainId,
		Currency:    model.CurrencyJPYC,
		TxHash:      txHash,
		ToAddress:   vaultAddress,
		AmountHuman: amount,
		AmountRaw:   "0",
		Status:      model.ContributionStatusConfirmed,
		ConfirmedAt: &now,
	}
	require.NoError(t, db.Create(&record).Error)
}

// mockTransferVerifier 出资验证mock
type mockTransferVerifier struct {
	MatchFunc func(ctx context.Context, q chain.TransferQuery) (*chain.MatchResult, error)
}

func (m *mockTransferVerifier) Match(ctx context.Context, q chain.TransferQuery) (*chain.MatchResult, error) {
	return m.MatchFunc(ctx, q)
}

// mockInboundVerifier 桥接复核mock
type mockInboundVerifier struct {
	MatchInboundFunc func(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error)
}

func (m *mockInboundVerifier) MatchInbound(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error) {
	return m.MatchInboundFunc(ctx, chainId, token, recipient, txHash)
}

// mockBalanceReader 目标链读取mock
type mockBalanceReader struct {
	TokenAddressFunc  func(chainId int64, currency model.Currency) (common.Address, error)
	TokenDecimalsFunc func(ctx context.Context, chainId int64, currency model.Currency) (int, error)
	TokenBalanceFunc  func(ctx context.Context, chainId int64, currency model.Currency, account common.Address) (*big.Int, error)
}

func (m *mockBalanceReader) TokenAddress(chainId int64, currency model.Currency) (common.Address, error) {
	return m.TokenAddressFunc(chainId, currency)
}

func (m *mockBalanceReader) TokenDecimals(ctx context.Context, chainId int64, currency model.Currency) (int, error) {
	return m.TokenDecimalsFunc(ctx, chainId, currency)
}

func (m *mockBalanceReader) TokenBalance(ctx context.Context, chainId int64, currency model.Currency, account common.Address) (*big.Int, error) {
	return m.TokenBalanceFunc(ctx, chainId, currency, account)
}
