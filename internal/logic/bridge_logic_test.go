package logic

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/config"
	"github.com/blues/fbs/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testBridgeConfig() *config.Config {
	return &config.Config{
		Bridge: config.BridgeConfig{DestChainId: 43114},
	}
}

// newBalanceReader 固定返回目标链代币地址、18位decimals和指定余额
func newBalanceReader(balance *big.Int) *mockBalanceReader {
	return &mockBalanceReader{
		TokenAddressFunc: func(chainId int64, currency model.Currency) (common.Address, error) {
			return common.HexToAddress(destToken), nil
		},
		TokenDecimalsFunc: func(ctx context.Context, chainId int64, currency model.Currency) (int, error) {
			return 18, nil
		},
		TokenBalanceFunc: func(ctx context.Context, chainId int64, currency model.Currency, account common.Address) (*big.Int, error) {
			return new(big.Int).Set(balance), nil
		},
	}
}

func prepareInput(projectId int64) PrepareBridgeInput {
	return PrepareBridgeInput{
		ProjectId:     projectId,
		CallerAddress: ownerAddress,
		Currency:      model.CurrencyJPYC,
		Provider:      model.BridgeProviderUI,
		SourceChainId: 137,
		SourceAddress: vaultAddress,
	}
}

// achieveGoal 把项目推进到已达成状态
func achieveGoal(t *testing.T, db *gorm.DB, projectId int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.Model(&model.GoalModel{}).
		Where("project_id = ?", projectId).
		Update("achieved_at", now).Error)
	require.NoError(t, db.Model(&model.ProjectModel{}).
		Where("id = ?", projectId).
		Update("status", model.ProjectStatusGoalAchieved).Error)
}

func TestPrepareBridge(t *testing.T) {
	t.Run("目标未达成时拒绝且不落记录", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		b := NewBridgeLogic(db, &mockInboundVerifier{}, newBalanceReader(big.NewInt(0)), testBridgeConfig())

		_, err := b.Prepare(context.Background(), prepareInput(projectId))
		assert.ErrorIs(t, err, ErrGoalNotAchieved)

		var count int64
		require.NoError(t, db.Model(&model.BridgeRunModel{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("准备成功并捕获快照和基准余额", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		createConfirmedContribution(t, db, projectId, 137, txHashN(1), "600")
		createConfirmedContribution(t, db, projectId, 1, txHashN(2), "400.5")
		achieveGoal(t, db, projectId)

		b := NewBridgeLogic(db, &mockInboundVerifier{}, newBalanceReader(big.NewInt(5000)), testBridgeConfig())

		result, err := b.Prepare(context.Background(), prepareInput(projectId))
		require.NoError(t, err)
		assert.Equal(t, "1000.5", result.Run.SnapshotAmountHuman)
		assert.Equal(t, "5000", result.Run.BaselineBalanceRaw)
		assert.Equal(t, int64(43114), result.Run.DestChainId)
		assert.Equal(t, common.HexToAddress(destToken).Hex(), result.Run.DestTokenAddress)
		// 收款地址缺省为项目所有者
		assert.Equal(t, common.HexToAddress(ownerAddress).Hex(), result.Run.RecipientAddress)
		assert.NotEmpty(t, result.Instructions)
	})

	t.Run("非所有者拒绝", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		achieveGoal(t, db, projectId)
		b := NewBridgeLogic(db, &mockInboundVerifier{}, newBalanceReader(big.NewInt(0)), testBridgeConfig())

		input := prepareInput(projectId)
		input.CallerAddress = "0x9999999999999999999999999999999999999999"
		_, err := b.Prepare(context.Background(), input)
		assert.ErrorIs(t, err, ErrNotProjectOwner)
	})

	t.Run("已桥接时拒绝除非force", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		achieveGoal(t, db, projectId)
		require.NoError(t, db.Model(&model.ProjectModel{}).
			Where("id = ?", projectId).
			Update("status", model.ProjectStatusBridged).Error)

		b := NewBridgeLogic(db, &mockInboundVerifier{}, newBalanceReader(big.NewInt(0)), testBridgeConfig())

		_, err := b.Prepare(context.Background(), prepareInput(projectId))
		assert.ErrorIs(t, err, ErrAlreadyBridged)

		input := prepareInput(projectId)
		input.Force = true
		result, err := b.Prepare(context.Background(), input)
		require.NoError(t, err)
		assert.True(t, result.Run.Force)
	})
}

func TestAttachBridgeTx(t *testing.T) {
	db := setupTestDB(t)
	projectId := createTestProject(t, db, 1000)
	achieveGoal(t, db, projectId)
	b := NewBridgeLogic(db, &mockInboundVerifier{}, newBalanceReader(big.NewInt(0)), testBridgeConfig())

	prepared, err := b.Prepare(context.Background(), prepareInput(projectId))
	require.NoError(t, err)
	runId := prepared.Run.Id

	t.Run("回填成功", func(t *testing.T) {
		run, err := b.AttachTx(projectId, ownerAddress, runId, txHashN(7))
		require.NoError(t, err)
		assert.Equal(t, txHashN(7), run.DestTxHash)
	})

	t.Run("非法哈希拒绝", func(t *testing.T) {
		_, err := b.AttachTx(projectId, ownerAddress, runId, "0xzz")
		assert.ErrorIs(t, err, ErrInvalidTxHash)
	})

	t.Run("非所有者拒绝", func(t *testing.T) {
		_, err := b.AttachTx(projectId, "0x9999999999999999999999999999999999999999", runId, txHashN(7))
		assert.ErrorIs(t, err, ErrNotProjectOwner)
	})

	t.Run("已确认的记录不可变更", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, db.Model(&model.BridgeRunModel{}).
			Where("id = ?", runId).
			Update("confirmed_at", now).Error)

		_, err := b.AttachTx(projectId, ownerAddress, runId, txHashN(8))
		assert.ErrorIs(t, err, ErrRunAlreadyConfirmed)
	})
}

func TestReverifyBridge(t *testing.T) {
	inboundMatch := &mockInboundVerifier{
		MatchInboundFunc: func(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error) {
			return &chain.MatchResult{Matched: true, RawValue: big.NewInt(1)}, nil
		},
	}

	// 准备时余额5000，复核时应不低于 5000 + 1000*10^18
	setup := func(t *testing.T, verifier InboundVerifier, reader BalanceReader) (*gorm.DB, *BridgeLogic, int64, int64) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		createConfirmedContribution(t, db, projectId, 137, txHashN(1), "1000")
		achieveGoal(t, db, projectId)

		prepareLogic := NewBridgeLogic(db, verifier, newBalanceReader(big.NewInt(5000)), testBridgeConfig())
		prepared, err := prepareLogic.Prepare(context.Background(), prepareInput(projectId))
		require.NoError(t, err)
		_, err = prepareLogic.AttachTx(projectId, ownerAddress, prepared.Run.Id, txHashN(9))
		require.NoError(t, err)

		return db, NewBridgeLogic(db, verifier, reader, testBridgeConfig()), projectId, prepared.Run.Id
	}

	t.Run("事件匹配且余额达标时确认并推进状态", func(t *testing.T) {
		expected, _ := new(big.Int).SetString("1000000000000000000000", 10)
		current := new(big.Int).Add(expected, big.NewInt(5000))
		db, b, projectId, runId := setup(t, inboundMatch, newBalanceReader(current))

		result, err := b.Reverify(context.Background(), projectId, ownerAddress, runId)
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
		require.NotNil(t, result.ConfirmedAt)

		var run model.BridgeRunModel
		require.NoError(t, db.First(&run, runId).Error)
		assert.NotNil(t, run.ConfirmedAt)

		var project model.ProjectModel
		require.NoError(t, db.First(&project, projectId).Error)
		assert.Equal(t, model.ProjectStatusBridged, project.Status)
		assert.NotNil(t, project.BridgedAt)
	})

	t.Run("余额未达标时不确认", func(t *testing.T) {
		// 余额只涨了一半
		half, _ := new(big.Int).SetString("500000000000000000000", 10)
		db, b, projectId, runId := setup(t, inboundMatch, newBalanceReader(half))

		result, err := b.Reverify(context.Background(), projectId, ownerAddress, runId)
		require.NoError(t, err)
		assert.False(t, result.Confirmed)
		assert.Equal(t, chain.ReasonBalanceBelowTarget, result.Reason)

		var project model.ProjectModel
		require.NoError(t, db.First(&project, projectId).Error)
		assert.Equal(t, model.ProjectStatusGoalAchieved, project.Status)
	})

	t.Run("未收到转账时可重试", func(t *testing.T) {
		notReceived := &mockInboundVerifier{
			MatchInboundFunc: func(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error) {
				return &chain.MatchResult{Reason: chain.ReasonDestNotReceived}, nil
			},
		}
		_, b, projectId, runId := setup(t, notReceived, newBalanceReader(big.NewInt(0)))

		result, err := b.Reverify(context.Background(), projectId, ownerAddress, runId)
		require.NoError(t, err)
		assert.False(t, result.Confirmed)
		assert.Equal(t, chain.ReasonDestNotReceived, result.Reason)
	})

	t.Run("已确认的记录直接返回", func(t *testing.T) {
		calls := 0
		counting := &mockInboundVerifier{
			MatchInboundFunc: func(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error) {
				calls++
				return &chain.MatchResult{Matched: true, RawValue: big.NewInt(1)}, nil
			},
		}
		expected, _ := new(big.Int).SetString("1000000000000000000000", 10)
		current := new(big.Int).Add(expected, big.NewInt(5000))
		_, b, projectId, runId := setup(t, counting, newBalanceReader(current))

		_, err := b.Reverify(context.Background(), projectId, ownerAddress, runId)
		require.NoError(t, err)
		result, err := b.Reverify(context.Background(), projectId, ownerAddress, runId)
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
		assert.Equal(t, 1, calls)
	})

	t.Run("快照小数位多于目标链精度时截断后复核", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 100)
		// 源链18位精度的总额，目标链只有6位
		createConfirmedContribution(t, db, projectId, 137, txHashN(1), "100.0000001")
		achieveGoal(t, db, projectId)

		sixDecimals := func(balance *big.Int) *mockBalanceReader {
			r := newBalanceReader(balance)
			r.TokenDecimalsFunc = func(ctx context.Context, chainId int64, currency model.Currency) (int, error) {
				return 6, nil
			}
			return r
		}

		prepareLogic := NewBridgeLogic(db, inboundMatch, sixDecimals(big.NewInt(5000)), testBridgeConfig())
		prepared, err := prepareLogic.Prepare(context.Background(), prepareInput(projectId))
		require.NoError(t, err)
		assert.Equal(t, "100.0000001", prepared.Run.SnapshotAmountHuman)
		assert.Equal(t, 6, prepared.Run.SnapshotDecimals)
		_, err = prepareLogic.AttachTx(projectId, ownerAddress, prepared.Run.Id, txHashN(9))
		require.NoError(t, err)

		// 截断后期望增量是100*10^6，余额恰好达到即确认
		current := big.NewInt(5000 + 100_000_000)
		b := NewBridgeLogic(db, inboundMatch, sixDecimals(current), testBridgeConfig())
		result, err := b.Reverify(context.Background(), projectId, ownerAddress, prepared.Run.Id)
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
	})

	t.Run("被并发复核抢先确认时返回落库的确认时间", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		createConfirmedContribution(t, db, projectId, 137, txHashN(1), "1000")
		achieveGoal(t, db, projectId)

		prepareLogic := NewBridgeLogic(db, inboundMatch, newBalanceReader(big.NewInt(5000)), testBridgeConfig())
		prepared, err := prepareLogic.Prepare(context.Background(), prepareInput(projectId))
		require.NoError(t, err)
		_, err = prepareLogic.AttachTx(projectId, ownerAddress, prepared.Run.Id, txHashN(9))
		require.NoError(t, err)

		// 链上检查期间另一个复核抢先写入确认时间
		stored := time.Now().Add(-time.Hour).Truncate(time.Second)
		racing := &mockInboundVerifier{
			MatchInboundFunc: func(ctx context.Context, chainId int64, token, recipient common.Address, txHash string) (*chain.MatchResult, error) {
				require.NoError(t, db.Model(&model.BridgeRunModel{}).
					Where("id = ?", prepared.Run.Id).
					Update("confirmed_at", stored).Error)
				return &chain.MatchResult{Matched: true, RawValue: big.NewInt(1)}, nil
			},
		}

		expected, _ := new(big.Int).SetString("1000000000000000000000", 10)
		current := new(big.Int).Add(expected, big.NewInt(5000))
		b := NewBridgeLogic(db, racing, newBalanceReader(current), testBridgeConfig())

		result, err := b.Reverify(context.Background(), projectId, ownerAddress, prepared.Run.Id)
		require.NoError(t, err)
		assert.True(t, result.Confirmed)
		require.NotNil(t, result.ConfirmedAt)
		assert.Equal(t, stored.Unix(), result.ConfirmedAt.Unix())
	})

	t.Run("未回填交易哈希时拒绝", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 1000)
		achieveGoal(t, db, projectId)
		b := NewBridgeLogic(db, inboundMatch, newBalanceReader(big.NewInt(0)), testBridgeConfig())

		prepared, err := b.Prepare(context.Background(), prepareInput(projectId))
		require.NoError(t, err)

		_, err = b.Reverify(context.Background(), projectId, ownerAddress, prepared.Run.Id)
		assert.ErrorIs(t, err, ErrNoDestTxHash)
	})

	t.Run("runId为0时取最近一条已回填记录", func(t *testing.T) {
		expected, _ := new(big.Int).SetString("1000000000000000000000", 10)
		current := new(big.Int).Add(expected, big.NewInt(5000))
		_, b, projectId, runId := setup(t, inboundMatch, newBalanceReader(current))

		result, err := b.Reverify(context.Background(), projectId, ownerAddress, 0)
		require.NoError(t, err)
		assert.Equal(t, runId, result.RunId)
		assert.True(t, result.Confirmed)
	})
}
