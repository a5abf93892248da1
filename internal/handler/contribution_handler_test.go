package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blues/fbs/internal/chain"
	"github.com/blues/fbs/internal/database"
	"github.com/blues/fbs/internal/logic"
	"github.com/blues/fbs/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type mockVerifier struct {
	MatchFunc func(ctx context.Context, q chain.TransferQuery) (*chain.MatchResult, error)
}

func (m *mockVerifier) Match(ctx context.Context, q chain.TransferQuery) (*chain.MatchResult, error) {
	return m.MatchFunc(ctx, q)
}

func TestSubmitContribution(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	project := model.ProjectModel{
		Title:        "テスト募集",
		OwnerAddress: "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa",
	}
	require.NoError(t, db.Create(&project).Error)

	value, _ := new(big.Int).SetString("100000000000000000000", 10)
	verifier := &mockVerifier{
		MatchFunc: func(ctx context.Context, q chain.TransferQuery) (*chain.MatchResult, error) {
			return &chain.MatchResult{Matched: true, Decimals: 18, RawValue: value, BlockNum: 42}, nil
		},
	}

	contributionLogic := logic.NewContributionLogic(db, verifier, logic.NewGoalLogic(db))
	handler := NewContributionHandler(contributionLogic)

	router := gin.New()
	router.POST("/api/v1/contributions", handler.SubmitContribution)
	router.POST("/api/v1/contributions/:txHash/reverify", handler.ReverifyContribution)

	submit := func(body interface{}) *httptest.ResponseRecorder {
		data, _ := json.Marshal(body)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/v1/contributions", bytes.NewBuffer(data))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	validRequest := SubmitContributionRequest{
		ProjectId:   project.Id,
		ChainId:     137,
		Currency:    "JPYC",
		TxHash:      "0x1100000000000000000000000000000000000000000000000000000000000000",
		ToAddress:   "0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb",
		AmountHuman: "100",
	}

	t.Run("提交并确认", func(t *testing.T) {
		w := submit(validRequest)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		var count int64
		db.Model(&model.ContributionModel{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("缺少必填字段", func(t *testing.T) {
		bad := validRequest
		bad.TxHash = ""
		w := submit(bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("项目不存在映射404", func(t *testing.T) {
		bad := validRequest
		bad.ProjectId = 99999
		w := submit(bad)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "PROJECT_NOT_FOUND")
	})

	t.Run("复核不存在的记录映射404", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST",
			"/api/v1/contributions/0x2200000000000000000000000000000000000000000000000000000000000000/reverify", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "CONTRIBUTION_NOT_FOUND")
	})
}
