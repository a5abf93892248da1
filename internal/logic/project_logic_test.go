package logic

import (
	"testing"

	"github.com/blues/fbs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	t.Run("创建项目及目标和用途", func(t *testing.T) {
		db := setupTestDB(t)
		p := NewProjectLogic(db)

		detail, err := p.CreateProject(CreateProjectInput{
			Title:        "コミュニティ会館の建設",
			Description:  "地域の集会所を建てる",
			OwnerAddress: ownerAddress,
			Currency:     model.CurrencyJPYC,
			TargetAmount: 1000000,
			Purposes:     []string{"建築費", "設備費", ""},
		})
		require.NoError(t, err)
		assert.Equal(t, model.ProjectStatusDraft, detail.Project.Status)
		assert.Equal(t, int64(1000000), detail.Goal.TargetAmount)
		assert.Nil(t, detail.Goal.AchievedAt)
		// 空文字列の用途は除外される
		assert.Len(t, detail.Purposes, 2)
	})

	t.Run("入力校验", func(t *testing.T) {
		db := setupTestDB(t)
		p := NewProjectLogic(db)

		base := CreateProjectInput{
			Title:        "テスト",
			OwnerAddress: ownerAddress,
			Currency:     model.CurrencyJPYC,
			TargetAmount: 100,
		}

		empty := base
		empty.Title = "  "
		_, err := p.CreateProject(empty)
		assert.Error(t, err)

		badAddr := base
		badAddr.OwnerAddress = "not-an-address"
		_, err = p.CreateProject(badAddr)
		assert.ErrorIs(t, err, ErrInvalidAddress)

		badCurrency := base
		badCurrency.Currency = "DOGE"
		_, err = p.CreateProject(badCurrency)
		assert.ErrorIs(t, err, ErrInvalidCurrency)

		badTarget := base
		badTarget.TargetAmount = 0
		_, err = p.CreateProject(badTarget)
		assert.Error(t, err)
	})
}

func TestGetProjects(t *testing.T) {
	db := setupTestDB(t)
	p := NewProjectLogic(db)

	for i := 0; i < 3; i++ {
		_, err := p.CreateProject(CreateProjectInput{
			Title:        "プロジェクト",
			OwnerAddress: ownerAddress,
			Currency:     model.CurrencyJPYC,
			TargetAmount: 100,
		})
		require.NoError(t, err)
	}

	projects, total, err := p.GetProjects("", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, projects, 2)

	// 状态过滤
	filtered, total, err := p.GetProjects(string(model.ProjectStatusBridged), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, filtered)
}

func TestGetProject(t *testing.T) {
	db := setupTestDB(t)
	p := NewProjectLogic(db)

	created, err := p.CreateProject(CreateProjectInput{
		Title:        "詳細テスト",
		OwnerAddress: ownerAddress,
		Currency:     model.CurrencyUSDC,
		TargetAmount: 500,
		Purposes:     []string{"運営費"},
	})
	require.NoError(t, err)

	detail, err := p.GetProject(created.Project.Id)
	require.NoError(t, err)
	assert.Equal(t, "詳細テスト", detail.Project.Title)
	require.NotNil(t, detail.Goal)
	assert.Equal(t, model.CurrencyUSDC, detail.Goal.Currency)
	assert.Len(t, detail.Purposes, 1)

	_, err = p.GetProject(99999)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
