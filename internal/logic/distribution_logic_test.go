package logic

import (
	"testing"

	"github.com/blues/fbs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func bridgedProject(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	projectId := createTestProject(t, db, 100)
	require.NoError(t, db.Model(&model.ProjectModel{}).
		Where("id = ?", projectId).
		Update("status", model.ProjectStatusBridged).Error)
	return projectId
}

func TestRecordDistribution(t *testing.T) {
	t.Run("记录成功并推进到distributed", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := bridgedProject(t, db)
		d := NewDistributionLogic(db)

		run, err := d.RecordDistribution(RecordDistributionInput{
			ProjectId:     projectId,
			CallerAddress: ownerAddress,
			PlanJSON:      `{"recipients":[{"address":"0x1","amount":"50"}]}`,
			TxHashes:      []string{txHashN(1), txHashN(2)},
			Note:          "第一次分配",
		})
		require.NoError(t, err)
		assert.NotZero(t, run.Id)

		var project model.ProjectModel
		require.NoError(t, db.First(&project, projectId).Error)
		assert.Equal(t, model.ProjectStatusDistributed, project.Status)
		assert.NotNil(t, project.DistributedAt)
	})

	t.Run("可追加多条记录", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := bridgedProject(t, db)
		d := NewDistributionLogic(db)

		input := RecordDistributionInput{ProjectId: projectId, CallerAddress: ownerAddress}
		_, err := d.RecordDistribution(input)
		require.NoError(t, err)
		_, err = d.RecordDistribution(input)
		require.NoError(t, err)

		runs, err := d.ListDistributions(projectId)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("未桥接时拒绝", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := createTestProject(t, db, 100)
		d := NewDistributionLogic(db)

		_, err := d.RecordDistribution(RecordDistributionInput{
			ProjectId:     projectId,
			CallerAddress: ownerAddress,
		})
		assert.ErrorIs(t, err, ErrProjectNotBridged)
	})

	t.Run("非所有者拒绝", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := bridgedProject(t, db)
		d := NewDistributionLogic(db)

		_, err := d.RecordDistribution(RecordDistributionInput{
			ProjectId:     projectId,
			CallerAddress: "0x9999999999999999999999999999999999999999",
		})
		assert.ErrorIs(t, err, ErrNotProjectOwner)
	})

	t.Run("非法JSON计划拒绝", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := bridgedProject(t, db)
		d := NewDistributionLogic(db)

		_, err := d.RecordDistribution(RecordDistributionInput{
			ProjectId:     projectId,
			CallerAddress: ownerAddress,
			PlanJSON:      "{not json",
		})
		require.Error(t, err)

		var logicErr *LogicError
		require.ErrorAs(t, err, &logicErr)
		assert.Equal(t, "INVALID_PLAN", logicErr.Code)
	})

	t.Run("非法交易哈希拒绝", func(t *testing.T) {
		db := setupTestDB(t)
		projectId := bridgedProject(t, db)
		d := NewDistributionLogic(db)

		_, err := d.RecordDistribution(RecordDistributionInput{
			ProjectId:     projectId,
			CallerAddress: ownerAddress,
			TxHashes:      []string{"0x123"},
		})
		assert.ErrorIs(t, err, ErrInvalidTxHash)
	})
}
