package repository_test

import (
	"testing"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForSubmission 创建任务提交测试数据库
func setupTestDBForSubmission(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&model.TaskSubmissionModel{})
	require.NoError(t, err)

	return db
}

// TestSubmissionRepository_SaveAndFind 测试保存与查找提交记录
func TestSubmissionRepository_SaveAndFind(t *testing.T) {
	db := setupTestDBForSubmission(t)
	repo := repository.NewSubmissionRepository(db)

	sub := &model.TaskSubmissionModel{
		ID:            "sub-001",
		TaskID:        "task-001",
		PerformerKind: model.ActorEmployee,
		PerformerID:   "emp-001",
		Notes:         "已完成",
		Status:        model.SubmissionSubmitted,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, repo.Save(sub))

	found, err := repo.FindSubmitted("task-001")
	require.NoError(t, err)
	assert.Equal(t, "sub-001", found.ID)

	all, err := repo.FindByTask("task-001")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// TestSubmissionRepository_FindSubmittedSkipsReviewed 已审核的提交不再被待审查询命中
func TestSubmissionRepository_FindSubmittedSkipsReviewed(t *testing.T) {
	db := setupTestDBForSubmission(t)
	repo := repository.NewSubmissionRepository(db)

	reviewed := &model.TaskSubmissionModel{
		ID:            "sub-001",
		TaskID:        "task-001",
		PerformerKind: model.ActorEmployee,
		PerformerID:   "emp-001",
		Status:        model.SubmissionRejected,
		SubmittedAt:   time.Now().Add(-time.Hour),
	}
	pending := &model.TaskSubmissionModel{
		ID:            "sub-002",
		TaskID:        "task-001",
		PerformerKind: model.ActorEmployee,
		PerformerID:   "emp-001",
		Status:        model.SubmissionSubmitted,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, repo.Save(reviewed))
	require.NoError(t, repo.Save(pending))

	found, err := repo.FindSubmitted("task-001")
	require.NoError(t, err)
	assert.Equal(t, "sub-002", found.ID)
}

// TestSubmissionRepository_MarkReviewedOnce 条件更新保证单次审核
func TestSubmissionRepository_MarkReviewedOnce(t *testing.T) {
	db := setupTestDBForSubmission(t)
	repo := repository.NewSubmissionRepository(db)

	sub := &model.TaskSubmissionModel{
		ID:            "sub-001",
		TaskID:        "task-001",
		PerformerKind: model.ActorEmployee,
		PerformerID:   "emp-001",
		Status:        model.SubmissionSubmitted,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, repo.Save(sub))

	now := time.Now()
	ok, err := repo.MarkReviewed("sub-001", model.SubmissionApproved, "sup-001", "做得好", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// 第二次审核同一条提交,条件更新不命中
	ok, err = repo.MarkReviewed("sub-001", model.SubmissionRejected, "sup-002", "驳回", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// 首次审核的结果保持不变
	saved, err := repo.FindByID("sub-001")
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionApproved, saved.Status)
	assert.Equal(t, "做得好", saved.Feedback)
	require.NotNil(t, saved.ReviewedBy)
	assert.Equal(t, "sup-001", *saved.ReviewedBy)
}
