package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestTaskModelTableName 测试表名
func TestTaskModelTableName(t *testing.T) {
	tm := TaskModel{}
	assert.Equal(t, "tasks", tm.TableName())
}

// TestTaskModelValidation 测试模型验证
func TestTaskModelValidation(t *testing.T) {
	assignee := "emp-001"
	dept := "dept-001"
	subDept := "sub-001"

	valid := &TaskModel{
		ID:             "task-001",
		Title:          "整理季度报表",
		Status:         StatusTodo,
		AssignmentType: AssignmentIndividual,
		AssigneeID:     &assignee,
		AssignerID:     "sup-001",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	assert.NoError(t, valid.Validate())

	// ID 为空
	invalidID := *valid
	invalidID.ID = ""
	assert.Error(t, invalidID.Validate())

	// 没有任何目标
	noTarget := *valid
	noTarget.AssigneeID = nil
	assert.Error(t, noTarget.Validate())

	// 多个目标
	twoTargets := *valid
	twoTargets.TargetDepartmentID = &dept
	assert.Error(t, twoTargets.Validate())

	// 目标与分配类型不一致
	mismatch := *valid
	mismatch.AssigneeID = nil
	mismatch.TargetSubDeptID = &subDept
	assert.Error(t, mismatch.Validate())

	// 分配类型非法
	badType := *valid
	badType.AssignmentType = "TEAM"
	assert.Error(t, badType.Validate())
}

// TestTaskModelApprovalLevel 测试审批层级派生
func TestTaskModelApprovalLevel(t *testing.T) {
	cases := map[string]string{
		AssignmentIndividual:    LevelEmployee,
		AssignmentSubDepartment: LevelSubDepartment,
		AssignmentDepartment:    LevelDepartment,
	}
	for assignmentType, level := range cases {
		tm := &TaskModel{AssignmentType: assignmentType}
		assert.Equal(t, level, tm.ApprovalLevel())
	}
}

// TestTaskModelIsResolved 测试可提醒状态判断
// SEEN 的任务仍会被提醒,委派则在 SEEN 后停止
func TestTaskModelIsResolved(t *testing.T) {
	tm := &TaskModel{Status: StatusTodo}
	assert.False(t, tm.IsResolved())

	tm.Status = StatusSeen
	assert.False(t, tm.IsResolved())

	tm.Status = StatusPendingReview
	assert.True(t, tm.IsResolved())

	tm.Status = StatusCompleted
	assert.True(t, tm.IsResolved())
}
