package model

import (
	"errors"
	"time"
)

// 提交状态
const (
	SubmissionSubmitted = "SUBMITTED" // 已提交,等待审核
	SubmissionApproved  = "APPROVED"  // 审核通过
	SubmissionRejected  = "REJECTED"  // 审核驳回
)

// 执行人/审核人角色标识
const (
	ActorAdmin      = "ADMIN"
	ActorSupervisor = "SUPERVISOR"
	ActorEmployee   = "EMPLOYEE"
)

// TaskSubmissionModel 任务提交记录数据模型
// 执行人采用 kind + id + name 的标签联合编码,序列化与鉴权按 kind 分派
type TaskSubmissionModel struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)"`
	TaskID        string     `gorm:"type:varchar(64);not null;index"`
	PerformerKind string     `gorm:"type:varchar(16);not null"` // ADMIN/SUPERVISOR/EMPLOYEE
	PerformerID   string     `gorm:"type:varchar(64);not null;index"`
	PerformerName string     `gorm:"type:varchar(255)"`
	Notes         string     `gorm:"type:text"` // 提交说明
	Feedback      string     `gorm:"type:text"` // 审核反馈
	Status        string     `gorm:"type:varchar(32);not null;index"`
	SubmittedAt   time.Time  `gorm:"not null;index"`
	ReviewedAt    *time.Time `gorm:""`
	ReviewedBy    *string    `gorm:"type:varchar(64)"` // 审核人(管理员或主管)
}

// TableName 指定表名
func (TaskSubmissionModel) TableName() string {
	return "task_submissions"
}

// Validate 验证提交记录模型
func (sm *TaskSubmissionModel) Validate() error {
	if sm.ID == "" {
		return errors.New("submission ID is required")
	}
	if sm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if sm.PerformerID == "" {
		return errors.New("performer ID is required")
	}
	switch sm.PerformerKind {
	case ActorAdmin, ActorSupervisor, ActorEmployee:
	default:
		return errors.New("invalid performer kind")
	}
	if sm.Status == "" {
		return errors.New("submission status is required")
	}
	return nil
}

// IsReviewed 是否已审核
func (sm *TaskSubmissionModel) IsReviewed() bool {
	return sm.Status != SubmissionSubmitted
}
