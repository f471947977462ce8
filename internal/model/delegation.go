package model

import (
	"errors"
	"time"
)

// TaskDelegationModel 任务委派数据模型
// 主管将任务转派给单个员工或子部门,状态机与任务共用同一套状态词汇
type TaskDelegationModel struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)"`
	TaskID          string     `gorm:"type:varchar(64);not null;index"` // 父任务 ID
	AssignmentType  string     `gorm:"type:varchar(32);not null"`      // INDIVIDUAL/SUB_DEPARTMENT
	AssigneeID      *string    `gorm:"type:varchar(64);index"`         // 被委派员工(仅 INDIVIDUAL)
	TargetSubDeptID *string    `gorm:"type:varchar(64);index"`         // 目标子部门(仅 SUB_DEPARTMENT)
	DelegatorID     string     `gorm:"type:varchar(64);not null;index"` // 发起委派的主管
	Status          string     `gorm:"type:varchar(32);not null;index"`
	CreatedAt       time.Time  `gorm:"not null;index"`
	UpdatedAt       time.Time  `gorm:"not null"`
	CompletedAt     *time.Time `gorm:""`
}

// TableName 指定表名
func (TaskDelegationModel) TableName() string {
	return "task_delegations"
}

// Validate 验证委派模型
// assignee 与 targetSubDepartment 有且仅有一个,且与分配类型一致
func (dm *TaskDelegationModel) Validate() error {
	if dm.ID == "" {
		return errors.New("delegation ID is required")
	}
	if dm.TaskID == "" {
		return errors.New("task ID is required")
	}
	if dm.DelegatorID == "" {
		return errors.New("delegator ID is required")
	}
	if dm.Status == "" {
		return errors.New("delegation status is required")
	}
	switch dm.AssignmentType {
	case AssignmentIndividual:
		if dm.AssigneeID == nil || dm.TargetSubDeptID != nil {
			return errors.New("individual delegation requires exactly an assignee")
		}
	case AssignmentSubDepartment:
		if dm.TargetSubDeptID == nil || dm.AssigneeID != nil {
			return errors.New("sub-department delegation requires exactly a target sub-department")
		}
	default:
		return errors.New("invalid delegation assignment type")
	}
	return nil
}

// IsResolved 委派是否已脱离可提醒状态
// 与任务不同,委派在 SEEN 之后即停止提醒
func (dm *TaskDelegationModel) IsResolved() bool {
	return dm.Status == StatusCompleted || dm.Status == StatusPendingReview || dm.Status == StatusSeen
}

// DelegationSubmissionModel 委派提交记录数据模型
// 结构与任务提交一致,额外携带 forwarded 标志:
// 委派提交被批准后,原委派主管可将其一次性转呈到父任务的审核链
type DelegationSubmissionModel struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)"`
	DelegationID  string     `gorm:"type:varchar(64);not null;index"`
	PerformerKind string     `gorm:"type:varchar(16);not null"`
	PerformerID   string     `gorm:"type:varchar(64);not null;index"`
	PerformerName string     `gorm:"type:varchar(255)"`
	Notes         string     `gorm:"type:text"`
	Feedback      string     `gorm:"type:text"`
	Status        string     `gorm:"type:varchar(32);not null;index"`
	Forwarded     bool       `gorm:"not null;default:false"`
	SubmittedAt   time.Time  `gorm:"not null;index"`
	ReviewedAt    *time.Time `gorm:""`
	ReviewedBy    *string    `gorm:"type:varchar(64)"`
}

// TableName 指定表名
func (DelegationSubmissionModel) TableName() string {
	return "delegation_submissions"
}

// Validate 验证委派提交记录模型
func (sm *DelegationSubmissionModel) Validate() error {
	if sm.ID == "" {
		return errors.New("submission ID is required")
	}
	if sm.DelegationID == "" {
		return errors.New("delegation ID is required")
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
func (sm *DelegationSubmissionModel) IsReviewed() bool {
	return sm.Status != SubmissionSubmitted
}
