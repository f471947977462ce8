package model

import (
	"errors"
	"time"
)

// 任务状态
const (
	StatusTodo          = "TODO"           // 待处理
	StatusSeen          = "SEEN"           // 已查看
	StatusPendingReview = "PENDING_REVIEW" // 待审核
	StatusCompleted     = "COMPLETED"      // 已完成
)

// 任务优先级
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// 分配类型
const (
	AssignmentIndividual    = "INDIVIDUAL"     // 指派给个人
	AssignmentSubDepartment = "SUB_DEPARTMENT" // 指派给子部门
	AssignmentDepartment    = "DEPARTMENT"     // 指派给部门
)

// 审批层级(由分配类型派生,不落库)
const (
	LevelEmployee      = "EMPLOYEE_LEVEL"
	LevelSubDepartment = "SUB_DEPARTMENT_LEVEL"
	LevelDepartment    = "DEPARTMENT_LEVEL"
)

// TaskModel 任务数据模型
type TaskModel struct {
	ID                 string         `gorm:"primaryKey;type:varchar(64)"`
	Title              string         `gorm:"type:varchar(255);not null"`
	Description        string         `gorm:"type:text"`
	Priority           string         `gorm:"type:varchar(16);not null;default:'MEDIUM'"`
	AssignmentType     string         `gorm:"type:varchar(32);not null;index"` // INDIVIDUAL/SUB_DEPARTMENT/DEPARTMENT
	Status             string         `gorm:"type:varchar(32);not null;index"`
	AssigneeID         *string        `gorm:"type:varchar(64);index"` // 指派的员工 ID(仅 INDIVIDUAL)
	TargetDepartmentID *string        `gorm:"type:varchar(64);index"` // 目标部门 ID(仅 DEPARTMENT)
	TargetSubDeptID    *string        `gorm:"type:varchar(64);index"` // 目标子部门 ID(仅 SUB_DEPARTMENT)
	AssignerID         string         `gorm:"type:varchar(64);not null;index"` // 分配人(管理员或主管)
	ApproverID         *string        `gorm:"type:varchar(64)"`                // 指定审批人(可选)
	CreatedBy          string         `gorm:"type:varchar(64);index"`          // 创建人用户 ID
	DueDate            *time.Time     `gorm:""`
	ReminderInterval   *time.Duration `gorm:"type:bigint"` // 提醒间隔,空表示不提醒
	CreatedAt          time.Time      `gorm:"not null;index"`
	UpdatedAt          time.Time      `gorm:"not null"`
	CompletedAt        *time.Time     `gorm:""`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
// 三个目标字段有且仅有一个,且必须与分配类型一致
func (tm *TaskModel) Validate() error {
	if tm.ID == "" {
		return errors.New("task ID is required")
	}
	if tm.Title == "" {
		return errors.New("task title is required")
	}
	if tm.Status == "" {
		return errors.New("task status is required")
	}
	targets := 0
	if tm.AssigneeID != nil {
		targets++
	}
	if tm.TargetDepartmentID != nil {
		targets++
	}
	if tm.TargetSubDeptID != nil {
		targets++
	}
	if targets != 1 {
		return errors.New("exactly one assignment target is required")
	}
	switch tm.AssignmentType {
	case AssignmentIndividual:
		if tm.AssigneeID == nil {
			return errors.New("individual task requires an assignee")
		}
	case AssignmentSubDepartment:
		if tm.TargetSubDeptID == nil {
			return errors.New("sub-department task requires a target sub-department")
		}
	case AssignmentDepartment:
		if tm.TargetDepartmentID == nil {
			return errors.New("department task requires a target department")
		}
	default:
		return errors.New("invalid assignment type")
	}
	return nil
}

// ApprovalLevel 审批层级
func (tm *TaskModel) ApprovalLevel() string {
	switch tm.AssignmentType {
	case AssignmentDepartment:
		return LevelDepartment
	case AssignmentSubDepartment:
		return LevelSubDepartment
	default:
		return LevelEmployee
	}
}

// IsResolved 任务是否已脱离可提醒状态
func (tm *TaskModel) IsResolved() bool {
	return tm.Status == StatusCompleted || tm.Status == StatusPendingReview
}
