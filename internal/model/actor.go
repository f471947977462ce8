package model

import (
	"errors"
	"time"
)

// ActorModel 操作者数据模型
// 每个用户身份恰好映射到 ADMIN/SUPERVISOR/EMPLOYEE 之一:
// 主管关联零或多个根部门,员工关联零或多个子部门并可指向其直属主管
type ActorModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"type:varchar(64);not null;uniqueIndex"` // 用户身份 ID
	Kind         string    `gorm:"type:varchar(16);not null;index"`       // ADMIN/SUPERVISOR/EMPLOYEE
	DisplayName  string    `gorm:"type:varchar(255)"`
	SupervisorID *string   `gorm:"type:varchar(64);index"` // 员工的直属主管(Actor ID)
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ActorModel) TableName() string {
	return "actors"
}

// Validate 验证操作者模型
func (am *ActorModel) Validate() error {
	if am.ID == "" {
		return errors.New("actor ID is required")
	}
	if am.UserID == "" {
		return errors.New("user ID is required")
	}
	switch am.Kind {
	case ActorAdmin, ActorSupervisor, ActorEmployee:
	default:
		return errors.New("invalid actor kind")
	}
	return nil
}

// ActorDepartmentModel 操作者-部门关联
// 主管行指向根部门,员工行指向子部门
type ActorDepartmentModel struct {
	ActorID      string    `gorm:"primaryKey;type:varchar(64)"`
	DepartmentID string    `gorm:"primaryKey;type:varchar(64);index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ActorDepartmentModel) TableName() string {
	return "actor_departments"
}
