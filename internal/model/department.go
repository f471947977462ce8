package model

import (
	"errors"
	"time"
)

// DepartmentModel 部门数据模型
// 两级树: 根部门 ParentID 为空,子部门 ParentID 指向根部门,不存在孙级
type DepartmentModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(255);not null"`
	ParentID  *string   `gorm:"type:varchar(64);index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (DepartmentModel) TableName() string {
	return "departments"
}

// Validate 验证部门模型
func (dm *DepartmentModel) Validate() error {
	if dm.ID == "" {
		return errors.New("department ID is required")
	}
	if dm.Name == "" {
		return errors.New("department name is required")
	}
	return nil
}

// IsRoot 是否为根部门
func (dm *DepartmentModel) IsRoot() bool {
	return dm.ParentID == nil
}
