package repository

import (
	"github.com/koalacodee/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// DelegationRepository 任务委派仓储接口
type DelegationRepository interface {
	Save(delegation *model.TaskDelegationModel) error
	FindByID(id string) (*model.TaskDelegationModel, error)
	FindByTask(taskID string) ([]*model.TaskDelegationModel, error)
	FindByDelegator(delegatorID string) ([]*model.TaskDelegationModel, error)
	DeleteByTask(taskID string) error
}

// delegationRepository 任务委派仓储实现
type delegationRepository struct {
	db *gorm.DB
}

// NewDelegationRepository 创建任务委派仓储
func NewDelegationRepository(db *gorm.DB) DelegationRepository {
	return &delegationRepository{db: db}
}

// Save 保存委派
func (r *delegationRepository) Save(delegation *model.TaskDelegationModel) error {
	return r.db.Save(delegation).Error
}

// FindByID 根据 ID 查找委派
func (r *delegationRepository) FindByID(id string) (*model.TaskDelegationModel, error) {
	var delegation model.TaskDelegationModel
	if err := r.db.Where("id = ?", id).First(&delegation).Error; err != nil {
		return nil, err
	}
	return &delegation, nil
}

// FindByTask 查找父任务下的全部委派
func (r *delegationRepository) FindByTask(taskID string) ([]*model.TaskDelegationModel, error) {
	var delegations []*model.TaskDelegationModel
	err := r.db.Where("task_id = ?", taskID).Order("created_at DESC").Find(&delegations).Error
	return delegations, err
}

// FindByDelegator 查找某主管发起的全部委派
func (r *delegationRepository) FindByDelegator(delegatorID string) ([]*model.TaskDelegationModel, error) {
	var delegations []*model.TaskDelegationModel
	err := r.db.Where("delegator_id = ?", delegatorID).Order("created_at DESC").Find(&delegations).Error
	return delegations, err
}

// DeleteByTask 删除父任务下的全部委派
func (r *delegationRepository) DeleteByTask(taskID string) error {
	return r.db.Where("task_id = ?", taskID).Delete(&model.TaskDelegationModel{}).Error
}
