package repository

import (
	"time"

	"github.com/koalacodee/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// ActorRepository 操作者仓储接口
type ActorRepository interface {
	Save(actor *model.ActorModel) error
	FindByID(id string) (*model.ActorModel, error)
	FindByUserID(userID string) (*model.ActorModel, error)
	DepartmentIDs(actorID string) ([]string, error)
	AddDepartment(actorID, departmentID string) error
	RemoveDepartment(actorID, departmentID string) error
}

// actorRepository 操作者仓储实现
type actorRepository struct {
	db *gorm.DB
}

// NewActorRepository 创建操作者仓储
func NewActorRepository(db *gorm.DB) ActorRepository {
	return &actorRepository{db: db}
}

// Save 保存操作者
func (r *actorRepository) Save(actor *model.ActorModel) error {
	return r.db.Save(actor).Error
}

// FindByID 根据 Actor ID 查找操作者
func (r *actorRepository) FindByID(id string) (*model.ActorModel, error) {
	var actor model.ActorModel
	if err := r.db.Where("id = ?", id).First(&actor).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// FindByUserID 根据用户身份 ID 查找操作者
func (r *actorRepository) FindByUserID(userID string) (*model.ActorModel, error) {
	var actor model.ActorModel
	if err := r.db.Where("user_id = ?", userID).First(&actor).Error; err != nil {
		return nil, err
	}
	return &actor, nil
}

// DepartmentIDs 查找操作者关联的部门 ID 集合
func (r *actorRepository) DepartmentIDs(actorID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.ActorDepartmentModel{}).
		Where("actor_id = ?", actorID).
		Pluck("department_id", &ids).Error
	return ids, err
}

// AddDepartment 建立操作者与部门的关联
func (r *actorRepository) AddDepartment(actorID, departmentID string) error {
	link := &model.ActorDepartmentModel{
		ActorID:      actorID,
		DepartmentID: departmentID,
		CreatedAt:    time.Now(),
	}
	return r.db.Save(link).Error
}

// RemoveDepartment 解除操作者与部门的关联
func (r *actorRepository) RemoveDepartment(actorID, departmentID string) error {
	return r.db.
		Where("actor_id = ? AND department_id = ?", actorID, departmentID).
		Delete(&model.ActorDepartmentModel{}).Error
}
