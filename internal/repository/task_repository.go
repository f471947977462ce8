package repository

import (
	"time"

	"github.com/koalacodee/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Save(task *model.TaskModel) error
	FindByID(id string) (*model.TaskModel, error)
	FindForDepartments(departmentIDs []string) ([]*model.TaskModel, error)
	FindForAssignee(assigneeID string) ([]*model.TaskModel, error)
	FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error)
	Delete(id string) error
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	Status         *string
	AssignmentType *string
	AssignerID     *string
	Priority       *string
	DueBefore      *time.Time
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Save 保存任务
func (r *taskRepository) Save(task *model.TaskModel) error {
	return r.db.Save(task).Error
}

// FindByID 根据 ID 查找任务
func (r *taskRepository) FindByID(id string) (*model.TaskModel, error) {
	var task model.TaskModel
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindForDepartments 查找目标落在给定部门/子部门集合内的任务
func (r *taskRepository) FindForDepartments(departmentIDs []string) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.
		Where("target_department_id IN ? OR target_sub_dept_id IN ?", departmentIDs, departmentIDs).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// FindForAssignee 查找直接指派给某员工的任务
func (r *taskRepository) FindForAssignee(assigneeID string) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.
		Where("assignee_id = ?", assigneeID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.db.Model(&model.TaskModel{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.AssignmentType != nil {
			query = query.Where("assignment_type = ?", *filter.AssignmentType)
		}
		if filter.AssignerID != nil {
			query = query.Where("assigner_id = ?", *filter.AssignerID)
		}
		if filter.Priority != nil {
			query = query.Where("priority = ?", *filter.Priority)
		}
		if filter.DueBefore != nil {
			query = query.Where("due_date <= ?", *filter.DueBefore)
		}
	}

	err := query.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// Delete 删除任务
func (r *taskRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.TaskModel{}).Error
}
