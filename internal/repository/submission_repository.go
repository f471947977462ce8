package repository

import (
	"time"

	"github.com/koalacodee/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// SubmissionRepository 任务提交仓储接口
type SubmissionRepository interface {
	Save(sub *model.TaskSubmissionModel) error
	FindByID(id string) (*model.TaskSubmissionModel, error)
	FindByTask(taskID string) ([]*model.TaskSubmissionModel, error)
	FindSubmitted(taskID string) (*model.TaskSubmissionModel, error)
	MarkReviewed(id, status, reviewerID, feedback string, reviewedAt time.Time) (bool, error)
}

// submissionRepository 任务提交仓储实现
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建任务提交仓储
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Save 保存提交记录
func (r *submissionRepository) Save(sub *model.TaskSubmissionModel) error {
	return r.db.Save(sub).Error
}

// FindByID 根据 ID 查找提交记录
func (r *submissionRepository) FindByID(id string) (*model.TaskSubmissionModel, error) {
	var sub model.TaskSubmissionModel
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByTask 查找任务的全部提交记录
func (r *submissionRepository) FindByTask(taskID string) ([]*model.TaskSubmissionModel, error) {
	var subs []*model.TaskSubmissionModel
	err := r.db.Where("task_id = ?", taskID).Order("submitted_at DESC").Find(&subs).Error
	return subs, err
}

// FindSubmitted 查找任务当前处于 SUBMITTED 状态的提交记录
func (r *submissionRepository) FindSubmitted(taskID string) (*model.TaskSubmissionModel, error) {
	var sub model.TaskSubmissionModel
	err := r.db.
		Where("task_id = ? AND status = ?", taskID, model.SubmissionSubmitted).
		Order("submitted_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// MarkReviewed 条件更新审核结果
// WHERE status = 'SUBMITTED' 保证并发审核只有一方生效,返回是否命中
func (r *submissionRepository) MarkReviewed(id, status, reviewerID, feedback string, reviewedAt time.Time) (bool, error) {
	result := r.db.Model(&model.TaskSubmissionModel{}).
		Where("id = ? AND status = ?", id, model.SubmissionSubmitted).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"feedback":    feedback,
			"reviewed_at": reviewedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
