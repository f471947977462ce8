package repository

import (
	"time"

	"github.com/koalacodee/taskflow-gin/internal/model"
	"gorm.io/gorm"
)

// DelegationSubmissionRepository 委派提交仓储接口
type DelegationSubmissionRepository interface {
	Save(sub *model.DelegationSubmissionModel) error
	FindByID(id string) (*model.DelegationSubmissionModel, error)
	FindByDelegation(delegationID string) ([]*model.DelegationSubmissionModel, error)
	FindSubmitted(delegationID string) (*model.DelegationSubmissionModel, error)
	MarkReviewed(id, status, reviewerID, feedback string, reviewedAt time.Time) (bool, error)
	MarkForwarded(id string) (bool, error)
}

// delegationSubmissionRepository 委派提交仓储实现
type delegationSubmissionRepository struct {
	db *gorm.DB
}

// NewDelegationSubmissionRepository 创建委派提交仓储
func NewDelegationSubmissionRepository(db *gorm.DB) DelegationSubmissionRepository {
	return &delegationSubmissionRepository{db: db}
}

// Save 保存委派提交记录
func (r *delegationSubmissionRepository) Save(sub *model.DelegationSubmissionModel) error {
	return r.db.Save(sub).Error
}

// FindByID 根据 ID 查找委派提交记录
func (r *delegationSubmissionRepository) FindByID(id string) (*model.DelegationSubmissionModel, error) {
	var sub model.DelegationSubmissionModel
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByDelegation 查找委派的全部提交记录
func (r *delegationSubmissionRepository) FindByDelegation(delegationID string) ([]*model.DelegationSubmissionModel, error) {
	var subs []*model.DelegationSubmissionModel
	err := r.db.Where("delegation_id = ?", delegationID).Order("submitted_at DESC").Find(&subs).Error
	return subs, err
}

// FindSubmitted 查找委派当前处于 SUBMITTED 状态的提交记录
func (r *delegationSubmissionRepository) FindSubmitted(delegationID string) (*model.DelegationSubmissionModel, error) {
	var sub model.DelegationSubmissionModel
	err := r.db.
		Where("delegation_id = ? AND status = ?", delegationID, model.SubmissionSubmitted).
		Order("submitted_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// MarkReviewed 条件更新审核结果
// WHERE status = 'SUBMITTED' 保证并发审核只有一方生效,返回是否命中
func (r *delegationSubmissionRepository) MarkReviewed(id, status, reviewerID, feedback string, reviewedAt time.Time) (bool, error) {
	result := r.db.Model(&model.DelegationSubmissionModel{}).
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

// MarkForwarded 条件置位转呈标志
// WHERE forwarded = false 保证转呈只发生一次,返回是否命中
func (r *delegationSubmissionRepository) MarkForwarded(id string) (bool, error) {
	result := r.db.Model(&model.DelegationSubmissionModel{}).
		Where("id = ? AND forwarded = ?", id, false).
		Update("forwarded", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
