package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/koalacodee/taskflow-gin/internal/apperr"
	"github.com/koalacodee/taskflow-gin/internal/auth"
	"github.com/koalacodee/taskflow-gin/internal/metrics"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DelegationService 任务委派服务接口
type DelegationService interface {
	Delegate(ctx context.Context, callerUserID, taskID string, req *DelegateRequest) (*model.TaskDelegationModel, error)
	Get(ctx context.Context, callerUserID, id string) (*model.TaskDelegationModel, error)
	MarkSeen(ctx context.Context, callerUserID, id string) (*model.TaskDelegationModel, error)
	SubmitForReview(ctx context.Context, callerUserID, id string, req *SubmitRequest) (*model.TaskDelegationModel, error)
	Approve(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskDelegationModel, error)
	Reject(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskDelegationModel, error)
	Forward(ctx context.Context, callerUserID, id string) (*model.DelegationSubmissionModel, error)
	ListByTask(ctx context.Context, callerUserID, taskID string) ([]*model.TaskDelegationModel, error)
	ListSubmissions(ctx context.Context, callerUserID, id string) ([]*model.DelegationSubmissionModel, error)
}

// DelegateRequest 委派请求
// @Description 主管转派任务,assignee_id 与 target_sub_department_id 二选一
type DelegateRequest struct {
	AssigneeID            *string `json:"assignee_id,omitempty" example:"emp-002"`
	TargetSubDepartmentID *string `json:"target_sub_department_id,omitempty" example:"sub-002"`
}

// delegationService 任务委派服务实现
type delegationService struct {
	tasks          repository.TaskRepository
	delegations    repository.DelegationRepository
	delegationSubs repository.DelegationSubmissionRepository
	taskSubs       repository.SubmissionRepository
	actors         auth.ActorResolver
	authz          *auth.Authorizer
	reminders      ReminderQueue
	sink           EventSink
	logger         *logrus.Logger
}

// NewDelegationService 创建任务委派服务
func NewDelegationService(
	tasks repository.TaskRepository,
	delegations repository.DelegationRepository,
	delegationSubs repository.DelegationSubmissionRepository,
	taskSubs repository.SubmissionRepository,
	actors auth.ActorResolver,
	authz *auth.Authorizer,
	reminders ReminderQueue,
	sink EventSink,
	logger *logrus.Logger,
) DelegationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &delegationService{
		tasks:          tasks,
		delegations:    delegations,
		delegationSubs: delegationSubs,
		taskSubs:       taskSubs,
		actors:         actors,
		authz:          authz,
		reminders:      reminders,
		sink:           sink,
		logger:         logger,
	}
}

// emit 发出生命周期事件,出口故障只记日志
func (s *delegationService) emit(event *LifecycleEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(event); err != nil {
		s.logger.WithField("event_type", event.Type).WithError(err).Warn("failed to emit lifecycle event")
	}
}

// loadDelegation 加载委派,不存在时返回 NotFound
func (s *delegationService) loadDelegation(id string) (*model.TaskDelegationModel, error) {
	delegation, err := s.delegations.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("delegation")
		}
		return nil, err
	}
	return delegation, nil
}

// Delegate 主管将任务转派给员工或子部门
func (s *delegationService) Delegate(ctx context.Context, callerUserID, taskID string, req *DelegateRequest) (*model.TaskDelegationModel, error) {
	// 1. assignee 与 targetSubDepartment 必须二选一
	if req == nil || (req.AssigneeID == nil) == (req.TargetSubDepartmentID == nil) {
		return nil, apperr.Validation("assigneeId", "exactly one of assigneeId and targetSubDepartmentId is required")
	}

	// 2. 发起人必须是主管
	delegator, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if !delegator.IsSupervisor() {
		return nil, apperr.Forbidden("delegatorId", "only supervisors may delegate tasks")
	}

	// 3. 父任务必须存在,且主管对其有部门访问权
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task")
		}
		return nil, err
	}
	if err := s.authz.CanAccessTask(delegator, task); err != nil {
		return nil, err
	}

	now := time.Now()
	delegation := &model.TaskDelegationModel{
		ID:          uuid.New().String(),
		TaskID:      task.ID,
		DelegatorID: delegator.ID,
		Status:      model.StatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.AssigneeID != nil {
		// 4. 个人委派: 目标员工需有子部门关联,主管需直接管辖该员工或层级可达其子部门
		assignee, err := s.actors.ResolveByID(*req.AssigneeID)
		if err != nil {
			return nil, err
		}
		if len(assignee.DepartmentIDs) == 0 {
			return nil, apperr.Validation("assigneeId", "assignee must belong to at least one sub-department")
		}
		if !s.supervises(delegator, assignee) {
			ok, err := s.authz.ReachesAny(delegator, assignee.DepartmentIDs)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, apperr.Forbidden("assigneeId", "you do not supervise this employee or their sub-department")
			}
		}
		delegation.AssignmentType = model.AssignmentIndividual
		delegation.AssigneeID = &assignee.ID
	} else {
		// 5. 子部门委派: 主管需层级可达目标子部门
		ok, err := s.authz.Reaches(delegator, *req.TargetSubDepartmentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("targetSubDepartmentId", "you do not have access to this sub-department")
		}
		delegation.AssignmentType = model.AssignmentSubDepartment
		delegation.TargetSubDeptID = req.TargetSubDepartmentID
	}

	if err := delegation.Validate(); err != nil {
		return nil, apperr.Validation("delegation", err.Error())
	}
	if err := s.delegations.Save(delegation); err != nil {
		return nil, err
	}

	// 6. 父任务带提醒间隔时,为新委派注册周期提醒(先尽力取消旧注册)
	if task.ReminderInterval != nil {
		if err := s.reminders.Reschedule(model.EntityDelegation, delegation.ID, *task.ReminderInterval); err != nil {
			s.logger.WithField("delegation_id", delegation.ID).WithError(err).Warn("failed to schedule delegation reminder")
		}
	}

	metrics.RecordDelegationCreated()
	s.emit(&LifecycleEvent{
		Type:       model.EventDelegationCreated,
		EntityType: model.EntityDelegation,
		EntityID:   delegation.ID,
		ActorID:    delegator.ID,
		Data:       map[string]interface{}{"task_id": task.ID, "assignment_type": delegation.AssignmentType},
	})
	return delegation, nil
}

// supervises 主管是否直接管辖该员工
func (s *delegationService) supervises(supervisor, employee *auth.Actor) bool {
	return employee.SupervisorID != nil && *employee.SupervisorID == supervisor.ID
}

// Get 获取委派详情
func (s *delegationService) Get(ctx context.Context, callerUserID, id string) (*model.TaskDelegationModel, error) {
	delegation, err := s.loadDelegation(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessDelegation(actor, delegation); err != nil {
		return nil, err
	}
	return delegation, nil
}

// MarkSeen 标记委派已查看,幂等
func (s *delegationService) MarkSeen(ctx context.Context, callerUserID, id string) (*model.TaskDelegationModel, error) {
	delegation, err := s.loadDelegation(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessDelegation(actor, delegation); err != nil {
		return nil, err
	}

	if delegation.Status != model.StatusTodo {
		return delegation, nil
	}

	delegation.Status = model.StatusSeen
	delegation.UpdatedAt = time.Now()
	if err := s.delegations.Save(delegation); err != nil {
		return nil, err
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventDelegationSeen,
		EntityType: model.EntityDelegation,
		EntityID:   delegation.ID,
		ActorID:    actor.ID,
	})
	return delegation, nil
}

// SubmitForReview 提交委派等待审核
func (s *delegationService) SubmitForReview(ctx context.Context, callerUserID, id string, req *SubmitRequest) (*model.TaskDelegationModel, error) {
	delegation, err := s.loadDelegation(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessDelegation(actor, delegation); err != nil {
		return nil, err
	}

	if delegation.Status == model.StatusCompleted {
		return nil, apperr.InvalidState(delegation.Status, "cannot submit a completed delegation")
	}

	notes := ""
	if req != nil {
		notes = req.Notes
	}
	sub := &model.DelegationSubmissionModel{
		ID:            uuid.New().String(),
		DelegationID:  delegation.ID,
		PerformerKind: actor.Kind,
		PerformerID:   actor.ID,
		PerformerName: actor.DisplayName,
		Notes:         notes,
		Status:        model.SubmissionSubmitted,
		SubmittedAt:   time.Now(),
	}
	if err := s.delegationSubs.Save(sub); err != nil {
		return nil, err
	}

	delegation.Status = model.StatusPendingReview
	delegation.UpdatedAt = time.Now()
	if err := s.delegations.Save(delegation); err != nil {
		return nil, err
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventDelegationSubmitted,
		EntityType: model.EntityDelegation,
		EntityID:   delegation.ID,
		ActorID:    actor.ID,
		Data:       map[string]interface{}{"submission_id": sub.ID},
	})
	return delegation, nil
}

// Approve 审批通过委派
func (s *delegationService) Approve(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskDelegationModel, error) {
	return s.review(ctx, callerUserID, id, req, model.SubmissionApproved)
}

// Reject 驳回委派,回到 TODO 可重新提交
func (s *delegationService) Reject(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskDelegationModel, error) {
	return s.review(ctx, callerUserID, id, req, model.SubmissionRejected)
}

// review 审核共用路径,审核人限定为委派主管本人或管理员
func (s *delegationService) review(ctx context.Context, callerUserID, id string, req *ReviewRequest, verdict string) (*model.TaskDelegationModel, error) {
	delegation, err := s.loadDelegation(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanReviewDelegation(actor, delegation); err != nil {
		return nil, err
	}

	sub, err := s.delegationSubs.FindSubmitted(delegation.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidState(delegation.Status, "no submission awaiting review")
		}
		return nil, err
	}

	feedback := ""
	if req != nil {
		feedback = req.Feedback
	}
	now := time.Now()
	ok, err := s.delegationSubs.MarkReviewed(sub.ID, verdict, actor.ID, feedback, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState(sub.Status, "submission has already been reviewed")
	}

	if verdict == model.SubmissionApproved {
		delegation.Status = model.StatusCompleted
		delegation.CompletedAt = &now
	} else {
		delegation.Status = model.StatusTodo
		delegation.CompletedAt = nil
	}
	delegation.UpdatedAt = now
	if err := s.delegations.Save(delegation); err != nil {
		return nil, err
	}

	eventType := model.EventDelegationApproved
	action := "approve"
	if verdict == model.SubmissionRejected {
		eventType = model.EventDelegationRejected
		action = "reject"
	}
	metrics.RecordReview(model.EntityDelegation, action)
	s.emit(&LifecycleEvent{
		Type:       eventType,
		EntityType: model.EntityDelegation,
		EntityID:   delegation.ID,
		ActorID:    actor.ID,
		Data:       map[string]interface{}{"submission_id": sub.ID, "feedback": feedback},
	})
	return delegation, nil
}

// Forward 将已批准的委派提交一次性转呈到父任务的审核链
// forwarded 标志用条件更新置位,重复转呈报 ValidationError,不重复产生副作用
func (s *delegationService) Forward(ctx context.Context, callerUserID, id string) (*model.DelegationSubmissionModel, error) {
	// 1. 加载委派,转呈权限与审核一致: 委派主管本人或管理员
	delegation, err := s.loadDelegation(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanReviewDelegation(actor, delegation); err != nil {
		return nil, err
	}

	// 2. 只有已批准的提交可以转呈
	subs, err := s.delegationSubs.FindByDelegation(delegation.ID)
	if err != nil {
		return nil, err
	}
	var approved *model.DelegationSubmissionModel
	for _, sub := range subs {
		if sub.Status == model.SubmissionApproved {
			approved = sub
			break
		}
	}
	if approved == nil {
		return nil, apperr.InvalidState(delegation.Status, "no approved submission to forward")
	}
	if approved.Forwarded {
		return nil, apperr.Validation("forwarded", "submission has already been forwarded")
	}

	// 3. 父任务必须仍在审核链上游
	task, err := s.tasks.FindByID(delegation.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task")
		}
		return nil, err
	}
	if task.Status == model.StatusCompleted {
		return nil, apperr.InvalidState(task.Status, "parent task is already completed")
	}

	// 4. 条件置位,并发转呈只有一方生效
	ok, err := s.delegationSubs.MarkForwarded(approved.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("forwarded", "submission has already been forwarded")
	}
	approved.Forwarded = true

	// 5. 副作用: 以委派主管身份在父任务上生成提交并置为待审核
	if task.Status != model.StatusPendingReview {
		parentSub := &model.TaskSubmissionModel{
			ID:            uuid.New().String(),
			TaskID:        task.ID,
			PerformerKind: actor.Kind,
			PerformerID:   actor.ID,
			PerformerName: actor.DisplayName,
			Notes:         approved.Notes,
			Status:        model.SubmissionSubmitted,
			SubmittedAt:   time.Now(),
		}
		if err := s.taskSubs.Save(parentSub); err != nil {
			return nil, err
		}
		task.Status = model.StatusPendingReview
		task.UpdatedAt = time.Now()
		if err := s.tasks.Save(task); err != nil {
			return nil, err
		}
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventDelegationForwarded,
		EntityType: model.EntityDelegation,
		EntityID:   delegation.ID,
		ActorID:    actor.ID,
		Data:       map[string]interface{}{"submission_id": approved.ID, "task_id": task.ID},
	})
	return approved, nil
}

// ListByTask 列出父任务下的委派
func (s *delegationService) ListByTask(ctx context.Context, callerUserID, taskID string) ([]*model.TaskDelegationModel, error) {
	task, err := s.tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task")
		}
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}
	return s.delegations.FindByTask(task.ID)
}

// ListSubmissions 列出委派的提交记录
func (s *delegationService) ListSubmissions(ctx context.Context, callerUserID, id string) ([]*model.DelegationSubmissionModel, error) {
	delegation, err := s.loadDelegation(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessDelegation(actor, delegation); err != nil {
		return nil, err
	}
	return s.delegationSubs.FindByDelegation(delegation.ID)
}
