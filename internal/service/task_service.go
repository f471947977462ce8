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

// TaskService 任务服务接口
type TaskService interface {
	Create(ctx context.Context, callerUserID string, req *CreateTaskRequest) (*model.TaskModel, error)
	Get(ctx context.Context, callerUserID, id string) (*model.TaskModel, error)
	MarkSeen(ctx context.Context, callerUserID, id string) (*model.TaskModel, error)
	SubmitForReview(ctx context.Context, callerUserID, id string, req *SubmitRequest) (*model.TaskModel, error)
	Approve(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskModel, error)
	Reject(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskModel, error)
	Restart(ctx context.Context, callerUserID, id string) (*model.TaskModel, error)
	Delete(ctx context.Context, callerUserID, id string) error
	UpdateReminder(ctx context.Context, callerUserID, id string, req *UpdateReminderRequest) (*model.TaskModel, error)
	ListForCaller(ctx context.Context, callerUserID string) ([]*model.TaskModel, error)
	ListSubmissions(ctx context.Context, callerUserID, id string) ([]*model.TaskSubmissionModel, error)
}

// CreateTaskRequest 创建任务请求
// @Description 创建任务的请求参数,三个目标字段有且仅有一个,且必须与分配类型一致
type CreateTaskRequest struct {
	Title                 string     `json:"title" example:"整理季度报表" binding:"required"` // 任务标题
	Description           string     `json:"description" example:"汇总各子部门数据"`             // 任务描述
	Priority              string     `json:"priority" example:"HIGH"`                      // LOW/MEDIUM/HIGH,默认 MEDIUM
	AssignmentType        string     `json:"assignment_type" example:"INDIVIDUAL" binding:"required"` // INDIVIDUAL/SUB_DEPARTMENT/DEPARTMENT
	AssigneeID            *string    `json:"assignee_id,omitempty" example:"emp-001"`              // 员工 ID(仅 INDIVIDUAL)
	TargetDepartmentID    *string    `json:"target_department_id,omitempty" example:"dept-001"`    // 部门 ID(仅 DEPARTMENT)
	TargetSubDepartmentID *string    `json:"target_sub_department_id,omitempty" example:"sub-001"` // 子部门 ID(仅 SUB_DEPARTMENT)
	ApproverID            *string    `json:"approver_id,omitempty" example:"sup-001"`              // 指定审批人(可选)
	DueDate               *time.Time `json:"due_date,omitempty"`                                   // 截止时间(可选)
	ReminderIntervalSec   *int64     `json:"reminder_interval_sec,omitempty" example:"3600"`       // 提醒间隔秒数(可选)
}

// SubmitRequest 提交审核请求
// @Description 执行人提交工作成果的请求参数
type SubmitRequest struct {
	Notes string `json:"notes" example:"已完成,见附件"` // 提交说明
}

// ReviewRequest 审核请求
// @Description 审批/驳回的请求参数
type ReviewRequest struct {
	Feedback string `json:"feedback" example:"数据不完整,请补充"` // 审核反馈
}

// UpdateReminderRequest 变更提醒间隔请求
// @Description 变更提醒间隔,空表示取消提醒
type UpdateReminderRequest struct {
	ReminderIntervalSec *int64 `json:"reminder_interval_sec" example:"7200"`
}

// taskService 任务服务实现
type taskService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	delegations repository.DelegationRepository
	depts       repository.DepartmentRepository
	actors      auth.ActorResolver
	authz       *auth.Authorizer
	reminders   ReminderQueue
	sink        EventSink
	logger      *logrus.Logger
	db          *gorm.DB
}

// NewTaskService 创建任务服务
func NewTaskService(
	db *gorm.DB,
	tasks repository.TaskRepository,
	submissions repository.SubmissionRepository,
	delegations repository.DelegationRepository,
	depts repository.DepartmentRepository,
	actors auth.ActorResolver,
	authz *auth.Authorizer,
	reminders ReminderQueue,
	sink EventSink,
	logger *logrus.Logger,
) TaskService {
	if logger == nil {
		logger = logrus.New()
	}
	return &taskService{
		db:          db,
		tasks:       tasks,
		submissions: submissions,
		delegations: delegations,
		depts:       depts,
		actors:      actors,
		authz:       authz,
		reminders:   reminders,
		sink:        sink,
		logger:      logger,
	}
}

// emit 发出生命周期事件
// 事件出口故障只记日志,绝不阻断工作流
func (s *taskService) emit(event *LifecycleEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(event); err != nil {
		s.logger.WithField("event_type", event.Type).WithError(err).Warn("failed to emit lifecycle event")
	}
}

// loadTask 加载任务,不存在时返回 NotFound
func (s *taskService) loadTask(id string) (*model.TaskModel, error) {
	task, err := s.tasks.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task")
		}
		return nil, err
	}
	return task, nil
}

// Create 创建任务
func (s *taskService) Create(ctx context.Context, callerUserID string, req *CreateTaskRequest) (*model.TaskModel, error) {
	// 1. 解析操作者,仅管理员和主管可以创建任务
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.IsSupervisor() {
		return nil, apperr.Forbidden("assignerId", "only administrators or supervisors may create tasks")
	}

	// 2. 校验分配类型与目标的一致性
	if err := validateAssignment(req); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	switch priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		return nil, apperr.Validation("priority", "priority must be LOW, MEDIUM or HIGH")
	}

	// 3. 构建并保存任务
	now := time.Now()
	task := &model.TaskModel{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Description:        req.Description,
		Priority:           priority,
		AssignmentType:     req.AssignmentType,
		Status:             model.StatusTodo,
		AssigneeID:         req.AssigneeID,
		TargetDepartmentID: req.TargetDepartmentID,
		TargetSubDeptID:    req.TargetSubDepartmentID,
		AssignerID:         actor.ID,
		ApproverID:         req.ApproverID,
		CreatedBy:          callerUserID,
		DueDate:            req.DueDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.ReminderIntervalSec != nil {
		if *req.ReminderIntervalSec <= 0 {
			return nil, apperr.Validation("reminderIntervalSec", "reminder interval must be positive")
		}
		interval := time.Duration(*req.ReminderIntervalSec) * time.Second
		task.ReminderInterval = &interval
	}
	if err := task.Validate(); err != nil {
		return nil, apperr.Validation("task", err.Error())
	}
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	// 4. 注册提醒
	if task.ReminderInterval != nil {
		if err := s.reminders.Schedule(model.EntityTask, task.ID, *task.ReminderInterval); err != nil {
			s.logger.WithField("task_id", task.ID).WithError(err).Warn("failed to schedule reminder")
		}
	}

	metrics.RecordTaskCreated()
	s.emit(&LifecycleEvent{
		Type:       model.EventTaskCreated,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		ActorID:    actor.ID,
		Data:       map[string]interface{}{"title": task.Title, "assignment_type": task.AssignmentType},
	})
	return task, nil
}

// validateAssignment 校验分配类型与目标字段的一致性
func validateAssignment(req *CreateTaskRequest) error {
	targets := 0
	if req.AssigneeID != nil {
		targets++
	}
	if req.TargetDepartmentID != nil {
		targets++
	}
	if req.TargetSubDepartmentID != nil {
		targets++
	}
	if targets != 1 {
		return apperr.Validation("assignmentType", "exactly one assignment target is required")
	}
	switch req.AssignmentType {
	case model.AssignmentIndividual:
		if req.AssigneeID == nil {
			return apperr.Validation("assigneeId", "individual tasks require an assignee")
		}
	case model.AssignmentSubDepartment:
		if req.TargetSubDepartmentID == nil {
			return apperr.Validation("targetSubDepartmentId", "sub-department tasks require a target sub-department")
		}
	case model.AssignmentDepartment:
		if req.TargetDepartmentID == nil {
			return apperr.Validation("targetDepartmentId", "department tasks require a target department")
		}
	default:
		return apperr.Validation("assignmentType", "assignment type must be INDIVIDUAL, SUB_DEPARTMENT or DEPARTMENT")
	}
	return nil
}

// Get 获取任务详情
func (s *taskService) Get(ctx context.Context, callerUserID, id string) (*model.TaskModel, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}
	return task, nil
}

// MarkSeen 标记任务已查看
// 幂等: 多个查看者并发触发时,已越过 SEEN 的任务不回退也不报错
func (s *taskService) MarkSeen(ctx context.Context, callerUserID, id string) (*model.TaskModel, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}

	if task.Status != model.StatusTodo {
		return task, nil
	}

	task.Status = model.StatusSeen
	task.UpdatedAt = time.Now()
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventTaskSeen,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		ActorID:    actor.ID,
	})
	return task, nil
}

// SubmitForReview 提交任务等待审核
func (s *taskService) SubmitForReview(ctx context.Context, callerUserID, id string, req *SubmitRequest) (*model.TaskModel, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}

	if task.Status == model.StatusCompleted {
		return nil, apperr.InvalidState(task.Status, "cannot submit a completed task")
	}

	// 创建 SUBMITTED 提交记录并将任务置为待审核
	notes := ""
	if req != nil {
		notes = req.Notes
	}
	sub := &model.TaskSubmissionModel{
		ID:            uuid.New().String(),
		TaskID:        task.ID,
		PerformerKind: actor.Kind,
		PerformerID:   actor.ID,
		PerformerName: actor.DisplayName,
		Notes:         notes,
		Status:        model.SubmissionSubmitted,
		SubmittedAt:   time.Now(),
	}
	if err := s.submissions.Save(sub); err != nil {
		return nil, err
	}

	task.Status = model.StatusPendingReview
	task.UpdatedAt = time.Now()
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventTaskSubmitted,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		ActorID:    actor.ID,
		Data:       map[string]interface{}{"submission_id": sub.ID},
	})
	return task, nil
}

// Approve 审批通过
// 提交记录的状态翻转使用条件更新,并发审核只有一方生效
func (s *taskService) Approve(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskModel, error) {
	return s.review(ctx, callerUserID, id, req, model.SubmissionApproved)
}

// Reject 审批驳回,任务回到 TODO 并清除完成时间,可重新提交
func (s *taskService) Reject(ctx context.Context, callerUserID, id string, req *ReviewRequest) (*model.TaskModel, error) {
	return s.review(ctx, callerUserID, id, req, model.SubmissionRejected)
}

// review 审核共用路径
func (s *taskService) review(ctx context.Context, callerUserID, id string, req *ReviewRequest, verdict string) (*model.TaskModel, error) {
	// 1. 加载任务并解析审核人
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}

	// 2. 审核权限按审批层级收紧
	if err := s.authz.CanReviewTask(actor, task); err != nil {
		return nil, err
	}

	// 3. 必须恰好存在一条待审核的提交
	sub, err := s.submissions.FindSubmitted(task.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidState(task.Status, "no submission awaiting review")
		}
		return nil, err
	}

	// 4. 条件更新: 单次审核,重复审核报 InvalidState
	feedback := ""
	if req != nil {
		feedback = req.Feedback
	}
	now := time.Now()
	ok, err := s.submissions.MarkReviewed(sub.ID, verdict, actor.ID, feedback, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState(sub.Status, "submission has already been reviewed")
	}

	// 5. 翻转父任务状态
	if verdict == model.SubmissionApproved {
		task.Status = model.StatusCompleted
		task.CompletedAt = &now
	} else {
		// 驳回后任务需重新查看,seen 标记随之丢失
		task.Status = model.StatusTodo
		task.CompletedAt = nil
	}
	task.UpdatedAt = now
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	eventType := model.EventTaskApproved
	action := "approve"
	if verdict == model.SubmissionRejected {
		eventType = model.EventTaskRejected
		action = "reject"
	}
	metrics.RecordReview(model.EntityTask, action)
	s.emit(&LifecycleEvent{
		Type:       eventType,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		ActorID:    actor.ID,
		Data:       map[string]interface{}{"submission_id": sub.ID, "feedback": feedback},
	})
	return task, nil
}

// Restart 管理性重置
// 将任务状态拉回 TODO 而不触碰提交记录,用于从不一致状态恢复;
// 除一般访问检查外不额外收紧权限
func (s *taskService) Restart(ctx context.Context, callerUserID, id string) (*model.TaskModel, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}

	task.Status = model.StatusTodo
	task.CompletedAt = nil
	task.UpdatedAt = time.Now()
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventTaskRestarted,
		EntityType: model.EntityTask,
		EntityID:   task.ID,
		ActorID:    actor.ID,
	})
	return task, nil
}

// Delete 显式删除任务
// 仅管理员;在事务中级联删除提交、委派及其提交,并取消相关提醒
func (s *taskService) Delete(ctx context.Context, callerUserID, id string) error {
	task, err := s.loadTask(id)
	if err != nil {
		return err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperr.Forbidden("actorId", "only administrators may delete tasks")
	}

	delegations, err := s.delegations.FindByTask(task.ID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskSubmissionModel{}).Error; err != nil {
			return err
		}
		for _, d := range delegations {
			if err := tx.Where("delegation_id = ?", d.ID).Delete(&model.DelegationSubmissionModel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("task_id = ?", id).Delete(&model.TaskDelegationModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entity_type = ? AND entity_id = ?", model.EntityTask, id).Delete(&model.EventModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.TaskModel{}).Error
	})
	if err != nil {
		return err
	}

	// 提醒注册是尽力取消,调度器触发时也会因 NotFound 自取消
	s.reminders.Cancel(model.EntityTask, id)
	for _, d := range delegations {
		s.reminders.Cancel(model.EntityDelegation, d.ID)
	}

	s.emit(&LifecycleEvent{
		Type:       model.EventTaskDeleted,
		EntityType: model.EntityTask,
		EntityID:   id,
		ActorID:    actor.ID,
	})
	return nil
}

// UpdateReminder 变更任务的提醒间隔,空间隔表示取消提醒
func (s *taskService) UpdateReminder(ctx context.Context, callerUserID, id string, req *UpdateReminderRequest) (*model.TaskModel, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}

	if req == nil || req.ReminderIntervalSec == nil {
		task.ReminderInterval = nil
		s.reminders.Cancel(model.EntityTask, task.ID)
	} else {
		if *req.ReminderIntervalSec <= 0 {
			return nil, apperr.Validation("reminderIntervalSec", "reminder interval must be positive")
		}
		interval := time.Duration(*req.ReminderIntervalSec) * time.Second
		task.ReminderInterval = &interval
		if err := s.reminders.Reschedule(model.EntityTask, task.ID, interval); err != nil {
			return nil, err
		}
	}

	task.UpdatedAt = time.Now()
	if err := s.tasks.Save(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListForCaller 列出操作者可见的任务
func (s *taskService) ListForCaller(ctx context.Context, callerUserID string) ([]*model.TaskModel, error) {
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		return s.tasks.FindByFilter(nil)
	}

	seen := make(map[string]bool)
	var out []*model.TaskModel
	add := func(tasks []*model.TaskModel) {
		for _, t := range tasks {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}

	if actor.IsSupervisor() {
		// 主管可见: 部门集合及其下属子部门的任务,加上自己分配的任务
		deptIDs := append([]string{}, actor.DepartmentIDs...)
		for _, rootID := range actor.DepartmentIDs {
			children, err := s.depts.FindChildren(rootID)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				deptIDs = append(deptIDs, c.ID)
			}
		}
		if len(deptIDs) > 0 {
			tasks, err := s.tasks.FindForDepartments(deptIDs)
			if err != nil {
				return nil, err
			}
			add(tasks)
		}
		assignerID := actor.ID
		own, err := s.tasks.FindByFilter(&repository.TaskFilter{AssignerID: &assignerID})
		if err != nil {
			return nil, err
		}
		add(own)
		return out, nil
	}

	// 员工可见: 直接指派的任务与所属子部门(或主管部门兜底)的任务
	mine, err := s.tasks.FindForAssignee(actor.ID)
	if err != nil {
		return nil, err
	}
	add(mine)

	deptIDs := actor.DepartmentIDs
	if len(deptIDs) == 0 {
		deptIDs, err = s.actors.SupervisorDepartments(actor)
		if err != nil {
			return nil, err
		}
	}
	if len(deptIDs) > 0 {
		tasks, err := s.tasks.FindForDepartments(deptIDs)
		if err != nil {
			return nil, err
		}
		add(tasks)
	}
	return out, nil
}

// ListSubmissions 列出任务的提交记录
func (s *taskService) ListSubmissions(ctx context.Context, callerUserID, id string) ([]*model.TaskSubmissionModel, error) {
	task, err := s.loadTask(id)
	if err != nil {
		return nil, err
	}
	actor, err := s.actors.Resolve(callerUserID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessTask(actor, task); err != nil {
		return nil, err
	}
	return s.submissions.FindByTask(task.ID)
}
