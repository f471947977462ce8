package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/apperr"
	"github.com/koalacodee/taskflow-gin/internal/auth"
	"github.com/koalacodee/taskflow-gin/internal/hierarchy"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/koalacodee/taskflow-gin/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeReminderQueue 记录型提醒队列,只做簿记不跑定时器
type fakeReminderQueue struct {
	mu          sync.Mutex
	scheduled   map[string]time.Duration
	cancelled   []string
	rescheduled map[string]time.Duration
}

func newFakeReminderQueue() *fakeReminderQueue {
	return &fakeReminderQueue{
		scheduled:   make(map[string]time.Duration),
		rescheduled: make(map[string]time.Duration),
	}
}

func (q *fakeReminderQueue) Schedule(entityType, entityID string, interval time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scheduled[entityType+":"+entityID] = interval
	return nil
}

func (q *fakeReminderQueue) Cancel(entityType, entityID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, entityType+":"+entityID)
}

func (q *fakeReminderQueue) Reschedule(entityType, entityID string, interval time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rescheduled[entityType+":"+entityID] = interval
	return nil
}

// recordingSink 记录型事件出口
type recordingSink struct {
	mu     sync.Mutex
	events []*service.LifecycleEvent
}

func (s *recordingSink) Emit(event *service.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// taskEnv 任务服务测试环境
// 组织结构: dept-001(sub-001); admin + sup-001(dept-001) + emp-001(sub-001)
type taskEnv struct {
	db        *gorm.DB
	svc       service.TaskService
	reminders *fakeReminderQueue
	sink      *recordingSink
	tasks     repository.TaskRepository
	subs      repository.SubmissionRepository
}

func setupTaskEnv(t *testing.T) *taskEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.DepartmentModel{},
		&model.ActorModel{},
		&model.ActorDepartmentModel{},
		&model.TaskModel{},
		&model.TaskSubmissionModel{},
		&model.TaskDelegationModel{},
		&model.DelegationSubmissionModel{},
		&model.EventModel{},
	))

	depts := repository.NewDepartmentRepository(db)
	actors := repository.NewActorRepository(db)
	now := time.Now()

	root := "dept-001"
	require.NoError(t, depts.Save(&model.DepartmentModel{ID: "dept-001", Name: "研发部", CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, depts.Save(&model.DepartmentModel{ID: "sub-001", Name: "后端组", ParentID: &root, CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, actors.Save(&model.ActorModel{ID: "admin-1", UserID: "u-admin", Kind: model.ActorAdmin, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, actors.Save(&model.ActorModel{ID: "sup-001", UserID: "u-sup", Kind: model.ActorSupervisor, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, actors.AddDepartment("sup-001", "dept-001"))
	sup := "sup-001"
	require.NoError(t, actors.Save(&model.ActorModel{ID: "emp-001", UserID: "u-emp", Kind: model.ActorEmployee, SupervisorID: &sup, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, actors.AddDepartment("emp-001", "sub-001"))

	resolver := auth.NewActorResolver(actors)
	authz := auth.NewAuthorizer(resolver, hierarchy.New(depts))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	env := &taskEnv{
		db:        db,
		reminders: newFakeReminderQueue(),
		sink:      &recordingSink{},
		tasks:     repository.NewTaskRepository(db),
		subs:      repository.NewSubmissionRepository(db),
	}
	env.svc = service.NewTaskService(
		db,
		env.tasks,
		env.subs,
		repository.NewDelegationRepository(db),
		depts,
		resolver,
		authz,
		env.reminders,
		env.sink,
		logger,
	)
	return env
}

func (e *taskEnv) createIndividualTask(t *testing.T, assigneeID string) *model.TaskModel {
	task, err := e.svc.Create(context.Background(), "u-sup", &service.CreateTaskRequest{
		Title:          "整理季度报表",
		AssignmentType: model.AssignmentIndividual,
		AssigneeID:     &assigneeID,
	})
	require.NoError(t, err)
	return task
}

// TestTaskCreateValidation 创建任务的校验规则
func TestTaskCreateValidation(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	emp := "emp-001"
	subDept := "sub-001"

	// 员工不能创建任务
	_, err := env.svc.Create(ctx, "u-emp", &service.CreateTaskRequest{
		Title: "x", AssignmentType: model.AssignmentIndividual, AssigneeID: &emp,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// 目标字段必须恰好一个
	_, err = env.svc.Create(ctx, "u-sup", &service.CreateTaskRequest{
		Title: "x", AssignmentType: model.AssignmentIndividual,
		AssigneeID: &emp, TargetSubDepartmentID: &subDept,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// 目标与分配类型不符
	_, err = env.svc.Create(ctx, "u-sup", &service.CreateTaskRequest{
		Title: "x", AssignmentType: model.AssignmentDepartment, AssigneeID: &emp,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// 优先级枚举
	_, err = env.svc.Create(ctx, "u-sup", &service.CreateTaskRequest{
		Title: "x", AssignmentType: model.AssignmentIndividual,
		AssigneeID: &emp, Priority: "URGENT",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// 提醒间隔必须为正
	bad := int64(0)
	_, err = env.svc.Create(ctx, "u-sup", &service.CreateTaskRequest{
		Title: "x", AssignmentType: model.AssignmentIndividual,
		AssigneeID: &emp, ReminderIntervalSec: &bad,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// 合法创建: 默认 MEDIUM,初始 TODO
	task := env.createIndividualTask(t, "emp-001")
	assert.Equal(t, model.StatusTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, "sup-001", task.AssignerID)
}

// TestTaskCreateWithReminder 创建任务时注册提醒
func TestTaskCreateWithReminder(t *testing.T) {
	env := setupTaskEnv(t)
	emp := "emp-001"
	interval := int64(3600)
	task, err := env.svc.Create(context.Background(), "u-sup", &service.CreateTaskRequest{
		Title: "周报", AssignmentType: model.AssignmentIndividual,
		AssigneeID: &emp, ReminderIntervalSec: &interval,
	})
	require.NoError(t, err)
	require.NotNil(t, task.ReminderInterval)
	assert.Equal(t, time.Hour, *task.ReminderInterval)
	assert.Equal(t, time.Hour, env.reminders.scheduled[model.EntityTask+":"+task.ID])
}

// TestTaskMarkSeenIdempotent 已查看标记幂等
func TestTaskMarkSeenIdempotent(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	seen, err := env.svc.MarkSeen(ctx, "u-emp", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeen, seen.Status)

	// 重复标记不报错也不回退
	again, err := env.svc.MarkSeen(ctx, "u-emp", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeen, again.Status)

	// 越过 SEEN 的状态不被拉回
	_, err = env.svc.SubmitForReview(ctx, "u-emp", task.ID, &service.SubmitRequest{Notes: "done"})
	require.NoError(t, err)
	after, err := env.svc.MarkSeen(ctx, "u-emp", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingReview, after.Status)
}

// TestTaskRejectThenResubmitThenApprove 驳回后重新提交再通过的完整回路
func TestTaskRejectThenResubmitThenApprove(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	_, err := env.svc.MarkSeen(ctx, "u-emp", task.ID)
	require.NoError(t, err)
	_, err = env.svc.SubmitForReview(ctx, "u-emp", task.ID, &service.SubmitRequest{Notes: "第一版"})
	require.NoError(t, err)

	// 驳回: 任务回到 TODO,查看标记丢失,完成时间为空
	rejected, err := env.svc.Reject(ctx, "u-sup", task.ID, &service.ReviewRequest{Feedback: "数据不完整"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusTodo, rejected.Status)
	assert.Nil(t, rejected.CompletedAt)

	// 重新提交再通过
	_, err = env.svc.SubmitForReview(ctx, "u-emp", task.ID, &service.SubmitRequest{Notes: "第二版"})
	require.NoError(t, err)
	approved, err := env.svc.Approve(ctx, "u-sup", task.ID, &service.ReviewRequest{Feedback: "通过"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, approved.Status)
	require.NotNil(t, approved.CompletedAt)

	// 两条提交记录各自保留自己的裁决
	subs, err := env.svc.ListSubmissions(ctx, "u-sup", task.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Contains(t, env.sink.types(), model.EventTaskRejected)
	assert.Contains(t, env.sink.types(), model.EventTaskApproved)
}

// TestTaskReviewWithoutSubmission 没有待审核提交时审核报状态冲突
func TestTaskReviewWithoutSubmission(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	_, err := env.svc.Approve(ctx, "u-sup", task.ID, nil)
	require.Error(t, err)
	e, ok := apperr.AsError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidState, e.Kind)
	assert.Equal(t, "no submission awaiting review", e.Message)
}

// TestTaskReviewSingleShot 同一条提交只能被审核一次
func TestTaskReviewSingleShot(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	_, err := env.svc.SubmitForReview(ctx, "u-emp", task.ID, nil)
	require.NoError(t, err)
	_, err = env.svc.Approve(ctx, "u-sup", task.ID, nil)
	require.NoError(t, err)

	// 第二次审核没有待审核提交
	_, err = env.svc.Reject(ctx, "u-sup", task.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

	// 首次裁决不被覆盖
	subs, err := env.svc.ListSubmissions(ctx, "u-sup", task.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, model.SubmissionApproved, subs[0].Status)
}

// TestTaskSubmitCompleted 已完成任务不可再提交
func TestTaskSubmitCompleted(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	_, err := env.svc.SubmitForReview(ctx, "u-emp", task.ID, nil)
	require.NoError(t, err)
	_, err = env.svc.Approve(ctx, "u-sup", task.ID, nil)
	require.NoError(t, err)

	_, err = env.svc.SubmitForReview(ctx, "u-emp", task.ID, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

// TestTaskReviewAuthorization 部门任务仅管理员可审
func TestTaskReviewAuthorization(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	dept := "dept-001"
	task, err := env.svc.Create(ctx, "u-admin", &service.CreateTaskRequest{
		Title: "部门盘点", AssignmentType: model.AssignmentDepartment, TargetDepartmentID: &dept,
	})
	require.NoError(t, err)

	_, err = env.svc.SubmitForReview(ctx, "u-sup", task.ID, nil)
	require.NoError(t, err)

	_, err = env.svc.Approve(ctx, "u-sup", task.ID, nil)
	require.Error(t, err)
	e, ok := apperr.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Department-level tasks can only be approved by administrators", e.Message)

	_, err = env.svc.Approve(ctx, "u-admin", task.ID, nil)
	assert.NoError(t, err)
}

// TestTaskRestart 管理性重置拉回 TODO 且不触碰提交记录
func TestTaskRestart(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	_, err := env.svc.SubmitForReview(ctx, "u-emp", task.ID, nil)
	require.NoError(t, err)
	_, err = env.svc.Approve(ctx, "u-sup", task.ID, nil)
	require.NoError(t, err)

	restarted, err := env.svc.Restart(ctx, "u-sup", task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusTodo, restarted.Status)
	assert.Nil(t, restarted.CompletedAt)

	subs, err := env.svc.ListSubmissions(ctx, "u-sup", task.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

// TestTaskDelete 显式删除仅管理员,级联清理并取消提醒
func TestTaskDelete(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")
	_, err := env.svc.SubmitForReview(ctx, "u-emp", task.ID, nil)
	require.NoError(t, err)

	err = env.svc.Delete(ctx, "u-sup", task.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	require.NoError(t, env.svc.Delete(ctx, "u-admin", task.ID))

	_, err = env.tasks.FindByID(task.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	subs, err := env.subs.FindByTask(task.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Contains(t, env.reminders.cancelled, model.EntityTask+":"+task.ID)

	// 删除后再操作报 NotFound
	_, err = env.svc.Get(ctx, "u-admin", task.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// TestTaskUpdateReminder 变更与取消提醒间隔
func TestTaskUpdateReminder(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	task := env.createIndividualTask(t, "emp-001")

	// 设置提醒
	interval := int64(7200)
	updated, err := env.svc.UpdateReminder(ctx, "u-sup", task.ID, &service.UpdateReminderRequest{ReminderIntervalSec: &interval})
	require.NoError(t, err)
	require.NotNil(t, updated.ReminderInterval)
	assert.Equal(t, 2*time.Hour, env.reminders.rescheduled[model.EntityTask+":"+task.ID])

	// 非正间隔被拒
	bad := int64(-1)
	_, err = env.svc.UpdateReminder(ctx, "u-sup", task.ID, &service.UpdateReminderRequest{ReminderIntervalSec: &bad})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// 空间隔取消提醒
	cleared, err := env.svc.UpdateReminder(ctx, "u-sup", task.ID, &service.UpdateReminderRequest{})
	require.NoError(t, err)
	assert.Nil(t, cleared.ReminderInterval)
	assert.Contains(t, env.reminders.cancelled, model.EntityTask+":"+task.ID)
}

// TestTaskListForCaller 按角色列出可见任务
func TestTaskListForCaller(t *testing.T) {
	env := setupTaskEnv(t)
	ctx := context.Background()
	sub := "sub-001"
	dept := "dept-001"

	individual := env.createIndividualTask(t, "emp-001")
	_, err := env.svc.Create(ctx, "u-sup", &service.CreateTaskRequest{
		Title: "组内任务", AssignmentType: model.AssignmentSubDepartment, TargetSubDepartmentID: &sub,
	})
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, "u-admin", &service.CreateTaskRequest{
		Title: "部门任务", AssignmentType: model.AssignmentDepartment, TargetDepartmentID: &dept,
	})
	require.NoError(t, err)

	// 管理员看到全部
	all, err := env.svc.ListForCaller(ctx, "u-admin")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// 主管看到部门及下属子部门的任务加上自己分配的
	supTasks, err := env.svc.ListForCaller(ctx, "u-sup")
	require.NoError(t, err)
	assert.Len(t, supTasks, 3)

	// 员工看到直接指派与所属子部门的任务
	empTasks, err := env.svc.ListForCaller(ctx, "u-emp")
	require.NoError(t, err)
	require.Len(t, empTasks, 2)
	ids := map[string]bool{}
	for _, tk := range empTasks {
		ids[tk.ID] = true
	}
	assert.True(t, ids[individual.ID])
}
