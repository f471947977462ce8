package auth_test

import (
	"testing"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/apperr"
	"github.com/koalacodee/taskflow-gin/internal/auth"
	"github.com/koalacodee/taskflow-gin/internal/hierarchy"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// authFixture 授权测试夹具
// 组织结构: dept-eng(sub-a, sub-b), dept-ops(sub-c)
// 人员: admin; sup-eng 管辖 dept-eng; sup-ops 管辖 dept-ops;
// emp-a 属于 sub-a 且直属 sup-eng; emp-float 无子部门关联,直属 sup-eng
type authFixture struct {
	resolver auth.ActorResolver
	authz    *auth.Authorizer
}

func setupAuthFixture(t *testing.T) *authFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.DepartmentModel{},
		&model.ActorModel{},
		&model.ActorDepartmentModel{},
	))

	depts := repository.NewDepartmentRepository(db)
	actors := repository.NewActorRepository(db)
	now := time.Now()

	saveDept := func(id, name string, parent *string) {
		require.NoError(t, depts.Save(&model.DepartmentModel{
			ID: id, Name: name, ParentID: parent, CreatedAt: now, UpdatedAt: now,
		}))
	}
	eng := "dept-eng"
	ops := "dept-ops"
	saveDept("dept-eng", "研发部", nil)
	saveDept("dept-ops", "运维部", nil)
	saveDept("sub-a", "后端组", &eng)
	saveDept("sub-b", "前端组", &eng)
	saveDept("sub-c", "值班组", &ops)

	saveActor := func(id, userID, kind string, supervisorID *string, deptIDs ...string) {
		require.NoError(t, actors.Save(&model.ActorModel{
			ID: id, UserID: userID, Kind: kind, SupervisorID: supervisorID,
			CreatedAt: now, UpdatedAt: now,
		}))
		for _, deptID := range deptIDs {
			require.NoError(t, actors.AddDepartment(id, deptID))
		}
	}
	supEng := "sup-eng"
	saveActor("admin-1", "u-admin", model.ActorAdmin, nil)
	saveActor("sup-eng", "u-sup-eng", model.ActorSupervisor, nil, "dept-eng")
	saveActor("sup-ops", "u-sup-ops", model.ActorSupervisor, nil, "dept-ops")
	saveActor("emp-a", "u-emp-a", model.ActorEmployee, &supEng, "sub-a")
	saveActor("emp-float", "u-emp-float", model.ActorEmployee, &supEng)

	resolver := auth.NewActorResolver(actors)
	return &authFixture{
		resolver: resolver,
		authz:    auth.NewAuthorizer(resolver, hierarchy.New(depts)),
	}
}

func (f *authFixture) actor(t *testing.T, userID string) *auth.Actor {
	actor, err := f.resolver.Resolve(userID)
	require.NoError(t, err)
	return actor
}

func subDeptTask(subDeptID string) *model.TaskModel {
	return &model.TaskModel{
		ID:              "task-001",
		Title:           "任务",
		AssignmentType:  model.AssignmentSubDepartment,
		Status:          model.StatusPendingReview,
		TargetSubDeptID: &subDeptID,
		AssignerID:      "admin-1",
	}
}

func deptTask(deptID string) *model.TaskModel {
	return &model.TaskModel{
		ID:                 "task-002",
		Title:              "任务",
		AssignmentType:     model.AssignmentDepartment,
		Status:             model.StatusPendingReview,
		TargetDepartmentID: &deptID,
		AssignerID:         "admin-1",
	}
}

func individualTask(assigneeID string) *model.TaskModel {
	return &model.TaskModel{
		ID:             "task-003",
		Title:          "任务",
		AssignmentType: model.AssignmentIndividual,
		Status:         model.StatusPendingReview,
		AssigneeID:     &assigneeID,
		AssignerID:     "sup-eng",
	}
}

// TestCanReviewTask_SubDepartmentLevel 子部门任务由根部门主管隐式覆盖
func TestCanReviewTask_SubDepartmentLevel(t *testing.T) {
	f := setupAuthFixture(t)
	task := subDeptTask("sub-a")

	// 根部门主管可达其下属子部门
	assert.NoError(t, f.authz.CanReviewTask(f.actor(t, "u-sup-eng"), task))

	// 其他根部门的主管不可达
	err := f.authz.CanReviewTask(f.actor(t, "u-sup-ops"), task)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// 员工不可审核
	err = f.authz.CanReviewTask(f.actor(t, "u-emp-a"), task)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// 管理员始终可审核
	assert.NoError(t, f.authz.CanReviewTask(f.actor(t, "u-admin"), task))
}

// TestCanReviewTask_DepartmentLevelAdminOnly 部门任务仅管理员可审
func TestCanReviewTask_DepartmentLevelAdminOnly(t *testing.T) {
	f := setupAuthFixture(t)
	task := deptTask("dept-eng")

	assert.NoError(t, f.authz.CanReviewTask(f.actor(t, "u-admin"), task))

	// 即使是目标部门的主管也会被拒绝
	err := f.authz.CanReviewTask(f.actor(t, "u-sup-eng"), task)
	require.Error(t, err)
	e, ok := apperr.AsError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindForbidden, e.Kind)
	assert.Equal(t, "approver", e.Field)
	assert.Equal(t, "Department-level tasks can only be approved by administrators", e.Message)
}

// TestCanReviewTask_EmployeeLevel 个人任务由可达被指派人子部门的主管审核
func TestCanReviewTask_EmployeeLevel(t *testing.T) {
	f := setupAuthFixture(t)
	task := individualTask("emp-a")

	// emp-a 属于 sub-a,sub-a 挂在 dept-eng 下
	assert.NoError(t, f.authz.CanReviewTask(f.actor(t, "u-sup-eng"), task))

	err := f.authz.CanReviewTask(f.actor(t, "u-sup-ops"), task)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// TestCanReviewTask_EmployeeLevelSupervisorFallback 无子部门关联的员工兜底到直属主管
func TestCanReviewTask_EmployeeLevelSupervisorFallback(t *testing.T) {
	f := setupAuthFixture(t)
	task := individualTask("emp-float")

	// emp-float 没有子部门关联,比对其直属主管 sup-eng 的部门集合
	assert.NoError(t, f.authz.CanReviewTask(f.actor(t, "u-sup-eng"), task))

	err := f.authz.CanReviewTask(f.actor(t, "u-sup-ops"), task)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// TestCanAccessTask_Employee 员工的一般访问规则
func TestCanAccessTask_Employee(t *testing.T) {
	f := setupAuthFixture(t)
	emp := f.actor(t, "u-emp-a")

	// 直接指派给自己
	assert.NoError(t, f.authz.CanAccessTask(emp, individualTask("emp-a")))

	// 指派给其他人
	err := f.authz.CanAccessTask(emp, individualTask("emp-float"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// 自己所属的子部门
	assert.NoError(t, f.authz.CanAccessTask(emp, subDeptTask("sub-a")))

	// 其他子部门
	err = f.authz.CanAccessTask(emp, subDeptTask("sub-b"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// TestCanAccessTask_Supervisor 主管的一般访问规则
func TestCanAccessTask_Supervisor(t *testing.T) {
	f := setupAuthFixture(t)

	supEng := f.actor(t, "u-sup-eng")
	assert.NoError(t, f.authz.CanAccessTask(supEng, deptTask("dept-eng")))
	assert.NoError(t, f.authz.CanAccessTask(supEng, subDeptTask("sub-b")))
	// 直属员工随时可达
	assert.NoError(t, f.authz.CanAccessTask(supEng, individualTask("emp-float")))

	supOps := f.actor(t, "u-sup-ops")
	err := f.authz.CanAccessTask(supOps, deptTask("dept-eng"))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// TestCanReviewDelegation 委派审核仅限发起主管或管理员
func TestCanReviewDelegation(t *testing.T) {
	f := setupAuthFixture(t)
	assignee := "emp-a"
	delegation := &model.TaskDelegationModel{
		ID:             "dlg-001",
		TaskID:         "task-001",
		AssignmentType: model.AssignmentIndividual,
		AssigneeID:     &assignee,
		DelegatorID:    "sup-eng",
		Status:         model.StatusPendingReview,
	}

	assert.NoError(t, f.authz.CanReviewDelegation(f.actor(t, "u-admin"), delegation))
	assert.NoError(t, f.authz.CanReviewDelegation(f.actor(t, "u-sup-eng"), delegation))

	// 可达范围内的其他主管也不行
	err := f.authz.CanReviewDelegation(f.actor(t, "u-sup-ops"), delegation)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// 被委派员工本人不可审核
	err = f.authz.CanReviewDelegation(f.actor(t, "u-emp-a"), delegation)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// TestReaches 层级可达判断
func TestReaches(t *testing.T) {
	f := setupAuthFixture(t)
	sup := f.actor(t, "u-sup-eng")

	ok, err := f.authz.Reaches(sup, "sub-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.authz.Reaches(sup, "sub-c")
	require.NoError(t, err)
	assert.False(t, ok)

	// 不存在的子部门按不可达处理
	ok, err = f.authz.Reaches(sup, "sub-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
