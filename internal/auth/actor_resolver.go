package auth

import (
	"errors"

	"github.com/koalacodee/taskflow-gin/internal/apperr"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"gorm.io/gorm"
)

// Actor 解析后的操作者
// kind 标签联合: 主管的 DepartmentIDs 为根部门集合,员工的为子部门集合
type Actor struct {
	ID            string
	UserID        string
	Kind          string
	DisplayName   string
	SupervisorID  *string
	DepartmentIDs []string
}

// IsAdmin 是否为管理员
func (a *Actor) IsAdmin() bool {
	return a.Kind == model.ActorAdmin
}

// IsSupervisor 是否为主管
func (a *Actor) IsSupervisor() bool {
	return a.Kind == model.ActorSupervisor
}

// IsEmployee 是否为员工
func (a *Actor) IsEmployee() bool {
	return a.Kind == model.ActorEmployee
}

// HasDepartment 部门集合是否包含给定部门
func (a *Actor) HasDepartment(departmentID string) bool {
	for _, id := range a.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}

// ActorResolver 操作者解析接口
// 将用户身份映射到唯一的 Admin/Supervisor/Employee 及其部门关联
type ActorResolver interface {
	Resolve(userID string) (*Actor, error)
	ResolveByID(actorID string) (*Actor, error)
	// SupervisorDepartments 员工直属主管的根部门集合,
	// 员工没有显式子部门关联时作为其可达范围的兜底
	SupervisorDepartments(actor *Actor) ([]string, error)
}

// actorResolver 操作者解析实现
type actorResolver struct {
	repo repository.ActorRepository
}

// NewActorResolver 创建操作者解析器
func NewActorResolver(repo repository.ActorRepository) ActorResolver {
	return &actorResolver{repo: repo}
}

// Resolve 根据用户身份 ID 解析操作者
func (r *actorResolver) Resolve(userID string) (*Actor, error) {
	am, err := r.repo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("actor")
		}
		return nil, err
	}
	return r.load(am)
}

// ResolveByID 根据 Actor ID 解析操作者
func (r *actorResolver) ResolveByID(actorID string) (*Actor, error) {
	am, err := r.repo.FindByID(actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("actor")
		}
		return nil, err
	}
	return r.load(am)
}

// load 组装 Actor 及其部门关联
func (r *actorResolver) load(am *model.ActorModel) (*Actor, error) {
	deptIDs, err := r.repo.DepartmentIDs(am.ID)
	if err != nil {
		return nil, err
	}
	return &Actor{
		ID:            am.ID,
		UserID:        am.UserID,
		Kind:          am.Kind,
		DisplayName:   am.DisplayName,
		SupervisorID:  am.SupervisorID,
		DepartmentIDs: deptIDs,
	}, nil
}

// SupervisorDepartments 员工直属主管的部门集合
func (r *actorResolver) SupervisorDepartments(actor *Actor) ([]string, error) {
	if actor.SupervisorID == nil {
		return nil, nil
	}
	return r.repo.DepartmentIDs(*actor.SupervisorID)
}
