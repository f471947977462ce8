package auth

import (
	"github.com/koalacodee/taskflow-gin/internal/apperr"
	"github.com/koalacodee/taskflow-gin/internal/hierarchy"
	"github.com/koalacodee/taskflow-gin/internal/model"
)

// Authorizer 部门层级授权服务
// 一般访问规则与按审批层级收紧的审核规则分开,后者编码为决策表便于单测
type Authorizer struct {
	actors ActorResolver
	tree   hierarchy.Hierarchy
}

// NewAuthorizer 创建授权服务
func NewAuthorizer(actors ActorResolver, tree hierarchy.Hierarchy) *Authorizer {
	return &Authorizer{actors: actors, tree: tree}
}

// Reaches 主管部门集合是否层级可达给定子部门
// 直接包含该子部门,或包含其父部门(根部门主管隐式覆盖全部下属子部门)
func (z *Authorizer) Reaches(actor *Actor, subDeptID string) (bool, error) {
	if actor.HasDepartment(subDeptID) {
		return true, nil
	}
	parent, err := z.tree.ParentOf(subDeptID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return parent != nil && actor.HasDepartment(*parent), nil
}

// ReachesAny 主管是否可达子部门集合中的任意一个
func (z *Authorizer) ReachesAny(actor *Actor, subDeptIDs []string) (bool, error) {
	for _, id := range subDeptIDs {
		ok, err := z.Reaches(actor, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// CanAccessTask 判断操作者是否可以查看/操作任务
// 拒绝时返回带字段的 Forbidden,调用方会将原因透出给用户
func (z *Authorizer) CanAccessTask(actor *Actor, task *model.TaskModel) error {
	allowed, err := z.taskAccessible(actor, task)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbidden("taskId", "you do not have access to this task")
	}
	return nil
}

// taskAccessible 一般访问规则
func (z *Authorizer) taskAccessible(actor *Actor, task *model.TaskModel) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}

	switch actor.Kind {
	case model.ActorSupervisor:
		switch task.AssignmentType {
		case model.AssignmentDepartment:
			return actor.HasDepartment(*task.TargetDepartmentID), nil
		case model.AssignmentSubDepartment:
			return z.Reaches(actor, *task.TargetSubDeptID)
		case model.AssignmentIndividual:
			assignee, err := z.actors.ResolveByID(*task.AssigneeID)
			if err != nil {
				return false, err
			}
			// 直属主管直接放行,与部门归属无关
			if assignee.SupervisorID != nil && *assignee.SupervisorID == actor.ID {
				return true, nil
			}
			return z.ReachesAny(actor, assignee.DepartmentIDs)
		}

	case model.ActorEmployee:
		switch task.AssignmentType {
		case model.AssignmentIndividual:
			return *task.AssigneeID == actor.ID, nil
		case model.AssignmentSubDepartment:
			return actor.HasDepartment(*task.TargetSubDeptID), nil
		case model.AssignmentDepartment:
			// 员工无显式子部门关联时,可达范围兜底到其主管的部门集合
			if len(actor.DepartmentIDs) > 0 {
				return false, nil
			}
			supDepts, err := z.actors.SupervisorDepartments(actor)
			if err != nil {
				return false, err
			}
			for _, id := range supDepts {
				if id == *task.TargetDepartmentID {
					return true, nil
				}
			}
			return false, nil
		}
	}
	return false, nil
}

// CanAccessDelegation 判断操作者是否可以查看/操作委派
func (z *Authorizer) CanAccessDelegation(actor *Actor, delegation *model.TaskDelegationModel) error {
	if actor.IsAdmin() || delegation.DelegatorID == actor.ID {
		return nil
	}

	var allowed bool
	var err error
	switch actor.Kind {
	case model.ActorSupervisor:
		if delegation.AssignmentType == model.AssignmentSubDepartment {
			allowed, err = z.Reaches(actor, *delegation.TargetSubDeptID)
		} else {
			var assignee *Actor
			assignee, err = z.actors.ResolveByID(*delegation.AssigneeID)
			if err == nil {
				if assignee.SupervisorID != nil && *assignee.SupervisorID == actor.ID {
					allowed = true
				} else {
					allowed, err = z.ReachesAny(actor, assignee.DepartmentIDs)
				}
			}
		}
	case model.ActorEmployee:
		if delegation.AssignmentType == model.AssignmentIndividual {
			allowed = *delegation.AssigneeID == actor.ID
		} else {
			allowed = actor.HasDepartment(*delegation.TargetSubDeptID)
		}
	}
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbidden("delegationId", "you do not have access to this delegation")
	}
	return nil
}

// reviewRule 审核决策表条目: 角色 × 层级可达 → 放行/拒绝
type reviewRule struct {
	message string
	allowed func(z *Authorizer, actor *Actor, task *model.TaskModel) (bool, error)
}

// reviewRules 按审批层级的审核决策表
var reviewRules = map[string]reviewRule{
	model.LevelDepartment: {
		message: "Department-level tasks can only be approved by administrators",
		allowed: func(z *Authorizer, actor *Actor, task *model.TaskModel) (bool, error) {
			return false, nil // 仅管理员,管理员在查表前已放行
		},
	},
	model.LevelSubDepartment: {
		message: "Only administrators or supervisors over the target sub-department may review this task",
		allowed: func(z *Authorizer, actor *Actor, task *model.TaskModel) (bool, error) {
			if !actor.IsSupervisor() {
				return false, nil
			}
			return z.Reaches(actor, *task.TargetSubDeptID)
		},
	},
	model.LevelEmployee: {
		message: "Only administrators or the assignee's supervisors may review this task",
		allowed: func(z *Authorizer, actor *Actor, task *model.TaskModel) (bool, error) {
			if !actor.IsSupervisor() {
				return false, nil
			}
			assignee, err := z.actors.ResolveByID(*task.AssigneeID)
			if err != nil {
				return false, err
			}
			if len(assignee.DepartmentIDs) > 0 {
				return z.ReachesAny(actor, assignee.DepartmentIDs)
			}
			// 被指派员工没有子部门关联时,兜底比对其直属主管的部门集合
			supDepts, err := z.actors.SupervisorDepartments(assignee)
			if err != nil {
				return false, err
			}
			for _, id := range supDepts {
				if actor.HasDepartment(id) {
					return true, nil
				}
			}
			return false, nil
		},
	},
}

// CanReviewTask 判断操作者是否可以审批/驳回任务
// 审核权限严格于一般访问权限,按任务的审批层级查决策表
func (z *Authorizer) CanReviewTask(actor *Actor, task *model.TaskModel) error {
	if actor.IsAdmin() {
		return nil
	}
	rule, ok := reviewRules[task.ApprovalLevel()]
	if !ok {
		return apperr.Forbidden("approver", "unknown approval level")
	}
	allowed, err := rule.allowed(z, actor, task)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.Forbidden("approver", rule.message)
	}
	return nil
}

// CanReviewDelegation 判断操作者是否可以审批/驳回/转呈委派
// 比一般层级规则更窄: 仅委派发起主管本人或管理员
func (z *Authorizer) CanReviewDelegation(actor *Actor, delegation *model.TaskDelegationModel) error {
	if actor.IsAdmin() || delegation.DelegatorID == actor.ID {
		return nil
	}
	return apperr.Forbidden("approver", "only the delegating supervisor or an administrator may review this delegation")
}
