package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/koalacodee/taskflow-gin/internal/auth"
	"github.com/koalacodee/taskflow-gin/internal/hierarchy"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"gorm.io/gorm"
)

// DirectoryController 组织目录控制器
// 管理部门树与操作者,写操作仅限管理员
type DirectoryController struct {
	departments repository.DepartmentRepository
	actors      repository.ActorRepository
	resolver    auth.ActorResolver
	tree        hierarchy.Hierarchy
}

// NewDirectoryController 创建组织目录控制器
func NewDirectoryController(
	departments repository.DepartmentRepository,
	actors repository.ActorRepository,
	resolver auth.ActorResolver,
	tree hierarchy.Hierarchy,
) *DirectoryController {
	return &DirectoryController{
		departments: departments,
		actors:      actors,
		resolver:    resolver,
		tree:        tree,
	}
}

// requireAdmin 校验调用方为管理员
func (c *DirectoryController) requireAdmin(ctx *gin.Context) bool {
	actor, err := c.resolver.Resolve(CallerID(ctx))
	if err != nil {
		HandleServiceError(ctx, err)
		return false
	}
	if !actor.IsAdmin() {
		Error(ctx, http.StatusForbidden, "only administrators may manage the directory", "caller")
		return false
	}
	return true
}

// CreateDepartmentRequest 创建部门请求
// @Description 创建部门,parent_id 为空表示根部门
type CreateDepartmentRequest struct {
	Name     string  `json:"name" example:"研发部" binding:"required"`
	ParentID *string `json:"parent_id,omitempty" example:"dept-001"`
}

// CreateDepartment 创建部门
// @Summary      创建部门
// @Description  部门树固定两级,子部门的父级必须是根部门
// @Tags         组织目录
// @Accept       json
// @Produce      json
// @Param        request body CreateDepartmentRequest true "部门信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /departments [post]
func (c *DirectoryController) CreateDepartment(ctx *gin.Context) {
	if !c.requireAdmin(ctx) {
		return
	}

	var req CreateDepartmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	// 子部门的父级必须存在且为根部门
	if req.ParentID != nil {
		parent, err := c.departments.FindByID(*req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				Error(ctx, http.StatusBadRequest, "parent department not found", "parent_id")
				return
			}
			HandleServiceError(ctx, err)
			return
		}
		if !parent.IsRoot() {
			Error(ctx, http.StatusBadRequest, "departments nest at most two levels", "parent_id")
			return
		}
	}

	now := time.Now()
	dept := &model.DepartmentModel{
		ID:        uuid.New().String(),
		Name:      req.Name,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := dept.Validate(); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid department", err.Error())
		return
	}
	if err := c.departments.Save(dept); err != nil {
		HandleServiceError(ctx, err)
		return
	}
	c.tree.Invalidate(dept.ID)

	Success(ctx, dept)
}

// ListDepartments 列出根部门
// @Summary      根部门列表
// @Tags         组织目录
// @Produce      json
// @Success      200  {object}  ListResponse
// @Router       /departments [get]
func (c *DirectoryController) ListDepartments(ctx *gin.Context) {
	roots, err := c.departments.FindRoots()
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	List(ctx, roots, len(roots))
}

// ListChildren 列出子部门
// @Summary      子部门列表
// @Tags         组织目录
// @Produce      json
// @Param        id path string true "根部门 ID"
// @Success      200  {object}  ListResponse
// @Router       /departments/{id}/children [get]
func (c *DirectoryController) ListChildren(ctx *gin.Context) {
	children, err := c.departments.FindChildren(ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	List(ctx, children, len(children))
}

// CreateActorRequest 创建操作者请求
// @Description 注册用户身份,kind 为 ADMIN/SUPERVISOR/EMPLOYEE 之一
type CreateActorRequest struct {
	UserID       string  `json:"user_id" example:"u-1001" binding:"required"`
	Kind         string  `json:"kind" example:"EMPLOYEE" binding:"required"`
	DisplayName  string  `json:"display_name" example:"张三"`
	SupervisorID *string `json:"supervisor_id,omitempty" example:"act-001"` // 员工的直属主管
}

// CreateActor 创建操作者
// @Summary      注册操作者
// @Tags         组织目录
// @Accept       json
// @Produce      json
// @Param        request body CreateActorRequest true "操作者信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /actors [post]
func (c *DirectoryController) CreateActor(ctx *gin.Context) {
	if !c.requireAdmin(ctx) {
		return
	}

	var req CreateActorRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	now := time.Now()
	actor := &model.ActorModel{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Kind:         req.Kind,
		DisplayName:  req.DisplayName,
		SupervisorID: req.SupervisorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := actor.Validate(); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid actor", err.Error())
		return
	}
	if err := c.actors.Save(actor); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, actor)
}

// GetActor 获取操作者详情
// @Summary      获取操作者详情
// @Tags         组织目录
// @Produce      json
// @Param        id path string true "操作者 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /actors/{id} [get]
func (c *DirectoryController) GetActor(ctx *gin.Context) {
	actor, err := c.resolver.ResolveByID(ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, actor)
}

// ActorDepartmentRequest 操作者部门关联请求
// @Description 主管关联根部门,员工关联子部门
type ActorDepartmentRequest struct {
	DepartmentID string `json:"department_id" example:"sub-001" binding:"required"`
}

// AddActorDepartment 关联操作者与部门
// @Summary      关联操作者与部门
// @Tags         组织目录
// @Accept       json
// @Produce      json
// @Param        id path string true "操作者 ID"
// @Param        request body ActorDepartmentRequest true "部门"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /actors/{id}/departments [post]
func (c *DirectoryController) AddActorDepartment(ctx *gin.Context) {
	if !c.requireAdmin(ctx) {
		return
	}

	var req ActorDepartmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if _, err := c.departments.FindByID(req.DepartmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Error(ctx, http.StatusBadRequest, "department not found", "department_id")
			return
		}
		HandleServiceError(ctx, err)
		return
	}

	if err := c.actors.AddDepartment(ctx.Param("id"), req.DepartmentID); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// RemoveActorDepartment 解除操作者与部门的关联
// @Summary      解除操作者与部门的关联
// @Tags         组织目录
// @Produce      json
// @Param        id path string true "操作者 ID"
// @Param        deptId path string true "部门 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /actors/{id}/departments/{deptId} [delete]
func (c *DirectoryController) RemoveActorDepartment(ctx *gin.Context) {
	if !c.requireAdmin(ctx) {
		return
	}

	if err := c.actors.RemoveDepartment(ctx.Param("id"), ctx.Param("deptId")); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}
