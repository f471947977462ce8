package hierarchy

import (
	"errors"
	"sync"

	"github.com/koalacodee/taskflow-gin/internal/apperr"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"gorm.io/gorm"
)

// Hierarchy 部门层级只读访问接口
// 部门树固定两级,祖先判断退化为一次父节点查询
type Hierarchy interface {
	IsDescendantOf(subDeptID, rootDeptID string) (bool, error)
	ParentOf(subDeptID string) (*string, error)
	Invalidate(departmentID string)
}

// cachedHierarchy 带缓存的部门层级访问器
// 父子关系极少变化,用读多写少的并发缓存避免重复查库
type cachedHierarchy struct {
	repo  repository.DepartmentRepository
	cache sync.Map // departmentID -> *string(父部门 ID,根部门为 nil)
}

// New 创建部门层级访问器
func New(repo repository.DepartmentRepository) Hierarchy {
	return &cachedHierarchy{repo: repo}
}

// ParentOf 查询子部门的父部门 ID,根部门返回 nil
func (h *cachedHierarchy) ParentOf(subDeptID string) (*string, error) {
	if cached, ok := h.cache.Load(subDeptID); ok {
		return cached.(*string), nil
	}

	dept, err := h.repo.FindByID(subDeptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("department")
		}
		return nil, err
	}

	h.cache.Store(subDeptID, dept.ParentID)
	return dept.ParentID, nil
}

// IsDescendantOf 判断子部门是否隶属于给定根部门
func (h *cachedHierarchy) IsDescendantOf(subDeptID, rootDeptID string) (bool, error) {
	parent, err := h.ParentOf(subDeptID)
	if err != nil {
		return false, err
	}
	return parent != nil && *parent == rootDeptID, nil
}

// Invalidate 失效某部门的缓存条目,组织结构调整后调用
func (h *cachedHierarchy) Invalidate(departmentID string) {
	h.cache.Delete(departmentID)
}
