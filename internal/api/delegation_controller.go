package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/koalacodee/taskflow-gin/internal/service"
)

// DelegationController 任务委派控制器
type DelegationController struct {
	delegationService service.DelegationService
}

// NewDelegationController 创建任务委派控制器
func NewDelegationController(delegationService service.DelegationService) *DelegationController {
	return &DelegationController{
		delegationService: delegationService,
	}
}

// Delegate 委派任务
// @Summary      委派任务
// @Description  主管将任务转派给员工或子部门,二选一
// @Tags         任务委派
// @Accept       json
// @Produce      json
// @Param        id path string true "父任务 ID"
// @Param        request body service.DelegateRequest true "委派目标"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/delegations [post]
func (c *DelegationController) Delegate(ctx *gin.Context) {
	var req service.DelegateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	delegation, err := c.delegationService.Delegate(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, delegation)
}

// ListByTask 列出任务下的委派
// @Summary      任务委派列表
// @Tags         任务委派
// @Produce      json
// @Param        id path string true "父任务 ID"
// @Success      200  {object}  ListResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/delegations [get]
func (c *DelegationController) ListByTask(ctx *gin.Context) {
	delegations, err := c.delegationService.ListByTask(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	List(ctx, delegations, len(delegations))
}

// Get 获取委派详情
// @Summary      获取委派详情
// @Tags         任务委派
// @Produce      json
// @Param        id path string true "委派 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /delegations/{id} [get]
func (c *DelegationController) Get(ctx *gin.Context) {
	delegation, err := c.delegationService.Get(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, delegation)
}

// MarkSeen 标记委派已查看
// @Summary      标记委派已查看
// @Description  被委派人首次查看后委派停止提醒
// @Tags         任务委派
// @Produce      json
// @Param        id path string true "委派 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /delegations/{id}/seen [post]
func (c *DelegationController) MarkSeen(ctx *gin.Context) {
	delegation, err := c.delegationService.MarkSeen(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, delegation)
}

// Submit 提交委派成果
// @Summary      提交委派成果
// @Tags         任务委派
// @Accept       json
// @Produce      json
// @Param        id path string true "委派 ID"
// @Param        request body service.SubmitRequest true "提交内容"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /delegations/{id}/submit [post]
func (c *DelegationController) Submit(ctx *gin.Context) {
	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	delegation, err := c.delegationService.SubmitForReview(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, delegation)
}

// Approve 审批通过委派提交
// @Summary      审批通过委派提交
// @Description  仅委派发起主管或管理员可审批
// @Tags         任务委派
// @Accept       json
// @Produce      json
// @Param        id path string true "委派 ID"
// @Param        request body service.ReviewRequest false "审核反馈"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /delegations/{id}/approve [post]
func (c *DelegationController) Approve(ctx *gin.Context) {
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	delegation, err := c.delegationService.Approve(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, delegation)
}

// Reject 驳回委派提交
// @Summary      驳回委派提交
// @Tags         任务委派
// @Accept       json
// @Produce      json
// @Param        id path string true "委派 ID"
// @Param        request body service.ReviewRequest false "审核反馈"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /delegations/{id}/reject [post]
func (c *DelegationController) Reject(ctx *gin.Context) {
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	delegation, err := c.delegationService.Reject(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, delegation)
}

// Forward 转呈批准的委派提交
// @Summary      转呈委派提交
// @Description  委派发起主管将已批准的委派提交一次性转呈到父任务审核链
// @Tags         任务委派
// @Produce      json
// @Param        id path string true "委派 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /delegations/{id}/forward [post]
func (c *DelegationController) Forward(ctx *gin.Context) {
	sub, err := c.delegationService.Forward(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, sub)
}

// ListSubmissions 列出委派提交记录
// @Summary      委派提交记录
// @Tags         任务委派
// @Produce      json
// @Param        id path string true "委派 ID"
// @Success      200  {object}  ListResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /delegations/{id}/submissions [get]
func (c *DelegationController) ListSubmissions(ctx *gin.Context) {
	subs, err := c.delegationService.ListSubmissions(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	List(ctx, subs, len(subs))
}
