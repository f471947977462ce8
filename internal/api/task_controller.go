package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/koalacodee/taskflow-gin/internal/service"
)

// TaskController 任务控制器
type TaskController struct {
	taskService service.TaskService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService) *TaskController {
	return &TaskController{
		taskService: taskService,
	}
}

// Create 创建任务
// @Summary      创建任务
// @Description  管理员或主管创建任务,指派给员工、子部门或部门三者之一
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateTaskRequest true "任务信息"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks [post]
func (c *TaskController) Create(ctx *gin.Context) {
	var req service.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.Create(ctx.Request.Context(), CallerID(ctx), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// List 列出调用方可见的任务
// @Summary      任务列表
// @Description  按调用方角色返回其可见的任务集合
// @Tags         任务管理
// @Produce      json
// @Success      200  {object}  ListResponse
// @Router       /tasks [get]
func (c *TaskController) List(ctx *gin.Context) {
	tasks, err := c.taskService.ListForCaller(ctx.Request.Context(), CallerID(ctx))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	List(ctx, tasks, len(tasks))
}

// Get 获取任务详情
// @Summary      获取任务详情
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [get]
func (c *TaskController) Get(ctx *gin.Context) {
	task, err := c.taskService.Get(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// MarkSeen 标记任务已查看
// @Summary      标记任务已查看
// @Description  执行人首次查看时任务由 TODO 进入 SEEN,重复调用幂等
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/seen [post]
func (c *TaskController) MarkSeen(ctx *gin.Context) {
	task, err := c.taskService.MarkSeen(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Submit 提交任务审核
// @Summary      提交任务成果
// @Description  执行人提交成果,任务进入 PENDING_REVIEW 并停止提醒
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.SubmitRequest true "提交内容"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /tasks/{id}/submit [post]
func (c *TaskController) Submit(ctx *gin.Context) {
	var req service.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.SubmitForReview(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Approve 审批通过
// @Summary      审批通过任务提交
// @Description  按任务层级鉴权,通过后任务进入 COMPLETED
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.ReviewRequest false "审核反馈"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /tasks/{id}/approve [post]
func (c *TaskController) Approve(ctx *gin.Context) {
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.Approve(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Reject 审批驳回
// @Summary      驳回任务提交
// @Description  驳回后任务回到 TODO,执行人需重新提交
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.ReviewRequest false "审核反馈"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /tasks/{id}/reject [post]
func (c *TaskController) Reject(ctx *gin.Context) {
	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.Reject(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Restart 重启任务
// @Summary      重启任务
// @Description  已完成的任务重新回到 TODO
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/restart [post]
func (c *TaskController) Restart(ctx *gin.Context) {
	task, err := c.taskService.Restart(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// Delete 删除任务
// @Summary      删除任务
// @Description  仅管理员可删除,级联清理提交、委派与事件
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [delete]
func (c *TaskController) Delete(ctx *gin.Context) {
	if err := c.taskService.Delete(ctx.Request.Context(), CallerID(ctx), ctx.Param("id")); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// UpdateReminder 变更提醒间隔
// @Summary      变更任务提醒间隔
// @Description  空间隔表示取消提醒,已有提醒会被重新调度
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.UpdateReminderRequest true "提醒间隔"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/reminder [put]
func (c *TaskController) UpdateReminder(ctx *gin.Context) {
	var req service.UpdateReminderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	task, err := c.taskService.UpdateReminder(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, task)
}

// ListSubmissions 列出任务提交记录
// @Summary      任务提交记录
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  ListResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/{id}/submissions [get]
func (c *TaskController) ListSubmissions(ctx *gin.Context) {
	subs, err := c.taskService.ListSubmissions(ctx.Request.Context(), CallerID(ctx), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	List(ctx, subs, len(subs))
}
