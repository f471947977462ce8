package api

import (
	"github.com/gin-gonic/gin"
	"github.com/koalacodee/taskflow-gin/internal/config"
	"github.com/koalacodee/taskflow-gin/internal/container"
	"github.com/koalacodee/taskflow-gin/internal/metrics"
	"github.com/koalacodee/taskflow-gin/internal/websocket"
)

// SetupRoutes 配置路由
func SetupRoutes(c *container.Container, cfg *config.Config) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(c.Logger()))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(c.DB(), c.Hub())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket 路由
	router.GET("/ws/events", websocket.Handler(c.Hub(), c.ActorResolver(), c.Logger()))

	// 控制器
	taskController := NewTaskController(c.TaskService())
	delegationController := NewDelegationController(c.DelegationService())
	directoryController := NewDirectoryController(
		c.DepartmentRepository(), c.ActorRepository(), c.ActorResolver(), c.Hierarchy())

	// API v1 路由组,按调用方身份鉴权
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	v1.Use(IdentityMiddleware())
	{
		// 任务管理路由
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskController.Create)
			tasks.GET("", taskController.List)
			tasks.GET("/:id", taskController.Get)
			tasks.DELETE("/:id", taskController.Delete)
			tasks.POST("/:id/seen", taskController.MarkSeen)
			tasks.POST("/:id/submit", taskController.Submit)
			tasks.POST("/:id/approve", taskController.Approve)
			tasks.POST("/:id/reject", taskController.Reject)
			tasks.POST("/:id/restart", taskController.Restart)
			tasks.PUT("/:id/reminder", taskController.UpdateReminder)
			tasks.GET("/:id/submissions", taskController.ListSubmissions)
			tasks.POST("/:id/delegations", delegationController.Delegate)
			tasks.GET("/:id/delegations", delegationController.ListByTask)
		}

		// 任务委派路由
		delegations := v1.Group("/delegations")
		{
			delegations.GET("/:id", delegationController.Get)
			delegations.POST("/:id/seen", delegationController.MarkSeen)
			delegations.POST("/:id/submit", delegationController.Submit)
			delegations.POST("/:id/approve", delegationController.Approve)
			delegations.POST("/:id/reject", delegationController.Reject)
			delegations.POST("/:id/forward", delegationController.Forward)
			delegations.GET("/:id/submissions", delegationController.ListSubmissions)
		}

		// 组织目录路由
		departments := v1.Group("/departments")
		{
			departments.POST("", directoryController.CreateDepartment)
			departments.GET("", directoryController.ListDepartments)
			departments.GET("/:id/children", directoryController.ListChildren)
		}

		actors := v1.Group("/actors")
		{
			actors.POST("", directoryController.CreateActor)
			actors.GET("/:id", directoryController.GetActor)
			actors.POST("/:id/departments", directoryController.AddActorDepartment)
			actors.DELETE("/:id/departments/:deptId", directoryController.RemoveActorDepartment)
		}
	}

	return router
}
