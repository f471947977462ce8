package container

import (
	"fmt"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/auth"
	"github.com/koalacodee/taskflow-gin/internal/config"
	"github.com/koalacodee/taskflow-gin/internal/database"
	"github.com/koalacodee/taskflow-gin/internal/hierarchy"
	"github.com/koalacodee/taskflow-gin/internal/integration"
	"github.com/koalacodee/taskflow-gin/internal/metrics"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/koalacodee/taskflow-gin/internal/service"
	"github.com/koalacodee/taskflow-gin/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、仓储、服务、事件出口与调度器
type Container struct {
	db                *gorm.DB
	logger            *logrus.Logger
	departments       repository.DepartmentRepository
	actorsRepo        repository.ActorRepository
	tree              hierarchy.Hierarchy
	actorResolver     auth.ActorResolver
	authorizer        *auth.Authorizer
	taskService       service.TaskService
	delegationService service.DelegationService
	reminderScheduler *service.ReminderScheduler
	eventSink         *integration.DBEventSink
	hub               *websocket.Hub
	collector         *metrics.Collector
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.New()
	}

	// 1. 初始化数据库(带重试机制)
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewContainerWithDB(cfg, db, logger)
}

// NewContainerWithDB 基于已有数据库连接创建容器
// 测试时可传入 SQLite 内存库
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.New()
	}

	// 1. 初始化仓储层
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)
	delegationSubRepo := repository.NewDelegationSubmissionRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	actorRepo := repository.NewActorRepository(db)

	// 2. 初始化部门层级与鉴权
	tree := hierarchy.New(departmentRepo)
	actorResolver := auth.NewActorResolver(actorRepo)
	authorizer := auth.NewAuthorizer(actorResolver, tree)

	// 3. 初始化事件出口
	// Webhook 推送走落库 + worker 异步推送,WebSocket 推送走 Hub 广播
	webhooks := make([]integration.WebhookConfig, 0, len(cfg.Events.Webhooks))
	for _, w := range cfg.Events.Webhooks {
		webhooks = append(webhooks, integration.WebhookConfig{
			URL:    w.URL,
			Method: w.Method,
			Token:  w.Token,
			Header: w.Header,
		})
	}
	eventSink := integration.NewEventSink(db, webhooks, cfg.Events.Workers, logger)

	hub := websocket.NewHub()
	go hub.Run()
	wsSink := websocket.NewSink(hub)

	sink := service.NewMultiSink(eventSink, wsSink)

	// 4. 初始化提醒调度器
	reminderScheduler := service.NewReminderScheduler(taskRepo, delegationRepo, sink, logger)

	// 5. 初始化服务层
	taskService := service.NewTaskService(
		db, taskRepo, submissionRepo, delegationRepo, departmentRepo,
		actorResolver, authorizer, reminderScheduler, sink, logger)
	delegationService := service.NewDelegationService(
		taskRepo, delegationRepo, delegationSubRepo, submissionRepo,
		actorResolver, authorizer, reminderScheduler, sink, logger)

	// 6. 初始化指标采集器
	collector := metrics.NewCollector(db, 30*time.Second)
	collector.Start()

	return &Container{
		db:                db,
		logger:            logger,
		departments:       departmentRepo,
		actorsRepo:        actorRepo,
		tree:              tree,
		actorResolver:     actorResolver,
		authorizer:        authorizer,
		taskService:       taskService,
		delegationService: delegationService,
		reminderScheduler: reminderScheduler,
		eventSink:         eventSink,
		hub:               hub,
		collector:         collector,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Logger 获取日志器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// DepartmentRepository 获取部门仓储
func (c *Container) DepartmentRepository() repository.DepartmentRepository {
	return c.departments
}

// ActorRepository 获取操作者仓储
func (c *Container) ActorRepository() repository.ActorRepository {
	return c.actorsRepo
}

// Hierarchy 获取部门层级
func (c *Container) Hierarchy() hierarchy.Hierarchy {
	return c.tree
}

// ActorResolver 获取操作者解析器
func (c *Container) ActorResolver() auth.ActorResolver {
	return c.actorResolver
}

// Authorizer 获取鉴权器
func (c *Container) Authorizer() *auth.Authorizer {
	return c.authorizer
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskService
}

// DelegationService 获取委派服务
func (c *Container) DelegationService() service.DelegationService {
	return c.delegationService
}

// ReminderScheduler 获取提醒调度器
func (c *Container) ReminderScheduler() *service.ReminderScheduler {
	return c.reminderScheduler
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	// 1. 停止提醒调度器,等待进行中的触发完成
	if c.reminderScheduler != nil {
		c.reminderScheduler.Stop()
	}

	// 2. 停止指标采集器
	if c.collector != nil {
		c.collector.Stop()
	}

	// 3. 停止事件推送 worker
	if c.eventSink != nil {
		c.eventSink.Stop()
	}

	// 4. 停止 WebSocket Hub
	if c.hub != nil {
		c.hub.Stop()
	}

	// 5. 关闭数据库连接
	return database.Close(c.db)
}
