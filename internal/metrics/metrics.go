package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务创建数
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	// 审核操作数
	reviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_total",
			Help: "Total number of review operations",
		},
		[]string{"entity", "action"}, // task/delegation × approve/reject
	)

	// 委派创建数
	delegationsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "delegations_created_total",
			Help: "Total number of task delegations created",
		},
	)

	// 提醒触发数
	remindersFiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_fired_total",
			Help: "Total number of reminder events fired",
		},
	)

	// 活跃提醒注册数
	activeReminders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "reminders_active",
			Help: "Number of active recurring reminder registrations",
		},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// 任务状态分布
	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_status",
			Help: "Number of tasks by status",
		},
		[]string{"status"},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(tasksCreatedTotal)
	prometheus.MustRegister(reviewsTotal)
	prometheus.MustRegister(delegationsCreatedTotal)
	prometheus.MustRegister(remindersFiredTotal)
	prometheus.MustRegister(activeReminders)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(tasksByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated() {
	tasksCreatedTotal.Inc()
}

// RecordReview 记录审核操作
func RecordReview(entity, action string) {
	reviewsTotal.WithLabelValues(entity, action).Inc()
}

// RecordDelegationCreated 记录委派创建
func RecordDelegationCreated() {
	delegationsCreatedTotal.Inc()
}

// RecordReminderFired 记录提醒触发
func RecordReminderFired() {
	remindersFiredTotal.Inc()
}

// SetActiveReminders 更新活跃提醒注册数
func SetActiveReminders(n int) {
	activeReminders.Set(float64(n))
}

// SetTasksByStatus 更新任务状态分布
func SetTasksByStatus(status string, count float64) {
	tasksByStatus.WithLabelValues(status).Set(count)
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	return nil
}
