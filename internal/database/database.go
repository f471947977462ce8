package database

import (
	"context"
	"fmt"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/config"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,如果没有配置则使用默认值
	poolConfig := GetPoolConfig()
	if cfg.MaxIdleConns > 0 {
		poolConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试,等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.DepartmentModel{},
			&model.ActorModel{},
			&model.ActorDepartmentModel{},
			&model.TaskModel{},
			&model.TaskSubmissionModel{},
			&model.TaskDelegationModel{},
			&model.DelegationSubmissionModel{},
			&model.EventModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表(使用 TEXT 替代 jsonb)
func createSQLiteTables(db *gorm.DB) error {
	// 创建 departments 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS departments (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			parent_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create departments table: %w", err)
	}

	// 创建 actors 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS actors (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL UNIQUE,
			kind VARCHAR(16) NOT NULL,
			display_name VARCHAR(255),
			supervisor_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create actors table: %w", err)
	}

	// 创建 actor_departments 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS actor_departments (
			actor_id VARCHAR(64) NOT NULL,
			department_id VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (actor_id, department_id)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create actor_departments table: %w", err)
	}

	// 创建 tasks 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR(64) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			priority VARCHAR(16) NOT NULL DEFAULT 'MEDIUM',
			assignment_type VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			assignee_id VARCHAR(64),
			target_department_id VARCHAR(64),
			target_sub_dept_id VARCHAR(64),
			assigner_id VARCHAR(64) NOT NULL,
			approver_id VARCHAR(64),
			created_by VARCHAR(64),
			due_date DATETIME,
			reminder_interval BIGINT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			completed_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}

	// 创建 task_submissions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS task_submissions (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL,
			performer_kind VARCHAR(16) NOT NULL,
			performer_id VARCHAR(64) NOT NULL,
			performer_name VARCHAR(255),
			notes TEXT,
			feedback TEXT,
			status VARCHAR(32) NOT NULL,
			submitted_at DATETIME NOT NULL,
			reviewed_at DATETIME,
			reviewed_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create task_submissions table: %w", err)
	}

	// 创建 task_delegations 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS task_delegations (
			id VARCHAR(64) PRIMARY KEY,
			task_id VARCHAR(64) NOT NULL,
			assignment_type VARCHAR(32) NOT NULL,
			assignee_id VARCHAR(64),
			target_sub_dept_id VARCHAR(64),
			delegator_id VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			completed_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create task_delegations table: %w", err)
	}

	// 创建 delegation_submissions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS delegation_submissions (
			id VARCHAR(64) PRIMARY KEY,
			delegation_id VARCHAR(64) NOT NULL,
			performer_kind VARCHAR(16) NOT NULL,
			performer_id VARCHAR(64) NOT NULL,
			performer_name VARCHAR(255),
			notes TEXT,
			feedback TEXT,
			status VARCHAR(32) NOT NULL,
			forwarded BOOLEAN NOT NULL DEFAULT 0,
			submitted_at DATETIME NOT NULL,
			reviewed_at DATETIME,
			reviewed_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create delegation_submissions table: %w", err)
	}

	// 创建 events 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id VARCHAR(64) PRIMARY KEY,
			entity_type VARCHAR(16) NOT NULL,
			entity_id VARCHAR(64) NOT NULL,
			type VARCHAR(48) NOT NULL,
			data TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// departments 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_departments_parent_id ON departments(parent_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_departments_parent_id: %w", err)
	}

	// actors 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_actors_user_id ON actors(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_actors_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_actors_kind ON actors(kind)").Error; err != nil {
		return fmt.Errorf("failed to create idx_actors_kind: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_actor_departments_dept ON actor_departments(department_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_actor_departments_dept: %w", err)
	}

	// tasks 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_status_type ON tasks(status, assignment_type)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_status_type: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_assignee_id ON tasks(assignee_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_assignee_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_target_dept ON tasks(target_department_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_target_dept: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_target_sub_dept ON tasks(target_sub_dept_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_target_sub_dept: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_tasks_assigner_id ON tasks(assigner_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_tasks_assigner_id: %w", err)
	}

	// task_submissions 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_task_status ON task_submissions(task_id, status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_task_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_performer ON task_submissions(performer_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_performer: %w", err)
	}

	// task_delegations 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_delegations_task_id ON task_delegations(task_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_delegations_task_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_delegations_delegator ON task_delegations(delegator_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_delegations_delegator: %w", err)
	}

	// delegation_submissions 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_dsubmissions_delegation_status ON delegation_submissions(delegation_id, status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_dsubmissions_delegation_status: %w", err)
	}

	// events 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_entity: %w", err)
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
