package service

import (
	"errors"
	"sync"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/metrics"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReminderQueue 提醒队列接口
// 为携带提醒间隔的任务/委派维护唯一的周期任务
type ReminderQueue interface {
	Schedule(entityType, entityID string, interval time.Duration) error
	Cancel(entityType, entityID string)
	Reschedule(entityType, entityID string, interval time.Duration) error
}

// ReminderScheduler 提醒调度器
// 每个实体一个 cron 周期条目,触发时重读实体状态,终态自取消
type ReminderScheduler struct {
	cron        *cron.Cron
	tasks       repository.TaskRepository
	delegations repository.DelegationRepository
	sink        EventSink
	logger      *logrus.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID // 实体键 -> cron 条目
}

// NewReminderScheduler 创建提醒调度器
func NewReminderScheduler(
	tasks repository.TaskRepository,
	delegations repository.DelegationRepository,
	sink EventSink,
	logger *logrus.Logger,
) *ReminderScheduler {
	if logger == nil {
		logger = logrus.New()
	}
	s := &ReminderScheduler{
		cron:        cron.New(),
		tasks:       tasks,
		delegations: delegations,
		sink:        sink,
		logger:      logger,
		entries:     make(map[string]cron.EntryID),
	}
	s.cron.Start()
	return s
}

// key 实体键,保证任务与委派的 ID 空间互不冲突
func key(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// Schedule 注册周期提醒
// 首次触发在 interval 之后,此后每 interval 触发一次;同一实体重复注册会先移除旧条目
func (s *ReminderScheduler) Schedule(entityType, entityID string, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("reminder interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(entityType, entityID)
	if old, ok := s.entries[k]; ok {
		s.cron.Remove(old)
	}

	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.fire(entityType, entityID)
	}))
	s.entries[k] = id
	metrics.SetActiveReminders(len(s.entries))
	return nil
}

// Cancel 移除周期提醒,幂等,未注册时为空操作
func (s *ReminderScheduler) Cancel(entityType, entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key(entityType, entityID))
}

// Reschedule 变更提醒间隔: 先取消再注册
func (s *ReminderScheduler) Reschedule(entityType, entityID string, interval time.Duration) error {
	s.Cancel(entityType, entityID)
	return s.Schedule(entityType, entityID, interval)
}

// ActiveCount 当前注册的提醒条目数
func (s *ReminderScheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop 停止调度器,等待在途触发结束
func (s *ReminderScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *ReminderScheduler) removeLocked(k string) {
	if id, ok := s.entries[k]; ok {
		s.cron.Remove(id)
		delete(s.entries, k)
		metrics.SetActiveReminders(len(s.entries))
	}
}

// fire 单次触发
// 实体不存在或已脱离可提醒状态时自取消;查询失败只记日志,下个周期继续
func (s *ReminderScheduler) fire(entityType, entityID string) {
	resolved, data, err := s.inspect(entityType, entityID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"entity_id":   entityID,
		}).WithError(err).Warn("reminder fire failed, will retry at next interval")
		return
	}

	if resolved {
		s.mu.Lock()
		s.removeLocked(key(entityType, entityID))
		s.mu.Unlock()
		return
	}

	metrics.RecordReminderFired()
	if err := s.sink.Emit(&LifecycleEvent{
		Type:       model.EventReminderFired,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
	}); err != nil {
		s.logger.WithField("entity_id", entityID).WithError(err).Warn("failed to emit reminder event")
	}
}

// inspect 重读实体,返回其是否已终结以及提醒负载
func (s *ReminderScheduler) inspect(entityType, entityID string) (bool, map[string]interface{}, error) {
	switch entityType {
	case model.EntityDelegation:
		delegation, err := s.delegations.FindByID(entityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return true, nil, nil // 实体已删除,视为终结
			}
			return false, nil, err
		}
		if delegation.IsResolved() {
			return true, nil, nil
		}
		return false, map[string]interface{}{
			"task_id": delegation.TaskID,
			"status":  delegation.Status,
		}, nil

	default:
		task, err := s.tasks.FindByID(entityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return true, nil, nil
			}
			return false, nil, err
		}
		if task.IsResolved() {
			return true, nil, nil
		}
		return false, map[string]interface{}{
			"title":    task.Title,
			"status":   task.Status,
			"priority": task.Priority,
		}, nil
	}
}
