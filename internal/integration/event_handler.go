package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/repository"
	"github.com/koalacodee/taskflow-gin/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookConfig Webhook 推送配置
type WebhookConfig struct {
	URL    string            `mapstructure:"url"`
	Method string            `mapstructure:"method"`
	Token  string            `mapstructure:"token"` // Bearer token,可选
	Header map[string]string `mapstructure:"header"`
}

// DBEventSink 基于数据库的事件出口
// 实现 service.EventSink: 事件先落库,再由 worker 异步推送到 Webhook
type DBEventSink struct {
	db         *gorm.DB
	eventRepo  repository.EventRepository
	webhooks   []WebhookConfig
	httpClient *http.Client
	queue      chan *queuedEvent
	workers    int
	stop       chan struct{}
	logger     *logrus.Logger
}

type queuedEvent struct {
	modelID string
	event   *service.LifecycleEvent
}

// NewEventSink 创建事件出口
func NewEventSink(db *gorm.DB, webhooks []WebhookConfig, workers int, logger *logrus.Logger) *DBEventSink {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.New()
	}

	sink := &DBEventSink{
		db:         db,
		eventRepo:  repository.NewEventRepository(db),
		webhooks:   webhooks,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan *queuedEvent, 1000),
		workers:    workers,
		stop:       make(chan struct{}),
		logger:     logger,
	}

	// 启动 worker goroutines
	for i := 0; i < workers; i++ {
		go sink.worker()
	}

	return sink
}

// Emit 处理事件
func (h *DBEventSink) Emit(evt *service.LifecycleEvent) error {
	// 1. 持久化事件到数据库
	eventData, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	eventModel := &model.EventModel{
		ID:         uuid.New().String(),
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Type:       evt.Type,
		Data:       eventData,
		Status:     "pending",
		RetryCount: 0,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := h.eventRepo.Save(eventModel); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	// 2. 异步推送到 Webhook,队列满时丢弃不阻塞
	select {
	case h.queue <- &queuedEvent{modelID: eventModel.ID, event: evt}:
	default:
		h.logger.WithFields(logrus.Fields{
			"event_type": evt.Type,
			"entity_id":  evt.EntityID,
		}).Warn("event queue full, dropping webhook push")
	}

	return nil
}

// worker 事件推送 worker
func (h *DBEventSink) worker() {
	for {
		select {
		case q := <-h.queue:
			h.push(q)
		case <-h.stop:
			return
		}
	}
}

// push 推送单个事件到全部 Webhook,指数退避重试
func (h *DBEventSink) push(q *queuedEvent) {
	eventModel, err := h.eventRepo.FindByID(q.modelID)
	if err != nil {
		h.logger.WithError(err).Warn("failed to load event model for webhook push")
		return
	}

	// 没有 Webhook 配置时无需推送,直接标记成功
	if len(h.webhooks) == 0 {
		eventModel.Status = "success"
		eventModel.UpdatedAt = time.Now()
		_ = h.eventRepo.Save(eventModel)
		return
	}

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		success := true
		for _, webhook := range h.webhooks {
			if err := h.send(&webhook, q.event); err != nil {
				success = false
				h.logger.WithField("url", webhook.URL).WithError(err).Warn("webhook push failed")
			}
		}

		if success {
			eventModel.Status = "success"
			eventModel.UpdatedAt = time.Now()
			_ = h.eventRepo.Save(eventModel)
			return
		}

		eventModel.RetryCount++
		eventModel.UpdatedAt = time.Now()
		_ = h.eventRepo.Save(eventModel)

		if i < maxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2 // 指数退避
		}
	}

	eventModel.Status = "failed"
	eventModel.UpdatedAt = time.Now()
	_ = h.eventRepo.Save(eventModel)
}

// send 发送单个 Webhook 请求
func (h *DBEventSink) send(webhook *WebhookConfig, evt *service.LifecycleEvent) error {
	eventData, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	method := webhook.Method
	if method == "" {
		method = "POST"
	}

	req, err := http.NewRequest(method, webhook.URL, bytes.NewBuffer(eventData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range webhook.Header {
		req.Header.Set(key, value)
	}
	if webhook.Token != "" {
		req.Header.Set("Authorization", "Bearer "+webhook.Token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}

	return nil
}

// Stop 停止事件推送 worker
func (h *DBEventSink) Stop() {
	close(h.stop)
}
