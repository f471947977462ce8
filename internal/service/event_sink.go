package service

// LifecycleEvent 生命周期事件
// 工作流变更时发出,供活动日志/通知等下游消费,发送失败不回传到工作流
type LifecycleEvent struct {
	Type       string                 `json:"type"`
	EntityType string                 `json:"entity_type"` // task/delegation
	EntityID   string                 `json:"entity_id"`
	ActorID    string                 `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// EventSink 事件出口接口
// 通过构造函数显式注入,不使用全局监听器
type EventSink interface {
	Emit(event *LifecycleEvent) error
}

// multiSink 事件扇出
type multiSink struct {
	sinks []EventSink
}

// NewMultiSink 把多个事件出口合成一个,任一出口失败不影响其余出口
func NewMultiSink(sinks ...EventSink) EventSink {
	return &multiSink{sinks: sinks}
}

// Emit 依次发往全部出口,返回第一个错误供调用方记录
func (m *multiSink) Emit(event *LifecycleEvent) error {
	var first error
	for _, s := range m.sinks {
		if s == nil {
			continue
		}
		if err := s.Emit(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
