package websocket_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/koalacodee/taskflow-gin/internal/model"
	"github.com/koalacodee/taskflow-gin/internal/service"
	"github.com/koalacodee/taskflow-gin/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHubBroadcastWithoutClients 无客户端时广播不阻塞
func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	assert.Equal(t, 0, hub.ClientCount())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast([]byte("ping"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked with no clients")
	}
}

// TestHubStop 停止后 Run 退出
func TestHubStop(t *testing.T) {
	hub := websocket.NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	hub.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

// TestSinkEmit 事件出口把事件序列化为 JSON 广播
func TestSinkEmit(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	sink := websocket.NewSink(hub)
	event := &service.LifecycleEvent{
		Type:       model.EventTaskApproved,
		EntityType: model.EntityTask,
		EntityID:   "task-001",
		ActorID:    "sup-001",
		Data:       map[string]interface{}{"feedback": "通过"},
	}
	require.NoError(t, sink.Emit(event))

	// Emit 的负载必须与事件的 JSON 表示一致
	data, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded service.LifecycleEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, event.EntityID, decoded.EntityID)
}
