package websocket

import (
	"encoding/json"
	"sync"

	"github.com/koalacodee/taskflow-gin/internal/service"
)

// Hub 管理所有 WebSocket 连接
// 作为 EventSink 的一个消费端,把生命周期/提醒事件实时推给在线客户端
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	// 互斥锁,保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.stop)
}

// Broadcast 向所有客户端广播消息
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		// 广播通道拥塞时丢弃,实时推送是尽力而为
	}
}

// BroadcastToUser 向特定用户的连接广播消息
func (h *Hub) BroadcastToUser(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// ClientCount 获取客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Sink 把 Hub 包装为事件出口
type Sink struct {
	hub *Hub
}

// NewSink 创建广播事件出口
func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

// Emit 序列化事件并广播给全部在线客户端
func (s *Sink) Emit(event *service.LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.hub.Broadcast(data)
	return nil
}
