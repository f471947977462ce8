package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/koalacodee/taskflow-gin/internal/auth"
	"github.com/sirupsen/logrus"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该检查 Origin
		return true
	},
}

// Handler WebSocket 升级处理器
// 调用方必须携带 user_id,且能解析为已知操作者;身份令牌校验由外层网关负责
func Handler(hub *Hub, actors auth.ActorResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 query 参数获取用户身份
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user_id"})
			return
		}

		// 2. 用户必须映射到已知操作者
		actor, err := actors.Resolve(userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		// 3. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		// 4. 注册客户端并启动读写循环
		client := NewClient(uuid.New().String(), actor.UserID, hub, conn, logger)
		hub.register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
