package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ashesh3/teleicu-middleware/internal/dispatch"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 中间件部署在内网，订阅方是同域的监护前端
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client 一个已升级的订阅连接，携带目标设备标识（?ip= 参数）
type Client struct {
	conn     *websocket.Conn
	deviceID string

	mu sync.Mutex // 保护并发写
}

func (c *Client) Target() string { return c.deviceID }

func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub 管理实时订阅连接集合
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// HandleWS 处理订阅端点：升级连接并按 ?ip= 参数注册订阅者
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		deviceID: r.URL.Query().Get("ip"),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("Subscriber connected",
		zap.String("device_id", client.deviceID),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	go h.readLoop(client)
}

// readLoop 只为感知连接关闭；订阅方不发送业务数据
func (h *Hub) readLoop(c *Client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Info("Subscriber disconnected", zap.String("device_id", c.deviceID))
}

// Subscribers 返回当前在线订阅者快照
func (h *Hub) Subscribers() []dispatch.Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]dispatch.Subscriber, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}
