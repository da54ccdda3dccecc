package events

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-api/internal/model"
)

// Hub раздает события об изменении задач всем подключенным websocket-клиентам
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger,
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Broadcast отправляет событие всем клиентам; мертвые соединения закрываются
// и выбрасываются из списка
func (h *Hub) Broadcast(event string, task model.Task) {
	message, err := json.Marshal(map[string]interface{}{
		"event": event,
		"task":  task,
	})
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("dropping dead websocket connection", zap.Error(err))
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
	h.logger.Info("event hub closed")
}
