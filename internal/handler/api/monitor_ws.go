package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	models "KellyMux/internal/domain/models"
	domrepo "KellyMux/internal/domain/repository"
	xlogger "KellyMux/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const monitorWriteTimeout = 5 * time.Second

// MonitorHub streams published aggregates to WebSocket observers. Slow or
// dead connections are dropped rather than back-pressuring the data flow.
type MonitorHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	writeMu sync.Mutex // serializes Broadcast; gorilla allows one writer per conn
}

func NewMonitorHub(logger *xlogger.Logger) *MonitorHub {
	return &MonitorHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *MonitorHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/aggregates", h.Serve)
}

// Serve upgrades the connection and holds it until the peer goes away.
func (h *MonitorHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("monitor connected", xlogger.Int("observers", n))

	// Discard inbound frames; the read loop only detects close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()

	return nil
}

// Broadcast sends the aggregate to every connected observer.
func (h *MonitorHub) Broadcast(p models.TargetPortfolio) {
	b, err := json.Marshal(p)
	if err != nil {
		h.logger.Error("monitor marshal failed", xlogger.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(monitorWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			h.drop(conn)
		}
	}
}

func (h *MonitorHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()

	if ok {
		_ = conn.Close()
		h.logger.Debug("monitor disconnected")
	}
}

var _ domrepo.AggregateStream = (*MonitorHub)(nil)
