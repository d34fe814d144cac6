package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/gamecatalog-backend/internal/websocket"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
)

type EventController struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
}

func NewEventController(hub *websocket.Hub, allowedOrigins []string) *EventController {
	return &EventController{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Stream upgrades the request and subscribes it to ingestion events
// GET /api/v1/ingest/events
func (ctrl *EventController) Stream(c *gin.Context) {
	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	client := websocket.NewClient(ctrl.hub, &websocket.Conn{Conn: conn}, uuid.NewString())
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
