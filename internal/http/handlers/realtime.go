package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log: log.With("handler", "RealtimeHandler"),
		Hub: hub,
	}
}

// GET /api/employees/events streams change events until the client leaves.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	client := h.Hub.NewSSEClient()
	h.Hub.AddChannel(client, realtime.ChannelEmployees)
	h.Log.Debug("SSEStream open", "client_id", client.ID.String())

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	h.Log.Debug("SSEStream closed", "client_id", client.ID.String())
}
