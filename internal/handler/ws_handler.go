package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/edulane/edulane-backend/internal/access"
	"github.com/edulane/edulane-backend/internal/config"
	"github.com/edulane/edulane-backend/internal/middleware"
	"github.com/edulane/edulane-backend/internal/model"
	"github.com/edulane/edulane-backend/internal/response"
	ws "github.com/edulane/edulane-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WSHandler streams group activity events to connected admins.
type WSHandler struct {
	rdb      *redis.Client
	engine   *access.Engine
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(cfg *config.Config, rdb *redis.Client, engine *access.Engine, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		engine:   engine,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(cfg.AllowedOrigins),
	}
}

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// GroupActivity godoc
// GET /ws/v1/groups/:id/activity
// Streams membership and permission events for a group. Requires an active
// ADMIN (or higher) role in the group; site admins may always subscribe.
func (h *WSHandler) GroupActivity(c *gin.Context) {
	caller := middleware.GetCaller(c)

	groupID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	allowed, err := h.engine.EffectiveHasGroupRole(c.Request.Context(), caller, groupID, model.RoleAdmin)
	if err != nil {
		failFromError(c, err)
		return
	}
	if !allowed {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.rdb.Subscribe(c.Request.Context(), config.RedisKey.GroupEventsChannel(groupID))
	defer sub.Close()

	// Reader goroutine: answers pings and unblocks the writer on close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				return
			}
			if req.Action == ws.ActionPing {
				if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
					return
				}
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			out := ws.ActivityMessage{
				Event:   ws.EventActivity,
				Payload: json.RawMessage(msg.Payload),
			}
			if err := ws.WriteTyped(conn, out); err != nil {
				h.log.Debug().Err(err).Int("group_id", groupID).Msg("activity write failed, dropping subscriber")
				return
			}
		}
	}
}
