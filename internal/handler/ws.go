package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kennyp2233/nilo-back/internal/hub"
)

// Client → server event names.
const (
	eventSubscribeTrip   = "subscribe_trip"
	eventUnsubscribeTrip = "unsubscribe_trip"
	eventError           = "error"
)

// WSHandler upgrades connections and bridges them into the fan-out hub.
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// tripRef is the data payload of subscribe/unsubscribe messages.
type tripRef struct {
	TripID string `json:"trip_id"`
}

// Connect handles GET /v1/ws
func (h *WSHandler) Connect(c *gin.Context) {
	userID := actingUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing user identity"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed for user %s: %v", userID, err)
		return
	}

	session := hub.NewWebSocketSession(userID, conn)
	h.hub.Register(session)

	defer func() {
		h.hub.Unregister(session.ID())
		_ = session.Close()
	}()

	for {
		msg, err := session.Read()
		if err != nil {
			return
		}

		switch msg.Event {
		case eventSubscribeTrip:
			var ref tripRef
			if err := json.Unmarshal(msg.Data, &ref); err != nil || ref.TripID == "" {
				_ = session.Send(eventError, gin.H{"message": "subscribe_trip requires a trip_id"})
				continue
			}

			if err := h.hub.SubscribeTrip(c.Request.Context(), session, ref.TripID); err != nil {
				if errors.Is(err, hub.ErrTripAccessDenied) {
					_ = session.Send(eventError, gin.H{"message": err.Error()})
					continue
				}
				log.Printf("subscribe failed for session %s trip %s: %v", session.ID(), ref.TripID, err)
				_ = session.Send(eventError, gin.H{"message": "subscription failed"})
			}

		case eventUnsubscribeTrip:
			var ref tripRef
			if err := json.Unmarshal(msg.Data, &ref); err != nil || ref.TripID == "" {
				_ = session.Send(eventError, gin.H{"message": "unsubscribe_trip requires a trip_id"})
				continue
			}

			h.hub.UnsubscribeTrip(session.ID(), ref.TripID)

		default:
			_ = session.Send(eventError, gin.H{"message": "unknown event"})
		}
	}
}
