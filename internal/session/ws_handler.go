package session

import (
	"encoding/json"
	"net/http"

	"github.com/gokatarajesh/hcip-drill/internal/server"
	httperrors "github.com/gokatarajesh/hcip-drill/pkg/http/errors"
	"github.com/gokatarajesh/hcip-drill/pkg/http/ws"
)

// HandleWebSocket upgrades GET /ws/sessions/{id} and streams session updates.
// The session token is checked by RequireSession before the upgrade.
func (h *HTTPHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	hub := h.manager.hub
	if hub == nil {
		httperrors.RespondError(w, http.StatusNotImplemented, httperrors.ErrCodeServiceUnavailable, "WebSocket transport disabled")
		return
	}

	s, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := hub.Attach(s.ID(), conn)
	go c.WritePump()

	h.sendState(c, s, ReasonTransition)

	c.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return c.Send(ws.Message{Type: ws.TypePong, Payload: json.RawMessage(`{}`), RequestID: msg.RequestID})
		case ws.TypeRequestState:
			h.sendState(c, s, ReasonTransition)
			return nil
		default:
			reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    httperrors.ErrCodeUnknownMessageType,
				Message: "Unknown message type",
			})
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return c.Send(reply)
		}
	})

	hub.Leave(s.ID(), c)
}

func (h *HTTPHandlers) sendState(c *ws.Connection, s *Session, reason string) {
	data, err := json.Marshal(s.View())
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to marshal session state")
		return
	}
	msg, err := ws.NewMessage(ws.TypeSessionUpdate, ws.SessionUpdatePayload{
		SessionID: s.ID(),
		Reason:    reason,
		Session:   data,
	})
	if err != nil {
		return
	}
	if err := c.Send(msg); err != nil {
		h.logger.Warn().Err(err).Msg("failed to send session state")
	}
}
