package websocket

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"go.uber.org/zap"
)

func (h *Handler) listenPlayerMessages(conn *state.Connection, ws *websocket.Conn) {
	ctx := context.Background()
	defer func() {
		h.log.Info("player disconnected", zap.String("player_id", conn.PlayerID), zap.String("conn_id", conn.ID))
		h.actions.Disconnect(ctx, conn)
		h.registry.Unregister(conn.ID)
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("error reading message", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			break
		}

		var msg message.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("error decoding message", zap.String("conn_id", conn.ID), zap.Error(err))
			continue
		}

		h.router.RouteMessage(ctx, conn, msg)
	}
}
