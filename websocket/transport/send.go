package transport

import (
	"errors"

	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/state"
	"github.com/thesrcielos/QuizBattle/websocket/message"
	"go.uber.org/zap"
)

type OutgoingMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func Send(conn *state.Connection, msg OutgoingMessage, log *zap.Logger) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug("error sending message",
			zap.String("conn_id", conn.ID),
			zap.String("player_id", conn.PlayerID),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

// SendError reports a failed request to the connection that made it.
func SendError(conn *state.Connection, request string, err error, log *zap.Logger) {
	payload := message.ErrorPayload{Request: request, Error: err.Error(), Kind: string(apperrors.KindInternal)}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		payload.Error = appErr.Message
		payload.Kind = string(appErr.Kind)
	}
	Send(conn, OutgoingMessage{Type: message.Error, Payload: payload}, log)
}

// SendToPlayer writes to every connection the player has open here.
func SendToPlayer(registry *state.Registry, playerID string, msg OutgoingMessage, log *zap.Logger) {
	for _, conn := range registry.ForPlayer(playerID) {
		Send(conn, msg, log)
	}
}
