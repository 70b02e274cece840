package web

import (
	"bytes"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/domain"
)

// socketEvent is one message sent to a websocket client.
type socketEvent struct {
	State    string               `json:"state"`
	Analysis *domain.FoodAnalysis `json:"analysis,omitempty"`
	Error    string               `json:"error,omitempty"`
	Kind     string               `json:"kind,omitempty"`
}

// handleAnalyzeSocket runs one analysis per incoming message. A message is
// either the raw image bytes or a base64 data URI. Messages that are not an
// image are answered with a failed event and never reach the backend. Messages
// are processed one at a time, so a client cannot have two analyses in
// flight on the same connection.
func (s *Server) handleAnalyzeSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer closeWithLog(conn, "websocket", s.logger)
	conn.SetReadLimit(s.maxUploadBytes)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		declared, ok := acceptedMediaType(data, "")
		if !ok {
			ev := socketEvent{
				State: analysis.StateFailed.String(),
				Error: "unsupported image format",
				Kind:  domain.KindEncoding.String(),
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Warn("websocket write failed", "error", err)
				return
			}
			continue
		}

		observe := func(st analysis.State) {
			if st != analysis.StateRequesting {
				return
			}
			if err := conn.WriteJSON(socketEvent{State: st.String()}); err != nil {
				s.logger.Warn("websocket write failed", "error", err)
			}
		}

		result, err := s.service.Analyze(r.Context(), bytes.NewReader(data), declared, observe)
		ev := socketEvent{State: analysis.StateSucceeded.String(), Analysis: &result}
		if err != nil {
			ev = socketEvent{
				State: analysis.StateFailed.String(),
				Error: err.Error(),
				Kind:  domain.KindOf(err).String(),
			}
		}
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}
