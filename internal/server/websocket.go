package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonathan/site-generator/internal/jobs"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// WSMessage is the envelope of every message pushed over a job socket.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowedOrigin(origin) != ""
		},
	}
}

// handleJobSocket pushes the status view of a job as "status" messages and
// closes normally after the terminal "complete" message.
func (s *Server) handleJobSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// The read loop only detects the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug().Err(err).Str("job_id", id).Msg("WebSocket closed")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	err = s.watch(ctx, id, ping.C, func(view jobs.StatusView) error {
		msgType := "status"
		if view.Status.IsTerminal() {
			msgType = "complete"
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(WSMessage{Type: msgType, Payload: view})
	}, func() error {
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
	})

	closeCode, reason := websocket.CloseNormalClosure, "job finished"
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Str("job_id", id).Msg("WebSocket stream ended early")
		_ = conn.WriteJSON(WSMessage{Type: "error", Payload: map[string]string{"error": err.Error()}})
		closeCode, reason = websocket.CloseInternalServerErr, "stream error"
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, reason), time.Now().Add(wsWriteTimeout))
}
