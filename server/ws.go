package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/agentwerk/teamrouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS middleware on the HTTP
	// surface; the websocket endpoint accepts the same clients.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsRequest struct {
	Message string `json:"message"`
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWebsocket streams run events for a thread. Each inbound JSON frame
// {"message": "..."} starts a run; every event of that run is forwarded as
// one JSON frame, ending with the terminal complete or error event. The
// socket then waits for the next message.
func (s *Server) handleWebsocket(c *gin.Context) {
	threadID := c.Param("thread_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("server.ws.upgrade_failed", "thread_id", threadID, "error", err)
		return
	}
	defer conn.Close()

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("server.ws.read_failed", "thread_id", threadID, "error", err)
			}
			return
		}
		if req.Message == "" {
			if err := conn.WriteJSON(wsError{Type: "error", Error: "message must not be empty"}); err != nil {
				return
			}
			continue
		}

		_, _, events, err := s.engine.StartRun(c.Request.Context(), threadID, req.Message)
		if err != nil {
			if errors.Is(err, teamrouter.ErrThreadBusy) {
				if werr := conn.WriteJSON(wsError{Type: "error", Error: "thread has a run in flight"}); werr != nil {
					return
				}
				continue
			}
			s.logger.Error("server.ws.start_failed", "thread_id", threadID, "error", err)
			if werr := conn.WriteJSON(wsError{Type: "error", Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		for ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				// Client went away mid-run; the run keeps executing and
				// its trace is persisted with the turn.
				s.logger.Debug("server.ws.write_failed", "thread_id", threadID, "error", err)
				for range events {
				}
				return
			}
		}
	}
}
