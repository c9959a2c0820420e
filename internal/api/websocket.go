package api

import (
	"net/http"
	"time"

	"github.com/anjaninandan001/algo-tinker/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsPingInterval = 30 * time.Second

// sessionStream pushes the events of one editor session to the client
// until either side goes away.
func (s *Server) sessionStream(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Engine.GetSession(c.Request.Context(), id); err != nil {
		s.respondEngineError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("[WS] upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	stream, unsub := s.Bus.Subscribe(events.EventAll, 100)
	defer unsub()

	// The client never sends anything meaningful; reading detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case msg, ok := <-stream:
			if !ok {
				return
			}
			ev, isSession := msg.(events.SessionEvent)
			if !isSession || ev.SessionID != id {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Debugf("[WS] write error: %v", err)
				return
			}
		}
	}
}
