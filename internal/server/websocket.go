package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vkornev/logbay/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and serves the live feed: one
// "connected" status, then per-subscription acks and logEntry pushes. The
// client selects a file with {"type":"subscribe","fileId":...}; a later
// subscribe replaces the earlier one.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := s.hub.Register()
	defer s.hub.Unregister(client)

	s.hub.Send(client, model.StatusMessage("connected"))

	// Read pump — handle subscribe messages and detect disconnect.
	go func() {
		defer s.hub.Unregister(client)
		for {
			var msg model.ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != "subscribe" {
				continue
			}
			f, ok := s.store.File(msg.FileID)
			if !ok {
				continue
			}
			s.hub.Subscribe(client, msg.FileID)
			s.hub.Send(client, model.SubscribedMessage(f.FileName))
		}
	}()

	// Write pump — deliver queued messages until the client is unregistered.
	for msg := range client.Messages() {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("websocket write failed: %v", err)
			return
		}
	}
}
