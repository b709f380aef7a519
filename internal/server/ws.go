package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/smukkama/envdash-server/internal/protocol"
)

const (
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWS upgrades a dashboard client to WebSocket, pushes the current
// state, and drives its read loop until disconnect
func (s *Server) handleWS(c *gin.Context) {
	if s.registry.Count() >= s.config.MaxSubscribers {
		log.Println("Maximum subscribers reached, rejecting connection")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "maximum subscribers reached"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to websocket: %v", err)
		return
	}

	subscriberID := uuid.New().String()
	sub, err := s.registry.Register(subscriberID, conn)
	if err != nil {
		log.Printf("Failed to register subscriber: %v", err)
		conn.Close()
		return
	}

	log.Printf("New subscriber: %s from %s", subscriberID, conn.RemoteAddr())

	go sub.writeLoop(s.config.WriteTimeout)

	// Push current visibility, layers, indicators and snapshot so a
	// fresh dashboard renders without waiting for the next refresh
	for _, data := range s.dashboard.InitialMessages() {
		sub.enqueue(data)
	}

	s.readLoop(sub)
}

// readLoop consumes messages from one subscriber until the connection
// drops, dispatching toggles to the dashboard
func (s *Server) readLoop(sub *Subscriber) {
	defer func() {
		s.registry.Unregister(sub.ID)
		sub.conn.Close()
		log.Printf("Subscriber %s disconnected", sub.ID)
	}()

	sub.conn.SetReadLimit(maxMessageSize)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Subscriber %s read error: %v", sub.ID, err)
			}
			return
		}
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Printf("Failed to parse message from %s: %v", sub.ID, err)
			s.sendAck(sub, protocol.AckStatusError)
			continue
		}

		switch m := msg.(type) {
		case *protocol.ToggleMessage:
			if err := s.dashboard.Toggle(m.Dataset, m.Visible); err != nil {
				log.Printf("Toggle failed for %s: %v", m.Dataset, err)
				s.sendAck(sub, protocol.AckStatusError)
				continue
			}
			s.sendAck(sub, protocol.AckStatusToggled)

		default:
			log.Printf("Unexpected message type from %s: %T", sub.ID, msg)
		}
	}
}

func (s *Server) sendAck(sub *Subscriber, status string) {
	ack := protocol.NewAckMessage(status)
	data, err := protocol.EncodeMessage(ack)
	if err != nil {
		log.Printf("Failed to encode ack: %v", err)
		return
	}
	sub.enqueue(data)
}

// writeLoop drains the send queue to the socket and keeps the
// connection alive with pings. The only writer for this connection.
func (s *Subscriber) writeLoop(writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
				return
			}

			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Write failed for subscriber %s: %v", s.ID, err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
