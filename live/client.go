package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024

	// sendBuffer bounds a subscriber's backlog; overflowing it means the
	// consumer is too slow and gets dropped.
	sendBuffer = 256
)

// Client is one active real-time subscriber to a session or tournament
// topic.
type Client struct {
	ID    uuid.UUID
	Hub   *Hub
	Conn  *websocket.Conn
	Topic string
	Role  ViewerRole

	// Redact strips raw per-judge detail from deltas; set for spectators
	// unless the tournament publishes raw scores.
	Redact bool

	// LastSeq is the last sequence the client acknowledged seeing,
	// supplied on (re)connect and used for replay.
	LastSeq uint64

	send     chan []byte
	closed   bool
	closedMu sync.Mutex
}

func NewClient(hub *Hub, conn *websocket.Conn, topic string, role ViewerRole, redact bool, lastSeq uint64) *Client {
	return &Client{
		ID:      uuid.New(),
		Hub:     hub,
		Conn:    conn,
		Topic:   topic,
		Role:    role,
		Redact:  redact,
		LastSeq: lastSeq,
		send:    make(chan []byte, sendBuffer),
	}
}

// enqueue offers a frame without blocking; false means the backlog is
// full and the caller should drop the client.
func (c *Client) enqueue(frame []byte) bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) close() {
	c.closeSend()
	c.Conn.Close()
}

// ReadPump consumes client frames: heartbeats refresh the read deadline,
// subscribe frames re-run resync from the supplied sequence. Exits on
// disconnect and unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("client read error on topic %s: %v", c.Topic, err)
			}
			return
		}
		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.enqueue(errorFrame(CodeBadFrame, "frames must be JSON"))
			continue
		}
		switch frame.Type {
		case FrameHeartbeat:
			c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		case FrameSubscribe:
			if frame.Topic != "" && frame.Topic != c.Topic {
				c.enqueue(errorFrame(CodeUnknownTopic, "connection is bound to one topic"))
				continue
			}
			c.LastSeq = frame.LastSeq
			c.Hub.resync(c)
		default:
			c.enqueue(errorFrame(CodeBadFrame, "unknown frame type"))
		}
	}
}

// WritePump drains the send channel onto the wire with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("client write error on topic %s: %v", c.Topic, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
