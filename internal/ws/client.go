package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Client wraps a websocket connection and serializes outbound writes through
// a buffered channel. It is safe for concurrent use.
type Client struct {
	ID     string
	UserID int
	Info   ConnInfo

	ws   *websocket.Conn
	send chan []byte

	once        sync.Once
	closed      chan struct{}
	closeCode   int
	closeReason string
}

// NewClient constructs a Client for the given user.
func NewClient(userID int, ws *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Info:   info,
		ws:     ws,
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per client.
func (c *Client) Start() {
	go c.writeLoop()
}

// Send enqueues a frame for delivery. A full buffer closes the connection so
// a stalled client cannot block senders.
func (c *Client) Send(frame []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.send <- frame:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("send buffer full")
	}
}

// Close terminates the connection and stops the write loop.
func (c *Client) Close(code int, reason string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.closed)
	})
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			message := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
			return
		}
	}
}
