package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/config"
)

// Client is one websocket connection. Outbound events go through a buffered
// channel drained by WritePump, so the router never blocks on a slow peer;
// when the buffer is full the event is dropped for this session (history
// stays authoritative).
type Client struct {
	conn *websocket.Conn
	send chan []byte
	cfg  config.WebSocketConfig
	log  zerolog.Logger
}

func NewClient(conn *websocket.Conn, cfg config.WebSocketConfig, log zerolog.Logger) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		conn: conn,
		send: make(chan []byte, buffer),
		cfg:  cfg,
		log:  log,
	}
}

// Send implements domain.Conn. Marshal failures and full buffers drop the
// event with a log line; neither may stall the router.
func (c *Client) Send(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal outbound event")
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn().Msg("send buffer full, dropping event")
	}
}

// ReadPump reads frames until the connection fails, handing each to handle.
func (c *Client) ReadPump(handle func(frame []byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		handle(frame)
	}
}

// WritePump drains the send channel and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close shuts the outbound channel; WritePump finishes the connection.
func (c *Client) Close() {
	close(c.send)
}
