package transport

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the client session.
type Config struct {
	URL string

	HandshakeTimeout time.Duration // default 10s
	BackoffMin       time.Duration // default 1s, doubles per failed attempt
	BackoffMax       time.Duration // default 30s
	PingInterval     time.Duration // default 30s
	WriteTimeout     time.Duration // default 10s
	SendBuffer       int           // default 256 frames
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
}

// Client maintains one outbound websocket connection to the controller,
// redialing with exponential backoff whenever the link drops. Inbound text
// frames are delivered to OnMessage from the read goroutine; OnConnect fires
// after every successful (re)connection, before any read.
type Client struct {
	cfg Config

	// Set both before calling Run.
	OnConnect func()
	OnMessage func(data []byte)

	send chan []byte
}

// New creates a client for the given server URL.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:  cfg,
		send: make(chan []byte, cfg.SendBuffer),
	}
}

// Send queues one outbound text frame. It never blocks: while the link is
// down or the buffer is full the frame is dropped, which matches the
// at-most-once delivery contract for status feedback.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("[ws] send buffer full, dropping frame")
	}
}

// Run dials and re-dials the server until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.BackoffMin
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	for {
		conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[ws] connect %s: %v (retrying in %s)", c.cfg.URL, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.cfg.BackoffMax {
				backoff = c.cfg.BackoffMax
			}
			continue
		}

		log.Printf("[ws] connected to %s", c.cfg.URL)
		backoff = c.cfg.BackoffMin
		if c.OnConnect != nil {
			c.OnConnect()
		}

		c.serve(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[ws] connection lost, reconnecting")
	}
}

// serve runs the write pump for one connection; the read loop runs in a
// child goroutine. Either side failing tears the connection down and
// returns control to the redial loop.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	pongWait := 2 * c.cfg.PingInterval
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		conn.SetReadLimit(64 << 10)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("[ws] read: %v", err)
				}
				return
			}
			if c.OnMessage != nil {
				c.OnMessage(data)
			}
		}
	}()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		case <-readDone:
			return
		case data := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
