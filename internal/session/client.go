package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
	errNotAccepted    = errors.New("client not accepted")
)

const (
	defaultSendBuffer  = 256
	writeWait          = 10 * time.Second
	closeFrameDeadline = time.Second
)

// ClientOptions tune the websocket heartbeat and limits. Zero values
// disable the corresponding feature.
type ClientOptions struct {
	ReadLimit    int64
	PongWait     time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// Client is the gorilla websocket Transport. Outbound frames are queued and
// written by a single pump goroutine; a full queue counts as a dead peer.
type Client struct {
	w        http.ResponseWriter
	r        *http.Request
	upgrader *websocket.Upgrader
	opts     ClientOptions

	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	stopOnce  sync.Once
	closeOnce sync.Once
}

func NewClient(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Client{
		w:        w,
		r:        r,
		upgrader: upgrader,
		opts:     opts,
		send:     make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) Accept() error {
	conn, err := c.upgrader.Upgrade(c.w, c.r, nil)
	if err != nil {
		return err
	}
	c.conn = conn

	if c.opts.ReadLimit > 0 {
		conn.SetReadLimit(c.opts.ReadLimit)
	}
	if c.opts.PongWait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		})
	}

	go c.writePump()
	return nil
}

func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	if c.conn == nil {
		return errNotAccepted
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) Receive() ([]byte, error) {
	if c.conn == nil {
		return nil, errNotAccepted
	}
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *Client) Close(code int, reason string) error {
	c.stop()
	if c.conn == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameDeadline))
		err = c.conn.Close()
	})
	return err
}

func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// writePump is the only goroutine writing data frames to the connection.
func (c *Client) writePump() {
	var tick <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.fail()
				return
			}
		case <-tick:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.fail()
				return
			}
		}
	}
}

// fail marks the client dead and drops the socket, which unblocks Receive.
func (c *Client) fail() {
	c.stop()
	c.closeOnce.Do(func() { _ = c.conn.Close() })
}
