package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// serveClient upgrades every request into a Client and hands it to fn.
func serveClient(t *testing.T, opts ClientOptions, fn func(*Client)) *websocket.Conn {
	t.Helper()
	upgrader := &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := NewClient(w, r, upgrader, opts)
		if err := c.Accept(); err != nil {
			return
		}
		fn(c)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClientSendWritesTextFrame(t *testing.T) {
	conn := serveClient(t, ClientOptions{}, func(c *Client) {
		_ = c.Send([]byte(`{"type":"sync"}`))
		_, _ = c.Receive()
	})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage || string(data) != `{"type":"sync"}` {
		t.Fatalf("unexpected frame %d %q", kind, data)
	}
}

func TestClientReceiveReturnsPeerFrames(t *testing.T) {
	got := make(chan string, 1)
	conn := serveClient(t, ClientOptions{}, func(c *Client) {
		data, err := c.Receive()
		if err == nil {
			got <- string(data)
		}
	})

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"user_typing"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case frame := <-got:
		if frame != `{"type":"user_typing"}` {
			t.Fatalf("unexpected frame %q", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not receive frame")
	}
}

func TestClientCloseSendsCloseCode(t *testing.T) {
	sendErr := make(chan error, 1)
	conn := serveClient(t, ClientOptions{}, func(c *Client) {
		_ = c.Close(CloseInternalError, "Connection failed")
		sendErr <- c.Send([]byte("late"))
		_ = c.Close(CloseNormal, "")
	})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, CloseInternalError) {
		t.Fatalf("expected close %d, got %v", CloseInternalError, err)
	}
	if err := <-sendErr; !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed after close, got %v", err)
	}
}

func TestClientReadLimitEndsReceive(t *testing.T) {
	recvErr := make(chan error, 1)
	conn := serveClient(t, ClientOptions{ReadLimit: 16}, func(c *Client) {
		_, err := c.Receive()
		recvErr <- err
	})

	_ = conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 64)))
	select {
	case err := <-recvErr:
		if err == nil {
			t.Fatal("expected oversized frame to fail")
		}
	case <-time.After(time.Second):
		t.Fatal("receive did not return")
	}
}

func TestClientPingsOnInterval(t *testing.T) {
	conn := serveClient(t, ClientOptions{PingInterval: 20 * time.Millisecond, PongWait: time.Second}, func(c *Client) {
		_, _ = c.Receive()
	})

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() { _, _, _ = conn.ReadMessage() }()

	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("expected a ping from the server")
	}
}

func TestClientAcceptFailsWithoutUpgradeHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws/r/u", nil)
	c := NewClient(rec, req, &websocket.Upgrader{}, ClientOptions{})

	if err := c.Accept(); err == nil {
		t.Fatal("expected handshake failure")
	}
	if err := c.Send([]byte("x")); err == nil {
		t.Fatal("send before accept should fail")
	}
	if err := c.Close(CloseNormal, ""); err != nil {
		t.Fatalf("close on unaccepted client: %v", err)
	}
}
