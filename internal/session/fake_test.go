package session

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeTransport records every frame sent to it and feeds Receive from inbox.
type fakeTransport struct {
	acceptErr error
	sendErr   error
	// onSend runs before every Send, outside the transport lock.
	onSend func(payload []byte)

	mu        sync.Mutex
	accepted  bool
	frames    [][]byte
	closeCode int
	closes    int

	inbox     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbox:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Accept() error {
	if f.acceptErr != nil {
		return f.acceptErr
	}
	f.mu.Lock()
	f.accepted = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(payload []byte) error {
	if f.onSend != nil {
		f.onSend(payload)
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	select {
	case <-f.closed:
		return errors.New("fake transport closed")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) Receive() ([]byte, error) {
	select {
	case data := <-f.inbox:
		return data, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeTransport) Close(code int, _ string) error {
	f.mu.Lock()
	f.closes++
	if f.closeCode == 0 {
		f.closeCode = code
	}
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// push queues an inbound frame as if the peer had sent it.
func (f *fakeTransport) push(t *testing.T, v any) {
	t.Helper()
	data, ok := v.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(v); err != nil {
			t.Fatalf("encode inbound: %v", err)
		}
	}
	f.inbox <- data
}

func (f *fakeTransport) received() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]frame, 0, len(f.frames))
	for _, raw := range f.frames {
		var fr frame
		_ = json.Unmarshal(raw, &fr)
		out = append(out, fr)
	}
	return out
}

func (f *fakeTransport) firstCloseCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

// waitFrames blocks until at least n frames arrived and returns them.
func (f *fakeTransport) waitFrames(t *testing.T, n int) []frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.received(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d frames, got %#v", n, f.received())
	return nil
}

// frame is a superset of every outbound message shape.
type frame struct {
	Type     string   `json:"type"`
	Code     string   `json:"code"`
	Users    []string `json:"users"`
	UserID   string   `json:"user_id"`
	Position *int     `json:"position"`
	IsTyping *bool    `json:"is_typing"`
}
